package service

import (
	"context"
	"sort"
	"time"

	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/models"
	"golang.org/x/sync/errgroup"
)

// AnalyticsReader runs the aggregate queries behind the analytics report
type AnalyticsReader interface {
	CountUsers(ctx context.Context) (int64, error)
	CountActiveUsersSince(ctx context.Context, since time.Time) (int64, error)
	TransactionTotals(ctx context.Context) (*models.TransactionTotals, error)
	StatusCounts(ctx context.Context) (*models.StatusCounts, error)
	TokenInActivity(ctx context.Context) ([]models.TokenActivity, error)
	TokenOutActivity(ctx context.Context) ([]models.TokenActivity, error)
	DailyVolumeSince(ctx context.Context, since time.Time) ([]models.DailyVolume, error)
	DailySignupsSince(ctx context.Context, since time.Time) ([]models.DailySignups, error)
}

// Report windows and sizes
const (
	AnalyticsWindowDays = 30
	TopTokenCount       = 10
)

// AnalyticsReport is the platform KPI summary
type AnalyticsReport struct {
	TotalUsers              int64                  `json:"totalUsers"`
	ActiveUsers             int64                  `json:"activeUsers"`
	TotalTransactions       int64                  `json:"totalTransactions"`
	PendingTransactions     int64                  `json:"pendingTransactions"`
	FailedTransactions      int64                  `json:"failedTransactions"`
	CompletedTransactions   int64                  `json:"completedTransactions"`
	TotalVolumeUSD          float64                `json:"totalVolumeUsd"`
	MostTradedTokens        []models.TokenActivity `json:"mostTradedTokens"`
	TransactionVolumeByDay  []models.DailyVolume   `json:"transactionVolumeByDay"`
	UserGrowth              []models.DailySignups  `json:"userGrowth"`
	AverageTransactionValue float64                `json:"averageTransactionValue"`
	AverageGasFee           float64                `json:"averageGasFee"`
	TotalGasPaid            float64                `json:"totalGasPaid"`
}

// AnalyticsService computes the analytics report
type AnalyticsService struct {
	repo AnalyticsReader
	now  func() time.Time
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(repo AnalyticsReader) *AnalyticsService {
	return &AnalyticsService{repo: repo, now: time.Now}
}

// Report runs every reading concurrently and assembles the report. The first
// failing reading cancels the rest.
func (s *AnalyticsService) Report(ctx context.Context) (*AnalyticsReport, error) {
	since := s.now().UTC().AddDate(0, 0, -AnalyticsWindowDays)

	var (
		report   AnalyticsReport
		totals   *models.TransactionTotals
		statuses *models.StatusCounts
		in, out  []models.TokenActivity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		report.TotalUsers, err = s.repo.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		report.ActiveUsers, err = s.repo.CountActiveUsersSince(gctx, since)
		return err
	})
	g.Go(func() (err error) {
		totals, err = s.repo.TransactionTotals(gctx)
		return err
	})
	g.Go(func() (err error) {
		statuses, err = s.repo.StatusCounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		in, err = s.repo.TokenInActivity(gctx)
		return err
	})
	g.Go(func() (err error) {
		out, err = s.repo.TokenOutActivity(gctx)
		return err
	})
	g.Go(func() (err error) {
		report.TransactionVolumeByDay, err = s.repo.DailyVolumeSince(gctx, since)
		return err
	})
	g.Go(func() (err error) {
		report.UserGrowth, err = s.repo.DailySignupsSince(gctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.NewDatabaseError("analytics report", err)
	}

	report.TotalTransactions = totals.Count
	report.TotalVolumeUSD = totals.Volume
	report.AverageTransactionValue = totals.AverageValue
	report.AverageGasFee = totals.AverageGas
	report.TotalGasPaid = totals.TotalGas
	report.PendingTransactions = statuses.Pending
	report.FailedTransactions = statuses.Failed
	report.CompletedTransactions = statuses.Confirmed
	report.MostTradedTokens = MergeTokenPopularity(in, out, TopTokenCount)

	if report.TransactionVolumeByDay == nil {
		report.TransactionVolumeByDay = []models.DailyVolume{}
	}
	if report.UserGrowth == nil {
		report.UserGrowth = []models.DailySignups{}
	}
	return &report, nil
}

// MergeTokenPopularity merges the per-side token groups by symbol, summing
// counts and volumes, and returns the top limit by count. Ties are ordered by
// symbol. Empty symbols are dropped.
func MergeTokenPopularity(in, out []models.TokenActivity, limit int) []models.TokenActivity {
	merged := make(map[string]*models.TokenActivity)
	for _, group := range [][]models.TokenActivity{in, out} {
		for _, a := range group {
			if a.Token == "" {
				continue
			}
			m, ok := merged[a.Token]
			if !ok {
				m = &models.TokenActivity{Token: a.Token}
				merged[a.Token] = m
			}
			m.Count += a.Count
			m.Volume += a.Volume
		}
	}

	result := make([]models.TokenActivity, 0, len(merged))
	for _, m := range merged {
		result = append(result, *m)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Token < result[j].Token
	})

	if limit >= 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
