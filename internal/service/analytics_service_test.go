package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyticsReader struct {
	users       int64
	activeSince time.Time
	in, out     []models.TokenActivity
	failWith    error
}

func (s *stubAnalyticsReader) CountUsers(ctx context.Context) (int64, error) {
	return s.users, s.failWith
}

func (s *stubAnalyticsReader) CountActiveUsersSince(ctx context.Context, since time.Time) (int64, error) {
	s.activeSince = since
	return 3, nil
}

func (s *stubAnalyticsReader) TransactionTotals(ctx context.Context) (*models.TransactionTotals, error) {
	return &models.TransactionTotals{Count: 12, Volume: 6000, AverageValue: 500, AverageGas: 2.5, TotalGas: 30}, nil
}

func (s *stubAnalyticsReader) StatusCounts(ctx context.Context) (*models.StatusCounts, error) {
	return &models.StatusCounts{Pending: 2, Confirmed: 9, Failed: 1}, nil
}

func (s *stubAnalyticsReader) TokenInActivity(ctx context.Context) ([]models.TokenActivity, error) {
	return s.in, nil
}

func (s *stubAnalyticsReader) TokenOutActivity(ctx context.Context) ([]models.TokenActivity, error) {
	return s.out, nil
}

func (s *stubAnalyticsReader) DailyVolumeSince(ctx context.Context, since time.Time) ([]models.DailyVolume, error) {
	return nil, nil
}

func (s *stubAnalyticsReader) DailySignupsSince(ctx context.Context, since time.Time) ([]models.DailySignups, error) {
	return []models.DailySignups{{Date: "2025-03-01", NewUsers: 4}}, nil
}

func TestMergeTokenPopularity(t *testing.T) {
	in := []models.TokenActivity{{Token: "ETH", Count: 3, Volume: 100}, {Token: "USDC", Count: 1, Volume: 5}}
	out := []models.TokenActivity{{Token: "ETH", Count: 2, Volume: 50}, {Token: "", Count: 9, Volume: 1}}

	got := MergeTokenPopularity(in, out, TopTokenCount)
	require.Len(t, got, 2)
	assert.Equal(t, models.TokenActivity{Token: "ETH", Count: 5, Volume: 150}, got[0])
	assert.Equal(t, "USDC", got[1].Token)
}

func TestMergeTokenPopularity_TopAndTies(t *testing.T) {
	in := []models.TokenActivity{
		{Token: "C", Count: 4}, {Token: "A", Count: 4}, {Token: "B", Count: 4}, {Token: "D", Count: 1},
	}
	got := MergeTokenPopularity(in, nil, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{got[0].Token, got[1].Token, got[2].Token})
}

func TestMergeTokenPopularity_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	symbols := []string{"ETH", "USDC", "USDT", "WBTC", "DAI", "LINK", "UNI", "AAVE", "MKR", "CRV", "SNX", "COMP"}

	genGroup := gen.SliceOf(gen.IntRange(0, len(symbols)-1))
	toActivity := func(idx []int) []models.TokenActivity {
		acts := make([]models.TokenActivity, 0, len(idx))
		for i, j := range idx {
			acts = append(acts, models.TokenActivity{Token: symbols[j], Count: int64(i%5 + 1), Volume: float64(i)})
		}
		return acts
	}

	properties.Property("count is conserved before truncation", prop.ForAll(
		func(a, b []int) bool {
			in, out := toActivity(a), toActivity(b)
			var want int64
			for _, x := range append(append([]models.TokenActivity{}, in...), out...) {
				want += x.Count
			}
			var got int64
			for _, x := range MergeTokenPopularity(in, out, -1) {
				got += x.Count
			}
			return got == want
		},
		genGroup, genGroup,
	))

	properties.Property("result is sorted and bounded", prop.ForAll(
		func(a, b []int) bool {
			got := MergeTokenPopularity(toActivity(a), toActivity(b), TopTokenCount)
			if len(got) > TopTokenCount {
				return false
			}
			seen := make(map[string]bool)
			for i, x := range got {
				if seen[x.Token] {
					return false
				}
				seen[x.Token] = true
				if i > 0 && got[i-1].Count < x.Count {
					return false
				}
			}
			return true
		},
		genGroup, genGroup,
	))

	properties.TestingRun(t)
}

func TestAnalyticsService_Report(t *testing.T) {
	now := time.Date(2025, 3, 31, 9, 0, 0, 0, time.UTC)
	repo := &stubAnalyticsReader{
		users: 20,
		in:    []models.TokenActivity{{Token: "ETH", Count: 3, Volume: 100}},
		out:   []models.TokenActivity{{Token: "ETH", Count: 2, Volume: 50}},
	}
	svc := NewAnalyticsService(repo)
	svc.now = func() time.Time { return now }

	report, err := svc.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(20), report.TotalUsers)
	assert.Equal(t, int64(3), report.ActiveUsers)
	assert.Equal(t, now.AddDate(0, 0, -30), repo.activeSince)
	assert.Equal(t, int64(12), report.TotalTransactions)
	assert.Equal(t, int64(9), report.CompletedTransactions)
	assert.Equal(t, int64(2), report.PendingTransactions)
	assert.Equal(t, int64(1), report.FailedTransactions)
	assert.InDelta(t, 6000.0, report.TotalVolumeUSD, 1e-9)
	assert.InDelta(t, 30.0, report.TotalGasPaid, 1e-9)
	assert.Equal(t, []models.TokenActivity{{Token: "ETH", Count: 5, Volume: 150}}, report.MostTradedTokens)
	assert.NotNil(t, report.TransactionVolumeByDay)
	assert.Len(t, report.UserGrowth, 1)
}

func TestAnalyticsService_ReportFailure(t *testing.T) {
	svc := NewAnalyticsService(&stubAnalyticsReader{failWith: stderrors.New("timeout")})

	_, err := svc.Report(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsSystemError(err))
}

func TestClassifySuspicious(t *testing.T) {
	th := storage.SuspicionThresholds{GasFee: DefaultGasFeeThreshold, Amount: DefaultAmountThreshold}

	tests := []struct {
		name       string
		tx         models.Transaction
		wantReason string
		want       bool
	}{
		{"high gas", models.Transaction{GasFee: floatPtr(150), AmountIn: floatPtr(500), Status: types.StatusConfirmed}, "High gas fee (>100)", true},
		{"high amount", models.Transaction{GasFee: floatPtr(50), AmountIn: floatPtr(20000), Status: types.StatusPending}, "High amount (>10000)", true},
		{"both", models.Transaction{GasFee: floatPtr(101), AmountIn: floatPtr(10001), Status: types.StatusConfirmed}, "High gas fee (>100) and high amount (>10000)", true},
		{"failed is never suspicious", models.Transaction{GasFee: floatPtr(500), Status: types.StatusFailed}, "", false},
		{"at threshold", models.Transaction{GasFee: floatPtr(100), AmountIn: floatPtr(10000), Status: types.StatusConfirmed}, "", false},
		{"missing values", models.Transaction{Status: types.StatusPending}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := ClassifySuspicious(&tt.tx, th)
			if ok != tt.want || reason != tt.wantReason {
				t.Errorf("ClassifySuspicious() = (%q, %v), want (%q, %v)", reason, ok, tt.wantReason, tt.want)
			}
		})
	}
}

func TestClassifySuspicious_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	th := storage.SuspicionThresholds{GasFee: 100, Amount: 10000}
	statuses := []types.TransactionStatus{types.StatusPending, types.StatusConfirmed, types.StatusFailed}

	properties.Property("flagged iff live and over a threshold", prop.ForAll(
		func(gas, amount float64, s int) bool {
			tx := models.Transaction{GasFee: &gas, AmountIn: &amount, Status: statuses[s]}
			_, ok := ClassifySuspicious(&tx, th)
			live := tx.Status != types.StatusFailed
			return ok == (live && (gas > th.GasFee || amount > th.Amount))
		},
		gen.Float64Range(0, 300),
		gen.Float64Range(0, 30000),
		gen.IntRange(0, len(statuses)-1),
	))

	properties.TestingRun(t)
}

type stubAlertsReader struct {
	failed, suspicious []*models.TransactionWithUser
}

func (s *stubAlertsReader) FailedTransactions(ctx context.Context, limit int) ([]*models.TransactionWithUser, error) {
	return s.failed, nil
}

func (s *stubAlertsReader) SuspiciousTransactions(ctx context.Context, th storage.SuspicionThresholds, limit int) ([]*models.TransactionWithUser, error) {
	return s.suspicious, nil
}

func (s *stubAlertsReader) CountFailed(ctx context.Context, since *time.Time) (int64, error) {
	if since != nil {
		return 1, nil
	}
	return 4, nil
}

func (s *stubAlertsReader) CountSuspicious(ctx context.Context, th storage.SuspicionThresholds, since *time.Time) (int64, error) {
	if since != nil {
		return 2, nil
	}
	return 7, nil
}

func TestAlertsService_Report(t *testing.T) {
	name := "Ada"
	repo := &stubAlertsReader{
		failed: []*models.TransactionWithUser{{
			Transaction: models.Transaction{ID: 1, UserID: 9, Status: types.StatusFailed},
			UserEmail:   strPtr("anon@x.io"),
		}},
		suspicious: []*models.TransactionWithUser{{
			Transaction: models.Transaction{ID: 2, UserID: 8, GasFee: floatPtr(150), AmountIn: floatPtr(1), Status: types.StatusConfirmed},
			UserEmail:   strPtr("ada@x.io"),
			UserName:    &name,
		}},
	}

	svc := NewAlertsService(repo, storage.SuspicionThresholds{})
	assert.Equal(t, storage.SuspicionThresholds{GasFee: 100, Amount: 10000}, svc.Thresholds())

	report, err := svc.Report(context.Background())
	require.NoError(t, err)

	require.Len(t, report.FailedTransactions, 1)
	assert.Equal(t, "Unknown", report.FailedTransactions[0].User.Name)
	assert.Empty(t, report.FailedTransactions[0].SuspiciousReason)

	require.Len(t, report.SuspiciousTransactions, 1)
	assert.Equal(t, "Ada", report.SuspiciousTransactions[0].User.Name)
	assert.Equal(t, "High gas fee (>100)", report.SuspiciousTransactions[0].SuspiciousReason)

	assert.Equal(t, AlertsSummary{TotalFailed: 4, TotalSuspicious: 7, FailedLast24h: 1, SuspiciousLast24h: 2}, report.Summary)
}
