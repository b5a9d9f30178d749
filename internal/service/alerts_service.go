package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pocketbroker/internal/errors"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/storage"
	"github.com/pocketbroker/internal/types"
	"golang.org/x/sync/errgroup"
)

// Default suspicion thresholds
const (
	DefaultGasFeeThreshold = 100
	DefaultAmountThreshold = 10000
	AlertListLimit         = 100
)

// AlertsReader runs the queries behind the transaction alerts report
type AlertsReader interface {
	FailedTransactions(ctx context.Context, limit int) ([]*models.TransactionWithUser, error)
	SuspiciousTransactions(ctx context.Context, th storage.SuspicionThresholds, limit int) ([]*models.TransactionWithUser, error)
	CountFailed(ctx context.Context, since *time.Time) (int64, error)
	CountSuspicious(ctx context.Context, th storage.SuspicionThresholds, since *time.Time) (int64, error)
}

// TransactionUser is the owner block attached to joined transaction rows
type TransactionUser struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Email         *string `json:"email"`
	WalletAddress *string `json:"walletAddress"`
}

// TransactionView is a transaction reshaped with its owner block
type TransactionView struct {
	ID               int64                   `json:"id"`
	TxHash           string                  `json:"txHash"`
	Type             types.TransactionType   `json:"type"`
	Status           types.TransactionStatus `json:"status"`
	TokenIn          *string                 `json:"tokenIn"`
	TokenOut         *string                 `json:"tokenOut"`
	AmountIn         *float64                `json:"amountIn"`
	AmountOut        *float64                `json:"amountOut"`
	GasFee           *float64                `json:"gasFee"`
	Timestamp        time.Time               `json:"timestamp"`
	SuspiciousReason string                  `json:"suspiciousReason,omitempty"`
	User             TransactionUser         `json:"user"`
}

// AlertsSummary counts flagged transactions overall and in the last 24 hours
type AlertsSummary struct {
	TotalFailed       int64 `json:"totalFailed"`
	TotalSuspicious   int64 `json:"totalSuspicious"`
	FailedLast24h     int64 `json:"failedLast24h"`
	SuspiciousLast24h int64 `json:"suspiciousLast24h"`
}

// AlertsReport is the transaction alerts response
type AlertsReport struct {
	FailedTransactions     []TransactionView `json:"failedTransactions"`
	SuspiciousTransactions []TransactionView `json:"suspiciousTransactions"`
	Summary                AlertsSummary      `json:"summary"`
}

// ClassifySuspicious reports why a transaction is suspicious under th.
// Only confirmed and pending transactions can be suspicious.
func ClassifySuspicious(tx *models.Transaction, th storage.SuspicionThresholds) (string, bool) {
	if tx.Status != types.StatusConfirmed && tx.Status != types.StatusPending {
		return "", false
	}
	highGas := valueOf(tx.GasFee) > th.GasFee
	highAmount := valueOf(tx.AmountIn) > th.Amount

	gas := "High gas fee (>" + formatThreshold(th.GasFee) + ")"
	switch {
	case highGas && highAmount:
		return fmt.Sprintf("%s and high amount (>%s)", gas, formatThreshold(th.Amount)), true
	case highGas:
		return gas, true
	case highAmount:
		return "High amount (>" + formatThreshold(th.Amount) + ")", true
	}
	return "", false
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func valueOf(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// ownerBlock builds the user block of a joined row. Owners without an auth
// identity are named fallback.
func ownerBlock(tx *models.TransactionWithUser, fallback string) TransactionUser {
	name := fallback
	if tx.UserName != nil && *tx.UserName != "" {
		name = *tx.UserName
	}
	return TransactionUser{
		ID:            tx.UserID,
		Name:          name,
		Email:         tx.UserEmail,
		WalletAddress: tx.UserWalletAddress,
	}
}

// AlertsService builds the failed and suspicious transaction report
type AlertsService struct {
	repo       AlertsReader
	thresholds storage.SuspicionThresholds
	now        func() time.Time
}

// NewAlertsService creates an alerts service. Non-positive thresholds fall
// back to the defaults.
func NewAlertsService(repo AlertsReader, th storage.SuspicionThresholds) *AlertsService {
	if th.GasFee <= 0 {
		th.GasFee = DefaultGasFeeThreshold
	}
	if th.Amount <= 0 {
		th.Amount = DefaultAmountThreshold
	}
	return &AlertsService{repo: repo, thresholds: th, now: time.Now}
}

// Thresholds returns the thresholds in effect
func (s *AlertsService) Thresholds() storage.SuspicionThresholds {
	return s.thresholds
}

// Report lists the newest flagged transactions and counts them
func (s *AlertsService) Report(ctx context.Context) (*AlertsReport, error) {
	dayAgo := s.now().Add(-24 * time.Hour)

	var (
		failed, suspicious []*models.TransactionWithUser
		summary            AlertsSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		failed, err = s.repo.FailedTransactions(gctx, AlertListLimit)
		return err
	})
	g.Go(func() (err error) {
		suspicious, err = s.repo.SuspiciousTransactions(gctx, s.thresholds, AlertListLimit)
		return err
	})
	g.Go(func() (err error) {
		summary.TotalFailed, err = s.repo.CountFailed(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		summary.TotalSuspicious, err = s.repo.CountSuspicious(gctx, s.thresholds, nil)
		return err
	})
	g.Go(func() (err error) {
		summary.FailedLast24h, err = s.repo.CountFailed(gctx, &dayAgo)
		return err
	})
	g.Go(func() (err error) {
		summary.SuspiciousLast24h, err = s.repo.CountSuspicious(gctx, s.thresholds, &dayAgo)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.NewDatabaseError("transaction alerts", err)
	}

	report := &AlertsReport{
		FailedTransactions:     make([]TransactionView, 0, len(failed)),
		SuspiciousTransactions: make([]TransactionView, 0, len(suspicious)),
		Summary:                summary,
	}
	for _, tx := range failed {
		report.FailedTransactions = append(report.FailedTransactions, transactionView(tx, "", "Unknown"))
	}
	for _, tx := range suspicious {
		reason, _ := ClassifySuspicious(&tx.Transaction, s.thresholds)
		report.SuspiciousTransactions = append(report.SuspiciousTransactions, transactionView(tx, reason, "Unknown"))
	}
	return report, nil
}

func transactionView(tx *models.TransactionWithUser, reason, unnamed string) TransactionView {
	return TransactionView{
		ID:               tx.ID,
		TxHash:           tx.TxHash,
		Type:             tx.Type,
		Status:           tx.Status,
		TokenIn:          tx.TokenIn,
		TokenOut:         tx.TokenOut,
		AmountIn:         tx.AmountIn,
		AmountOut:        tx.AmountOut,
		GasFee:           tx.GasFee,
		Timestamp:        tx.Timestamp,
		SuspiciousReason: reason,
		User:             ownerBlock(tx, unnamed),
	}
}
