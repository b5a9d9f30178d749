// Package worker runs the background price-alert evaluation.
package worker

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/pocketbroker/internal/logging"
	"github.com/pocketbroker/internal/market"
	"github.com/pocketbroker/internal/metrics"
	"github.com/pocketbroker/internal/models"
	"github.com/pocketbroker/internal/notify"
	"github.com/pocketbroker/internal/ratelimit"
)

// AlertStore is the price alert persistence the evaluator needs
type AlertStore interface {
	ListUntriggered(ctx context.Context) ([]*models.PriceAlert, error)
	RecordPrice(ctx context.Context, id int64, price float64, triggered bool) error
	ListPendingNotifications(ctx context.Context) ([]models.PendingNotification, error)
	MarkNotified(ctx context.Context, id int64) error
}

// CoinSource supplies current market prices
type CoinSource interface {
	Coins(ctx context.Context) ([]market.Coin, error)
}

// AlertObserver counts evaluation outcomes
type AlertObserver interface {
	ObserveAlert(outcome string, n int)
}

// RunResult summarizes one evaluation run
type RunResult struct {
	Evaluated int
	Unpriced  int
	Triggered int
	Notified  int
	Failed    int
	Duration  time.Duration
}

// AlertEvaluator prices untriggered alerts, fires the ones whose condition
// holds and emails owners of fired alerts
type AlertEvaluator struct {
	store    AlertStore
	coins    CoinSource
	notifier notify.Notifier
	observer AlertObserver
}

// NewAlertEvaluator creates an evaluator. observer may be nil.
func NewAlertEvaluator(store AlertStore, coins CoinSource, notifier notify.Notifier, observer AlertObserver) *AlertEvaluator {
	return &AlertEvaluator{store: store, coins: coins, notifier: notifier, observer: observer}
}

// Run performs one evaluation pass. Pending notifications are sent even
// when prices could not be fetched.
func (e *AlertEvaluator) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).WithComponent("alert-evaluator")
	result := &RunResult{}

	evalErr := e.evaluate(ctx, result)
	if evalErr != nil {
		logger.WithError(evalErr).Error("Price evaluation failed")
	}
	notifyErr := e.notify(ctx, result)
	if notifyErr != nil {
		logger.WithError(notifyErr).Error("Alert notification failed")
	}

	result.Duration = time.Since(start)
	e.observe(metrics.AlertPriced, result.Evaluated)
	e.observe(metrics.AlertUnpriced, result.Unpriced)
	e.observe(metrics.AlertTriggered, result.Triggered)
	e.observe(metrics.AlertNotified, result.Notified)
	e.observe(metrics.AlertFailed, result.Failed)

	logger.WithFields(map[string]interface{}{
		"evaluated": result.Evaluated,
		"unpriced":  result.Unpriced,
		"triggered": result.Triggered,
		"notified":  result.Notified,
		"failed":    result.Failed,
		"duration":  result.Duration.String(),
	}).Info("Price alert run completed")

	return result, stderrors.Join(evalErr, notifyErr)
}

func (e *AlertEvaluator) evaluate(ctx context.Context, result *RunResult) error {
	alerts, err := e.store.ListUntriggered(ctx)
	if err != nil {
		return fmt.Errorf("failed to list untriggered alerts: %w", err)
	}
	if len(alerts) == 0 {
		return nil
	}

	// background work draws on the shared call budget
	coins, err := e.coins.Coins(ratelimit.WithPriority(ctx, ratelimit.PriorityLow))
	if err != nil {
		return fmt.Errorf("failed to fetch prices: %w", err)
	}
	prices := market.PriceMap(coins)

	for _, a := range alerts {
		price, ok := prices[strings.ToUpper(strings.TrimSpace(a.TokenSymbol))]
		if !ok {
			result.Unpriced++
			continue
		}
		fired := a.Condition.Met(price, a.TargetPrice)
		if err := e.store.RecordPrice(ctx, a.ID, price, fired); err != nil {
			result.Failed++
			logging.FromContext(ctx).WithError(err).WithField("alertId", a.ID).Warn("Failed to record alert price")
			continue
		}
		result.Evaluated++
		if fired {
			result.Triggered++
		}
	}
	return nil
}

func (e *AlertEvaluator) notify(ctx context.Context, result *RunResult) error {
	pending, err := e.store.ListPendingNotifications(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending notifications: %w", err)
	}

	for _, p := range pending {
		logger := logging.FromContext(ctx).WithField("alertId", p.Alert.ID)
		msg := notify.PriceAlert{
			AlertID:     p.Alert.ID,
			To:          p.UserEmail,
			TokenSymbol: p.Alert.TokenSymbol,
			Condition:   p.Alert.Condition,
			TargetPrice: p.Alert.TargetPrice,
		}
		if p.Alert.CurrentPrice != nil {
			msg.CurrentPrice = *p.Alert.CurrentPrice
		}

		// Unsent alerts stay un-notified and are retried on the next run
		if err := e.notifier.NotifyPriceAlert(ctx, msg); err != nil {
			result.Failed++
			logger.WithError(err).Warn("Failed to send alert notification")
			continue
		}
		if err := e.store.MarkNotified(ctx, p.Alert.ID); err != nil {
			result.Failed++
			logger.WithError(err).Warn("Failed to mark alert notified")
			continue
		}
		result.Notified++
	}
	return nil
}

func (e *AlertEvaluator) observe(outcome string, n int) {
	if e.observer != nil {
		e.observer.ObserveAlert(outcome, n)
	}
}
