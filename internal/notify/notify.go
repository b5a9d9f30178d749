// Package notify emails users when their price alerts trigger.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/pocketbroker/internal/config"
	"github.com/pocketbroker/internal/logging"
	"github.com/pocketbroker/internal/types"
	"github.com/resend/resend-go/v3"
)

// PriceAlert is what a triggered-alert email needs to say
type PriceAlert struct {
	AlertID      int64
	To           string
	TokenSymbol  string
	Condition    types.AlertCondition
	TargetPrice  float64
	CurrentPrice float64
}

// Notifier delivers triggered price alerts
type Notifier interface {
	NotifyPriceAlert(ctx context.Context, alert PriceAlert) error
}

// New returns a Resend notifier, or a log-only notifier when no API key is
// configured
func New(cfg *config.EmailConfig) Notifier {
	if cfg.ResendAPIKey == "" {
		logging.GetGlobalLogger().WithComponent("notify").Warn("RESEND_API_KEY is not set, alert emails will only be logged")
		return LogNotifier{}
	}
	return NewResendNotifier(resend.NewClient(cfg.ResendAPIKey).Emails, cfg.From, cfg.AppName)
}

type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendNotifier sends alert emails through Resend
type ResendNotifier struct {
	emails  emailSender
	from    string
	appName string
}

// NewResendNotifier creates a notifier over a Resend emails client
func NewResendNotifier(emails emailSender, from, appName string) *ResendNotifier {
	if appName == "" {
		appName = "PocketBroker"
	}
	if from == "" {
		from = fmt.Sprintf("%s <alerts@pocketbroker.app>", appName)
	}
	return &ResendNotifier{emails: emails, from: from, appName: appName}
}

// NotifyPriceAlert sends one alert email
func (n *ResendNotifier) NotifyPriceAlert(ctx context.Context, alert PriceAlert) error {
	html, err := renderAlert(n.appName, alert)
	if err != nil {
		return err
	}

	sent, err := n.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{alert.To},
		Subject: Subject(alert),
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to send alert email via Resend: %w", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"alertId": alert.AlertID,
		"emailId": sent.Id,
	}).Info("Sent price alert email")
	return nil
}

// LogNotifier writes alerts to the log instead of sending them
type LogNotifier struct{}

func (LogNotifier) NotifyPriceAlert(ctx context.Context, alert PriceAlert) error {
	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"alertId": alert.AlertID,
		"to":      alert.To,
		"subject": Subject(alert),
	}).Info("Price alert email (not sent)")
	return nil
}

// Subject is the email subject for a triggered alert
func Subject(alert PriceAlert) string {
	return fmt.Sprintf("Price alert: %s is %s %s",
		strings.ToUpper(alert.TokenSymbol), alert.Condition, formatUSD(alert.TargetPrice))
}

func formatUSD(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', -1, 64)
}

var alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>{{.Symbol}} price alert</h2>
  <p>{{.Symbol}} is now trading at <strong>{{.Current}}</strong>, {{.Condition}} your target of {{.Target}}.</p>
  <p style="color: #888;">Sent by {{.AppName}}. Manage your alerts in the dashboard.</p>
</body>
</html>`))

func renderAlert(appName string, alert PriceAlert) (string, error) {
	data := struct {
		AppName   string
		Symbol    string
		Condition string
		Current   string
		Target    string
	}{
		AppName:   appName,
		Symbol:    strings.ToUpper(alert.TokenSymbol),
		Condition: string(alert.Condition),
		Current:   formatUSD(alert.CurrentPrice),
		Target:    formatUSD(alert.TargetPrice),
	}

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render alert email: %w", err)
	}
	return buf.String(), nil
}
