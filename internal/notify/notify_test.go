package notify

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/pocketbroker/internal/config"
	"github.com/pocketbroker/internal/types"
	"github.com/resend/resend-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmails struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (f *fakeEmails) SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &resend.SendEmailResponse{Id: "em_1"}, nil
}

var ethAlert = PriceAlert{
	AlertID:      7,
	To:           "alice@example.com",
	TokenSymbol:  "eth",
	Condition:    types.ConditionAbove,
	TargetPrice:  3000,
	CurrentPrice: 3120.5,
}

func TestResendNotifier_Sends(t *testing.T) {
	emails := &fakeEmails{}
	n := NewResendNotifier(emails, "", "")

	require.NoError(t, n.NotifyPriceAlert(context.Background(), ethAlert))
	require.Len(t, emails.sent, 1)

	msg := emails.sent[0]
	assert.Equal(t, []string{"alice@example.com"}, msg.To)
	assert.Equal(t, "PocketBroker <alerts@pocketbroker.app>", msg.From)
	assert.Equal(t, "Price alert: ETH is above $3000", msg.Subject)
	assert.Contains(t, msg.Html, "<strong>$3120.5</strong>")
	assert.Contains(t, msg.Html, "Sent by PocketBroker")
}

func TestResendNotifier_SendFailure(t *testing.T) {
	n := NewResendNotifier(&fakeEmails{err: stderrors.New("rate limited")}, "Alerts <a@x.io>", "Desk")
	err := n.NotifyPriceAlert(context.Background(), ethAlert)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestNew_FallsBackToLogging(t *testing.T) {
	n := New(&config.EmailConfig{})
	_, ok := n.(LogNotifier)
	require.True(t, ok)
	assert.NoError(t, n.NotifyPriceAlert(context.Background(), ethAlert))

	_, ok = New(&config.EmailConfig{ResendAPIKey: "re_test"}).(*ResendNotifier)
	assert.True(t, ok)
}

func TestSubject(t *testing.T) {
	below := ethAlert
	below.Condition = types.ConditionBelow
	below.TargetPrice = 0.25
	below.TokenSymbol = "Doge"
	assert.Equal(t, "Price alert: DOGE is below $0.25", Subject(below))
}
