// Package email sends transactional mail through Resend. Delivery failures
// are logged by callers and never fail the originating request.
package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

// Sender delivers account lifecycle emails.
type Sender interface {
	SendWelcome(ctx context.Context, to, name string, trialPages int) error
	SendLowBalance(ctx context.Context, to, name string, pagesRemaining int) error
}

// ResendSender implements Sender on top of the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender constructs a sender, or a nil Sender when no API key is
// configured so callers can treat email as optional in development. The
// return type is the interface: a typed *ResendSender nil stored in a Sender
// field would compare non-nil and defeat the callers' guards.
func NewResendSender(apiKey, from string) Sender {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) SendWelcome(ctx context.Context, to, name string, trialPages int) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: "Welcome to Cramdesk",
		Html: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your trial includes <strong>%d pages</strong> of study aid generation. Upload a PDF to get started.</p>",
			name, trialPages,
		),
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("email: send welcome to %s: %w", to, err)
	}
	return nil
}

func (s *ResendSender) SendLowBalance(ctx context.Context, to, name string, pagesRemaining int) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: "You're running low on pages",
		Html: fmt.Sprintf(
			"<p>Hi %s,</p><p>You have <strong>%d pages</strong> left this cycle. Upgrade your plan to keep generating study aids.</p>",
			name, pagesRemaining,
		),
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("email: send low balance to %s: %w", to, err)
	}
	return nil
}

var _ Sender = (*ResendSender)(nil)
