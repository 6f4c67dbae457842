// Package mailer sends transactional email through Resend.
//
// Callers build a Message (usually from one of the templates in
// templates.go) and hand it to a Sender. Delivery is a single attempt; the
// error is returned to the caller, which decides whether it matters.
package mailer

import (
	"context"
	"errors"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"
)

// ErrNoRecipient is returned for a message without any To address.
var ErrNoRecipient = errors.New("mailer: no recipient")

// Message is one outbound email.
type Message struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// emailAPI is the subset of the Resend client used here.
type emailAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Resend delivers through the Resend HTTP API.
type Resend struct {
	api  emailAPI
	from string
}

// NewResend returns a Sender using apiKey. from is the envelope sender, for
// example "Velox Logistics <noreply@example.com>".
func NewResend(apiKey, from string) *Resend {
	client := resend.NewClient(apiKey)
	return &Resend{api: client.Emails, from: from}
}

// Send implements Sender.
func (r *Resend) Send(ctx context.Context, m Message) error {
	to := make([]string, 0, len(m.To))
	for _, addr := range m.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return ErrNoRecipient
	}

	req := &resend.SendEmailRequest{
		From:    r.from,
		To:      to,
		Subject: m.Subject,
		Html:    m.HTML,
	}
	if m.ReplyTo != "" {
		req.ReplyTo = m.ReplyTo
	}

	resp, err := r.api.SendWithContext(ctx, req)
	if err != nil {
		return err
	}
	log.Debug().Str("email_id", resp.Id).Str("subject", m.Subject).Msg("email sent")
	return nil
}

// Noop discards messages. It is used when no API key is configured.
type Noop struct{}

// Send implements Sender.
func (Noop) Send(_ context.Context, m Message) error {
	log.Debug().Str("subject", m.Subject).Int("recipients", len(m.To)).Msg("email dropped (mailer disabled)")
	return nil
}
