package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-shipment-tracker/internal/mailer"
	"github.com/tbourn/go-shipment-tracker/internal/observability"
)

// ContactInput is a website contact-form submission.
type ContactInput struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName"  validate:"required,max=100"`
	Email     string `json:"email"     validate:"required,email"`
	Phone     string `json:"phone"     validate:"max=64"`
	Company   string `json:"company"   validate:"max=255"`
	Service   string `json:"service"   validate:"max=128"`
	Subject   string `json:"subject"   validate:"max=255"`
	Message   string `json:"message"   validate:"required,max=5000"`
}

// ContactService relays contact submissions to the company inbox and
// acknowledges them to the submitter.
type ContactService struct {
	Mailer    mailer.Sender
	Inbox     string
	validator *validator.Validate
}

// NewContactService constructs a ContactService delivering to inbox.
func NewContactService(m mailer.Sender, inbox string) *ContactService {
	if m == nil {
		m = mailer.Noop{}
	}
	return &ContactService{Mailer: m, Inbox: inbox, validator: newValidator()}
}

// Submit validates in and sends both emails. The inbox copy goes first; if
// it fails the confirmation is not attempted. Any send failure is reported
// as ErrEmailFailed.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) error {
	for _, f := range []*string{&in.FirstName, &in.LastName, &in.Email, &in.Phone, &in.Company, &in.Service, &in.Subject} {
		*f = strings.TrimSpace(*f)
	}
	// keep the message's own line breaks; whitespace-only counts as missing
	if strings.TrimSpace(in.Message) == "" {
		in.Message = ""
	}
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return fromValidator(err)
	}

	c := mailer.Contact(in)

	inbox, err := mailer.ContactInbox(s.Inbox, c)
	if err != nil {
		return err
	}
	err = s.Mailer.Send(ctx, inbox)
	observability.EmailsSent.WithLabelValues("contact_inbox", observability.Result(err)).Inc()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("contact inbox email failed")
		return fmt.Errorf("%w: %v", ErrEmailFailed, err)
	}

	confirm, err := mailer.ContactConfirmation(c)
	if err != nil {
		return err
	}
	err = s.Mailer.Send(ctx, confirm)
	observability.EmailsSent.WithLabelValues("contact_confirmation", observability.Result(err)).Inc()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("contact confirmation email failed")
		return fmt.Errorf("%w: %v", ErrEmailFailed, err)
	}
	return nil
}
