package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	got *resend.SendEmailRequest
	err error
}

func (f *fakeAPI) SendWithContext(_ context.Context, p *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "em_1"}, nil
}

func TestResend_Send_MapsFields(t *testing.T) {
	api := &fakeAPI{}
	r := &Resend{api: api, from: "Ops <noreply@example.com>"}

	err := r.Send(context.Background(), Message{
		To:      []string{" a@example.com ", ""},
		Subject: "hi",
		HTML:    "<p>x</p>",
		ReplyTo: "c@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, api.got)
	assert.Equal(t, "Ops <noreply@example.com>", api.got.From)
	assert.Equal(t, []string{"a@example.com"}, api.got.To)
	assert.Equal(t, "hi", api.got.Subject)
	assert.Equal(t, "<p>x</p>", api.got.Html)
	assert.Equal(t, "c@example.com", api.got.ReplyTo)
}

func TestResend_Send_Errors(t *testing.T) {
	boom := errors.New("upstream 500")
	r := &Resend{api: &fakeAPI{err: boom}, from: "x@example.com"}

	assert.ErrorIs(t, r.Send(context.Background(), Message{To: []string{"a@example.com"}}), boom)
	assert.ErrorIs(t, r.Send(context.Background(), Message{To: []string{"  "}}), ErrNoRecipient)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Send(context.Background(), Message{Subject: "s"}))
}

func TestContactTemplates_DefaultSubject_AndEscaping(t *testing.T) {
	c := Contact{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", Message: "<script>x</script>"}

	inbox, err := ContactInbox("ops@example.com", c)
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.com"}, inbox.To)
	assert.Equal(t, "New Contact Form: General Inquiry", inbox.Subject)
	assert.Equal(t, "ann@example.com", inbox.ReplyTo)
	assert.Contains(t, inbox.HTML, "Ann Lee")
	assert.NotContains(t, inbox.HTML, "<script>")
	assert.NotContains(t, inbox.HTML, "Phone:")

	conf, err := ContactConfirmation(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann@example.com"}, conf.To)
	assert.Contains(t, conf.HTML, "General Inquiry")
	assert.Contains(t, conf.HTML, "Dear Ann")
}

func TestContactInbox_OptionalFields(t *testing.T) {
	m, err := ContactInbox("ops@example.com", Contact{
		FirstName: "A", LastName: "B", Email: "a@b.c", Message: "m",
		Phone: "555", Company: "Acme", Service: "Freight", Subject: "Quote",
	})
	require.NoError(t, err)
	assert.Equal(t, "New Contact Form: Quote", m.Subject)
	for _, want := range []string{"Phone:", "Acme", "Freight"} {
		assert.True(t, strings.Contains(m.HTML, want), want)
	}
}

func TestTrackingUpdateNotice(t *testing.T) {
	m, err := TrackingUpdateNotice("s@example.com", TrackingUpdate{
		TrackingID: "LF123456789", Label: "Delivered", Description: "Left at door",
		Location: "Denver, CO", When: "Mar 1, 2025 03:04 PM",
	})
	require.NoError(t, err)
	assert.Equal(t, "Shipment LF123456789 update: Delivered", m.Subject)
	assert.Contains(t, m.HTML, "Denver, CO")
}
