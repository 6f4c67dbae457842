package mailer

import (
	"bytes"
	"html/template"
	"strings"
)

// DefaultContactSubject is used when a contact submission has no subject.
const DefaultContactSubject = "General Inquiry"

// Contact is a website contact-form submission.
type Contact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Company   string
	Service   string
	Subject   string
	Message   string
}

// TrackingUpdate describes one applied tracking update for a notification.
type TrackingUpdate struct {
	TrackingID  string
	Label       string
	Description string
	Location    string
	When        string
	Recipient   string
}

const layoutOpen = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`

var (
	contactInboxTmpl = template.Must(template.New("inbox").Parse(layoutOpen + `
<h2 style="color: #1e40af;">New Contact Form Submission</h2>
<div style="background: #f3f4f6; padding: 20px; border-radius: 8px; margin: 20px 0;">
<h3 style="margin-top: 0;">Contact Information</h3>
<p><strong>Name:</strong> {{.FirstName}} {{.LastName}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
{{if .Phone}}<p><strong>Phone:</strong> {{.Phone}}</p>{{end}}
{{if .Company}}<p><strong>Company:</strong> {{.Company}}</p>{{end}}
{{if .Service}}<p><strong>Service Interest:</strong> {{.Service}}</p>{{end}}
</div>
<div style="background: #ffffff; padding: 20px; border: 1px solid #e5e7eb; border-radius: 8px;">
<h3 style="margin-top: 0;">Message</h3>
<p style="white-space: pre-wrap;">{{.Message}}</p>
</div>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">This email was sent from the website contact form.</p>
</div>`))

	contactConfirmTmpl = template.Must(template.New("confirm").Parse(layoutOpen + `
<h2 style="color: #1e40af;">Thank You for Contacting Us!</h2>
<p>Dear {{.FirstName}},</p>
<p>We've received your message. Our team will review your inquiry and get back to you within 24 hours.</p>
<div style="background: #f3f4f6; padding: 20px; border-radius: 8px; margin: 20px 0;">
<h3 style="margin-top: 0;">Your Message Summary</h3>
<p><strong>Subject:</strong> {{.Subject}}</p>
{{if .Service}}<p><strong>Service:</strong> {{.Service}}</p>{{end}}
<p><strong>Message:</strong></p>
<p style="white-space: pre-wrap;">{{.Message}}</p>
</div>
<p>Best regards,<br/><strong>The Logistics Team</strong></p>
</div>`))

	trackingUpdateTmpl = template.Must(template.New("update").Parse(layoutOpen + `
<h2 style="color: #1e40af;">Shipment {{.TrackingID}}: {{.Label}}</h2>
<p>{{.Description}}</p>
<div style="background: #f3f4f6; padding: 20px; border-radius: 8px; margin: 20px 0;">
<p><strong>Location:</strong> {{.Location}}</p>
<p><strong>Updated:</strong> {{.When}}</p>
{{if .Recipient}}<p><strong>Recipient:</strong> {{.Recipient}}</p>{{end}}
</div>
</div>`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (c Contact) subject() string {
	if s := strings.TrimSpace(c.Subject); s != "" {
		return s
	}
	return DefaultContactSubject
}

// ContactInbox builds the notification delivered to the company inbox.
// Replies go straight to the submitter.
func ContactInbox(inbox string, c Contact) (Message, error) {
	c.Subject = c.subject()
	html, err := render(contactInboxTmpl, c)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{inbox},
		Subject: "New Contact Form: " + c.Subject,
		HTML:    html,
		ReplyTo: c.Email,
	}, nil
}

// ContactConfirmation builds the acknowledgement sent to the submitter.
func ContactConfirmation(c Contact) (Message, error) {
	c.Subject = c.subject()
	html, err := render(contactConfirmTmpl, c)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{c.Email},
		Subject: "We received your message",
		HTML:    html,
	}, nil
}

// TrackingUpdateNotice builds the status email sent to a shipment's sender.
func TrackingUpdateNotice(to string, u TrackingUpdate) (Message, error) {
	html, err := render(trackingUpdateTmpl, u)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{to},
		Subject: "Shipment " + u.TrackingID + " update: " + u.Label,
		HTML:    html,
	}, nil
}
