package template

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/chbs/lead-outreach/internal/core"
	"go.uber.org/zap"
)

const outreachSubject = "Interested in your property"

const outreachBody = `Hi {{.Name}},

My name is {{.SenderName}} with {{.SenderCompany}}. We buy properties in your
area and I wanted to reach out about yours{{if .Address}} at {{.Address}}{{end}}.

If you've thought about selling, I'd love to talk. No obligation, no repairs
needed, and we can close on your timeline.

You can reach me any time at {{.SenderPhone}}.

Best regards,
{{.SenderName}}
{{.SenderCompany}}
{{.SenderPhone}}
`

const followUpSubject = "Following up on your property"

const followUpBody = `Hi {{.Name}},

Just following up on my earlier note{{if .Address}} about your property at
{{.Address}}{{end}}. I know things get busy, so no pressure at all.

If you'd like to hear what we could offer, I'm at {{.SenderPhone}} whenever
works for you.

Best regards,
{{.SenderName}}
{{.SenderCompany}}
{{.SenderPhone}}
`

// templateContext is the data handed to the message templates. Sender fields
// are passed through unchanged.
type templateContext struct {
	Name          string
	Address       string
	SenderName    string
	SenderCompany string
	SenderPhone   string
}

// Renderer renders the outreach and follow-up message bodies
type Renderer struct {
	outreach *template.Template
	followUp *template.Template
	logger   *zap.Logger
}

// NewRenderer creates a new renderer with the built-in templates
func NewRenderer(logger *zap.Logger) *Renderer {
	return &Renderer{
		outreach: template.Must(template.New("outreach").Parse(outreachBody)),
		followUp: template.Must(template.New("followup").Parse(followUpBody)),
		logger:   logger,
	}
}

// RenderOutreach renders the initial outreach message for a contact
func (r *Renderer) RenderOutreach(contact *core.Contact, sender core.Sender) (*core.OutboundMessage, error) {
	return r.render(r.outreach, outreachSubject, contact, sender)
}

// RenderFollowUp renders the reminder message for a contact
func (r *Renderer) RenderFollowUp(contact *core.Contact, sender core.Sender) (*core.OutboundMessage, error) {
	return r.render(r.followUp, followUpSubject, contact, sender)
}

func (r *Renderer) render(tmpl *template.Template, subject string, contact *core.Contact, sender core.Sender) (*core.OutboundMessage, error) {
	name := contact.FirstName
	if name == "" {
		name = contact.DisplayName()
	}
	if name == "" {
		name = "there"
	}

	var body strings.Builder
	err := tmpl.Execute(&body, templateContext{
		Name:          name,
		Address:       contact.Address,
		SenderName:    sender.Name,
		SenderCompany: sender.Company,
		SenderPhone:   sender.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}

	return &core.OutboundMessage{
		To:      contact.Email,
		Subject: subject,
		Body:    body.String(),
		Sender:  sender,
	}, nil
}
