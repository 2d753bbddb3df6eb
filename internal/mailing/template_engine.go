package mailing

import (
	"fmt"
	"strings"

	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/osteele/liquid"
)

// Renderer turns a registration into the subject and HTML of each email
// kind. Templates are parsed once in NewRenderer; Render does no I/O and is
// safe for concurrent use. Same inputs always yield byte-identical output.
type Renderer struct {
	engine        *liquid.Engine
	layout        *liquid.Template
	bodies        map[domain.EmailKind]*liquid.Template
	escapeMessage bool
}

// RendererOptions tunes rendering behavior.
type RendererOptions struct {
	// EscapeCustomMessages HTML-escapes custom message text before the
	// newline conversion. Off keeps the historical raw interpolation.
	EscapeCustomMessages bool
}

// NewRenderer parses the embedded templates.
func NewRenderer(opts RendererOptions) (*Renderer, error) {
	engine := liquid.NewEngine()
	registerFilters(engine)

	r := &Renderer{
		engine:        engine,
		bodies:        make(map[domain.EmailKind]*liquid.Template, len(kindTemplates)),
		escapeMessage: opts.EscapeCustomMessages,
	}

	layout, err := parseEmbedded(engine, "templates/layout.liquid")
	if err != nil {
		return nil, err
	}
	r.layout = layout

	for kind, kt := range kindTemplates {
		tpl, err := parseEmbedded(engine, kt.file)
		if err != nil {
			return nil, err
		}
		r.bodies[kind] = tpl
	}
	return r, nil
}

// MustRenderer is NewRenderer for callers that treat a broken embedded
// template as a programming error.
func MustRenderer(opts RendererOptions) *Renderer {
	r, err := NewRenderer(opts)
	if err != nil {
		panic(err)
	}
	return r
}

func parseEmbedded(engine *liquid.Engine, name string) (*liquid.Template, error) {
	src, err := templateFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}
	tpl, perr := engine.ParseTemplate(src)
	if perr != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, perr)
	}
	return tpl, nil
}

func registerFilters(engine *liquid.Engine) {
	// Line breaks as <br>, matching what registrants have always received.
	engine.RegisterFilter("nl2br", func(s string) string {
		return strings.ReplaceAll(s, "\n", "<br>")
	})
}

// Render builds the subject and HTML document for kind.
func (r *Renderer) Render(kind domain.EmailKind, reg *domain.Registration, p Params) (subject, html string, err error) {
	kt, ok := kindTemplates[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown email kind %q", kind)
	}
	if reg == nil {
		return "", "", fmt.Errorf("render %s: registration is nil", kind)
	}

	bindings := r.bindings(kind, reg, p)
	body, berr := r.bodies[kind].Render(bindings)
	if berr != nil {
		return "", "", fmt.Errorf("render %s body: %w", kind, berr)
	}

	out, lerr := r.layout.Render(map[string]any{
		"title":  kt.title,
		"body":   string(body),
		"footer": footerText,
	})
	if lerr != nil {
		return "", "", fmt.Errorf("render %s layout: %w", kind, lerr)
	}

	subject = kt.subject
	if kind == domain.KindCustom {
		subject = p.Subject
	}
	return subject, string(out), nil
}

func (r *Renderer) bindings(kind domain.EmailKind, reg *domain.Registration, p Params) map[string]any {
	b := map[string]any{
		"r": map[string]any{
			"id":              reg.ID,
			"fullName":        reg.FullName,
			"email":           reg.Email,
			"registrationLot": reg.RegistrationLot,
			"paymentMethod":   reg.PaymentMethod,
			"status":          string(reg.Status),
		},
		"supportPhone": supportPhone,
		"supportEmail": supportEmail,
	}

	switch kind {
	case domain.KindStatusUpdate:
		b["newStatus"] = p.NewStatus
		b["statusLabel"] = StatusLabel(p.NewStatus)
	case domain.KindCustom:
		b["message"] = p.Message
		b["escapeMessage"] = r.escapeMessage
	case domain.KindPaymentInstructions, domain.KindContract:
		b["method"] = strings.ToLower(reg.PaymentMethod)
		b["methodLabel"] = PaymentMethodLabel(reg.PaymentMethod)
		b["paymentLink"] = p.PaymentLink
		b["pixKey"] = pixKey
	}
	return b
}
