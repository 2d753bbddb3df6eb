package mailing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/resend/resend-go/v2"
)

// ResendProvider sends through the Resend HTTP API.
type ResendProvider struct {
	client *resend.Client
}

// NewResendProvider builds a provider for cfg. A nil transport uses
// http.DefaultTransport.
func NewResendProvider(cfg config.ResendConfig, transport http.RoundTripper) (*ResendProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: RESEND_API_KEY is required for resend", ErrMisconfigured)
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	hc := &http.Client{
		Timeout:   30 * time.Second,
		Transport: &statusRecorder{base: transport},
	}
	c := resend.NewCustomClient(hc, cfg.APIKey)
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("%w: resend base url: %v", ErrMisconfigured, err)
		}
		c.BaseURL = u
	}
	return &ResendProvider{client: c}, nil
}

// Name implements Provider.
func (p *ResendProvider) Name() domain.ProviderType { return domain.ProviderResend }

// Send implements Provider.
func (p *ResendProvider) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	var status int
	ctx = context.WithValue(ctx, statusKey{}, &status)

	req := &resend.SendEmailRequest{
		From:    formatAddress(msg.FromName, msg.FromEmail),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTMLContent,
	}
	if att := msg.Attachment; att != nil {
		req.Attachments = []*resend.Attachment{{
			Content:     att.Content,
			Filename:    att.Filename,
			ContentType: contentTypeOf(att),
		}}
	}

	resp, err := p.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		var rl *resend.RateLimitError
		if errors.As(err, &rl) {
			return nil, wrapErr(ErrTransport, err)
		}
		if s := classifyStatus(status); s != nil {
			return nil, wrapErr(s, err)
		}
		return nil, wrapErr(ErrTransport, err)
	}
	return &domain.SendResult{MessageID: resp.Id, Provider: domain.ProviderResend, SentAt: time.Now()}, nil
}

// Resend reports most API failures as plain errors, so the status code is
// captured on the way back through the transport.
type statusKey struct{}

type statusRecorder struct {
	base http.RoundTripper
}

func (t *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if resp != nil {
		if p, ok := req.Context().Value(statusKey{}).(*int); ok {
			*p = resp.StatusCode
		}
	}
	return resp, err
}

func formatAddress(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}
