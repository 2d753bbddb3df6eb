package mailing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// GmailSendScope is the only scope the refresh token needs.
	GmailSendScope = "https://www.googleapis.com/auth/gmail.send"

	gmailAPIBase  = "https://gmail.googleapis.com"
	gmailSendPath = "/gmail/v1/users/me/messages/send"
)

// GmailOptions overrides endpoints and transport, mostly for tests.
type GmailOptions struct {
	APIBase    string
	TokenURL   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// GmailProvider sends through the Gmail REST API, authenticating with an
// OAuth2 refresh token. Access tokens are refreshed transparently.
type GmailProvider struct {
	oauth        *oauth2.Config
	refreshToken string
	apiBase      string
	base         *http.Client
	timeout      time.Duration

	mu     sync.RWMutex
	client *http.Client
}

// NewGmailProvider builds a provider from the Google client credentials.
func NewGmailProvider(cfg config.GmailConfig, opts GmailOptions) (*GmailProvider, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REFRESH_TOKEN are required for gmail", ErrMisconfigured)
	}

	endpoint := google.Endpoint
	if opts.TokenURL != "" {
		endpoint.TokenURL = opts.TokenURL
	}
	apiBase := gmailAPIBase
	if opts.APIBase != "" {
		apiBase = strings.TrimRight(opts.APIBase, "/")
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	p := &GmailProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{GmailSendScope},
		},
		refreshToken: cfg.RefreshToken,
		apiBase:      apiBase,
		base:         base,
		timeout:      timeout,
	}
	p.client = p.newClient()
	return p, nil
}

func (p *GmailProvider) tokenContext() context.Context {
	return context.WithValue(context.Background(), oauth2.HTTPClient, p.base)
}

func (p *GmailProvider) newClient() *http.Client {
	ctx := p.tokenContext()
	ts := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: p.refreshToken})
	c := oauth2.NewClient(ctx, ts)
	c.Timeout = p.timeout
	return c
}

// Name implements Provider.
func (p *GmailProvider) Name() domain.ProviderType { return domain.ProviderGmail }

// Send implements Provider.
func (p *GmailProvider) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	raw, err := buildMIME(msg)
	if err != nil {
		return nil, wrapErr(ErrRejected, err)
	}
	body, err := json.Marshal(map[string]string{"raw": base64.RawURLEncoding.EncodeToString(raw)})
	if err != nil {
		return nil, wrapErr(ErrRejected, err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+gmailSendPath, bytes.NewReader(body))
	if err != nil {
		return nil, wrapErr(ErrMisconfigured, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyOAuth(err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		sentinel := classifyStatus(resp.StatusCode)
		if sentinel == nil {
			sentinel = ErrTransport
		}
		return nil, wrapErr(sentinel, fmt.Errorf("gmail api HTTP %d: %s", resp.StatusCode, truncate(string(data), 300)))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		log.Printf("[Gmail] Sent but could not decode response: %v", err)
	}
	return &domain.SendResult{MessageID: out.ID, Provider: domain.ProviderGmail, SentAt: time.Now()}, nil
}

// Recycle rebuilds the authenticated client, dropping the cached token and
// any pooled connections.
func (p *GmailProvider) Recycle() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.client.Transport.(*oauth2.Transport); ok {
		if ci, ok := t.Base.(interface{ CloseIdleConnections() }); ok {
			ci.CloseIdleConnections()
		}
	}
	p.client = p.newClient()
	log.Printf("[Gmail] Client recycled")
	return nil
}

// Verify exchanges the refresh token for an access token.
func (p *GmailProvider) Verify(ctx context.Context) error {
	tctx := context.WithValue(ctx, oauth2.HTTPClient, p.base)
	if _, err := p.oauth.TokenSource(tctx, &oauth2.Token{RefreshToken: p.refreshToken}).Token(); err != nil {
		return classifyOAuth(err)
	}
	return nil
}

// classifyOAuth maps token refresh and transport failures. A revoked or
// foreign refresh token surfaces as invalid_grant.
func classifyOAuth(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch re.ErrorCode {
		case "invalid_grant", "invalid_client", "unauthorized_client":
			return wrapErr(ErrAuth, err)
		}
		if re.Response != nil {
			if s := classifyStatus(re.Response.StatusCode); s != nil {
				return wrapErr(s, err)
			}
		}
	}
	msg := err.Error()
	if strings.Contains(msg, "invalid_grant") || strings.Contains(msg, "invalid_client") {
		return wrapErr(ErrAuth, err)
	}
	return wrapErr(ErrTransport, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
