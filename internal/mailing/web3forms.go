package mailing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/legacycamp/camp-api/internal/pkg/httpretry"
)

// Web3FormsProvider posts messages to a Web3Forms form endpoint. The form
// delivers to its own configured inbox plus the "email" field; it cannot
// carry attachments.
type Web3FormsProvider struct {
	accessKey string
	endpoint  string
	client    httpretry.HTTPDoer
}

// NewWeb3FormsProvider builds a provider for cfg. A nil client gets a plain
// http.Client; retries are owned by the deliverer.
func NewWeb3FormsProvider(cfg config.Web3FormsConfig, client httpretry.HTTPDoer) (*Web3FormsProvider, error) {
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("%w: WEB3FORMS_ACCESS_KEY is required for web3forms", ErrMisconfigured)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.web3forms.com/submit"
	}
	return &Web3FormsProvider{accessKey: cfg.AccessKey, endpoint: endpoint, client: client}, nil
}

// Name implements Provider.
func (p *Web3FormsProvider) Name() domain.ProviderType { return domain.ProviderWeb3Forms }

type web3formsRequest struct {
	AccessKey string `json:"access_key"`
	Subject   string `json:"subject"`
	FromName  string `json:"from_name"`
	Email     string `json:"email"`
	ReplyTo   string `json:"replyto,omitempty"`
	Message   string `json:"message"`
}

type web3formsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Send implements Provider.
func (p *Web3FormsProvider) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	if msg.Attachment != nil {
		return nil, wrapErr(ErrRejected, errors.New("web3forms cannot deliver attachments"))
	}

	// Web3Forms always delivers to the inbox that owns the access key. The
	// recipient only becomes the reply-to address of that submission.
	body, err := json.Marshal(web3formsRequest{
		AccessKey: p.accessKey,
		Subject:   msg.Subject,
		FromName:  msg.FromName,
		Email:     msg.To,
		ReplyTo:   msg.FromEmail,
		Message:   msg.HTMLContent,
	})
	if err != nil {
		return nil, wrapErr(ErrRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, wrapErr(ErrMisconfigured, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, wrapErr(ErrTransport, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out web3formsResponse
	_ = json.Unmarshal(data, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		sentinel := classifyStatus(resp.StatusCode)
		if sentinel == nil {
			sentinel = ErrTransport
		}
		return nil, wrapErr(sentinel, fmt.Errorf("web3forms HTTP %d: %s", resp.StatusCode, truncate(string(data), 300)))
	}
	if !out.Success {
		sentinel := ErrRejected
		if strings.Contains(strings.ToLower(out.Message), "access key") {
			sentinel = ErrAuth
		}
		return nil, wrapErr(sentinel, fmt.Errorf("web3forms: %s", out.Message))
	}
	return &domain.SendResult{Provider: domain.ProviderWeb3Forms, SentAt: time.Now()}, nil
}
