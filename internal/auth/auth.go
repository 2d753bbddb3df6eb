// Package auth runs the one-off Google consent flow that produces the
// refresh token used by the Gmail API mail provider.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/mailing"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNotConfigured is returned when the OAuth client id or secret is missing.
var ErrNotConfigured = errors.New("GOOGLE_CLIENT_ID e GOOGLE_CLIENT_SECRET devem estar configurados")

// ErrInvalidClient means Google rejected the client id or secret.
var ErrInvalidClient = errors.New("google oauth client rejected")

// TokenSet is what the consent exchange hands back to the operator.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry_date"`
}

// ConsentOptions overrides the Google endpoints, mostly for tests.
type ConsentOptions struct {
	AuthURL    string
	TokenURL   string
	HTTPClient *http.Client
}

// ConsentManager builds consent URLs and exchanges authorization codes.
type ConsentManager struct {
	oauth2Config *oauth2.Config
	httpClient   *http.Client
}

// NewConsentManager creates a consent manager for the Gmail send scope.
func NewConsentManager(cfg config.GmailConfig, opts ConsentOptions) *ConsentManager {
	endpoint := google.Endpoint
	if opts.AuthURL != "" {
		endpoint.AuthURL = opts.AuthURL
	}
	if opts.TokenURL != "" {
		endpoint.TokenURL = opts.TokenURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ConsentManager{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{mailing.GmailSendScope},
			Endpoint:     endpoint,
		},
		httpClient: client,
	}
}

// RedirectURL returns the callback registered with Google.
func (cm *ConsentManager) RedirectURL() string { return cm.oauth2Config.RedirectURL }

func (cm *ConsentManager) configured() bool {
	return cm.oauth2Config.ClientID != "" && cm.oauth2Config.ClientSecret != ""
}

// generateState creates a random state string for OAuth
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// AuthURL returns the consent URL. Offline access with a forced consent
// screen makes Google issue a refresh token every time.
func (cm *ConsentManager) AuthURL() (string, error) {
	if !cm.configured() {
		return "", ErrNotConfigured
	}
	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return cm.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades an authorization code for tokens.
func (cm *ConsentManager) Exchange(ctx context.Context, code string) (*TokenSet, error) {
	if !cm.configured() {
		return nil, ErrNotConfigured
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("authorization code is empty")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, cm.httpClient)
	token, err := cm.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	ts := &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		ts.Scope = scope
	}
	if ts.RefreshToken == "" {
		log.Printf("[Auth] code exchanged but Google returned no refresh token; revoke the app grant and consent again")
	}
	return ts, nil
}

// ValidateCredentials performs a lightweight check against Google's token
// endpoint to verify the OAuth client ID and secret are valid. A dummy code
// makes Google answer invalid_grant for a good client and invalid_client for
// a bad one.
func (cm *ConsentManager) ValidateCredentials(ctx context.Context) error {
	if !cm.configured() {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	vals := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {"validation_check"},
		"client_id":     {cm.oauth2Config.ClientID},
		"client_secret": {cm.oauth2Config.ClientSecret},
		"redirect_uri":  {cm.oauth2Config.RedirectURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cm.oauth2Config.Endpoint.TokenURL, strings.NewReader(vals.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := cm.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	bodyStr := string(body)

	if strings.Contains(bodyStr, "invalid_grant") || strings.Contains(bodyStr, "invalid_request") || strings.Contains(bodyStr, "redirect_uri_mismatch") {
		return nil
	}
	if strings.Contains(bodyStr, "invalid_client") || strings.Contains(bodyStr, "unauthorized_client") {
		return fmt.Errorf("%w: verify the OAuth client in Google Cloud Console (client %s)", ErrInvalidClient, maskClientID(cm.oauth2Config.ClientID))
	}
	return fmt.Errorf("unexpected response from Google token endpoint (HTTP %d): %s", resp.StatusCode, bodyStr)
}

// AuthInstructions are shown next to the consent URL.
func (cm *ConsentManager) AuthInstructions() []string {
	return []string{
		"1. Configure o redirect URI no Google Console: " + cm.oauth2Config.RedirectURL,
		"2. Acesse a URL acima no seu navegador",
		"3. Faça login com sua conta Google",
		"4. Autorize o aplicativo",
		"5. Copie o código de autorização que aparece na tela",
		"6. Use o endpoint /email/exchange-code com esse código",
	}
}

// NextSteps are shown after a successful code exchange.
func NextSteps() []string {
	return []string{
		"1. Copie o refresh_token acima",
		"2. Configure GOOGLE_REFRESH_TOKEN no Railway Dashboard",
		"3. Configure EMAIL_USER com seu email Gmail",
		"4. Teste o envio com /email/test/1",
	}
}

func maskClientID(id string) string {
	if len(id) <= 12 {
		return "***"
	}
	return id[:12] + "..."
}
