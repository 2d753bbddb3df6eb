package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/mailing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testGmail = config.GmailConfig{
	ClientID:     "1234567890-abcdef.apps.googleusercontent.com",
	ClientSecret: "secret",
	RedirectURL:  "http://localhost:3000/oauth/callback",
}

func TestAuthURL(t *testing.T) {
	cm := NewConsentManager(testGmail, ConsentOptions{})
	raw, err := cm.AuthURL()
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, mailing.GmailSendScope, q.Get("scope"))
	assert.Equal(t, testGmail.RedirectURL, q.Get("redirect_uri"))
	assert.NotEmpty(t, q.Get("state"))
}

func TestNotConfigured(t *testing.T) {
	cm := NewConsentManager(config.GmailConfig{}, ConsentOptions{})
	_, err := cm.AuthURL()
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = cm.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, cm.ValidateCredentials(context.Background()), ErrNotConfigured)
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "4/good" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"ya29.x","refresh_token":"1//rt","token_type":"Bearer","expires_in":3599,"scope":"https://www.googleapis.com/auth/gmail.send"}`))
	}))
	defer srv.Close()

	cm := NewConsentManager(testGmail, ConsentOptions{TokenURL: srv.URL, HTTPClient: srv.Client()})

	ts, err := cm.Exchange(context.Background(), " 4/good ")
	require.NoError(t, err)
	assert.Equal(t, "ya29.x", ts.AccessToken)
	assert.Equal(t, "1//rt", ts.RefreshToken)
	assert.Equal(t, mailing.GmailSendScope, ts.Scope)
	assert.False(t, ts.Expiry.IsZero())

	_, err = cm.Exchange(context.Background(), "4/bad")
	assert.Error(t, err)
	_, err = cm.Exchange(context.Background(), "")
	assert.Error(t, err)
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		ok      bool
	}{
		{name: "valid client", body: `{"error":"invalid_grant","error_description":"Malformed auth code."}`, ok: true},
		{name: "invalid client", body: `{"error":"invalid_client","error_description":"The OAuth client was not found."}`, wantErr: ErrInvalidClient},
		{name: "unexpected", body: `{"error":"server_error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			cm := NewConsentManager(testGmail, ConsentOptions{TokenURL: srv.URL, HTTPClient: srv.Client()})
			err := cm.ValidateCredentials(context.Background())
			switch {
			case tt.ok:
				assert.NoError(t, err)
			case tt.wantErr != nil:
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			default:
				assert.Error(t, err)
			}
		})
	}
}

func TestInstructionsMentionRedirect(t *testing.T) {
	cm := NewConsentManager(testGmail, ConsentOptions{})
	steps := cm.AuthInstructions()
	require.Len(t, steps, 6)
	assert.Contains(t, steps[0], testGmail.RedirectURL)
	assert.Len(t, NextSteps(), 4)
}
