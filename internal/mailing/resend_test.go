package mailing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResend(t *testing.T, h http.HandlerFunc) *ResendProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p, err := NewResendProvider(config.ResendConfig{APIKey: "re_test", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	return p
}

func TestResendSend(t *testing.T) {
	var got map[string]any
	p := newTestResend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"re_123"}`))
	})

	msg := testMessage()
	msg.Attachment = &domain.Attachment{Filename: "Contrato.pdf", Content: []byte("%PDF")}
	res, err := p.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "re_123", res.MessageID)
	assert.Equal(t, domain.ProviderResend, res.Provider)
	assert.Equal(t, "Legacy Camp <noreply@legacycamp.com>", got["from"])
	assert.Equal(t, []any{"maria@example.com"}, got["to"])
	assert.Len(t, got["attachments"], 1)
}

func TestResendErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnprocessableEntity, ErrRejected},
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusTooManyRequests, ErrTransport},
		{http.StatusBadGateway, ErrTransport},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := newTestResend(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"message":"failed"}`))
			})
			_, err := p.Send(context.Background(), testMessage())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestResendRequiresKey(t *testing.T) {
	_, err := NewResendProvider(config.ResendConfig{}, nil)
	assert.ErrorIs(t, err, ErrMisconfigured)
}
