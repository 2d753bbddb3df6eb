package mailing

import (
	"context"

	"github.com/legacycamp/camp-api/internal/domain"
)

// Provider transmits one fully rendered message. Implementations return a
// wrapped sentinel from errors.go on failure.
type Provider interface {
	Name() domain.ProviderType
	Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error)
}

// Recycler is implemented by providers that hold a session which can go
// stale. Recycle discards it; the next Send starts fresh. Implementations
// must wait for in-flight sends before tearing the session down.
type Recycler interface {
	Recycle() error
}

// Verifier is implemented by providers that can check connectivity and
// credentials without sending mail.
type Verifier interface {
	Verify(ctx context.Context) error
}

// brokenProvider stands in for a provider whose configuration is missing.
// Every Send fails fast with ErrMisconfigured.
type brokenProvider struct {
	name domain.ProviderType
	err  error
}

func (p *brokenProvider) Name() domain.ProviderType { return p.name }

func (p *brokenProvider) Send(context.Context, *domain.OutboundMessage) (*domain.SendResult, error) {
	return nil, p.err
}

func (p *brokenProvider) Verify(context.Context) error { return p.err }
