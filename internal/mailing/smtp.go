package mailing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
)

// SMTPProfile sizes the session pool and bounds each send.
type SMTPProfile struct {
	Name        string
	PoolSize    int
	SendTimeout time.Duration
}

var (
	// ConstrainedProfile keeps one long-lived session with generous
	// timeouts, for hosts that throttle or slow outbound SMTP.
	ConstrainedProfile = SMTPProfile{Name: "constrained", PoolSize: 1, SendTimeout: 60 * time.Second}
	// PooledProfile allows several concurrent sessions.
	PooledProfile = SMTPProfile{Name: "pooled", PoolSize: 5, SendTimeout: 20 * time.Second}
)

// ProfileFor resolves a profile by name. An empty name picks constrained in
// production and pooled elsewhere.
func ProfileFor(name string, production bool) SMTPProfile {
	switch strings.ToLower(name) {
	case ConstrainedProfile.Name:
		return ConstrainedProfile
	case PooledProfile.Name:
		return PooledProfile
	}
	if production {
		return ConstrainedProfile
	}
	return PooledProfile
}

// quitTimeout bounds the QUIT exchange when a session is closed cleanly.
const quitTimeout = 2 * time.Second

// SMTPProvider sends through authenticated SMTP sessions kept in a small
// pool. Sends hold the read lock for their whole duration; Recycle takes
// the write lock, so a recycle never tears down a session mid-send. Every
// relay exchange runs under a connection deadline, so a stalled relay costs
// at most SendTimeout per send.
type SMTPProvider struct {
	dialer  smtpDialer
	profile SMTPProfile

	mu    sync.RWMutex
	idle  chan smtpSession
	slots chan struct{}
}

// NewSMTPProvider builds a provider for the relay in cfg.
func NewSMTPProvider(cfg config.SMTPConfig, profile SMTPProfile) (*SMTPProvider, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: EMAIL_USER and EMAIL_PASSWORD are required for smtp", ErrMisconfigured)
	}
	d := &netDialer{host: cfg.Host, port: cfg.Port, username: cfg.Username, password: cfg.Password}
	return newSMTPProvider(d, profile), nil
}

func newSMTPProvider(d smtpDialer, profile SMTPProfile) *SMTPProvider {
	if profile.PoolSize <= 0 {
		profile.PoolSize = 1
	}
	if profile.SendTimeout <= 0 {
		profile.SendTimeout = ConstrainedProfile.SendTimeout
	}
	return &SMTPProvider{
		dialer:  d,
		profile: profile,
		idle:    make(chan smtpSession, profile.PoolSize),
		slots:   make(chan struct{}, profile.PoolSize),
	}
}

// Name implements Provider.
func (p *SMTPProvider) Name() domain.ProviderType { return domain.ProviderSMTP }

// Profile returns the active session profile.
func (p *SMTPProvider) Profile() SMTPProfile { return p.profile }

// Send implements Provider.
func (p *SMTPProvider) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, wrapErr(ErrTransport, ctx.Err())
	}
	defer func() { <-p.slots }()

	deadline := p.deadline(ctx)
	sc, err := p.session(ctx, deadline)
	if err != nil {
		return nil, p.classify(err)
	}

	stop := context.AfterFunc(ctx, func() { sc.Abort() })
	m := newGomailMessage(msg)
	err = sc.Send(deadline, msg.FromEmail, []string{msg.To}, m)
	aborted := !stop()
	if err != nil {
		// The session state is unknown after a failure; never QUIT on it.
		sc.Abort()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, wrapErr(ErrTransport, ctxErr)
		}
		return nil, p.classify(err)
	}
	if aborted {
		sc.Abort()
	} else {
		p.release(sc)
	}

	var id string
	if h := m.GetHeader("Message-ID"); len(h) > 0 {
		id = h[0]
	}
	return &domain.SendResult{MessageID: id, Provider: domain.ProviderSMTP, SentAt: time.Now()}, nil
}

// deadline is SendTimeout from now, or the ctx deadline when that is sooner.
func (p *SMTPProvider) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(p.profile.SendTimeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}

func (p *SMTPProvider) classify(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return wrapErr(ErrTransport, fmt.Errorf("smtp send timed out after %s: %w", p.profile.SendTimeout, err))
	}
	return classifySMTP(err)
}

// session returns an idle session or dials a new one.
func (p *SMTPProvider) session(ctx context.Context, deadline time.Time) (smtpSession, error) {
	select {
	case sc := <-p.idle:
		return sc, nil
	default:
		return p.dialer.Dial(ctx, deadline)
	}
}

func (p *SMTPProvider) release(sc smtpSession) {
	select {
	case p.idle <- sc:
	default:
		sc.Close(time.Now().Add(quitTimeout))
	}
}

// Recycle closes every idle session. It waits for in-flight sends first,
// which are themselves bounded by SendTimeout.
func (p *SMTPProvider) Recycle() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	closed := 0
	for {
		select {
		case sc := <-p.idle:
			sc.Close(time.Now().Add(quitTimeout))
			closed++
		default:
			log.Printf("[SMTP] Session recycled (%d idle closed, profile=%s)", closed, p.profile.Name)
			return nil
		}
	}
}

// Verify dials and authenticates once, within ctx and SendTimeout. A good
// session is kept for reuse.
func (p *SMTPProvider) Verify(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return wrapErr(ErrTransport, err)
	}
	sc, err := p.dialer.Dial(ctx, p.deadline(ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return wrapErr(ErrTransport, ctxErr)
		}
		return p.classify(err)
	}
	p.release(sc)
	return nil
}
