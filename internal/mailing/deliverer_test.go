package mailing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider fails with the queued errors, then succeeds.
type scriptedProvider struct {
	mu       sync.Mutex
	name     domain.ProviderType
	failures []error
	panics   int
	sent     []*domain.OutboundMessage
	calls    int
	events   []string
}

func (p *scriptedProvider) Name() domain.ProviderType {
	if p.name == "" {
		return domain.ProviderResend
	}
	return p.name
}

func (p *scriptedProvider) Send(_ context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.events = append(p.events, "send")
	if p.panics > 0 {
		p.panics--
		panic("provider exploded")
	}
	if len(p.failures) > 0 {
		err := p.failures[0]
		p.failures = p.failures[1:]
		return nil, err
	}
	p.sent = append(p.sent, msg)
	return &domain.SendResult{MessageID: "msg-1", Provider: p.Name(), SentAt: time.Now()}, nil
}

func (p *scriptedProvider) Recycle() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "recycle")
	return nil
}

type staticAttachment struct {
	att *domain.Attachment
	err error
}

func (s staticAttachment) Load(context.Context) (*domain.Attachment, error) { return s.att, s.err }

func newTestDeliverer(p Provider, opts ...DelivererOption) *Deliverer {
	rec := &sleepRecorder{}
	opts = append([]DelivererOption{WithRetryPolicy(RetryPolicy{MaxAttempts: 3, Backoff: FixedBackoff(2 * time.Second), Sleep: rec.sleep})}, opts...)
	return NewDeliverer(p, MustRenderer(RendererOptions{}), Sender{Name: "Legacy Camp", Address: "noreply@legacycamp.com"}, opts...)
}

func transient() error { return wrapErr(ErrTransport, errors.New("connection reset by peer")) }

func TestDeliverSucceedsOnThirdAttempt(t *testing.T) {
	p := &scriptedProvider{failures: []error{transient(), transient()}}
	d := newTestDeliverer(p)

	out := d.DeliverWithOutcome(context.Background(), testRegistration(), domain.KindWelcome, Params{})
	assert.True(t, out.Success)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, "msg-1", out.MessageID)
	assert.Equal(t, []string{"send", "recycle", "send", "recycle", "send"}, p.events)
	require.Len(t, p.sent, 1)
	assert.Equal(t, "maria@example.com", p.sent[0].To)
	assert.Equal(t, "noreply@legacycamp.com", p.sent[0].FromEmail)
}

func TestDeliverGivesUpAfterThreeAttempts(t *testing.T) {
	p := &scriptedProvider{failures: []error{transient(), transient(), transient(), transient()}}
	d := newTestDeliverer(p)

	ok := d.Deliver(context.Background(), testRegistration(), domain.KindWelcome, Params{})
	assert.False(t, ok)
	assert.Equal(t, 3, p.calls)
}

func TestDeliverStopsOnAuthFailure(t *testing.T) {
	p := &scriptedProvider{failures: []error{wrapErr(ErrAuth, errors.New("invalid_grant"))}}
	d := newTestDeliverer(p)

	out := d.DeliverWithOutcome(context.Background(), testRegistration(), domain.KindWelcome, Params{})
	assert.False(t, out.Success)
	assert.Equal(t, 1, out.Attempts)
	assert.Contains(t, out.LastError, "invalid_grant")
}

func TestDeliverRecoversFromProviderPanic(t *testing.T) {
	p := &scriptedProvider{panics: 3}
	d := newTestDeliverer(p)

	var out Outcome
	assert.NotPanics(t, func() {
		out = d.DeliverWithOutcome(context.Background(), testRegistration(), domain.KindWelcome, Params{})
	})
	assert.False(t, out.Success)
	assert.Equal(t, 3, out.Attempts)
}

func TestDeliverPanicThenSuccess(t *testing.T) {
	p := &scriptedProvider{panics: 1}
	d := newTestDeliverer(p)
	assert.True(t, d.Deliver(context.Background(), testRegistration(), domain.KindWelcome, Params{}))
	assert.Equal(t, 2, p.calls)
}

func TestDeliverNilRegistration(t *testing.T) {
	p := &scriptedProvider{}
	d := newTestDeliverer(p)
	assert.False(t, d.Deliver(context.Background(), nil, domain.KindWelcome, Params{}))
	assert.Zero(t, p.calls)
}

func TestDeliverContractAttachesDocument(t *testing.T) {
	p := &scriptedProvider{}
	att := &domain.Attachment{Filename: "Contrato-Legacy-Camp.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4")}
	d := newTestDeliverer(p, WithAttachments(staticAttachment{att: att}))

	require.True(t, d.Deliver(context.Background(), testRegistration(), domain.KindContract, Params{}))
	require.Len(t, p.sent, 1)
	assert.Equal(t, att, p.sent[0].Attachment)
}

func TestDeliverContractWithoutDocument(t *testing.T) {
	p := &scriptedProvider{}
	d := newTestDeliverer(p, WithAttachments(staticAttachment{err: errors.New("not found")}))

	assert.False(t, d.Deliver(context.Background(), testRegistration(), domain.KindContract, Params{}))
	assert.Zero(t, p.calls)

	d = newTestDeliverer(p)
	assert.False(t, d.Deliver(context.Background(), testRegistration(), domain.KindContract, Params{}))
	assert.Zero(t, p.calls)
}

func TestDeliverMisconfiguredProvider(t *testing.T) {
	p := &brokenProvider{name: domain.ProviderSMTP, err: ErrMisconfigured}
	d := newTestDeliverer(p)

	out := d.DeliverWithOutcome(context.Background(), testRegistration(), domain.KindWelcome, Params{})
	assert.False(t, out.Success)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, domain.ProviderSMTP, out.Provider)
}

func TestDefaultRetryPolicy(t *testing.T) {
	smtp := DefaultRetryPolicy(domain.ProviderSMTP, 0)
	assert.Equal(t, 3, smtp.MaxAttempts)
	assert.Equal(t, 2*time.Second, smtp.Backoff(1))
	assert.Equal(t, 4*time.Second, smtp.Backoff(2))

	assert.Equal(t, 2, DefaultRetryPolicy(domain.ProviderSMTP, 2).MaxAttempts)
	assert.Equal(t, MaxAttempts, DefaultRetryPolicy(domain.ProviderSMTP, 10).MaxAttempts)
	assert.Equal(t, MaxAttempts, DefaultRetryPolicy(domain.ProviderResend, -1).MaxAttempts)

	api := DefaultRetryPolicy(domain.ProviderGmail, 3)
	assert.Equal(t, 2*time.Second, api.Backoff(1))
	assert.Equal(t, 2*time.Second, api.Backoff(2))
}
