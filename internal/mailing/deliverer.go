package mailing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/legacycamp/camp-api/internal/pkg/logger"
)

// Deliverer renders and sends one email to one registrant. Every failure is
// absorbed: callers get a boolean (or an Outcome) and never an error or a
// panic.
type Deliverer struct {
	provider    Provider
	renderer    *Renderer
	from        Sender
	policy      RetryPolicy
	attachments AttachmentSource
}

// DelivererOption customizes a Deliverer.
type DelivererOption func(*Deliverer)

// WithRetryPolicy replaces the provider's default retry policy.
func WithRetryPolicy(p RetryPolicy) DelivererOption {
	return func(d *Deliverer) { d.policy = p }
}

// WithAttachments sets where contract emails get their attachment.
func WithAttachments(src AttachmentSource) DelivererOption {
	return func(d *Deliverer) { d.attachments = src }
}

// NewDeliverer wires a provider and renderer together.
func NewDeliverer(p Provider, r *Renderer, from Sender, opts ...DelivererOption) *Deliverer {
	d := &Deliverer{
		provider: p,
		renderer: r,
		from:     from,
		policy:   DefaultRetryPolicy(p.Name(), MaxAttempts),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MaxAttempts caps delivery attempts per email, keeping the worst case near
// 15s of waiting on a dead relay.
const MaxAttempts = 3

// DefaultRetryPolicy waits 2s then 4s between SMTP attempts, and a flat 2s
// for HTTP APIs. maxAttempts outside 1..MaxAttempts becomes MaxAttempts.
func DefaultRetryPolicy(name domain.ProviderType, maxAttempts int) RetryPolicy {
	if maxAttempts <= 0 || maxAttempts > MaxAttempts {
		maxAttempts = MaxAttempts
	}
	if name == domain.ProviderSMTP {
		return RetryPolicy{MaxAttempts: maxAttempts, Backoff: ExponentialBackoff(time.Second)}
	}
	return RetryPolicy{MaxAttempts: maxAttempts, Backoff: FixedBackoff(2 * time.Second)}
}

// Provider returns the active provider.
func (d *Deliverer) Provider() Provider { return d.provider }

// Deliver sends kind to reg and reports success.
func (d *Deliverer) Deliver(ctx context.Context, reg *domain.Registration, kind domain.EmailKind, p Params) bool {
	return d.DeliverWithOutcome(ctx, reg, kind, p).Success
}

// DeliverWithOutcome is Deliver with attempt accounting.
func (d *Deliverer) DeliverWithOutcome(ctx context.Context, reg *domain.Registration, kind domain.EmailKind, p Params) (out Outcome) {
	out.Provider = d.provider.Name()
	defer func() {
		if rec := recover(); rec != nil {
			out.Success = false
			out.LastError = fmt.Sprintf("panic: %v", rec)
			logger.Error("mail delivery panicked", "kind", kind, "provider", out.Provider, "error", rec)
		}
	}()

	if reg == nil {
		out.LastError = "registration is nil"
		logger.Error("mail delivery skipped", "kind", kind, "error", out.LastError)
		return out
	}

	subject, html, err := d.renderer.Render(kind, reg, p)
	if err != nil {
		out.LastError = err.Error()
		logger.Error("mail render failed", "kind", kind, "registration_id", reg.ID, "error", err)
		return out
	}

	msg := &domain.OutboundMessage{
		ID:          uuid.New().String(),
		FromName:    d.from.Name,
		FromEmail:   d.from.Address,
		To:          reg.Email,
		Subject:     subject,
		HTMLContent: html,
	}

	if kind == domain.KindContract {
		att, err := d.loadContract(ctx)
		if err != nil {
			out.LastError = err.Error()
			logger.Error("contract attachment unavailable", "registration_id", reg.ID, "email", reg.Email, "error", err)
			return out
		}
		msg.Attachment = att
	}

	maxAttempts := d.policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	hooks := RetryHooks{
		OnFailure: func(attempt int, err error) {
			logger.Warn("mail delivery attempt failed",
				"kind", kind,
				"provider", out.Provider,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"registration_id", reg.ID,
				"email", reg.Email,
				"error", err,
			)
			if errors.Is(err, ErrAuth) {
				logger.Error("mail provider rejected credentials; check the provider secrets or re-run /email/auth-url for gmail", "provider", out.Provider)
			}
		},
	}
	if rc, ok := d.provider.(Recycler); ok {
		hooks.Recycle = func() error {
			if err := safeRecycle(rc); err != nil {
				logger.Warn("mail session recycle failed", "provider", out.Provider, "error", err)
				return err
			}
			return nil
		}
	}

	attempts, err := d.policy.Do(ctx, func(attempt int) error {
		res, err := d.safeSend(ctx, msg)
		if err != nil {
			return err
		}
		if res != nil {
			out.MessageID = res.MessageID
		}
		return nil
	}, hooks)
	out.Attempts = attempts

	if err != nil {
		out.LastError = err.Error()
		logger.Error("mail delivery failed",
			"kind", kind,
			"provider", out.Provider,
			"attempts", attempts,
			"registration_id", reg.ID,
			"email", reg.Email,
			"error", err,
		)
		return out
	}

	out.Success = true
	logger.Info("mail delivered",
		"kind", kind,
		"provider", out.Provider,
		"attempts", attempts,
		"registration_id", reg.ID,
		"email", reg.Email,
		"message_id", out.MessageID,
	)
	return out
}

// safeSend turns a provider panic into a transport failure for this attempt.
func (d *Deliverer) safeSend(ctx context.Context, msg *domain.OutboundMessage) (res *domain.SendResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = wrapErr(ErrTransport, fmt.Errorf("provider panic: %v", rec))
		}
	}()
	return d.provider.Send(ctx, msg)
}

func safeRecycle(rc Recycler) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("recycle panic: %v", rec)
		}
	}()
	return rc.Recycle()
}

func (d *Deliverer) loadContract(ctx context.Context) (*domain.Attachment, error) {
	if d.attachments == nil {
		return nil, errors.New("no contract source configured")
	}
	return d.attachments.Load(ctx)
}
