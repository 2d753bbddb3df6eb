package notification

import (
	"context"
	"strings"
	"time"

	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/legacycamp/camp-api/internal/mailing"
	"github.com/legacycamp/camp-api/internal/pkg/distlock"
)

// Finder resolves registrations by id. registration.Service satisfies it.
type Finder interface {
	Get(ctx context.Context, id int64) (*domain.Registration, error)
}

// Deliverer sends one rendered email. *mailing.Deliverer satisfies it.
type Deliverer interface {
	DeliverWithOutcome(ctx context.Context, reg *domain.Registration, kind domain.EmailKind, p mailing.Params) mailing.Outcome
}

// LockFactory returns a fresh lock guarding one bulk run.
type LockFactory func() distlock.DistLock

// BulkLockKey names the lock held for the duration of a bulk run.
const BulkLockKey = "mail:bulk"

// BulkLockTTL bounds how long a crashed bulk run can block the next one.
const BulkLockTTL = 30 * time.Minute

// Receipt is the result of a single-recipient operation.
type Receipt struct {
	Registration *domain.Registration
	Outcome      mailing.Outcome
}

// Sent reports whether the provider accepted the message.
func (r *Receipt) Sent() bool { return r != nil && r.Outcome.Success }

// Service sends the registrant emails.
type Service struct {
	finder    Finder
	deliverer Deliverer
	payment   config.PaymentConfig
	bulkLock  LockFactory
}

// Option customizes a Service.
type Option func(*Service)

// WithBulkLock serializes bulk runs across processes.
func WithBulkLock(f LockFactory) Option {
	return func(s *Service) { s.bulkLock = f }
}

// NewService creates a notification service.
func NewService(finder Finder, deliverer Deliverer, payment config.PaymentConfig, opts ...Option) *Service {
	s := &Service{finder: finder, deliverer: deliverer, payment: payment}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PaymentLink returns the card payment link for the registration's lot.
func (s *Service) PaymentLink(reg *domain.Registration) string {
	if strings.EqualFold(reg.RegistrationLot, domain.Lote1) {
		return s.payment.Lote1Link
	}
	return s.payment.DefaultLink
}

func (s *Service) send(ctx context.Context, id int64, kind domain.EmailKind, params func(*domain.Registration) mailing.Params) (*Receipt, error) {
	reg, err := s.finder.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var p mailing.Params
	if params != nil {
		p = params(reg)
	}
	return &Receipt{Registration: reg, Outcome: s.deliverer.DeliverWithOutcome(ctx, reg, kind, p)}, nil
}

// SendWelcome sends the welcome email.
func (s *Service) SendWelcome(ctx context.Context, id int64) (*Receipt, error) {
	return s.send(ctx, id, domain.KindWelcome, nil)
}

// SendTest sends the welcome email to check provider connectivity.
func (s *Service) SendTest(ctx context.Context, id int64) (*Receipt, error) {
	return s.SendWelcome(ctx, id)
}

// SendStatusUpdate announces newStatus. Unknown statuses are still sent
// with the generic headline.
func (s *Service) SendStatusUpdate(ctx context.Context, id int64, newStatus string) (*Receipt, error) {
	status := strings.ToUpper(strings.TrimSpace(newStatus))
	return s.send(ctx, id, domain.KindStatusUpdate, func(*domain.Registration) mailing.Params {
		return mailing.Params{NewStatus: status}
	})
}

// SendCustom sends a free-form message.
func (s *Service) SendCustom(ctx context.Context, id int64, subject, message string) (*Receipt, error) {
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(message) == "" {
		return nil, ErrMissingContent
	}
	return s.send(ctx, id, domain.KindCustom, func(*domain.Registration) mailing.Params {
		return mailing.Params{Subject: subject, Message: message}
	})
}

// SendPaymentInstructions sends the payment instructions for the
// registration's method and lot.
func (s *Service) SendPaymentInstructions(ctx context.Context, id int64) (*Receipt, error) {
	return s.send(ctx, id, domain.KindPaymentInstructions, func(reg *domain.Registration) mailing.Params {
		return mailing.Params{PaymentLink: s.PaymentLink(reg)}
	})
}

// SendContract sends the participation contract with the PDF attached.
func (s *Service) SendContract(ctx context.Context, id int64) (*Receipt, error) {
	return s.send(ctx, id, domain.KindContract, func(reg *domain.Registration) mailing.Params {
		return mailing.Params{PaymentLink: s.PaymentLink(reg)}
	})
}
