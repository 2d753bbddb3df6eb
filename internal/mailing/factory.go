package mailing

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
)

// Selection records which provider was chosen and why.
type Selection struct {
	Provider    domain.ProviderType `json:"provider"`
	Reason      string              `json:"reason"`
	SMTPProfile string              `json:"smtpProfile,omitempty"`
}

// SelectProvider applies the selection rules to cfg. An explicit
// EMAIL_PROVIDER wins; "auto" (or empty) walks the credentials in order.
func SelectProvider(cfg *config.Config) Selection {
	mc := cfg.Mail
	sel := Selection{}

	switch domain.ProviderType(strings.ToLower(mc.Provider)) {
	case domain.ProviderSMTP, domain.ProviderGmail, domain.ProviderResend, domain.ProviderWeb3Forms, domain.ProviderSES:
		sel.Provider = domain.ProviderType(strings.ToLower(mc.Provider))
		sel.Reason = "EMAIL_PROVIDER=" + strings.ToLower(mc.Provider)
	default:
		switch {
		case cfg.IsProduction() && mc.Gmail.Configured():
			sel.Provider, sel.Reason = domain.ProviderGmail, "production with Google OAuth credentials"
		case mc.Resend.APIKey != "":
			sel.Provider, sel.Reason = domain.ProviderResend, "RESEND_API_KEY present"
		case mc.SES.Configured():
			sel.Provider, sel.Reason = domain.ProviderSES, "AWS SES credentials present"
		case mc.Web3Forms.AccessKey != "":
			sel.Provider, sel.Reason = domain.ProviderWeb3Forms, "WEB3FORMS_ACCESS_KEY present"
		default:
			sel.Provider, sel.Reason = domain.ProviderSMTP, "default"
		}
	}

	if sel.Provider == domain.ProviderSMTP {
		sel.SMTPProfile = ProfileFor(mc.SMTP.Profile, cfg.IsProduction()).Name
	}
	return sel
}

// NewProvider builds the selected provider. Missing credentials do not stop
// the service: the returned provider fails every send with ErrMisconfigured
// and the problem is logged once here.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, Selection) {
	sel := SelectProvider(cfg)
	mc := cfg.Mail

	var (
		p   Provider
		err error
	)
	switch sel.Provider {
	case domain.ProviderGmail:
		p, err = NewGmailProvider(mc.Gmail, GmailOptions{})
	case domain.ProviderResend:
		p, err = NewResendProvider(mc.Resend, nil)
	case domain.ProviderSES:
		p, err = NewSESProvider(ctx, mc.SES)
	case domain.ProviderWeb3Forms:
		p, err = NewWeb3FormsProvider(mc.Web3Forms, nil)
	default:
		p, err = NewSMTPProvider(mc.SMTP, ProfileFor(mc.SMTP.Profile, cfg.IsProduction()))
	}
	if err != nil {
		log.Printf("[Mail] Provider %s unavailable: %v", sel.Provider, err)
		return &brokenProvider{name: sel.Provider, err: err}, sel
	}

	log.Printf("[Mail] Using provider %s (%s)", sel.Provider, sel.Reason)
	if sel.Provider == domain.ProviderWeb3Forms {
		log.Printf("[Mail] WARNING: web3forms delivers to the form owner's inbox; registrants are only set as reply-to")
	}
	return p, sel
}

// SelfCheckPolicy is used for the startup connectivity check: three tries
// waiting 2s then 4s.
var SelfCheckPolicy = RetryPolicy{MaxAttempts: 3, Backoff: LinearBackoff(2 * time.Second)}

// SelfCheck verifies p when it supports verification. Failure is logged and
// reported but never fatal.
func SelfCheck(ctx context.Context, p Provider, policy RetryPolicy) bool {
	v, ok := p.(Verifier)
	if !ok {
		return true
	}
	attempts, err := policy.Do(ctx, func(attempt int) error {
		return v.Verify(ctx)
	}, RetryHooks{
		OnFailure: func(attempt int, err error) {
			log.Printf("[Mail] Self-check attempt %d for %s failed: %v", attempt, p.Name(), err)
		},
	})
	if err != nil {
		log.Printf("[Mail] WARNING: %s self-check failed after %d attempt(s); sends will keep retrying: %v", p.Name(), attempts, err)
		return false
	}
	log.Printf("[Mail] %s self-check passed", p.Name())
	return true
}
