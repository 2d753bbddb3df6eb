package notification

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/legacycamp/camp-api/internal/mailing"
	"github.com/legacycamp/camp-api/internal/pkg/logger"
	"github.com/legacycamp/camp-api/internal/service/registration"
)

// Per-recipient failure reasons reported by SendBulk.
const (
	ReasonInvalidID      = "invalid_id"
	ReasonNotFound       = "not_found"
	ReasonLookupFailed   = "lookup_failed"
	ReasonDeliveryFailed = "delivery_failed"
)

// BulkSent records one accepted message.
type BulkSent struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// BulkFailure records one recipient that did not get the message.
type BulkFailure struct {
	ID     string `json:"id"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

// BulkSummary counts a bulk run. Sent + Failed always equals Total.
type BulkSummary struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// BulkResult is the per-recipient report of a bulk run.
type BulkResult struct {
	Sent    []BulkSent    `json:"sent"`
	Errors  []BulkFailure `json:"errors"`
	Summary BulkSummary   `json:"summary"`
}

// SendBulk sends the same custom message to every id, one at a time and in
// order. A failing recipient never stops the run.
func (s *Service) SendBulk(ctx context.Context, ids []string, subject, message string) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyBulk
	}
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(message) == "" {
		return nil, ErrMissingContent
	}

	if s.bulkLock != nil {
		lock := s.bulkLock()
		acquired, err := lock.Acquire(ctx)
		switch {
		case err != nil:
			logger.Warn("bulk lock unavailable, sending unguarded", "error", err)
		case !acquired:
			return nil, ErrBulkInProgress
		default:
			defer func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := lock.Release(releaseCtx); err != nil {
					logger.Warn("bulk lock release failed", "error", err)
				}
			}()
		}
	}

	start := time.Now()
	res := &BulkResult{
		Sent:    []BulkSent{},
		Errors:  []BulkFailure{},
		Summary: BulkSummary{Total: len(ids)},
	}
	params := mailing.Params{Subject: subject, Message: message}

	for _, raw := range ids {
		raw = strings.TrimSpace(raw)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			res.fail(BulkFailure{ID: raw, Reason: ReasonInvalidID})
			continue
		}

		reg, err := s.finder.Get(ctx, id)
		if err != nil {
			reason := ReasonLookupFailed
			if errors.Is(err, registration.ErrNotFound) {
				reason = ReasonNotFound
			} else {
				logger.Error("bulk lookup failed", "registration_id", id, "error", err)
			}
			res.fail(BulkFailure{ID: raw, Reason: reason})
			continue
		}

		out := s.deliverer.DeliverWithOutcome(ctx, reg, domain.KindCustom, params)
		if !out.Success {
			res.fail(BulkFailure{ID: raw, Email: reg.Email, Reason: ReasonDeliveryFailed})
			continue
		}
		res.Sent = append(res.Sent, BulkSent{ID: reg.ID, Email: reg.Email})
		res.Summary.Sent++
	}

	log.Printf("[Notification] bulk run finished: %d/%d sent, %d failed in %s",
		res.Summary.Sent, res.Summary.Total, res.Summary.Failed, time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (r *BulkResult) fail(f BulkFailure) {
	r.Errors = append(r.Errors, f)
	r.Summary.Failed++
}
