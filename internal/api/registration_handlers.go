package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/legacycamp/camp-api/internal/pkg/httputil"
	"github.com/legacycamp/camp-api/internal/pkg/logger"
	"github.com/legacycamp/camp-api/internal/service/registration"
)

const maxListLimit = 500

// CreateRegistration handles POST /inscricoes
func (h *Handlers) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if !httputil.Decode(w, r, &reg) {
		return
	}
	created, err := h.registrations.Create(r.Context(), &reg)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	logger.Info("registration created", "registration_id", created.ID, "email", created.Email, "lot", created.RegistrationLot)
	httputil.Created(w, created)
}

func parseListFilter(r *http.Request) (registration.ListFilter, error) {
	q := r.URL.Query()
	f := registration.ListFilter{
		Status:          domain.RegistrationStatus(q.Get("status")),
		RegistrationLot: q.Get("registrationLot"),
		PaymentMethod:   q.Get("paymentMethod"),
		CouponCode:      q.Get("couponCode"),
		Search:          q.Get("search"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("limit inválido: %q", v)
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("offset inválido: %q", v)
		}
		f.Offset = n
	}
	return f, nil
}

// ListRegistrations handles GET /inscricoes. The unpaginated total is sent
// in X-Total-Count.
func (h *Handlers) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	list, total, err := h.registrations.List(r.Context(), f)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	httputil.OK(w, list)
}

// GetStats handles GET /inscricoes/stats
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registrations.Stats(r.Context())
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.OK(w, stats)
}

// ExportRegistrations handles GET /inscricoes/export and streams an .xlsx
// workbook honoring the list filters.
func (h *Handlers) ExportRegistrations(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var buf bytes.Buffer
	n, err := h.registrations.ExportXLSX(r.Context(), &buf, f)
	if err != nil {
		writeLookupError(w, err)
		return
	}

	filename := fmt.Sprintf("inscricoes-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Total-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// ListByStatus handles GET /inscricoes/status/{status}
func (h *Handlers) ListByStatus(w http.ResponseWriter, r *http.Request) {
	list, err := h.registrations.FindByStatus(r.Context(), chi.URLParam(r, "status"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.OK(w, list)
}

// CountCoupon handles GET /inscricoes/coupon/{code}/count
func (h *Handlers) CountCoupon(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	n, err := h.registrations.CountByCoupon(r.Context(), code)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"couponCode": code, "count": n})
}

// GetRegistration handles GET /inscricoes/{id}
func (h *Handlers) GetRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	reg, err := h.registrations.Get(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.OK(w, reg)
}

// UpdateRegistration handles PATCH /inscricoes/{id}. Only the fields
// present in the body change.
func (h *Handlers) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.ReadBody(w, r)
	if !ok {
		return
	}
	if !json.Valid(body) {
		httputil.BadRequest(w, "JSON inválido")
		return
	}

	var decodeErr error
	updated, err := h.registrations.Update(r.Context(), id, func(reg *domain.Registration) error {
		decodeErr = json.Unmarshal(body, reg)
		return decodeErr
	})
	if decodeErr != nil {
		httputil.BadRequest(w, "JSON inválido: "+decodeErr.Error())
		return
	}
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.OK(w, updated)
}

type statusRequest struct {
	Status string `json:"status"`
	Notify bool   `json:"notify"`
}

// UpdateStatus handles PATCH /inscricoes/{id}/status. With notify set the
// registrant also gets the status-update email; a failed send does not
// undo the status change.
func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		httputil.BadRequest(w, "Status é obrigatório")
		return
	}

	updated, err := h.registrations.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	logger.Info("registration status changed", "registration_id", id, "status", updated.Status)

	if !req.Notify || h.notifications == nil {
		httputil.OK(w, updated)
		return
	}

	rec, err := h.notifications.SendStatusUpdate(r.Context(), id, string(updated.Status))
	emailSent := err == nil && rec.Sent()
	if !emailSent {
		logger.Warn("status update email not sent", "registration_id", id, "status", updated.Status, "error", err)
	}
	httputil.OK(w, map[string]any{
		"inscricao": updated,
		"emailSent": emailSent,
	})
}

// DeleteRegistration handles DELETE /inscricoes/{id}
func (h *Handlers) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.registrations.Delete(r.Context(), id); err != nil {
		writeLookupError(w, err)
		return
	}
	logger.Info("registration deleted", "registration_id", id)
	httputil.NoContent(w)
}
