package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/legacycamp/camp-api/internal/auth"
	"github.com/legacycamp/camp-api/internal/pkg/httputil"
	"github.com/legacycamp/camp-api/internal/pkg/logger"
	"github.com/legacycamp/camp-api/internal/service/notification"
	"github.com/legacycamp/camp-api/internal/service/registration"
)

const registrationNotFound = "Inscrição não encontrada"

// sendOne runs a single-recipient operation and writes the envelope.
// okFormat receives the recipient's email.
func (h *Handlers) sendOne(w http.ResponseWriter, op func() (*notification.Receipt, error), okFormat, failMsg string) {
	rec, err := op()
	switch {
	case errors.Is(err, registration.ErrNotFound):
		httputil.NotFound(w, registrationNotFound)
		return
	case errors.Is(err, notification.ErrMissingContent):
		httputil.BadRequest(w, "Assunto e mensagem são obrigatórios")
		return
	case err != nil:
		respondSafeError(w, http.StatusInternalServerError, err, httputil.GenericErrorMessage)
		return
	}
	if !rec.Sent() {
		deliveryFailed(w, failMsg)
		return
	}
	httputil.OK(w, emailResponse{
		Success:   true,
		Message:   fmt.Sprintf(okFormat, rec.Registration.Email),
		Inscricao: refOf(rec.Registration),
	})
}

// withID parses {id} and runs op with it.
func (h *Handlers) withID(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) (*notification.Receipt, error), okFormat, failMsg string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.sendOne(w, func() (*notification.Receipt, error) { return op(r.Context(), id) }, okFormat, failMsg)
}

// SendWelcome handles POST /email/send-welcome/{id}
func (h *Handlers) SendWelcome(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.notifications.SendWelcome,
		"Email de boas-vindas enviado com sucesso para %s", "Falha ao enviar email de boas-vindas")
}

// SendTest handles GET /email/test/{id}
func (h *Handlers) SendTest(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.notifications.SendTest,
		"Email de teste enviado com sucesso para %s", "Falha ao enviar email")
}

// SendPaymentInstructions handles POST /email/send-payment-instructions/{id}
func (h *Handlers) SendPaymentInstructions(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.notifications.SendPaymentInstructions,
		"Instruções de pagamento enviadas com sucesso para %s", "Falha ao enviar instruções de pagamento")
}

// SendContract handles POST /email/send-contract/{id}
func (h *Handlers) SendContract(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, h.notifications.SendContract,
		"Contrato enviado com sucesso para %s", "Falha ao enviar contrato")
}

type statusUpdateRequest struct {
	InscricaoID flexibleID `json:"inscricaoId"`
	NewStatus   string     `json:"newStatus"`
}

// SendStatusUpdate handles POST /email/send-status-update
func (h *Handlers) SendStatusUpdate(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.NewStatus) == "" {
		httputil.BadRequest(w, "newStatus é obrigatório")
		return
	}
	id, ok := parseID(w, string(req.InscricaoID))
	if !ok {
		return
	}
	h.sendOne(w, func() (*notification.Receipt, error) {
		return h.notifications.SendStatusUpdate(r.Context(), id, req.NewStatus)
	}, "Email de atualização de status enviado com sucesso para %s", "Falha ao enviar email de atualização de status")
}

type customEmailRequest struct {
	InscricaoID flexibleID `json:"inscricaoId"`
	Subject     string     `json:"subject"`
	Message     string     `json:"message"`
}

// SendCustom handles POST /email/send
func (h *Handlers) SendCustom(w http.ResponseWriter, r *http.Request) {
	var req customEmailRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	id, ok := parseID(w, string(req.InscricaoID))
	if !ok {
		return
	}
	h.sendOne(w, func() (*notification.Receipt, error) {
		return h.notifications.SendCustom(r.Context(), id, req.Subject, req.Message)
	}, "Email enviado com sucesso para %s", "Falha ao enviar email")
}

type bulkEmailRequest struct {
	InscricaoIDs []flexibleID `json:"inscricaoIds"`
	Subject      string       `json:"subject"`
	Message      string       `json:"message"`
}

type bulkEmailResponse struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message"`
	Results bulkResults              `json:"results"`
	Summary notification.BulkSummary `json:"summary"`
}

type bulkResults struct {
	Sent   []notification.BulkSent    `json:"sent"`
	Errors []notification.BulkFailure `json:"errors"`
}

// SendBulk handles POST /email/send-bulk. Partial failure still answers
// 200; the per-recipient report says who did not get the message.
func (h *Handlers) SendBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkEmailRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	ids := make([]string, len(req.InscricaoIDs))
	for i, id := range req.InscricaoIDs {
		ids[i] = string(id)
	}

	res, err := h.notifications.SendBulk(r.Context(), ids, req.Subject, req.Message)
	switch {
	case errors.Is(err, notification.ErrEmptyBulk):
		httputil.BadRequest(w, "inscricaoIds deve conter ao menos um ID")
		return
	case errors.Is(err, notification.ErrMissingContent):
		httputil.BadRequest(w, "Assunto e mensagem são obrigatórios")
		return
	case errors.Is(err, notification.ErrBulkInProgress):
		httputil.Conflict(w, "Já existe um envio em massa em andamento")
		return
	case err != nil:
		respondSafeError(w, http.StatusInternalServerError, err, httputil.GenericErrorMessage)
		return
	}

	httputil.OK(w, bulkEmailResponse{
		Success: res.Summary.Failed == 0,
		Message: fmt.Sprintf("Envio em massa concluído: %d de %d emails enviados", res.Summary.Sent, res.Summary.Total),
		Results: bulkResults{Sent: res.Sent, Errors: res.Errors},
		Summary: res.Summary,
	})
}

// AuthURL handles GET /email/auth-url
func (h *Handlers) AuthURL(w http.ResponseWriter, r *http.Request) {
	if h.consent == nil {
		httputil.BadRequest(w, auth.ErrNotConfigured.Error())
		return
	}
	url, err := h.consent.AuthURL()
	if errors.Is(err, auth.ErrNotConfigured) {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, httputil.GenericErrorMessage)
		return
	}
	httputil.OK(w, map[string]any{
		"success":      true,
		"message":      "URL de autorização gerada com sucesso",
		"authUrl":      url,
		"instructions": h.consent.AuthInstructions(),
	})
}

// ExchangeCode handles GET /email/exchange-code/{code}
func (h *Handlers) ExchangeCode(w http.ResponseWriter, r *http.Request) {
	if h.consent == nil {
		httputil.BadRequest(w, auth.ErrNotConfigured.Error())
		return
	}
	tokens, err := h.consent.Exchange(r.Context(), chi.URLParam(r, "code"))
	if errors.Is(err, auth.ErrNotConfigured) {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		logger.Warn("gmail consent exchange failed", "error", err)
		httputil.BadRequest(w, "Erro ao trocar código por token")
		return
	}
	logger.Info("gmail consent exchanged", "refresh_token", tokens.RefreshToken)
	httputil.OK(w, map[string]any{
		"success":   true,
		"message":   "Tokens gerados com sucesso!",
		"tokens":    tokens,
		"nextSteps": auth.NextSteps(),
	})
}
