package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/legacycamp/camp-api/internal/auth"
	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/legacycamp/camp-api/internal/mailing"
	"github.com/legacycamp/camp-api/internal/pkg/httputil"
	"github.com/legacycamp/camp-api/internal/service/notification"
	"github.com/legacycamp/camp-api/internal/service/registration"
)

// RegistrationService is the registration CRUD surface used by the handlers.
type RegistrationService interface {
	Create(ctx context.Context, r *domain.Registration) (*domain.Registration, error)
	Get(ctx context.Context, id int64) (*domain.Registration, error)
	List(ctx context.Context, f registration.ListFilter) ([]domain.Registration, int, error)
	FindByStatus(ctx context.Context, status string) ([]domain.Registration, error)
	Update(ctx context.Context, id int64, apply func(*domain.Registration) error) (*domain.Registration, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*domain.Registration, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*registration.Stats, error)
	CountByCoupon(ctx context.Context, code string) (int, error)
	ExportXLSX(ctx context.Context, w io.Writer, f registration.ListFilter) (int, error)
}

// NotificationService sends the registrant emails.
type NotificationService interface {
	SendWelcome(ctx context.Context, id int64) (*notification.Receipt, error)
	SendTest(ctx context.Context, id int64) (*notification.Receipt, error)
	SendStatusUpdate(ctx context.Context, id int64, newStatus string) (*notification.Receipt, error)
	SendCustom(ctx context.Context, id int64, subject, message string) (*notification.Receipt, error)
	SendBulk(ctx context.Context, ids []string, subject, message string) (*notification.BulkResult, error)
	SendPaymentInstructions(ctx context.Context, id int64) (*notification.Receipt, error)
	SendContract(ctx context.Context, id int64) (*notification.Receipt, error)
}

// ConsentService runs the Gmail consent flow.
type ConsentService interface {
	AuthURL() (string, error)
	AuthInstructions() []string
	Exchange(ctx context.Context, code string) (*auth.TokenSet, error)
}

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Config        *config.Config
	Registrations RegistrationService
	Notifications NotificationService
	Consent       ConsentService
	Selection     mailing.Selection
	Health        *HealthChecker
}

// Handlers contains all HTTP handlers
type Handlers struct {
	cfg           *config.Config
	registrations RegistrationService
	notifications NotificationService
	consent       ConsentService
	selection     mailing.Selection
	health        *HealthChecker
}

// NewHandlers creates the handler set.
func NewHandlers(d Deps) *Handlers {
	cfg := d.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Handlers{
		cfg:           cfg,
		registrations: d.Registrations,
		notifications: d.Notifications,
		consent:       d.Consent,
		selection:     d.Selection,
		health:        d.Health,
	}
}

// registrationRef is the registration excerpt echoed by email endpoints.
type registrationRef struct {
	ID       int64                     `json:"id"`
	FullName string                    `json:"fullName"`
	Email    string                    `json:"email"`
	Status   domain.RegistrationStatus `json:"status,omitempty"`
}

func refOf(r *domain.Registration) *registrationRef {
	if r == nil {
		return nil
	}
	return &registrationRef{ID: r.ID, FullName: r.FullName, Email: r.Email, Status: r.Status}
}

// emailResponse is the envelope returned by single-recipient email endpoints.
type emailResponse struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	Inscricao *registrationRef `json:"inscricao,omitempty"`
}

// pathID parses the {id} URL parameter. On failure it writes a 400 and
// returns false.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	return parseID(w, chi.URLParam(r, "id"))
}

func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		httputil.BadRequest(w, "ID de inscrição inválido")
		return 0, false
	}
	return id, true
}

// flexibleID accepts a registration id sent either as a JSON string or a
// JSON number.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	*f = flexibleID(s)
	return nil
}

// writeLookupError maps service errors to responses. Anything it does not
// recognize becomes a sanitized 500.
func writeLookupError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, registration.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, registration.ErrInvalidStatus):
		httputil.BadRequest(w, "Status inválido")
	case errors.Is(err, registration.ErrCouponRequired):
		httputil.BadRequest(w, "Código do cupom é obrigatório")
	case errors.As(err, &verr):
		httputil.FailWithDetails(w, http.StatusBadRequest, "Dados inválidos", verr.Problems)
	default:
		respondSafeError(w, http.StatusInternalServerError, err, httputil.GenericErrorMessage)
	}
}
