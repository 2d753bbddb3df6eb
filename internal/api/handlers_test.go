package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/legacycamp/camp-api/internal/auth"
	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/legacycamp/camp-api/internal/mailing"
	"github.com/legacycamp/camp-api/internal/service/notification"
	"github.com/legacycamp/camp-api/internal/service/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory registration repository.
type memRepo struct {
	mu      sync.Mutex
	nextID  int64
	store   map[int64]*domain.Registration
	failAll error
}

func newMemRepo() *memRepo {
	return &memRepo{store: make(map[int64]*domain.Registration)}
}

func (m *memRepo) Create(_ context.Context, r *domain.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now().Add(time.Duration(m.nextID) * time.Second)
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *memRepo) FindOne(_ context.Context, id int64) (*domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	r, ok := m.store[id]
	if !ok {
		return nil, &registration.NotFoundError{ID: id}
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, f registration.ListFilter) ([]domain.Registration, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, 0, m.failAll
	}
	out := []domain.Registration{}
	for _, r := range m.store {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memRepo) Update(_ context.Context, r *domain.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[r.ID]; !ok {
		return &registration.NotFoundError{ID: r.ID}
	}
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id int64, status domain.RegistrationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok {
		return &registration.NotFoundError{ID: id}
	}
	r.Status = status
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return &registration.NotFoundError{ID: id}
	}
	delete(m.store, id)
	return nil
}

func (m *memRepo) CountByStatus(_ context.Context) (map[domain.RegistrationStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.RegistrationStatus]int{}
	for _, r := range m.store {
		out[r.Status]++
	}
	return out, nil
}

func (m *memRepo) CountByCoupon(_ context.Context, code string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.store {
		if r.CouponCode != nil && strings.EqualFold(*r.CouponCode, code) {
			n++
		}
	}
	return n, nil
}

// fakeDeliverer accepts every message except those addressed to failFor.
type fakeDeliverer struct {
	mu      sync.Mutex
	kinds   []domain.EmailKind
	failFor map[string]bool
}

func (d *fakeDeliverer) DeliverWithOutcome(_ context.Context, reg *domain.Registration, kind domain.EmailKind, _ mailing.Params) mailing.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kinds = append(d.kinds, kind)
	if d.failFor[reg.Email] {
		return mailing.Outcome{Attempts: 3, Provider: domain.ProviderSMTP, LastError: "535 authentication failed"}
	}
	return mailing.Outcome{Success: true, Attempts: 1, Provider: domain.ProviderSMTP}
}

type fakeConsent struct{}

func (fakeConsent) AuthURL() (string, error) {
	return "https://accounts.example.com/o/oauth2/auth?client_id=x", nil
}

func (fakeConsent) AuthInstructions() []string { return []string{"Acesse a URL"} }

func (fakeConsent) Exchange(_ context.Context, code string) (*auth.TokenSet, error) {
	if code == "bad" {
		return nil, errors.New("oauth2: invalid_grant")
	}
	return &auth.TokenSet{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"}, nil
}

type fixture struct {
	repo      *memRepo
	deliverer *fakeDeliverer
	router    http.Handler
}

func newTestFixture(t *testing.T, consent ConsentService) *fixture {
	t.Helper()
	repo := newMemRepo()
	regs := registration.NewService(repo)
	d := &fakeDeliverer{failFor: map[string]bool{}}
	notes := notification.NewService(regs, d, config.PaymentConfig{
		Lote1Link:   "https://pay.example.com/lote1",
		DefaultLink: "https://pay.example.com/lote2",
	})
	cfg := &config.Config{Environment: "development"}
	cfg.Mail.FromAddress = "camp@example.com"
	cfg.Mail.SMTP.Username = "camp@example.com"
	cfg.Mail.SMTP.Password = "app-password-secret"

	h := NewHandlers(Deps{
		Config:        cfg,
		Registrations: regs,
		Notifications: notes,
		Consent:       consent,
		Selection:     mailing.Selection{Provider: domain.ProviderSMTP, Reason: "default"},
	})
	return &fixture{repo: repo, deliverer: d, router: NewRouter(h)}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) seed(t *testing.T, name, email string) *domain.Registration {
	t.Helper()
	r := newRegistration(name, email)
	require.NoError(t, f.repo.Create(context.Background(), r))
	return r
}

func newRegistration(name, email string) *domain.Registration {
	return &domain.Registration{
		FullName:              name,
		BirthDate:             "2004-08-21",
		Age:                   21,
		Gender:                "masculino",
		Phone:                 "92999991111",
		Email:                 email,
		Address:               "Rua B, 20",
		EmergencyContactName:  "Carla",
		EmergencyContactPhone: "92988881111",
		IsLagoinhaMember:      "nao",
		RegistrationLot:       domain.Lote1,
		PaymentMethod:         domain.PaymentCartao,
		ShirtSize:             "G",
		HasAllergy:            "nao",
		HasMinistryTest:       "nao",
		DietaryRestriction:    domain.DefaultDietaryRestriction,
		Status:                domain.StatusPendente,
	}
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newTestFixture(t, nil)

	rr := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Contains(t, checks, "database")
	assert.Contains(t, checks, "mail")

	rr = f.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

type verifyingProvider struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *verifyingProvider) Name() domain.ProviderType { return domain.ProviderSMTP }

func (p *verifyingProvider) Send(context.Context, *domain.OutboundMessage) (*domain.SendResult, error) {
	return nil, errors.New("not used")
}

func (p *verifyingProvider) Verify(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func TestHealthHidesMailProviderError(t *testing.T) {
	p := &verifyingProvider{err: errors.New("mail provider rejected credentials: 535 5.7.8 Username and Password not accepted for camp@gmail.com")}
	hc := NewHealthChecker(nil, nil, p)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		hc.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		assert.NotContains(t, rr.Body.String(), "5.7.8")
		assert.NotContains(t, rr.Body.String(), "camp@gmail.com")
		assert.NotContains(t, rr.Body.String(), "Username and Password")

		body := decode(t, rr)
		assert.Equal(t, "degraded", body["status"])
		mail := body["checks"].(map[string]any)["mail"].(map[string]any)
		assert.Equal(t, "down", mail["status"])
		assert.Equal(t, "smtp verify failed", mail["message"])
	}
	assert.Equal(t, 1, p.calls, "mail check result is reused between requests")
}

func TestDetermineOverallStatus(t *testing.T) {
	assert.Equal(t, "unhealthy", determineOverallStatus(map[string]ComponentCheck{
		"database": {Status: "down", Message: "ping failed"},
	}))
	assert.Equal(t, "degraded", determineOverallStatus(map[string]ComponentCheck{
		"database": {Status: "up"},
		"mail":     {Status: "down", Message: "smtp verify failed"},
	}))
	assert.Equal(t, "healthy", determineOverallStatus(map[string]ComponentCheck{
		"database": {Status: "up"},
		"redis":    {Status: "down", Message: "not configured"},
	}))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "42s", formatUptime(42*time.Second))
	assert.Equal(t, "2m 5s", formatUptime(125*time.Second))
	assert.Equal(t, "1d 1h 0m 0s", formatUptime(25*time.Hour))
}

func TestCreateRegistration(t *testing.T) {
	f := newTestFixture(t, nil)

	in := newRegistration("Pedro Alves", "pedro@example.com")
	in.Status = domain.StatusAprovada
	rr := f.do(t, http.MethodPost, "/inscricoes", in)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var got domain.Registration
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.NotZero(t, got.ID)
	assert.Equal(t, domain.StatusPendente, got.Status)
}

func TestCreateRegistrationInvalid(t *testing.T) {
	f := newTestFixture(t, nil)

	in := newRegistration("", "not-an-email")
	rr := f.do(t, http.MethodPost, "/inscricoes", in)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body := decode(t, rr)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["details"])
}

func TestCreateRegistrationMalformedJSON(t *testing.T) {
	f := newTestFixture(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/inscricoes", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetRegistration(t *testing.T) {
	f := newTestFixture(t, nil)
	reg := f.seed(t, "Lucas Prado", "lucas@example.com")

	rr := f.do(t, http.MethodGet, "/inscricoes/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, reg.Email, decode(t, rr)["email"])

	rr = f.do(t, http.MethodGet, "/inscricoes/99", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Inscrição com ID 99 não encontrada", decode(t, rr)["message"])

	rr = f.do(t, http.MethodGet, "/inscricoes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListRegistrations(t *testing.T) {
	f := newTestFixture(t, nil)
	f.seed(t, "A Um", "a@example.com")
	f.seed(t, "B Dois", "b@example.com")
	f.seed(t, "C Tres", "c@example.com")

	rr := f.do(t, http.MethodGet, "/inscricoes?limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "3", rr.Header().Get("X-Total-Count"))

	var list []domain.Registration
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rr = f.do(t, http.MethodGet, "/inscricoes?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatsAndStatusFilter(t *testing.T) {
	f := newTestFixture(t, nil)
	f.seed(t, "A Um", "a@example.com")
	b := f.seed(t, "B Dois", "b@example.com")
	require.NoError(t, f.repo.UpdateStatus(context.Background(), b.ID, domain.StatusAprovada))

	rr := f.do(t, http.MethodGet, "/inscricoes/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode(t, rr)
	assert.EqualValues(t, 2, stats["total"])
	assert.EqualValues(t, 1, stats["aprovadas"])

	rr = f.do(t, http.MethodGet, "/inscricoes/status/aprovada", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []domain.Registration
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	rr = f.do(t, http.MethodGet, "/inscricoes/status/ARQUIVADA", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateRegistrationPartial(t *testing.T) {
	f := newTestFixture(t, nil)
	f.seed(t, "Joana Dias", "joana@example.com")

	rr := f.do(t, http.MethodPatch, "/inscricoes/1", map[string]any{"shirtSize": "GG"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, "GG", body["shirtSize"])
	assert.Equal(t, "Joana Dias", body["fullName"])
}

func TestUpdateStatus(t *testing.T) {
	f := newTestFixture(t, nil)
	f.seed(t, "Rita Melo", "rita@example.com")

	rr := f.do(t, http.MethodPatch, "/inscricoes/1/status", map[string]any{"status": "EXPIRADA"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPatch, "/inscricoes/1/status", map[string]any{"status": "aprovada", "notify": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, true, body["emailSent"])
	assert.Equal(t, "APROVADA", body["inscricao"].(map[string]any)["status"])
	assert.Equal(t, []domain.EmailKind{domain.KindStatusUpdate}, f.deliverer.kinds)
}

func TestUpdateStatusEmailFailureKeepsChange(t *testing.T) {
	f := newTestFixture(t, nil)
	f.seed(t, "Rita Melo", "rita@example.com")
	f.deliverer.failFor["rita@example.com"] = true

	rr := f.do(t, http.MethodPatch, "/inscricoes/1/status", map[string]any{"status": "CANCELADA", "notify": true})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["emailSent"])

	stored, err := f.repo.FindOne(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelada, stored.Status)
}

func TestDeleteRegistration(t *testing.T) {
	f := newTestFixture(t, nil)
	f.seed(t, "Tiago Reis", "tiago@example.com")

	rr := f.do(t, http.MethodDelete, "/inscricoes/1", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, http.MethodDelete, "/inscricoes/1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCountCoupon(t *testing.T) {
	f := newTestFixture(t, nil)
	r := f.seed(t, "Caio Luz", "caio@example.com")
	code := "AMIGO10"
	r.CouponCode = &code
	require.NoError(t, f.repo.Update(context.Background(), r))

	rr := f.do(t, http.MethodGet, "/inscricoes/coupon/amigo10/count", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, decode(t, rr)["count"])
}

func TestInternalErrorIsSanitized(t *testing.T) {
	f := newTestFixture(t, nil)
	f.repo.failAll = errors.New(`pq: relation "inscricoes" does not exist`)

	rr := f.do(t, http.MethodGet, "/inscricoes/1", nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "pq:")
	assert.Equal(t, "Erro interno do servidor", decode(t, rr)["message"])
}

func TestSendWelcome(t *testing.T) {
	f := newTestFixture(t, nil)
	f.seed(t, "Bia Costa", "bia@example.com")

	rr := f.do(t, http.MethodPost, "/email/send-welcome/1", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["message"], "bia@example.com")
	assert.Equal(t, "Bia Costa", body["inscricao"].(map[string]any)["fullName"])

	rr = f.do(t, http.MethodPost, "/email/send-welcome/7", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Inscrição não encontrada", decode(t, rr)["message"])
}

func TestSendWelcomeDeliveryFailure(t *testing.T) {
	f := newTestFixture(t, nil)
	f.seed(t, "Bia Costa", "bia@example.com")
	f.deliverer.failFor["bia@example.com"] = true

	rr := f.do(t, http.MethodPost, "/email/send-welcome/1", nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "Falha ao enviar email de boas-vindas", body["message"])
	assert.NotContains(t, rr.Body.String(), "535")
}

func TestSendStatusUpdateAcceptsNumericID(t *testing.T) {
	f := newTestFixture(t, nil)
	f.seed(t, "Davi Nunes", "davi@example.com")

	rr := f.do(t, http.MethodPost, "/email/send-status-update", map[string]any{"inscricaoId": 1, "newStatus": "aprovada"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodPost, "/email/send-status-update", map[string]any{"inscricaoId": "1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendCustomRequiresContent(t *testing.T) {
	f := newTestFixture(t, nil)
	f.seed(t, "Davi Nunes", "davi@example.com")

	rr := f.do(t, http.MethodPost, "/email/send", map[string]any{"inscricaoId": "1", "subject": "Aviso"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Assunto e mensagem são obrigatórios", decode(t, rr)["message"])

	rr = f.do(t, http.MethodPost, "/email/send", map[string]any{"inscricaoId": "1", "subject": "Aviso", "message": "Ônibus sai às 7h"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.KindCustom, f.deliverer.kinds[0])
}

func TestSendBulk(t *testing.T) {
	f := newTestFixture(t, nil)
	f.seed(t, "A Um", "a@example.com")
	f.seed(t, "B Dois", "b@example.com")
	f.deliverer.failFor["b@example.com"] = true

	rr := f.do(t, http.MethodPost, "/email/send-bulk", map[string]any{
		"inscricaoIds": []any{1, "2", "x", 40},
		"subject":      "Aviso",
		"message":      "Levem protetor solar",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Results struct {
			Sent   []notification.BulkSent    `json:"sent"`
			Errors []notification.BulkFailure `json:"errors"`
		} `json:"results"`
		Summary notification.BulkSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, notification.BulkSummary{Total: 4, Sent: 1, Failed: 3}, resp.Summary)
	require.Len(t, resp.Results.Sent, 1)
	assert.Equal(t, "a@example.com", resp.Results.Sent[0].Email)

	reasons := map[string]string{}
	for _, e := range resp.Results.Errors {
		reasons[e.ID] = e.Reason
	}
	assert.Equal(t, map[string]string{
		"2":  notification.ReasonDeliveryFailed,
		"x":  notification.ReasonInvalidID,
		"40": notification.ReasonNotFound,
	}, reasons)
}

func TestSendBulkRejectsEmptyList(t *testing.T) {
	f := newTestFixture(t, nil)

	rr := f.do(t, http.MethodPost, "/email/send-bulk", map[string]any{"inscricaoIds": []any{}, "subject": "s", "message": "m"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPaymentAndContractRoutes(t *testing.T) {
	f := newTestFixture(t, nil)
	f.seed(t, "Eva Rocha", "eva@example.com")

	rr := f.do(t, http.MethodPost, "/email/send-payment-instructions/1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(t, http.MethodPost, "/email/send-contract/1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(t, http.MethodGet, "/email/test/1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, []domain.EmailKind{domain.KindPaymentInstructions, domain.KindContract, domain.KindWelcome}, f.deliverer.kinds)
}

func TestMailConfigMasksSecrets(t *testing.T) {
	f := newTestFixture(t, nil)

	rr := f.do(t, http.MethodGet, "/email/config", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "app-password-secret")

	body := decode(t, rr)
	settings := body["config"].(map[string]any)["settings"].(map[string]any)
	pw := settings["EMAIL_PASSWORD"].(map[string]any)
	assert.Equal(t, true, pw["configured"])
	assert.Equal(t, "smtp", body["config"].(map[string]any)["provider"].(map[string]any)["provider"])
}

func TestMailConfigWarnsAboutWeb3Forms(t *testing.T) {
	cfg := &config.Config{Environment: "production"}
	cfg.Mail.FromAddress = "camp@example.com"
	cfg.Mail.Web3Forms.AccessKey = "w3f-key"
	cfg.Payment.Lote1Link = "https://pay.example.com/lote1"
	cfg.Payment.DefaultLink = "https://pay.example.com/lote2"
	h := NewHandlers(Deps{
		Config:    cfg,
		Selection: mailing.Selection{Provider: domain.ProviderWeb3Forms, Reason: "only web3forms configured"},
	})

	rr := httptest.NewRecorder()
	h.MailConfig(rr, httptest.NewRequest(http.MethodGet, "/email/config", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "w3f-key")

	body := decode(t, rr)
	issues := body["recommendations"].(map[string]any)["issues"].([]any)
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0], "reply-to")
	assert.Contains(t, issues[1], "anexos")
}

func TestConsentRoutes(t *testing.T) {
	f := newTestFixture(t, nil)
	rr := f.do(t, http.MethodGet, "/email/auth-url", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	f = newTestFixture(t, fakeConsent{})
	rr = f.do(t, http.MethodGet, "/email/auth-url", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, decode(t, rr)["authUrl"], "client_id=x")

	rr = f.do(t, http.MethodGet, "/email/exchange-code/good", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	tokens := decode(t, rr)["tokens"].(map[string]any)
	assert.NotEmpty(t, tokens)

	rr = f.do(t, http.MethodGet, "/email/exchange-code/bad", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newTestFixture(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/inscricoes/1", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	f := newTestFixture(t, nil)

	rr := f.do(t, http.MethodGet, "/nope", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, false, decode(t, rr)["success"])
}
