package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/legacycamp/camp-api/internal/pkg/httputil"
)

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// NewRouter configures all API routes.
func NewRouter(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	origins := h.cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Total-Count", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httputil.NotFound(w, "Rota não encontrada")
	})

	health := h.health
	if health == nil {
		health = NewHealthChecker(nil, nil, nil)
	}
	r.Get("/health", health.HandleHealth)
	r.Get("/health/live", health.HandleLiveness)
	r.Get("/health/ready", health.HandleReadiness)

	r.Route("/inscricoes", func(r chi.Router) {
		r.Post("/", h.CreateRegistration)
		r.Get("/", h.ListRegistrations)
		r.Get("/stats", h.GetStats)
		r.Get("/export", h.ExportRegistrations)
		r.Get("/status/{status}", h.ListByStatus)
		r.Get("/coupon/{code}/count", h.CountCoupon)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetRegistration)
			r.Patch("/", h.UpdateRegistration)
			r.Delete("/", h.DeleteRegistration)
			r.Patch("/status", h.UpdateStatus)
		})
	})

	r.Route("/email", func(r chi.Router) {
		r.Post("/send-welcome/{id}", h.SendWelcome)
		r.Post("/send-status-update", h.SendStatusUpdate)
		r.Post("/send", h.SendCustom)
		r.Post("/send-bulk", h.SendBulk)
		r.Post("/send-payment-instructions/{id}", h.SendPaymentInstructions)
		r.Post("/send-contract/{id}", h.SendContract)
		r.Get("/test/{id}", h.SendTest)
		r.Get("/config", h.MailConfig)
		r.Get("/auth-url", h.AuthURL)
		r.Get("/exchange-code/{code}", h.ExchangeCode)
	})

	return r
}
