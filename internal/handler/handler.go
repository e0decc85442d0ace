package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/set-night/invoicedesk/internal/config"
	"github.com/set-night/invoicedesk/internal/kv"
	"github.com/set-night/invoicedesk/internal/middleware"
	"github.com/set-night/invoicedesk/internal/repository"
	"github.com/set-night/invoicedesk/internal/service"
)

// Handler holds all dependencies needed by the HTTP routes.
type Handler struct {
	cfg             *config.Config
	store           repository.Store
	kv              kv.Store
	customerService *service.CustomerService
	invoiceService  *service.InvoiceService
	paymentService  *service.PaymentService
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Cfg             *config.Config
	Store           repository.Store
	KV              kv.Store
	CustomerService *service.CustomerService
	InvoiceService  *service.InvoiceService
	PaymentService  *service.PaymentService
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		cfg:             deps.Cfg,
		store:           deps.Store,
		kv:              deps.KV,
		customerService: deps.CustomerService,
		invoiceService:  deps.InvoiceService,
		paymentService:  deps.PaymentService,
	}
}

// Routes builds the router with the middleware chain applied.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(h.cfg.AllowedOrigins))
	r.Use(middleware.RateLimit(h.kv, h.cfg.RateLimit))
	r.Use(chimw.Timeout(config.RequestTimeout))
	r.Use(middleware.Idempotency(h.kv, h.cfg.IdempotencyTTL))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.handleCreateCustomer)
		r.Get("/", h.handleListCustomers)
		r.Get("/{customerID}/invoices", h.handleListCustomerInvoices)
	})

	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.handleCreateInvoice)
		r.Get("/", h.handleListInvoices)
		r.Route("/{invoiceID}", func(r chi.Router) {
			r.Get("/", h.handleGetInvoice)
			r.Patch("/", h.handleUpdateInvoice)
			r.Delete("/", h.handleDeleteInvoice)
			r.Post("/post", h.handlePostInvoice)
			r.Post("/void", h.handleVoidInvoice)
			r.Post("/payments", h.handleRecordPayment)
		})
	})

	return r
}

// Server wraps the router in an http.Server with the configured timeouts.
func (h *Handler) Server() *http.Server {
	return &http.Server{
		Addr:              h.cfg.HTTPAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		IdleTimeout:       2 * time.Minute,
	}
}
