package rest

import (
	"net/http"

	"dynamo-eventstore/interfaces/http/rest/handlers"
	"dynamo-eventstore/interfaces/http/rest/middleware"
	appErrors "dynamo-eventstore/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	accounts   *handlers.AccountHandler
	errors     *appErrors.ErrorHandler
	logger     *zap.Logger
	enableCORS bool
}

// NewRouter creates a new router instance
func NewRouter(accounts *handlers.AccountHandler, errorHandler *appErrors.ErrorHandler, logger *zap.Logger, enableCORS bool) *Router {
	return &Router{
		accounts:   accounts,
		errors:     errorHandler,
		logger:     logger,
		enableCORS: enableCORS,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestIDHeader)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Location"},
			MaxAge:         300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed")
	})

	router.Get("/health", rt.healthCheck)

	router.Route("/api/v1/accounts", func(r chi.Router) {
		r.Get("/", rt.accounts.ListAccounts)
		r.Post("/", rt.accounts.OpenAccount)
		r.Route("/{accountID}", func(r chi.Router) {
			r.Get("/", rt.accounts.GetAccount)
			r.Get("/events", rt.accounts.GetAccountEvents)
			r.Post("/deposits", rt.accounts.Deposit)
			r.Post("/withdrawals", rt.accounts.Withdraw)
			r.Post("/close", rt.accounts.CloseAccount)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
