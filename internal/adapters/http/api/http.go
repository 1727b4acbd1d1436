// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/okian/squadmarket/internal/adapters/http/swagger"
	service "github.com/okian/squadmarket/internal/app"
	"github.com/okian/squadmarket/internal/domain/search"
	"github.com/okian/squadmarket/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateOffer(ctx context.Context, principal string, req service.CreateOfferRequest) error
	SearchOffers(ctx context.Context, params search.Params) (types.SearchResult, error)
	PurchasePlayer(ctx context.Context, principal string, req service.PurchaseRequest) error
	GetTeam(ctx context.Context, principal string) (types.Team, error)
}

// Server wires HTTP routes for the marketplace API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	offersHandler   *OffersHandler
	purchaseHandler *PurchaseHandler
	teamHandler     *TeamHandler

	auth    *Authenticator
	limiter *RateLimiter
	tracing bool
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimiter limits authenticated requests per principal.
func WithRateLimiter(l *RateLimiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithTracing wraps the router with OpenTelemetry HTTP instrumentation.
func WithTracing(enabled bool) Option {
	return func(s *Server) { s.tracing = enabled }
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, auth *Authenticator, opts ...Option) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		offersHandler:   NewOffersHandler(deps),
		purchaseHandler: NewPurchaseHandler(deps),
		teamHandler:     NewTeamHandler(deps),
		auth:            auth,
		tracing:         true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router with every route attached.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	swagger.Register(ctx, r)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Post("/offers", MetricsMiddleware(s.offersHandler.HandleCreateOffer, "create_offer"))
		r.Get("/offers", MetricsMiddleware(s.offersHandler.HandleSearchOffers, "search_offers"))
		r.Post("/purchases", MetricsMiddleware(s.purchaseHandler.HandlePurchase, "purchase"))
		r.Get("/team", MetricsMiddleware(s.teamHandler.HandleGetTeam, "team"))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if !s.tracing {
		return r
	}
	return otelhttp.NewHandler(r, "squadmarket")
}
