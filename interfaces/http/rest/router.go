package rest

import (
	"net/http"

	"priomatrix-backend/infrastructure/config"
	"priomatrix-backend/interfaces/http/rest/handlers"
	"priomatrix-backend/interfaces/http/rest/middleware"
	"priomatrix-backend/pkg/auth"
	"priomatrix-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	cardHandler *handlers.CardHandler
	dragHandler *handlers.DragHandler
	syncHandler *handlers.SyncHandler
	wsHandler   http.HandlerFunc
	validator   *auth.JWTValidator
	metrics     *observability.Metrics
	cfg         *config.Config
	logger      *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cardHandler *handlers.CardHandler,
	dragHandler *handlers.DragHandler,
	syncHandler *handlers.SyncHandler,
	wsHandler http.HandlerFunc,
	validator *auth.JWTValidator,
	metrics *observability.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		cardHandler: cardHandler,
		dragHandler: dragHandler,
		syncHandler: syncHandler,
		wsHandler:   wsHandler,
		validator:   validator,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.priomatrix.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health and metrics
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Handle("/metrics", promhttp.HandlerFor(rt.metrics.Registry(), promhttp.HandlerOpts{}))

	// WebSocket endpoint authenticates inside the upgrade handler
	router.Get("/ws", rt.wsHandler)

	// Internal replication callback, not part of the public API
	router.Post("/internal/remote-changes", rt.syncHandler.PushChanges)

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))

		r.Route("/cards", func(r chi.Router) {
			r.Post("/", rt.cardHandler.CreateCard)
			r.Get("/", rt.cardHandler.ListCards)
			r.Post("/generate", rt.cardHandler.GenerateIdeas)
			r.Get("/{cardID}", rt.cardHandler.GetCard)
			r.Put("/{cardID}", rt.cardHandler.UpdateCard)
			r.Delete("/{cardID}", rt.cardHandler.DeleteCard)
			r.Put("/{cardID}/collapse", rt.cardHandler.CollapseCard)

			r.Route("/{cardID}/drag", func(r chi.Router) {
				r.Get("/", rt.dragHandler.GetDragState)
				r.Post("/", rt.dragHandler.BeginDrag)
				r.Put("/", rt.dragHandler.MoveDrag)
				r.Post("/commit", rt.dragHandler.CommitDrag)
				r.Post("/cancel", rt.dragHandler.CancelDrag)
			})
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

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
