package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	apihandler "github.com/docketpulse/docketpulse/internal/api/handler"
	apimw "github.com/docketpulse/docketpulse/internal/api/middleware"
	"github.com/docketpulse/docketpulse/internal/workflow"
)

// RouterDeps holds the collaborators the API endpoints need.
type RouterDeps struct {
	Pool          *pgxpool.Pool
	States        apihandler.StateCreator
	Subscribers   apihandler.SubscriberRegistry
	Engine        workflow.Engine
	Aggregator    apihandler.StatusProvider
	StateTTL      time.Duration
	SubscriberTTL time.Duration
}

func NewRouter(logger *slog.Logger, deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apimw.Logger(logger))
	r.Use(apimw.CORS)
	r.Use(chimw.Recoverer)

	// Health checks
	health := apihandler.NewHealthHandler(deps.Pool)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		submissions := apihandler.NewSubmissionHandler(logger, deps.States, deps.Engine, deps.StateTTL)
		statuses := apihandler.NewStatusHandler(logger, deps.Aggregator)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", submissions.Submit)
			r.Get("/{documentID}", statuses.Get)
		})

		subscriptions := apihandler.NewSubscriptionHandler(logger, deps.Subscribers, deps.SubscriberTTL)
		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", subscriptions.Subscribe)
			r.Delete("/{connectionID}", subscriptions.Unsubscribe)
		})
	})

	return r
}
