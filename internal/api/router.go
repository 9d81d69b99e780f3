package api

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/clinicfeedback/internal/api/handlers"
	"github.com/nikhilbhutani/clinicfeedback/internal/api/middleware"
	"github.com/nikhilbhutani/clinicfeedback/internal/assistant"
	"github.com/nikhilbhutani/clinicfeedback/internal/clinic"
	"github.com/nikhilbhutani/clinicfeedback/internal/config"
	"github.com/nikhilbhutani/clinicfeedback/internal/insights"
	"github.com/nikhilbhutani/clinicfeedback/internal/reply"
	"github.com/nikhilbhutani/clinicfeedback/internal/review"
)

// Deps are the services the router exposes. Health and Refresher may be nil.
type Deps struct {
	Clinic    *clinic.Profile
	Reviews   *review.Store
	Insights  *insights.Service
	Assistant *assistant.Chat
	Drafter   *reply.Drafter
	Models    handlers.ModelLister
	Health    map[string]handlers.Pinger
	Refresher handlers.Refresher
}

type Router struct {
	mux  *chi.Mux
	cfg  *config.Config
	deps Deps
	rl   *middleware.RateLimiter

	streams     chan struct{}
	streamsOnce sync.Once
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		cfg:  cfg,
		deps: deps,
		rl:   middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),

		streams: make(chan struct{}),
	}
}

// StopStreams ends every open event stream. Register it with
// http.Server.RegisterOnShutdown so Shutdown does not wait on dashboards.
func (rt *Router) StopStreams() {
	rt.streamsOnce.Do(func() { close(rt.streams) })
}

// Close stops the rate limiter's background eviction and any open streams.
func (rt *Router) Close() {
	rt.rl.Stop()
	rt.StopStreams()
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.AllowedOrigins))
	r.Use(rt.rl.Limit)

	health := handlers.NewHealthHandler(rt.deps.Health)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	r.Route("/api/v1", func(r chi.Router) {
		reviewH := handlers.NewReviewHandler(rt.deps.Reviews, rt.deps.Drafter, rt.deps.Insights, rt.deps.Clinic)
		r.Get("/dashboard", reviewH.Dashboard)
		r.Get("/analytics", reviewH.Analytics)

		settingsH := handlers.NewSettingsHandler(rt.deps.Clinic)
		r.Get("/settings", settingsH.Get)
		r.Put("/settings", settingsH.Update)
		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", reviewH.List)
			r.Get("/{id}", reviewH.Get)
			r.Post("/{id}/reply", reviewH.Reply)
			r.Route("/{id}/draft", func(r chi.Router) {
				r.Post("/", reviewH.Draft)
				r.Get("/", reviewH.DraftState)
				r.Post("/retry", reviewH.RetryDraft)
				r.Post("/cancel", reviewH.CancelDraft)
			})
		})

		insightsH := handlers.NewInsightsHandler(rt.deps.Insights, rt.deps.Refresher)
		r.Route("/insights", func(r chi.Router) {
			r.Post("/", insightsH.Generate)
			r.Get("/", insightsH.State)
			r.Post("/retry", insightsH.Retry)
			r.Post("/cancel", insightsH.Cancel)
			r.Post("/refresh", insightsH.Refresh)
		})

		assistantH := handlers.NewAssistantHandler(rt.deps.Assistant)
		r.Route("/assistant", func(r chi.Router) {
			r.Post("/messages", assistantH.Send)
			r.Get("/messages", assistantH.Transcript)
			r.Delete("/messages", assistantH.Reset)
			r.Post("/retry", assistantH.Retry)
			r.Post("/cancel", assistantH.Cancel)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/insights", handlers.Events(rt.deps.Insights, rt.streams))
			r.Get("/assistant", handlers.Events(rt.deps.Assistant, rt.streams))
		})

		llmH := handlers.NewLLMHandler(rt.deps.Models, rt.cfg.LLM.DefaultModel)
		r.Get("/llm/models", llmH.Models)
	})

	return r
}
