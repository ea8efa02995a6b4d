/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in the access log
  2. RequestLog: Structured access log through zap
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/users/*          Users, settings, entries, balance views
  /api/projects/*       Projects, assignments, phase targets, allocation
  /api/phases           SIA phase catalog
  /api/entries/*        Single entry operations
  /api/scenarios/*      Demo data
  /healthz              Store ping

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/timearch/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger()))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetUser)
				r.Delete("/", h.DeleteUser)
				r.Get("/settings", h.GetSettings)
				r.Put("/settings", h.SaveSettings)
				r.Get("/projects", h.ListUserProjects)
				r.Get("/entries", h.ListEntries)
				r.Post("/entries", h.CreateEntry)
				r.Put("/days/{date}", h.ReplaceDay)

				// Balance views
				r.Get("/balance/daily", h.GetDailyBalance)
				r.Get("/balance/year", h.GetYearBalance)
				r.Get("/balance/employment", h.GetEmployment)
				r.Get("/balance/vacation", h.GetVacation)
				r.Get("/overview", h.GetOverview)
			})
		})

		r.Route("/entries", func(r chi.Router) {
			r.Get("/{entryID}", h.GetEntry)
			r.Delete("/{entryID}", h.DeleteEntry)
		})

		r.Get("/phases", h.ListPhases)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.SaveProject)
			r.Route("/{number}", func(r chi.Router) {
				r.Get("/", h.GetProject)
				r.Get("/users", h.ListProjectUsers)
				r.Put("/users/{id}", h.AssignUser)
				r.Delete("/users/{id}", h.UnassignUser)
				r.Get("/entries", h.ListProjectEntries)
				r.Get("/targets", h.ListTargets)
				r.Put("/targets", h.SaveTarget)
				r.Get("/allocation", h.GetAllocation)
			})
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger writes one access log line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
