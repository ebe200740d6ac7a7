// Package httpapi is the scheduler's HTTP transport: the chi router,
// JWT bearer-auth middleware, and one handler per endpoint of spec
// §6. The go-chi/chi and go-chi/cors dependencies have no inspectable
// router source anywhere in the retrieved pack (only go.mod manifests
// from apimgr-vidveil and fredcamaral-mcp-alfarrabio attest to their
// use), so the handler-writing texture — JSON request/response
// shapes, a bearer-token header check, one typed error surfaced per
// failure — is adapted from the teacher's own HTTP client code in
// internal/notifier.go (its WebhookPayload JSON shape and
// X-Daylit-Secret header check, read in reverse as a server).
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/smartstudy/companion/internal/coach"
	"github.com/smartstudy/companion/internal/logger"
	"github.com/smartstudy/companion/internal/persistence"
	"github.com/smartstudy/companion/internal/storage"
)

// Server wires the scheduling core's packages into HTTP handlers.
type Server struct {
	Store       storage.Provider
	Persistence *persistence.Protocol
	Coach       coach.Adapter
	JWTSecret   string
	CORSOrigins []string
	CalendarDomain string
}

// New builds a Server. coachAdapter may be coach.NoopAdapter{} when no
// provider is configured.
func New(store storage.Provider, persist *persistence.Protocol, coachAdapter coach.Adapter, jwtSecret string, corsOrigins []string, calendarDomain string) *Server {
	return &Server{
		Store:          store,
		Persistence:    persist,
		Coach:          coachAdapter,
		JWTSecret:      jwtSecret,
		CORSOrigins:    corsOrigins,
		CalendarDomain: calendarDomain,
	}
}

// Router builds the chi router for the scheduler's external surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Public: the feed URL itself carries the auth token per spec §4.7.
	r.Get("/schedule/calendar/feed", s.handleCalendarFeed)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth(s.JWTSecret))

		r.Post("/schedule/generate", s.handleGenerate)
		r.Get("/schedule/sessions", s.handleListSessions)
		r.Post("/schedule/sessions", s.handleCreateSession)
		r.Patch("/schedule/sessions/{id}", s.handleUpdateSession)
		r.Delete("/schedule/sessions/{id}", s.handleDeleteSession)
		r.Post("/schedule/sessions/{id}/start", s.handleStartSession)
		r.Post("/schedule/micro", s.handleMicro)
		r.Get("/schedule/workload-analysis", s.handleWorkloadAnalysis)
		r.Post("/schedule/analyze", s.handleAnalyze)

		r.Get("/schedule/calendar/download", s.handleCalendarDownload)
		r.Post("/schedule/calendar/token", s.handleRotateCalendarToken)
		r.Delete("/schedule/calendar/token", s.handleDeleteCalendarToken)
		r.Get("/schedule/calendar/token", s.handleGetCalendarToken)

		r.Post("/schedule/coach/chat", s.handleCoachChat)
	})

	return r
}

// requestLogger routes chi's per-request logging through the
// charmbracelet logger the rest of the module uses, instead of chi's
// own stdlib-backed middleware.Logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
