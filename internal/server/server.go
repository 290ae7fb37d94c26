package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zasa-35/oura-visualizer/internal/dashboard"
	"github.com/zasa-35/oura-visualizer/internal/models"
)

// Upstream is the provider client behind the proxy endpoint.
type Upstream interface {
	dashboard.Fetcher
	Configured() bool
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	oura   Upstream
	store  dashboard.SnapshotSaver
	loc    *time.Location
	log    *slog.Logger
	now    func() time.Time
	router chi.Router
	whois  WhoIser
}

// New creates a new Server with all routes configured. store may be nil.
func New(oura Upstream, store dashboard.SnapshotSaver, loc *time.Location, log *slog.Logger) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		oura:   oura,
		store:  store,
		loc:    loc,
		log:    log,
		now:    time.Now,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches caller identity from the local dev user to the
// tailnet's WhoIs answer. Call before serving.
func (s *Server) SetTailscale(w WhoIser) {
	s.whois = w
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.whois != nil {
				TailscaleIdentity(s.whois, s.log)(next).ServeHTTP(w, r)
				return
			}
			DevIdentity(next).ServeHTTP(w, r)
		})
	})

	// Proxy endpoint
	s.router.Get("/api/oura/sleep", s.handleProxySleep)

	// Writes are refused from other origins. Clients that send neither
	// Origin nor Sec-Fetch-Site (the CLI, curl) pass.
	sameOrigin := http.NewCrossOriginProtection().Handler

	// Dashboard API
	s.router.Get("/api/v1/metrics", s.handleMetrics)
	s.router.With(sameOrigin).Post("/api/v1/snapshots", s.handleCreateSnapshot)
	s.router.Get("/api/v1/me", s.handleMe)

	// HTML dashboard
	s.router.Get("/", s.handlePage)
	s.router.With(sameOrigin).Post("/snapshot", s.handlePageSnapshot)
}

// controller builds a fresh controller for one request. State never
// outlives the request.
func (s *Server) controller() *dashboard.Controller {
	return dashboard.New(s.oura, s.store, s.loc, s.log)
}

// today is the current calendar day in the configured timezone.
func (s *Server) today() string {
	return s.now().In(s.loc).Format(models.DayLayout)
}

func (s *Server) refreshDay(ctx context.Context, day string) (*dashboard.Controller, error) {
	c := s.controller()
	if err := c.SetDate(day); err != nil {
		return c, err
	}
	return c, c.Refresh(ctx)
}
