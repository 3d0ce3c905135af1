package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRequestTimeout = 15 * time.Second
	DefaultSyncTimeout    = 5 * time.Minute
)

type Server struct {
	mux            *chi.Mux
	requestTimeout time.Duration
	syncTimeout    time.Duration
}

// New builds the router. Timeouts are applied per route group in
// MountHandlers; zero values fall back to the defaults.
func New(requestTimeout, syncTimeout time.Duration) *Server {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	if syncTimeout <= 0 {
		syncTimeout = DefaultSyncTimeout
	}
	m := chi.NewRouter()

	// All middlewares go here (before any routes are added)
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	return &Server{mux: m, requestTimeout: requestTimeout, syncTimeout: syncTimeout}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
