package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/quizdesk/quizdesk/pkg/authz"
	"github.com/quizdesk/quizdesk/pkg/config"
	"github.com/quizdesk/quizdesk/pkg/server/middleware"
	"github.com/quizdesk/quizdesk/pkg/session"
	"github.com/quizdesk/quizdesk/pkg/store"
)

// Options are the collaborators a Server is built from.
type Options struct {
	Session     *session.Controller
	Gate        *authz.Gate
	Routes      *authz.RouteTable
	HealthStore store.HealthStore
	Config      *config.QuizdeskConfig
	Logger      *slog.Logger
}

type Server struct {
	Router       *mux.Router
	Session      *session.Controller
	Gate         *authz.Gate
	HealthStore  store.HealthStore
	Config       *config.QuizdeskConfig
	Logger       *slog.Logger
	LoginLimiter *middleware.LoginLimiter

	routes atomic.Pointer[authz.RouteTable]
	srv    *http.Server
}

func NewServer(opts Options, host string, port string) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Get()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := mux.NewRouter().UseEncodedPath()
	srv := &http.Server{
		Handler:     handlers.LoggingHandler(os.Stdout, router),
		Addr:        host + ":" + port,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: /session/events holds the response open.
	}

	s := &Server{
		Router:       router,
		Session:      opts.Session,
		Gate:         opts.Gate,
		HealthStore:  opts.HealthStore,
		Config:       cfg,
		Logger:       logger,
		LoginLimiter: middleware.NewLoginLimiter(cfg.LoginRateLimit, cfg.LoginBurst),
		srv:          srv,
	}
	s.routes.Store(opts.Routes)
	return s
}

// Routes returns the current route table.
func (s *Server) Routes() *authz.RouteTable {
	return s.routes.Load()
}

// ApplyConfig swaps in the route table and login limits of cfg.
func (s *Server) ApplyConfig(cfg *config.QuizdeskConfig) error {
	routes, err := authz.NewRouteTable(cfg.Routes)
	if err != nil {
		return err
	}
	s.routes.Store(routes)
	s.LoginLimiter.Update(cfg.LoginRateLimit, cfg.LoginBurst)
	s.Logger.Info("configuration applied", "routes", len(cfg.Routes), "login_rate_limit", cfg.LoginRateLimit, "login_burst", cfg.LoginBurst)
	return nil
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
