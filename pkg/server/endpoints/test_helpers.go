package endpoints

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/quizdesk/quizdesk/pkg/audit"
	"github.com/quizdesk/quizdesk/pkg/authz"
	"github.com/quizdesk/quizdesk/pkg/cache/sqlite"
	"github.com/quizdesk/quizdesk/pkg/config"
	"github.com/quizdesk/quizdesk/pkg/ephemeral"
	"github.com/quizdesk/quizdesk/pkg/resolver"
	"github.com/quizdesk/quizdesk/pkg/server"
	"github.com/quizdesk/quizdesk/pkg/session"
	"github.com/quizdesk/quizdesk/pkg/store"
)

// TestServer bundles a server with the pieces tests poke at directly.
type TestServer struct {
	*server.Server
	Provider *ephemeral.TokenProvider
	Cache    *sqlite.Cache
}

// Close stops the session controller and closes the cache.
func (ts *TestServer) Close() {
	ts.Session.Close()
	_ = ts.Cache.Close()
}

// NewTestServer wires a server over records, an in-memory device cache and
// a token provider, with all endpoints registered. The session is not
// started; call ts.Session.Start.
func NewTestServer(records store.RecordStore) (*TestServer, error) {
	ctx := context.Background()
	cfg := config.Get()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	silent := func(audit.Event) {}

	c, err := sqlite.Open(ctx, sqlite.InMemory)
	if err != nil {
		return nil, err
	}

	key := []byte("0123456789abcdef0123456789abcdef")
	provider := ephemeral.NewTokenProvider(key, time.Hour, c)
	res := resolver.New(provider, records, c, resolver.Config{Logger: logger, Audit: silent})
	ctrl := session.NewController(res, provider, session.Config{Logger: logger, Audit: silent})
	gate := authz.NewGate(c, authz.GateConfig{Landing: cfg.LandingPath, Logger: logger, Audit: silent})

	routes, err := authz.NewRouteTable(cfg.Routes)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	var health store.HealthStore
	if h, ok := records.(store.HealthStore); ok {
		health = h
	}

	s := server.NewServer(server.Options{
		Session:     ctrl,
		Gate:        gate,
		Routes:      routes,
		HealthStore: health,
		Config:      cfg,
		Logger:      logger,
	}, "127.0.0.1", "0")
	RegisterAll(s)

	return &TestServer{Server: s, Provider: provider, Cache: c}, nil
}
