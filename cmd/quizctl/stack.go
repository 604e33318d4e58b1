package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quizdesk/quizdesk/pkg/authz"
	"github.com/quizdesk/quizdesk/pkg/cache/sqlite"
	"github.com/quizdesk/quizdesk/pkg/config"
	"github.com/quizdesk/quizdesk/pkg/db"
	"github.com/quizdesk/quizdesk/pkg/ephemeral"
	"github.com/quizdesk/quizdesk/pkg/resolver"
	"github.com/quizdesk/quizdesk/pkg/session"
	"github.com/quizdesk/quizdesk/pkg/store"
	gormstore "github.com/quizdesk/quizdesk/pkg/store/gorm"
	"github.com/quizdesk/quizdesk/pkg/store/memory"
)

// stack is the fully wired session service of this device.
type stack struct {
	config   *config.QuizdeskConfig
	logger   *slog.Logger
	level    *slog.LevelVar
	records  store.RecordStore
	health   store.HealthStore
	cache    *sqlite.Cache
	provider *ephemeral.TokenProvider
	resolver *resolver.Resolver
	session  *session.Controller
	gate     *authz.Gate
	routes   *authz.RouteTable
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.QuizdeskConfig, error) {
	if err := config.Reload(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return config.Get(), nil
}

func openRecordStore(cfg *config.QuizdeskConfig, kind string) (store.RecordStore, error) {
	switch kind {
	case "memory":
		return memory.NewRecordStore(), nil
	case "postgres", "":
		database, err := db.Connect(db.Config{URL: cfg.DatabaseURL, Debug: cfg.SlogLevel() == slog.LevelDebug})
		if err != nil {
			return nil, err
		}
		return gormstore.NewRecordStore(database), nil
	default:
		return nil, fmt.Errorf("unknown store %q (want postgres or memory)", kind)
	}
}

// openStack wires every component from the configuration. The session is
// not started.
func openStack(ctx context.Context, cmd *cobra.Command) (*stack, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	key, err := cfg.SigningKeyBytes()
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, errors.New("QUIZDESK_SIGNING_KEY is required (see quizctl signing-key generate)")
	}

	level := &slog.LevelVar{}
	level.Set(cfg.SlogLevel())
	logger := cfg.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)

	kind, _ := cmd.Flags().GetString("store")
	records, err := openRecordStore(cfg, kind)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.CachePath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	c, err := sqlite.Open(ctx, cfg.CachePath)
	if err != nil {
		return nil, err
	}

	routes, err := authz.NewRouteTable(cfg.Routes)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	provider := ephemeral.NewTokenProvider(key, cfg.CredentialLifetime(), c)
	res := resolver.New(provider, records, c, resolver.Config{
		CallTimeout: cfg.CallTimeoutDuration(),
		DefaultRole: cfg.Role(),
		Logger:      logger,
	})
	ctrl := session.NewController(res, provider, session.Config{
		CallTimeout: cfg.CallTimeoutDuration(),
		Logger:      logger,
	})
	gate := authz.NewGate(c, authz.GateConfig{
		Landing:     cfg.LandingPath,
		CallTimeout: cfg.CallTimeoutDuration(),
		Logger:      logger,
	})

	s := &stack{
		config:   cfg,
		logger:   logger,
		level:    level,
		records:  records,
		cache:    c,
		provider: provider,
		resolver: res,
		session:  ctrl,
		gate:     gate,
		routes:   routes,
	}
	if h, ok := records.(store.HealthStore); ok {
		s.health = h
	}
	return s, nil
}

// start starts the session and waits for it to be initialized.
func (s *stack) start(ctx context.Context) error {
	if err := s.session.Start(ctx); err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, 4*s.config.CallTimeoutDuration())
	defer cancel()
	if _, err := s.session.WaitForAuth(waitCtx); err != nil {
		return fmt.Errorf("session did not initialize: %w", err)
	}
	return nil
}

func (s *stack) Close() {
	s.session.Close()
	_ = s.cache.Close()
}

// runWithStack opens and starts the stack, runs fn and closes it again.
func runWithStack(cmd *cobra.Command, fn func(ctx context.Context, s *stack) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openStack(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.start(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}
