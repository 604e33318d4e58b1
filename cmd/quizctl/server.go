package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/quizdesk/quizdesk/pkg/config"
	"github.com/quizdesk/quizdesk/pkg/db"
	"github.com/quizdesk/quizdesk/pkg/server"
	"github.com/quizdesk/quizdesk/pkg/server/endpoints"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the quizdesk session server",
	Long: `Run the quizdesk session server

The server requires QUIZDESK_SIGNING_KEY, and DATABASE_URL unless it is
started with --store memory.

By default, database migrations are run on startup. Use --no-migrate to skip.
With --watch-config the configuration file is reloaded when it changes; the
route table, login limits and log level take effect without a restart.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServer(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	serverCmd.Flags().Bool("watch-config", false, "reload the configuration file when it changes")
}

func runServer(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kind, _ := cmd.Flags().GetString("store")
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if kind != "memory" && !noMigrate {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		slog.Info("running database migrations")
		if _, err := db.Migrate(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	s, err := openStack(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	// The server answers /status with 503 until the session is initialized,
	// so start does not have to finish before listening.
	if err := s.session.Start(ctx); err != nil {
		return err
	}

	host, _ := cmd.Flags().GetString("bind-address")
	port, _ := cmd.Flags().GetString("port")
	srv := server.NewServer(server.Options{
		Session:     s.session,
		Gate:        s.gate,
		Routes:      s.routes,
		HealthStore: s.health,
		Config:      s.config,
		Logger:      s.logger,
	}, host, port)
	endpoints.RegisterAll(srv)

	if watch, _ := cmd.Flags().GetBool("watch-config"); watch {
		go watchConfig(ctx, s, srv)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("running server", "address", fmt.Sprintf("http://%s:%s", host, port))
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// watchConfig reloads the configuration file whenever it is written and
// applies the settings that can change at runtime.
func watchConfig(ctx context.Context, s *stack, srv *server.Server) {
	filename := s.config.ConfigFilePath()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("failed to create config watcher", "error", err)
		return
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filename); err != nil {
		s.logger.Error("failed to watch config file", "path", filename, "error", err)
		return
	}
	s.logger.Info("watching config file", "path", filename)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if err := config.Reload(); err != nil {
					s.logger.Error("config reload failed, keeping previous configuration", "error", err)
					continue
				}
				cfg := config.Get()
				if err := srv.ApplyConfig(cfg); err != nil {
					s.logger.Error("config apply failed", "error", err)
					continue
				}
				s.level.Set(cfg.SlogLevel())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("config watcher error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}
