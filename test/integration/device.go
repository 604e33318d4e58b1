package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"time"

	"github.com/quizdesk/quizdesk/pkg/audit"
	"github.com/quizdesk/quizdesk/pkg/authz"
	"github.com/quizdesk/quizdesk/pkg/cache/sqlite"
	"github.com/quizdesk/quizdesk/pkg/config"
	"github.com/quizdesk/quizdesk/pkg/ephemeral"
	"github.com/quizdesk/quizdesk/pkg/resolver"
	"github.com/quizdesk/quizdesk/pkg/server"
	"github.com/quizdesk/quizdesk/pkg/server/endpoints"
	"github.com/quizdesk/quizdesk/pkg/session"
	"github.com/quizdesk/quizdesk/pkg/store"
)

var signingKey = []byte("integration-signing-key-32-bytes")

// Device is one client installation: its own cache file, credential
// provider and session server, over the shared record store.
type Device struct {
	Name      string
	CachePath string
	URL       string

	records store.RecordStore
	cache   *sqlite.Cache
	ctrl    *session.Controller
	http    *httptest.Server
}

// StartDevice starts a device whose cache lives in dir.
func StartDevice(ctx context.Context, name, dir string, records store.RecordStore) (*Device, error) {
	d := &Device{
		Name:      name,
		CachePath: filepath.Join(dir, name+".db"),
		records:   records,
	}
	if err := d.start(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) start(ctx context.Context) error {
	cfg := config.Get()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	silent := func(audit.Event) {}

	c, err := sqlite.Open(ctx, d.CachePath)
	if err != nil {
		return err
	}

	routes, err := authz.NewRouteTable(cfg.Routes)
	if err != nil {
		_ = c.Close()
		return err
	}

	provider := ephemeral.NewTokenProvider(signingKey, time.Hour, c)
	res := resolver.New(provider, d.records, c, resolver.Config{Logger: logger, Audit: silent})
	ctrl := session.NewController(res, provider, session.Config{Logger: logger, Audit: silent})
	gate := authz.NewGate(c, authz.GateConfig{Landing: cfg.LandingPath, Logger: logger, Audit: silent})

	srv := server.NewServer(server.Options{
		Session: ctrl,
		Gate:    gate,
		Routes:  routes,
		Config:  cfg,
		Logger:  logger,
	}, "127.0.0.1", "0")
	endpoints.RegisterAll(srv)

	if err := ctrl.Start(ctx); err != nil {
		ctrl.Close()
		_ = c.Close()
		return err
	}

	d.cache = c
	d.ctrl = ctrl
	d.http = httptest.NewServer(srv.Router)
	d.URL = d.http.URL

	return waitForSession(d.URL, 10*time.Second)
}

// Stop shuts the device down, keeping its cache file.
func (d *Device) Stop() {
	if d.http != nil {
		d.http.Close()
	}
	if d.ctrl != nil {
		d.ctrl.Close()
	}
	if d.cache != nil {
		_ = d.cache.Close()
	}
	d.http, d.ctrl, d.cache = nil, nil, nil
}

// Restart stops the device and starts it again from its cache file.
func (d *Device) Restart(ctx context.Context) error {
	d.Stop()
	return d.start(ctx)
}

// waitForSession polls /status until the session is initialized
func waitForSession(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/status")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}

	return fmt.Errorf("session did not initialize within %v", timeout)
}
