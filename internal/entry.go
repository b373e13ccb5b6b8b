// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/physiodesk/internal/api"
	"github.com/starford/physiodesk/internal/clinic"
	"github.com/starford/physiodesk/internal/kvstore"
	"github.com/starford/physiodesk/internal/mcpserver"
	"github.com/starford/physiodesk/internal/models"
	"github.com/starford/physiodesk/internal/render"
	"github.com/starford/physiodesk/internal/sse"
	"github.com/starford/physiodesk/internal/web"
)

// stack is what every command needs: a logger, the open store and a
// loaded clinic service.
type stack struct {
	cfg     *Config
	logger  *slog.Logger
	store   kvstore.Provider
	svc     *clinic.Service
	dates   render.DateFormatter
	version string
}

func (rt *stack) Close() {
	if err := rt.store.Close(); err != nil {
		rt.logger.Error("close store", slog.String("error", err.Error()))
	}
}

// setup applies the options, opens the configured store and loads the
// clinic collections from it. logOut receives the JSON log when no logger
// was supplied.
func setup(ctx context.Context, logOut io.Writer, opts []Option) (*stack, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("store_path", cfg.Store.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	dates, err := cfg.Display.Formatter()
	if err != nil {
		return nil, fmt.Errorf("init date formatter: %w", err)
	}

	store, err := kvstore.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	svc := clinic.NewService(store, logger)
	if err := svc.Load(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("load clinic data: %w", err)
	}

	return &stack{cfg: cfg, logger: logger, store: store, svc: svc, dates: dates, version: app.version}, nil
}

// settings lists the configuration shown read-only on the settings page.
func settings(cfg *Config) []render.Setting {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	return []render.Setting{
		{Name: "Store backend", Value: cfg.Store.Backend},
		{Name: "Store path", Value: cfg.Store.Path},
		{Name: "Date layout", Value: cfg.Display.DateLayout},
		{Name: "Time zone", Value: cfg.Display.TimeZone},
		{Name: "Token authentication (page and API)", Value: onOff(cfg.Auth.AuthEnabled())},
		{Name: "Form CSRF protection", Value: onOff(cfg.CSRF.Enabled())},
	}
}

// newHTTPHandler builds the full route tree: health checks, the page at /
// and the JSON API under /api. Both share the SSE broker and, in token
// mode, the token.
func newHTTPHandler(cfg *Config, svc *clinic.Service, dates render.DateFormatter, broker *sse.Broker) (http.Handler, error) {
	renderer, err := render.New(dates)
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	// Token mode covers the page as well as /api: both read and write the
	// same collections.
	var protect []func(http.Handler) http.Handler
	if cfg.Auth.AuthEnabled() {
		protect = append(protect, web.TokenAuth(cfg.Auth.Token))
	}
	if cfg.CSRF.Enabled() {
		key, err := cfg.CSRF.KeyBytes()
		if err != nil {
			return nil, fmt.Errorf("init csrf: %w", err)
		}
		protect = append(protect, web.CSRF(key, cfg.CSRF.Secure))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(svc, dates, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	r.Mount("/", web.NewRouter(web.NewHandler(svc, renderer, settings(cfg)), broker, protect...))

	return r, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(ctx, os.Stdout, opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	rt.svc.OnChange(broker.PublishChange)

	handler, err := newHTTPHandler(cfg, rt.svc, rt.dates, broker)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Pick up edits made to the data directory by other writers.
	if fs, ok := rt.store.(*kvstore.FS); ok {
		g.Go(func() error {
			err := kvstore.Watch(gCtx, fs, logger, func(key string) {
				if !slices.Contains(models.Keys, key) {
					return
				}
				if err := rt.svc.Reload(gCtx, key); err != nil {
					logger.Warn("reload failed", slog.String("key", key), slog.String("error", err.Error()))
				}
			})
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the clinic tools over stdio. Logs go to stderr because
// stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	rt, err := setup(ctx, os.Stderr, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc, rt.dates, rt.version).ServeStdio()
}

// Show writes the counts and every collection as plain text to w.
func Show(ctx context.Context, w io.Writer, opts ...Option) error {
	rt, err := setup(ctx, os.Stderr, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	snap := rt.svc.Snapshot(ctx)
	sections := []struct {
		title string
		body  string
	}{
		{"Counts", strings.Join(render.CountLines(snap.Counts()), "\n") + "\n"},
		{"Patients", render.PatientTable(snap.Patients).Text()},
		{"Appointments", render.AppointmentTable(snap.Appointments, rt.dates).Text()},
		{"Exercise Plans", planText(snap)},
	}
	for i, s := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "== %s ==\n%s", s.title, s.body); err != nil {
			return err
		}
	}
	return nil
}

func planText(snap clinic.Snapshot) string {
	items := render.PlanList(snap.Plans)
	if len(items) == 0 {
		return ""
	}
	return strings.Join(items, "\n") + "\n"
}

// Reset removes every stored collection.
func Reset(ctx context.Context, opts ...Option) error {
	rt, err := setup(ctx, os.Stderr, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	return rt.svc.Reset(ctx)
}
