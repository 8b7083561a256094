package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"patientdesk/internal/config"
	"patientdesk/internal/handler"
	"patientdesk/internal/hub"
	"patientdesk/internal/service"
	"patientdesk/internal/watcher"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin panel and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts.Config)
		},
	}
}

// app holds the running server's components
type app struct {
	cfg     *config.Config
	svc     *service.PatientService
	bus     *service.EventBus
	hub     *hub.Hub
	handler http.Handler
	close   func() error
}

func newApp(cfg *config.Config) (*app, error) {
	bus := service.NewEventBus()

	svc, closeRepo, err := openService(cfg, bus)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sseHub := hub.New(slog.Default())

	mux := http.NewServeMux()
	handler.NewPatientHandler(svc).Register(mux)
	handler.NewAdminHandler(svc).Register(mux)
	mux.Handle("GET /events", sseHub)

	return &app{
		cfg: cfg,
		svc: svc,
		bus: bus,
		hub: sseHub,
		handler: handler.Chain(mux,
			handler.RequestID,
			handler.Recover,
			handler.CORS,
			handler.Logger,
		),
		close: closeRepo,
	}, nil
}

// start launches the background loops: the SSE hub, the event bridge and
// the optional roster watch. They stop when ctx is cancelled.
func (a *app) start(ctx context.Context) {
	go a.hub.Run(ctx)

	events := make(chan service.Event, 100)
	a.bus.Subscribe(events)
	go func() {
		for {
			select {
			case e := <-events:
				a.hub.Broadcast(string(e.Type), e)
			case <-ctx.Done():
				return
			}
		}
	}()

	roster := a.cfg.Roster
	if roster.Path == "" {
		return
	}
	strategy, err := service.ParseStrategy(roster.Strategy)
	if err != nil {
		slog.Error("roster disabled", "error", err)
		return
	}

	if !roster.Watch {
		if res, err := watcher.SyncRoster(ctx, roster.Path, strategy, a.svc); err != nil {
			slog.Error("roster import failed", "path", roster.Path, "error", err)
		} else {
			slog.Info("roster imported", "path", roster.Path, "created", res.Created, "updated", res.Updated)
		}
		return
	}

	go func() {
		err := watcher.WatchRoster(ctx, roster.Path, strategy, a.svc, watcher.DefaultDebounce)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("roster watch stopped", "path", roster.Path, "error", err)
		}
	}()
}

func (a *app) server() *http.Server {
	s := a.cfg.Server
	return &http.Server{
		Addr:         s.Addr,
		Handler:      a.handler,
		ReadTimeout:  s.ReadTimeout.Duration(),
		WriteTimeout: s.WriteTimeout.Duration(),
		IdleTimeout:  s.IdleTimeout.Duration(),
	}
}

// serve runs the HTTP server on ln until ctx is cancelled, then shuts down
// gracefully
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	srv := a.server()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting patientdesk", "config", cfg.Summary())

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}

	a.start(ctx)
	return a.serve(ctx, ln)
}
