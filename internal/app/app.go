package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/m2tx/margin_agent/internal/config"
	"github.com/m2tx/margin_agent/internal/httpapi"
)

// App owns runtime wiring and HTTP server lifecycle.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	runtime *Runtime
	server  *http.Server
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		return nil, errors.New("new app: nil logger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new app config: %w", err)
	}

	runtime, err := NewRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("new app runtime: %w", err)
	}

	api := httpapi.NewServer(runtime.Agent,
		httpapi.WithLogger(logger),
		httpapi.WithRequestTimeout(config.RequestTimeout),
		httpapi.WithCredentialHint(cfg.CredentialEnv()),
	)

	return &App{
		cfg:     cfg,
		logger:  logger,
		runtime: runtime,
		server: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: api.Handler(),
		},
	}, nil
}

func (a *App) Start() error {
	a.logger.Info("http server listening", slog.String("addr", a.cfg.HTTPAddr))

	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server, forcing open streams closed once ctx
// expires, and then releases the runtime.
func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("shutdown: nil context")
	}

	err := a.server.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		a.logger.Warn("graceful shutdown timed out; forcing connection close")
		if closeErr := a.server.Close(); closeErr != nil {
			err = fmt.Errorf("shutdown timeout and forced close failed: %w", errors.Join(err, closeErr))
		} else {
			err = nil
		}
	}

	if closeErr := a.runtime.Close(context.WithoutCancel(ctx)); closeErr != nil {
		a.logger.Warn("runtime close failed", slog.Any("error", closeErr))
	}
	return err
}
