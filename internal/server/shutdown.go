package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"coffee-eda/internal/config"
)

const hookTimeout = 10 * time.Second

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

// GracefulServer runs an http.Server until a signal or context cancellation,
// drains in-flight requests, then runs the registered hooks.
type GracefulServer struct {
	server  *http.Server
	logger  *slog.Logger
	timeout time.Duration

	mu    sync.Mutex
	hooks []shutdownHook
}

func NewGracefulServer(server *http.Server, logger *slog.Logger, cfg *config.Config) *GracefulServer {
	return &GracefulServer{
		server:  server,
		logger:  logger,
		timeout: cfg.Server.ShutdownTimeout,
	}
}

// RegisterShutdownHook adds fn to run after the HTTP server has drained.
// Hooks run concurrently, each bounded by hookTimeout.
func (gs *GracefulServer) RegisterShutdownHook(name string, fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, shutdownHook{name: name, fn: fn})
}

// ListenAndServe serves on the configured address until SIGINT, SIGTERM or
// ctx cancellation, then shuts down gracefully.
func (gs *GracefulServer) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", gs.server.Addr, err)
	}
	return gs.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		gs.logger.Info("serving", "addr", ln.Addr().String())
		serveErr <- gs.server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		gs.logger.Info("stopping server", "reason", context.Cause(ctx))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()
	return gs.shutdown(shutdownCtx)
}

// shutdown drains the server before running hooks and joins every hook
// error.
func (gs *GracefulServer) shutdown(ctx context.Context) error {
	start := time.Now()

	if err := gs.server.Shutdown(ctx); err != nil {
		gs.logger.Error("http server did not drain", "error", err)
		return fmt.Errorf("drain http server: %w", err)
	}

	gs.mu.Lock()
	hooks := append([]shutdownHook(nil), gs.hooks...)
	gs.mu.Unlock()

	errs := make([]error, len(hooks))
	var wg sync.WaitGroup
	for i, h := range hooks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hookCtx, cancel := context.WithTimeout(ctx, hookTimeout)
			defer cancel()
			if err := h.fn(hookCtx); err != nil {
				gs.logger.Error("shutdown hook failed", "hook", h.name, "error", err)
				errs[i] = fmt.Errorf("shutdown hook %s: %w", h.name, err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		gs.logger.Info("shutdown complete", "hooks", len(hooks), "duration", time.Since(start))
		return errors.Join(errs...)
	case <-ctx.Done():
		gs.logger.Warn("shutdown timeout exceeded", "timeout", gs.timeout)
		return ctx.Err()
	}
}
