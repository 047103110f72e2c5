package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/foodshare/internal/logging"
)

// HTTPServer matches the lifecycle methods of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server as a supervised service.
type HTTPServerService struct {
	name            string
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server. shutdownTimeout bounds graceful shutdown.
func NewHTTPServerService(name string, server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{name: name, server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s failed: %w", h.name, err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s shutdown failed: %w", h.name, err)
		}
		<-errCh
		logging.Info().Str("service", h.name).Msg("server stopped")
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string { return h.name }

// FiberServer matches the lifecycle methods of *fiber.App.
type FiberServer interface {
	Listen(addr string) error
	ShutdownWithTimeout(timeout time.Duration) error
}

// fiberAdapter gives a Fiber app the HTTPServer shape.
type fiberAdapter struct {
	app  FiberServer
	addr string
}

func (f fiberAdapter) ListenAndServe() error {
	return f.app.Listen(f.addr)
}

func (f fiberAdapter) Shutdown(ctx context.Context) error {
	timeout := time.Duration(0)
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	return f.app.ShutdownWithTimeout(timeout)
}

// NewFiberService runs a Fiber app on addr as a supervised service.
func NewFiberService(app FiberServer, addr string, shutdownTimeout time.Duration) *HTTPServerService {
	return NewHTTPServerService("api-server", fiberAdapter{app: app, addr: addr}, shutdownTimeout)
}
