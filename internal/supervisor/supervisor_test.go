package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type fakeServer struct {
	started  chan struct{}
	stop     chan struct{}
	shutdown atomic.Int32
	failWith error
}

func newFakeServer() *fakeServer {
	return &fakeServer{started: make(chan struct{}, 8), stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	f.started <- struct{}{}
	if f.failWith != nil {
		return f.failWith
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdown.Add(1)
	close(f.stop)
	return nil
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPServerService("test-server", srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if srv.shutdown.Load() != 1 {
		t.Errorf("Shutdown calls = %d, want 1", srv.shutdown.Load())
	}
	if svc.String() != "test-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	srv := newFakeServer()
	srv.failWith = errors.New("address in use")

	err := NewHTTPServerService("test-server", srv, time.Second).Serve(context.Background())
	if err == nil || !errors.Is(err, srv.failWith) {
		t.Errorf("Serve() = %v, want wrapped listen error", err)
	}
}

type fakeFiber struct {
	listening chan string
	stop      chan struct{}
	timeout   time.Duration
}

func (f *fakeFiber) Listen(addr string) error {
	f.listening <- addr
	<-f.stop
	return nil
}

func (f *fakeFiber) ShutdownWithTimeout(timeout time.Duration) error {
	f.timeout = timeout
	close(f.stop)
	return nil
}

func TestFiberService(t *testing.T) {
	app := &fakeFiber{listening: make(chan string, 1), stop: make(chan struct{})}
	svc := NewFiberService(app, ":5000", 3*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	if addr := <-app.listening; addr != ":5000" {
		t.Errorf("Listen(%q)", addr)
	}
	cancel()
	<-done

	if app.timeout <= 0 || app.timeout > 3*time.Second {
		t.Errorf("shutdown timeout = %v", app.timeout)
	}
}

func TestTree_RunsAndStopsServices(t *testing.T) {
	tree := NewTree(TreeConfig{ShutdownTimeout: time.Second})
	srv := newFakeServer()
	tree.AddAPIService(NewHTTPServerService("api", srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case <-srv.started:
	case <-time.After(2 * time.Second):
		t.Fatal("service not started")
	}
	cancel()

	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
	if srv.shutdown.Load() != 1 {
		t.Errorf("Shutdown calls = %d", srv.shutdown.Load())
	}
}
