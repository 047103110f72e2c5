package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireStale(context.Context) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestExpirySweeper_SweepsUntilCancelled(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "success"},
		{name: "failures keep the loop alive", err: errors.New("store down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := &countingExpirer{err: tt.err}
			sweeper := NewExpirySweeper(exp, 5*time.Millisecond)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- sweeper.Serve(ctx) }()

			deadline := time.After(2 * time.Second)
			for exp.calls.Load() < 3 {
				select {
				case <-deadline:
					t.Fatalf("calls = %d after 2s", exp.calls.Load())
				case <-time.After(time.Millisecond):
				}
			}
			cancel()

			select {
			case err := <-done:
				if !errors.Is(err, context.Canceled) {
					t.Errorf("Serve() = %v, want context.Canceled", err)
				}
			case <-time.After(time.Second):
				t.Fatal("Serve did not return after cancel")
			}
		})
	}
}

func TestExpirySweeper_String(t *testing.T) {
	if got := NewExpirySweeper(&countingExpirer{}, time.Second).String(); got != "expiry-sweeper" {
		t.Errorf("String() = %q", got)
	}
}
