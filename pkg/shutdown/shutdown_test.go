package shutdown

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_RunsAllCallbacksOnce(t *testing.T) {
	m := NewManager()
	var n int32
	m.OnShutdown("a", func(ctx context.Context) error { atomic.AddInt32(&n, 1); return nil })
	m.OnShutdown("b", func(ctx context.Context) error { atomic.AddInt32(&n, 1); return errors.New("boom") })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Shutdown(ctx)
	m.Shutdown(ctx)

	if got := atomic.LoadInt32(&n); got != 2 {
		t.Fatalf("callbacks ran %d times, want 2", got)
	}
}

func TestManager_Timeout(t *testing.T) {
	m := NewManager()
	release := make(chan struct{})
	defer close(release)
	m.OnShutdown("slow", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	m.Shutdown(ctx)
	if time.Since(start) > time.Second {
		t.Fatalf("shutdown did not honour ctx timeout")
	}
}
