package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewShutdownManager(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)

	if m == nil {
		t.Fatal("NewShutdownManager returned nil")
	}

	if m.timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", m.timeout)
	}

	if d := NewShutdownManager(0, nil).timeout; d != DefaultShutdownTimeout {
		t.Errorf("expected default timeout, got %v", d)
	}
}

func TestShutdownManager_Register(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)

	var called int32

	m.Register("test-handler", func(ctx context.Context) error {
		atomic.AddInt32(&called, 1)
		return nil
	})

	require.NoError(t, m.Shutdown())

	if atomic.LoadInt32(&called) != 1 {
		t.Error("handler was not called")
	}
}

func TestShutdownManager_RegisterSimple(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)

	var called bool

	m.RegisterSimple("simple-handler", func() {
		called = true
	})
	m.RegisterCloser("closer", func() error { return nil })

	m.Shutdown()

	if !called {
		t.Error("simple handler was not called")
	}
}

func TestShutdownManager_LIFO(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)

	order := make([]int, 0, 3)

	m.RegisterSimple("first", func() {
		order = append(order, 1)
	})
	m.RegisterSimple("second", func() {
		order = append(order, 2)
	})
	m.RegisterSimple("third", func() {
		order = append(order, 3)
	})

	m.Shutdown()

	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestShutdownManager_Context(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)

	ctx := m.Context()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be cancelled before shutdown")
	default:
	}

	m.Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context should be cancelled after shutdown")
	}
}

func TestShutdownManager_Done(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)

	done := m.Done()

	select {
	case <-done:
		t.Fatal("done channel should not be closed before shutdown")
	default:
	}

	m.Shutdown()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("done channel should be closed after shutdown")
	}
}

func TestShutdownManager_Timeout(t *testing.T) {
	m := NewShutdownManager(100*time.Millisecond, nil)

	m.Register("slow-handler", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	start := time.Now()
	err := m.Shutdown()
	duration := time.Since(start)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	if duration > 500*time.Millisecond {
		t.Errorf("shutdown took too long: %v", duration)
	}
}

func TestShutdownManager_ErrorHandling(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)
	boom := errors.New("test error")

	m.Register("error-handler", func(ctx context.Context) error {
		return boom
	})

	var ran bool
	m.Register("success-handler", func(ctx context.Context) error {
		ran = true
		return nil
	})
	m.RegisterSimple("panicky", func() { panic("oops") })

	err := m.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "panicky")
	assert.True(t, ran)
}

func TestShutdownManager_OnlyOnce(t *testing.T) {
	m := NewShutdownManager(5*time.Second, nil)

	var callCount int32

	m.Register("once-handler", func(ctx context.Context) error {
		atomic.AddInt32(&callCount, 1)
		return nil
	})

	m.Shutdown()
	m.Shutdown()
	m.Shutdown()

	if atomic.LoadInt32(&callCount) != 1 {
		t.Errorf("handler should only be called once, got %d", callCount)
	}
}

func TestShutdownManager_ListenForSignalsStop(t *testing.T) {
	m := NewShutdownManager(time.Second, nil)
	stop := m.ListenForSignals()
	stop()
	stop()
	m.Shutdown()
}
