// Package recent tracks the most recently used bang tokens.
package recent

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/joss/ducky/internal/logging"
	"github.com/joss/ducky/internal/store"
)

// Capacity is the number of tokens kept.
const Capacity = 5

// DefaultQueueSize bounds pending scheduled updates.
const DefaultQueueSize = 64

// Push returns list with token moved to the front, deduplicated and capped.
func Push(list []string, token string, capacity int) []string {
	out := make([]string, 0, capacity)
	out = append(out, token)
	for _, t := range list {
		if len(out) >= capacity {
			break
		}
		if t != token {
			out = append(out, t)
		}
	}
	return out
}

// Tracker persists the MRU list under store.KeyRecentBangs. Scheduled
// updates are applied by a single background worker; they are best effort
// and dropped when the queue is full.
type Tracker struct {
	store store.RuleStore
	log   *zap.Logger

	writeMu sync.Mutex

	mu     sync.RWMutex
	closed bool
	queue  chan string
	done   chan struct{}
}

// NewTracker starts a tracker. Call Close to stop its worker.
func NewTracker(st store.RuleStore, log *zap.Logger, queueSize int) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	t := &Tracker{
		store: st,
		log:   log.Named("recent"),
		queue: make(chan string, queueSize),
		done:  make(chan struct{}),
	}
	logging.SafeGo("recent", t.log, t.run)
	return t
}

// run applies queued updates. A panic stops the worker but still releases
// Close; later updates are dropped once the queue fills.
func (t *Tracker) run() {
	defer close(t.done)
	for token := range t.queue {
		if err := t.Touch(context.Background(), token); err != nil {
			t.log.Warn("recent update failed", zap.String("bang", token), zap.Error(err))
		}
	}
}

// Touch moves token to the front of the list synchronously.
func (t *Tracker) Touch(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	list, err := t.List(ctx)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, t.store, store.KeyRecentBangs, Push(list, token, Capacity)); err != nil {
		return fmt.Errorf("save recent bangs: %w", err)
	}
	return nil
}

// Schedule queues a Touch without blocking. It reports whether the update
// was accepted.
func (t *Tracker) Schedule(token string) bool {
	if token == "" {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return false
	}
	select {
	case t.queue <- token:
		return true
	default:
		t.log.Debug("recent queue full, dropping update", zap.String("bang", token))
		return false
	}
}

// List returns the stored tokens, most recent first. Malformed data reads
// as an empty list.
func (t *Tracker) List(ctx context.Context) ([]string, error) {
	list, err := store.Load(ctx, t.store, store.KeyRecentBangs, []string{})
	if err != nil {
		if store.IsDecode(err) {
			t.log.Warn("malformed recent bangs, resetting", zap.Error(err))
			return []string{}, nil
		}
		return []string{}, fmt.Errorf("load recent bangs: %w", err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

// Close stops accepting updates and waits for queued ones to be applied.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		<-t.done
		return nil
	}
	t.closed = true
	close(t.queue)
	t.mu.Unlock()

	<-t.done
	return nil
}
