package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joss/ducky/internal/domain"
	"github.com/joss/ducky/internal/store"
)

// Super cache defaults.
const (
	SuperCapacity = 100
	SuperTTL      = 7 * 24 * time.Hour
)

// SuperCache is the opt-in persistent query -> URL cache. Entries are keyed
// by default bang and query, survive restarts and expire after a TTL. The
// cache is off unless the ENABLE_SUPER_CACHE flag is stored as true; config
// can turn it on while the flag has never been stored.
type SuperCache struct {
	store    store.RuleStore
	log      *zap.Logger
	ttl      time.Duration
	capacity int
	now      func() time.Time
	forced   bool

	mu      sync.Mutex
	loaded  bool
	entries map[string]domain.CacheEntry
	order   []string
}

// SuperOption configures a SuperCache.
type SuperOption func(*SuperCache)

// WithTTL overrides the entry lifetime.
func WithTTL(ttl time.Duration) SuperOption {
	return func(s *SuperCache) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCapacity overrides the entry limit.
func WithCapacity(n int) SuperOption {
	return func(s *SuperCache) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock sets the time source (for testing).
func WithClock(now func() time.Time) SuperOption {
	return func(s *SuperCache) { s.now = now }
}

// WithForcedOn enables the cache until the flag is stored explicitly.
func WithForcedOn(on bool) SuperOption {
	return func(s *SuperCache) { s.forced = on }
}

// NewSuperCache creates a super cache persisted in st.
func NewSuperCache(st store.RuleStore, log *zap.Logger, opts ...SuperOption) *SuperCache {
	if log == nil {
		log = zap.NewNop()
	}
	s := &SuperCache{
		store:    st,
		log:      log.Named("supercache"),
		ttl:      SuperTTL,
		capacity: SuperCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether lookups and writes are active.
func (s *SuperCache) Enabled(ctx context.Context) bool {
	raw, err := s.store.Get(ctx, store.KeySuperCacheOn)
	if err != nil {
		if !store.IsNotFound(err) {
			s.log.Debug("read super cache flag", zap.Error(err))
		}
		return s.forced
	}
	var on bool
	if err := json.Unmarshal(raw, &on); err != nil {
		s.log.Debug("malformed super cache flag", zap.Error(err))
		return s.forced
	}
	return on
}

// SetEnabled stores the enable flag. Disabling does not drop entries.
func (s *SuperCache) SetEnabled(ctx context.Context, on bool) error {
	return store.Save(ctx, s.store, store.KeySuperCacheOn, on)
}

// load reads persisted entries once. Caller holds s.mu.
func (s *SuperCache) load(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true
	s.entries = make(map[string]domain.CacheEntry)
	s.order = nil

	list, err := store.Load(ctx, s.store, store.KeySuperCache, []domain.CacheEntry{})
	if err != nil {
		s.log.Warn("failed to load super cache", zap.Error(err))
		return
	}
	for _, e := range list {
		k := entryKey(e.DefaultBang, e.Query)
		if _, ok := s.entries[k]; !ok {
			s.order = append(s.order, k)
		}
		s.entries[k] = e
	}
}

// persist writes entries in insertion order. Caller holds s.mu.
func (s *SuperCache) persist(ctx context.Context) error {
	list := make([]domain.CacheEntry, 0, len(s.order))
	for _, k := range s.order {
		list = append(list, s.entries[k])
	}
	if err := store.Save(ctx, s.store, store.KeySuperCache, list); err != nil {
		s.log.Warn("failed to save super cache", zap.Error(err))
		return err
	}
	return nil
}

func entryKey(defaultBang, query string) string {
	return defaultBang + "\x00" + query
}

func (s *SuperCache) remove(key string) {
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Get returns the URL cached for query under defaultBang. Expired entries
// are dropped.
func (s *SuperCache) Get(ctx context.Context, defaultBang, query string) (string, bool) {
	if !s.Enabled(ctx) {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	key := entryKey(defaultBang, query)
	e, ok := s.entries[key]
	if !ok {
		return "", false
	}
	if e.Age(s.now()) > s.ttl {
		s.remove(key)
		_ = s.persist(ctx)
		return "", false
	}
	return e.URL, true
}

// Put caches url for query under defaultBang, evicting the oldest entry
// when full. It is a no-op while the cache is disabled.
func (s *SuperCache) Put(ctx context.Context, defaultBang, query, url string) error {
	if !s.Enabled(ctx) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	key := entryKey(defaultBang, query)
	if _, ok := s.entries[key]; !ok {
		for len(s.order) >= s.capacity {
			s.remove(s.order[0])
		}
		s.order = append(s.order, key)
	}
	s.entries[key] = domain.CacheEntry{
		Query:       query,
		DefaultBang: defaultBang,
		URL:         url,
		Timestamp:   s.now().UnixMilli(),
	}
	return s.persist(ctx)
}

// Entries returns the cached entries, oldest first.
func (s *SuperCache) Entries(ctx context.Context) []domain.CacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	out := make([]domain.CacheEntry, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.entries[k])
	}
	return out
}

// Clear drops every entry, in memory and in the store.
func (s *SuperCache) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.entries = make(map[string]domain.CacheEntry)
	s.order = nil
	return s.store.Delete(ctx, store.KeySuperCache)
}
