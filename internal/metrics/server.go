// Package metrics provides a simple Prometheus-compatible metrics endpoint.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds runtime counters for query resolution.
type Metrics struct {
	// Resolution outcomes, by kind
	mu    sync.Mutex
	kinds map[string]int64

	// Engine memo cache
	CacheHits   atomic.Int64
	CacheMisses atomic.Int64

	// Redirect layer
	SuperCacheHits atomic.Int64
	DefaultPages   atomic.Int64

	// Bang dataset reloads
	Reloads      atomic.Int64
	ReloadErrors atomic.Int64

	// Timing (last resolution duration in microseconds)
	LastResolveMicros atomic.Int64

	// Memo cache sizes, read at scrape time
	sizes func() (results, matches int)

	startTime time.Time
}

// New creates an empty metrics set.
func New() *Metrics {
	return &Metrics{
		kinds:     make(map[string]int64),
		startTime: time.Now(),
	}
}

// RecordResolution records one resolved query of the given kind.
func (m *Metrics) RecordResolution(kind string, cached bool, d time.Duration) {
	m.mu.Lock()
	m.kinds[kind]++
	m.mu.Unlock()

	if cached {
		m.CacheHits.Add(1)
	} else {
		m.CacheMisses.Add(1)
	}
	m.LastResolveMicros.Store(d.Microseconds())
}

// RecordSuperCacheHit records a redirect served from the persistent cache.
func (m *Metrics) RecordSuperCacheHit() {
	m.SuperCacheHits.Add(1)
}

// RecordDefaultPage records an empty query answered with the home page.
func (m *Metrics) RecordDefaultPage() {
	m.DefaultPages.Add(1)
}

// RecordReload records a bang dataset reload attempt.
func (m *Metrics) RecordReload(success bool) {
	m.Reloads.Add(1)
	if !success {
		m.ReloadErrors.Add(1)
	}
}

// SetCacheSizer registers the source of the memo cache entry gauges.
func (m *Metrics) SetCacheSizer(fn func() (results, matches int)) {
	m.mu.Lock()
	m.sizes = fn
	m.mu.Unlock()
}

// CacheSizes returns the current memo cache entry counts, zero when no
// sizer is registered.
func (m *Metrics) CacheSizes() (results, matches int) {
	m.mu.Lock()
	fn := m.sizes
	m.mu.Unlock()
	if fn == nil {
		return 0, 0
	}
	return fn()
}

// Resolutions returns a copy of the per-kind counters.
func (m *Metrics) Resolutions() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.kinds))
	for k, v := range m.kinds {
		out[k] = v
	}
	return out
}

// Handler returns an HTTP handler for /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")

		uptime := time.Since(m.startTime).Seconds()

		fmt.Fprintf(w, "# HELP ducky_uptime_seconds Time since ducky started\n")
		fmt.Fprintf(w, "# TYPE ducky_uptime_seconds gauge\n")
		fmt.Fprintf(w, "ducky_uptime_seconds %.2f\n\n", uptime)

		kinds := m.Resolutions()
		names := make([]string, 0, len(kinds))
		for k := range kinds {
			names = append(names, k)
		}
		sort.Strings(names)

		fmt.Fprintf(w, "# HELP ducky_resolutions_total Resolved queries by outcome\n")
		fmt.Fprintf(w, "# TYPE ducky_resolutions_total counter\n")
		for _, k := range names {
			fmt.Fprintf(w, "ducky_resolutions_total{kind=%q} %d\n", k, kinds[k])
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "# HELP ducky_cache_hits_total Resolutions served from the memo cache\n")
		fmt.Fprintf(w, "# TYPE ducky_cache_hits_total counter\n")
		fmt.Fprintf(w, "ducky_cache_hits_total %d\n\n", m.CacheHits.Load())

		fmt.Fprintf(w, "# HELP ducky_cache_misses_total Resolutions computed from the rules\n")
		fmt.Fprintf(w, "# TYPE ducky_cache_misses_total counter\n")
		fmt.Fprintf(w, "ducky_cache_misses_total %d\n\n", m.CacheMisses.Load())

		results, matches := m.CacheSizes()
		fmt.Fprintf(w, "# HELP ducky_cache_entries Entries held in the memo caches\n")
		fmt.Fprintf(w, "# TYPE ducky_cache_entries gauge\n")
		fmt.Fprintf(w, "ducky_cache_entries{cache=\"results\"} %d\n", results)
		fmt.Fprintf(w, "ducky_cache_entries{cache=\"matches\"} %d\n\n", matches)

		fmt.Fprintf(w, "# HELP ducky_super_cache_hits_total Redirects served from the persistent cache\n")
		fmt.Fprintf(w, "# TYPE ducky_super_cache_hits_total counter\n")
		fmt.Fprintf(w, "ducky_super_cache_hits_total %d\n\n", m.SuperCacheHits.Load())

		fmt.Fprintf(w, "# HELP ducky_default_pages_total Empty queries answered with the home page\n")
		fmt.Fprintf(w, "# TYPE ducky_default_pages_total counter\n")
		fmt.Fprintf(w, "ducky_default_pages_total %d\n\n", m.DefaultPages.Load())

		fmt.Fprintf(w, "# HELP ducky_bang_reloads_total Bang dataset reload attempts\n")
		fmt.Fprintf(w, "# TYPE ducky_bang_reloads_total counter\n")
		fmt.Fprintf(w, "ducky_bang_reloads_total %d\n\n", m.Reloads.Load())

		fmt.Fprintf(w, "# HELP ducky_bang_reload_errors_total Failed bang dataset reloads\n")
		fmt.Fprintf(w, "# TYPE ducky_bang_reload_errors_total counter\n")
		fmt.Fprintf(w, "ducky_bang_reload_errors_total %d\n\n", m.ReloadErrors.Load())

		fmt.Fprintf(w, "# HELP ducky_last_resolve_duration_us Last resolution duration\n")
		fmt.Fprintf(w, "# TYPE ducky_last_resolve_duration_us gauge\n")
		fmt.Fprintf(w, "ducky_last_resolve_duration_us %d\n", m.LastResolveMicros.Load())
	}
}
