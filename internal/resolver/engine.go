// Package resolver turns a raw query into a destination URL using the bang
// table, the duckling list and the island table.
package resolver

import (
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/joss/ducky/internal/bangs"
	"github.com/joss/ducky/internal/cache"
	"github.com/joss/ducky/internal/domain"
	"github.com/joss/ducky/internal/duckling"
	"github.com/joss/ducky/internal/island"
)

// bangPattern finds "!token" or "token!". The first alternative wins when
// both could match at the same position.
var bangPattern = regexp.MustCompile(`!(\S+)|(\S+)!`)

// Kind classifies how a query was resolved.
type Kind string

const (
	// KindBang: an explicit, known bang templated the query.
	KindBang Kind = "bang"
	// KindBangHome: an explicit bang with nothing left to search for.
	KindBangHome Kind = "bang-home"
	// KindDuckling: a duckling routed the query through its bang.
	KindDuckling Kind = "duckling"
	// KindRaw: a raw duckling supplied the URL verbatim.
	KindRaw Kind = "raw"
	// KindEscape: the escape marker forced a default-bang search.
	KindEscape Kind = "escape"
	// KindDefault: the default bang templated the query.
	KindDefault Kind = "default"
	// KindUnresolved: no usable bang; the caller renders the home page.
	KindUnresolved Kind = "unresolved"
)

// Resolution is the outcome of resolving one query.
type Resolution struct {
	URL    string `json:"url"`
	Kind   Kind   `json:"kind"`
	Bang   string `json:"bang,omitempty"`
	Island string `json:"island,omitempty"`
	Cached bool   `json:"cached"`
}

// Recorder receives best-effort recency updates for resolved bang tokens.
type Recorder interface {
	Schedule(token string) bool
}

// Observer receives one call per Resolve.
type Observer interface {
	RecordResolution(kind string, cached bool, d time.Duration)
}

// Engine resolves queries against a rule snapshot. Results and duckling
// matches are memoized; replacing any rule table drops both caches.
// Engine is safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	gen       uint64
	bangs     *bangs.Table
	ducklings []domain.Duckling
	islands   *island.Table

	results *cache.Cache[Resolution]
	matches *cache.Cache[*duckling.Match]

	capacity      int
	longestSuffix bool
	recorder      Recorder
	observer      Observer
	log           *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCapacity bounds each memo cache.
func WithCapacity(n int) Option {
	return func(e *Engine) { e.capacity = n }
}

// WithLongestSuffix makes the longest matching island key win instead of
// the first in table order.
func WithLongestSuffix(on bool) Option {
	return func(e *Engine) { e.longestSuffix = on }
}

// WithRecorder sets the recency sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithObserver sets the metrics sink.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an engine over the given rules.
func New(b *bangs.Table, ducklings []domain.Duckling, islands *island.Table, opts ...Option) *Engine {
	e := &Engine{
		capacity: cache.DefaultCapacity,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("resolver")
	e.results = cache.New[Resolution](e.capacity)
	e.matches = cache.New[*duckling.Match](e.capacity)
	e.setRules(b, ducklings, islands)
	return e
}

func (e *Engine) setRules(b *bangs.Table, ducklings []domain.Duckling, islands *island.Table) {
	if b == nil {
		b = bangs.NewTable()
	}
	if islands == nil {
		islands = island.NewTable()
	}
	e.bangs = b
	e.ducklings = append([]domain.Duckling(nil), ducklings...)
	e.islands = islands.Clone()
}

// SetBangs replaces the bang table.
func (e *Engine) SetBangs(b *bangs.Table) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setRules(b, e.ducklings, e.islands)
	e.invalidateLocked("bangs")
}

// SetDucklings replaces the duckling list.
func (e *Engine) SetDucklings(ducklings []domain.Duckling) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setRules(e.bangs, ducklings, e.islands)
	e.invalidateLocked("ducklings")
}

// SetIslands replaces the island table.
func (e *Engine) SetIslands(islands *island.Table) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setRules(e.bangs, e.ducklings, islands)
	e.invalidateLocked("islands")
}

// Invalidate drops both memo caches.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidateLocked("manual")
}

func (e *Engine) invalidateLocked(reason string) {
	e.gen++
	e.results.Clear()
	e.matches.Clear()
	e.log.Debug("caches invalidated", zap.String("reason", reason), zap.Uint64("generation", e.gen))
}

// Bangs returns the current bang table.
func (e *Engine) Bangs() *bangs.Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.bangs
}

// Islands returns a copy of the current island table.
func (e *Engine) Islands() *island.Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.islands.Clone()
}

// CacheStats returns statistics for the result and duckling caches.
func (e *Engine) CacheStats() (results, matches cache.Stats) {
	return e.results.Stats(), e.matches.Stats()
}

type snapshot struct {
	gen       uint64
	bangs     *bangs.Table
	ducklings []domain.Duckling
	islands   *island.Table
}

func (e *Engine) snapshot() snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return snapshot{gen: e.gen, bangs: e.bangs, ducklings: e.ducklings, islands: e.islands}
}

// rememberResult caches r only if no rule change happened since gen.
func (e *Engine) rememberResult(gen uint64, key string, r Resolution) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.gen == gen {
		e.results.Set(key, r)
	}
}

func (e *Engine) rememberMatch(gen uint64, query string, m *duckling.Match) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.gen == gen {
		e.matches.Set(query, m)
	}
}

// MatchDuckling returns the memoized duckling match for query, or nil.
func (e *Engine) MatchDuckling(query string) *duckling.Match {
	return e.matchDuckling(query, e.snapshot())
}

func (e *Engine) matchDuckling(query string, snap snapshot) *duckling.Match {
	if m, ok := e.matches.Get(query); ok {
		return m
	}
	m := duckling.MatchQuery(query, snap.ducklings)
	e.rememberMatch(snap.gen, query, m)
	return m
}

// Resolve turns a non-empty query into a destination. defaultBang is used
// for plain searches and unknown bangs; a zero defaultBang means none is
// configured. Resolve never fails: the worst case is KindUnresolved with
// an empty URL.
func (e *Engine) Resolve(query string, defaultBang domain.Bang) Resolution {
	start := time.Now()
	// The default bang can change per call, so it is part of the key.
	key := defaultBang.Token + "\x00" + query

	if r, ok := e.results.Get(key); ok {
		r.Cached = true
		e.observe(query, r, start)
		return r
	}

	snap := e.snapshot()
	r, touched := e.resolve(query, defaultBang, snap)
	e.rememberResult(snap.gen, key, r)

	if touched != "" && e.recorder != nil {
		e.recorder.Schedule(touched)
	}
	e.observe(query, r, start)
	return r
}

func (e *Engine) observe(query string, r Resolution, start time.Time) {
	d := time.Since(start)
	if e.observer != nil {
		e.observer.RecordResolution(string(r.Kind), r.Cached, d)
	}
	if ce := e.log.Check(zap.DebugLevel, "resolved"); ce != nil {
		ce.Write(
			zap.String("query", query),
			zap.String("kind", string(r.Kind)),
			zap.String("bang", r.Bang),
			zap.Bool("cached", r.Cached),
			zap.Int64("duration_us", d.Microseconds()),
		)
	}
}

// resolve computes a resolution and the bang token whose recency should be
// bumped ("" for none).
func (e *Engine) resolve(query string, def domain.Bang, snap snapshot) (Resolution, string) {
	if loc := bangPattern.FindStringSubmatchIndex(query); loc != nil {
		return e.resolveBang(query, loc, def, snap)
	}

	m := e.matchDuckling(query, snap)
	if m == nil {
		return expandDefault(def, query, KindDefault), ""
	}

	switch m.Kind() {
	case domain.DucklingRaw:
		return Resolution{URL: m.RemainingQuery, Kind: KindRaw}, ""
	case domain.DucklingNone:
		return expandDefault(def, m.RemainingQuery, KindEscape), ""
	}

	token := strings.ToLower(m.BangCommand)
	b, ok := snap.bangs.Get(token)
	if !ok {
		// Dangling bang reference: search the whole original query.
		return expandDefault(def, query, KindDefault), ""
	}
	return Resolution{URL: bangs.Expand(b, m.RemainingQuery), Kind: KindDuckling, Bang: b.Token}, b.Token
}

func (e *Engine) resolveBang(query string, loc []int, def domain.Bang, snap snapshot) (Resolution, string) {
	var candidate string
	if loc[2] >= 0 {
		candidate = query[loc[2]:loc[3]]
	} else {
		candidate = query[loc[4]:loc[5]]
	}

	token, is, hasIsland := snap.islands.Split(candidate, e.longestSuffix)
	selected, known := snap.bangs.Get(token)
	touched := ""
	if known {
		touched = token
	} else {
		selected = def
	}

	// Strip the bang syntax and the whitespace that follows it.
	end := loc[1]
	for end < len(query) && unicode.IsSpace(rune(query[end])) {
		end++
	}
	clean := strings.TrimSpace(query[:loc[0]] + query[end:])

	r := Resolution{Bang: selected.Token}
	if hasIsland {
		r.Island = is.Key
	}

	if clean == "" {
		r.URL = selected.Home()
		r.Kind = KindBangHome
		if r.URL == "" {
			r.Kind = KindUnresolved
		}
		return r, touched
	}

	if selected.URLTemplate == "" {
		return Resolution{Kind: KindUnresolved}, touched
	}

	final := clean
	if hasIsland {
		final = is.Prompt + clean
	}
	r.URL = bangs.Expand(selected, final)
	r.Kind = KindBang
	if !known {
		r.Kind = KindDefault
	}
	return r, touched
}

func expandDefault(def domain.Bang, q string, kind Kind) Resolution {
	if def.URLTemplate == "" {
		return Resolution{Kind: KindUnresolved}
	}
	return Resolution{URL: bangs.Expand(def, q), Kind: kind, Bang: def.Token}
}
