// Package redirect decides what to do with a raw query: render the home
// page, redirect, or repeat the previous search. It handles the whole-query
// shortcuts before handing ordinary queries to the resolver.
package redirect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joss/ducky/internal/bangs"
	"github.com/joss/ducky/internal/cache"
	"github.com/joss/ducky/internal/domain"
	"github.com/joss/ducky/internal/resolver"
	"github.com/joss/ducky/internal/store"
)

// FallbackBang is used when no default bang is configured anywhere.
const FallbackBang = "g"

// RepeatQuery re-issues the last search.
const RepeatQuery = "!!"

// LuckyBase receives "feeling lucky" queries.
const LuckyBase = "https://duckduckgo.com/?q=!ducky+"

var (
	// "!! [.tld] owner/repo"
	repoPattern = regexp.MustCompile(`^!!\s*(?:(\.\w+)\s+)?(\S+?)/(\S+)`)
	// "!" alone or a trailing " !"
	luckyPattern = regexp.MustCompile(`(?:^|\s)!$`)
)

// ErrUnknownBang is returned when setting a default bang that does not exist.
var ErrUnknownBang = errors.New("unknown bang")

// Action tells the caller what to do.
type Action string

const (
	ActionRenderDefault Action = "render-default"
	ActionRedirect      Action = "redirect"
	ActionRepeat        Action = "repeat"
)

// Decision kinds added on top of resolver kinds.
const (
	KindEmpty      = "empty"
	KindRepeat     = "repeat"
	KindRepo       = "repo"
	KindSuperCache = "super-cache"
	KindLucky      = "lucky"
)

// Decision is the outcome for one raw query. For ActionRepeat, Query holds
// the search to re-issue.
type Decision struct {
	Action Action `json:"action"`
	URL    string `json:"url,omitempty"`
	Query  string `json:"query"`
	Kind   string `json:"kind"`
	Bang   string `json:"bang,omitempty"`
	Island string `json:"island,omitempty"`
	Cached bool   `json:"cached"`
}

// Observer receives redirect-level events.
type Observer interface {
	RecordResolution(kind string, cached bool, d time.Duration)
	RecordSuperCacheHit()
	RecordDefaultPage()
}

// Service is the caller side of the resolver.
type Service struct {
	engine   *resolver.Engine
	store    store.RuleStore
	super    *cache.SuperCache
	observer Observer
	log      *zap.Logger

	configBang string
}

// Option configures a Service.
type Option func(*Service)

// WithObserver sets the metrics sink.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithConfigBang sets the default bang used when none is stored.
func WithConfigBang(token string) Option {
	return func(s *Service) { s.configBang = strings.ToLower(strings.TrimSpace(token)) }
}

// New creates a redirect service. super may be nil.
func New(engine *resolver.Engine, st store.RuleStore, super *cache.SuperCache, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		store:  st,
		super:  super,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("redirect")
	return s
}

// loadString reads a string slot. Values written by older clients are bare
// strings rather than JSON, so undecodable bytes are used verbatim.
func (s *Service) loadString(ctx context.Context, key string) (string, error) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if store.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return strings.TrimSpace(string(raw)), nil
	}
	return v, nil
}

// DefaultBang picks the default bang: override, then the stored default,
// then the configured one, then FallbackBang. Tokens missing from the bang
// table are skipped. The zero Bang means none is usable.
func (s *Service) DefaultBang(ctx context.Context, override string) domain.Bang {
	stored, err := s.loadString(ctx, store.KeyDefaultBang)
	if err != nil {
		s.log.Warn("read default bang", zap.Error(err))
	}

	table := s.engine.Bangs()
	for _, tok := range []string{override, stored, s.configBang, FallbackBang} {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		if b, ok := table.Get(tok); ok {
			return b
		}
	}
	return domain.Bang{}
}

// SetDefaultBang stores token as the default bang.
func (s *Service) SetDefaultBang(ctx context.Context, token string) error {
	token = strings.ToLower(strings.TrimSpace(token))
	if !s.engine.Bangs().Has(token) {
		return fmt.Errorf("%w: %q", ErrUnknownBang, token)
	}
	if err := store.Save(ctx, s.store, store.KeyDefaultBang, token); err != nil {
		return err
	}
	if s.super != nil {
		if err := s.super.Clear(ctx); err != nil {
			s.log.Warn("super cache clear failed", zap.Error(err))
		}
	}
	return nil
}

// LastSearch returns the last recorded query.
func (s *Service) LastSearch(ctx context.Context) (string, bool) {
	q, err := s.loadString(ctx, store.KeyLastSearch)
	if err != nil {
		s.log.Warn("read last search", zap.Error(err))
		return "", false
	}
	return q, q != ""
}

// Decide turns a raw query into a Decision. override, when set, replaces
// the stored default bang for this call only.
func (s *Service) Decide(ctx context.Context, rawQuery, override string) Decision {
	start := time.Now()
	q := strings.TrimSpace(rawQuery)

	if q == "" {
		s.record(func(o Observer) { o.RecordDefaultPage() })
		return Decision{Action: ActionRenderDefault, Kind: KindEmpty}
	}

	if q != RepeatQuery {
		if err := store.Save(ctx, s.store, store.KeyLastSearch, q); err != nil {
			s.log.Warn("save last search", zap.Error(err))
		}
	} else if last, ok := s.LastSearch(ctx); ok {
		d := Decision{Action: ActionRepeat, Query: last, Kind: KindRepeat}
		s.finish(q, d, start)
		return d
	}

	if m := repoPattern.FindStringSubmatch(q); m != nil {
		tld := m[1]
		if tld == "" {
			tld = ".com"
		}
		d := Decision{Action: ActionRedirect, URL: "https://" + m[2] + tld + "/" + m[3], Query: q, Kind: KindRepo}
		s.finish(q, d, start)
		return d
	}

	def := s.DefaultBang(ctx, override)
	if s.super != nil {
		if url, ok := s.super.Get(ctx, def.Token, q); ok {
			s.record(func(o Observer) { o.RecordSuperCacheHit() })
			d := Decision{Action: ActionRedirect, URL: url, Query: q, Kind: KindSuperCache, Cached: true}
			s.finish(q, d, start)
			return d
		}
	}

	if luckyPattern.MatchString(q) {
		clean := strings.TrimSpace(strings.TrimSuffix(q, "!"))
		d := Decision{Action: ActionRedirect, URL: LuckyBase + bangs.EncodeComponent(clean), Query: q, Kind: KindLucky}
		s.remember(ctx, def.Token, q, d.URL)
		s.finish(q, d, start)
		return d
	}

	r := s.engine.Resolve(q, def)
	if r.URL == "" {
		s.log.Info("no usable bang, rendering home page", zap.String("query", q))
		return Decision{Action: ActionRenderDefault, Query: q, Kind: string(r.Kind)}
	}
	s.remember(ctx, def.Token, q, r.URL)
	return Decision{
		Action: ActionRedirect,
		URL:    r.URL,
		Query:  q,
		Kind:   string(r.Kind),
		Bang:   r.Bang,
		Island: r.Island,
		Cached: r.Cached,
	}
}

func (s *Service) remember(ctx context.Context, defaultBang, q, url string) {
	if s.super == nil {
		return
	}
	if err := s.super.Put(ctx, defaultBang, q, url); err != nil {
		s.log.Warn("super cache write failed", zap.Error(err))
	}
}

// finish records shortcut decisions; engine resolutions are recorded by
// the engine itself.
func (s *Service) finish(q string, d Decision, start time.Time) {
	elapsed := time.Since(start)
	s.record(func(o Observer) { o.RecordResolution(d.Kind, d.Cached, elapsed) })
	s.log.Debug("shortcut",
		zap.String("query", q),
		zap.String("kind", d.Kind),
		zap.String("url", d.URL),
	)
}

func (s *Service) record(fn func(Observer)) {
	if s.observer != nil {
		fn(s.observer)
	}
}
