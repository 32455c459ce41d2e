package resolver

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/ducky/internal/bangs"
	"github.com/joss/ducky/internal/domain"
	"github.com/joss/ducky/internal/island"
)

var (
	google = domain.Bang{Token: "g", ShortLabel: "Google", Domain: "www.google.com", URLTemplate: "https://www.google.com/search?q={{{s}}}"}
	github = domain.Bang{Token: "gh", ShortLabel: "GitHub", Domain: "github.com", URLTemplate: "https://github.com/search?q={{{s}}}"}
	ghRepo = domain.Bang{Token: "ghr", ShortLabel: "GitHub Repo", Domain: "github.com", URLTemplate: "https://github.com/{{{s}}}"}
	t3     = domain.Bang{Token: "t3", ShortLabel: "T3 Chat", Domain: "t3.chat", URLTemplate: "https://www.t3.chat/new?q={{{s}}}"}
	wiki   = domain.Bang{Token: "w", ShortLabel: "Wikipedia", Domain: "en.wikipedia.org", URLTemplate: "https://en.wikipedia.org/wiki/Special:Search?search={{{s}}}"}
)

type recorder struct {
	mu     sync.Mutex
	tokens []string
}

func (r *recorder) Schedule(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	return true
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tokens...)
}

type observer struct {
	mu    sync.Mutex
	kinds []string
	hits  int
}

func (o *observer) RecordResolution(kind string, cached bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kinds = append(o.kinds, kind)
	if cached {
		o.hits++
	}
}

func testDucklings() []domain.Duckling {
	return []domain.Duckling{
		{Pattern: "github", BangCommand: "raw", TargetValue: "https://github.com"},
		{Pattern: "gitlab", BangCommand: "raw", TargetValue: "https://gitlab.com"},
		{Pattern: "ducky", BangCommand: "ghr", TargetValue: "shalevari/ducky"},
		{Pattern: "broken", BangCommand: "nosuchbang", TargetValue: "x"},
	}
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	islands := island.NewTable(domain.Island{Key: "a", Name: "Answer", Prompt: "P: "})
	opts = append([]Option{WithRecorder(rec)}, opts...)
	e := New(bangs.NewTable(google, github, ghRepo, t3, wiki), testDucklings(), islands, opts...)
	return e, rec
}

func TestResolve_DefaultBang(t *testing.T) {
	e, rec := newEngine(t)

	r := e.Resolve("golang generics", google)
	assert.Equal(t, "https://www.google.com/search?q=golang%20generics", r.URL)
	assert.Equal(t, KindDefault, r.Kind)
	assert.Equal(t, "g", r.Bang)
	assert.False(t, r.Cached)
	assert.Empty(t, rec.got(), "plain searches do not touch recency")
}

func TestResolve_ExplicitBang(t *testing.T) {
	e, rec := newEngine(t)

	cases := []struct {
		query string
		want  string
	}{
		{query: "!gh foo", want: "https://github.com/search?q=foo"},
		{query: "foo !gh", want: "https://github.com/search?q=foo"},
		{query: "foo !GH bar", want: "https://github.com/search?q=foo%20bar"},
		{query: "gh! foo", want: "https://github.com/search?q=foo"},
		{query: "foo gh!", want: "https://github.com/search?q=foo"},
		{query: "!ghr shalevari/ducky", want: "https://github.com/shalevari/ducky"},
	}
	for _, tc := range cases {
		r := e.Resolve(tc.query, google)
		assert.Equal(t, tc.want, r.URL, tc.query)
		assert.Equal(t, KindBang, r.Kind, tc.query)
	}
	assert.Contains(t, rec.got(), "gh")
	assert.Contains(t, rec.got(), "ghr")
}

func TestResolve_BangWithoutQuery(t *testing.T) {
	e, rec := newEngine(t)

	r := e.Resolve("!gh", google)
	assert.Equal(t, "https://github.com", r.URL)
	assert.Equal(t, KindBangHome, r.Kind)
	assert.Equal(t, []string{"gh"}, rec.got())

	r = e.Resolve("!nope", google)
	assert.Equal(t, "https://www.google.com", r.URL, "unknown bang falls back to the default's domain")
	assert.Equal(t, []string{"gh"}, rec.got(), "unknown bangs are not recorded")
}

func TestResolve_UnknownBangUsesDefault(t *testing.T) {
	e, _ := newEngine(t)

	r := e.Resolve("!nope some words", wiki)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Special:Search?search=some%20words", r.URL)
	assert.Equal(t, KindDefault, r.Kind)
	assert.Equal(t, "w", r.Bang)
}

func TestResolve_IslandSuffix(t *testing.T) {
	e, rec := newEngine(t)

	r := e.Resolve("!t3a hello", google)
	assert.Equal(t, "https://www.t3.chat/new?q="+bangs.EncodeQuery("P: hello"), r.URL)
	assert.Equal(t, "t3", r.Bang)
	assert.Equal(t, "a", r.Island)
	assert.Equal(t, []string{"t3"}, rec.got())

	// The island key alone is not split off
	r = e.Resolve("!a hello", google)
	assert.Empty(t, r.Island)
	assert.Equal(t, KindDefault, r.Kind)
}

func TestResolve_IslandWithoutQuery(t *testing.T) {
	e, _ := newEngine(t)
	r := e.Resolve("!t3a", google)
	assert.Equal(t, "https://t3.chat", r.URL)
	assert.Equal(t, "a", r.Island)
}

func TestResolve_Ducklings(t *testing.T) {
	e, rec := newEngine(t)

	r := e.Resolve("github", google)
	assert.Equal(t, "https://github.com", r.URL)
	assert.Equal(t, KindRaw, r.Kind)

	r = e.Resolve("ducky", google)
	assert.Equal(t, "https://github.com/shalevari/ducky", r.URL)
	assert.Equal(t, KindDuckling, r.Kind)
	assert.Equal(t, []string{"ghr"}, rec.got())
}

func TestResolve_DucklingComposesWithBang(t *testing.T) {
	e, _ := newEngine(t)

	viaDuckling := e.Resolve("ducky issues", google)
	direct := e.Resolve("!ghr shalevari/ducky issues", google)
	assert.Equal(t, direct.URL, viaDuckling.URL)
}

func TestResolve_EscapeMarker(t *testing.T) {
	e, _ := newEngine(t)

	r := e.Resolve(`\github`, google)
	assert.Equal(t, "https://www.google.com/search?q=github", r.URL)
	assert.Equal(t, KindEscape, r.Kind)
}

func TestResolve_EscapedDucklingKeyword(t *testing.T) {
	e, _ := newEngine(t)

	r := e.Resolve(`\ducky`, google)
	assert.Equal(t, "https://www.google.com/search?q=ducky", r.URL)
	assert.Equal(t, KindEscape, r.Kind)
}

func TestResolve_AmbiguityGuard(t *testing.T) {
	e, _ := newEngine(t)

	r := e.Resolve("github vs gitlab", google)
	assert.Equal(t, "https://www.google.com/search?q=github%20vs%20gitlab", r.URL)
	assert.Equal(t, KindDefault, r.Kind)
}

func TestResolve_DanglingDucklingBang(t *testing.T) {
	e, _ := newEngine(t)

	r := e.Resolve("broken thing", google)
	assert.Equal(t, "https://www.google.com/search?q=broken%20thing", r.URL,
		"the original query, not the duckling target, is searched")
	assert.Equal(t, KindDefault, r.Kind)
}

func TestResolve_NoDefaultBang(t *testing.T) {
	e, _ := newEngine(t)

	r := e.Resolve("plain words", domain.Bang{})
	assert.Equal(t, KindUnresolved, r.Kind)
	assert.Empty(t, r.URL)

	r = e.Resolve("!nope", domain.Bang{})
	assert.Equal(t, KindUnresolved, r.Kind)
	assert.Empty(t, r.URL)

	r = e.Resolve("github", domain.Bang{})
	assert.Equal(t, "https://github.com", r.URL, "raw ducklings need no default")
}

func TestResolve_CachedAndIdempotent(t *testing.T) {
	obs := &observer{}
	e, rec := newEngine(t, WithObserver(obs))

	first := e.Resolve("!gh foo", google)
	second := e.Resolve("!gh foo", google)
	assert.Equal(t, first.URL, second.URL)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, []string{"gh"}, rec.got(), "cache hits have no side effects")
	assert.Equal(t, 1, obs.hits)

	// Same query under another default bang is resolved separately
	other := e.Resolve("plain", wiki)
	assert.Contains(t, other.URL, "wikipedia")
	assert.Contains(t, e.Resolve("plain", google).URL, "google")

	results, _ := e.CacheStats()
	assert.Equal(t, 3, results.Size)
}

func TestResolve_InvalidatedOnRuleChange(t *testing.T) {
	e, _ := newEngine(t)

	assert.Equal(t, "https://github.com", e.Resolve("github", google).URL)
	require.NotNil(t, e.MatchDuckling("github"))

	e.SetDucklings(nil)
	r := e.Resolve("github", google)
	assert.False(t, r.Cached)
	assert.Equal(t, "https://www.google.com/search?q=github", r.URL)
	assert.Nil(t, e.MatchDuckling("github"))

	e.SetBangs(bangs.NewTable(google))
	r = e.Resolve("!gh foo", google)
	assert.Equal(t, KindDefault, r.Kind)

	e.SetIslands(island.NewTable())
	r = e.Resolve("!t3a hi", google)
	assert.Empty(t, r.Island)

	e.Invalidate()
	results, matches := e.CacheStats()
	assert.Equal(t, 0, results.Size)
	assert.Equal(t, 0, matches.Size)
}

func TestResolve_LongestSuffixOption(t *testing.T) {
	islands := island.NewTable(
		domain.Island{Key: "a", Prompt: "A: "},
		domain.Island{Key: "ba", Prompt: "BA: "},
	)
	b := bangs.NewTable(google, t3, domain.Bang{Token: "t3b", Domain: "b.example", URLTemplate: "https://b.example/?q={{{s}}}"})

	first := New(b, nil, islands).Resolve("!t3ba x", google)
	assert.Equal(t, "t3b", first.Bang)
	assert.Equal(t, "a", first.Island)

	longest := New(b, nil, islands, WithLongestSuffix(true)).Resolve("!t3ba x", google)
	assert.Equal(t, "t3", longest.Bang)
	assert.Equal(t, "ba", longest.Island)
}

func TestResolve_BoundedCache(t *testing.T) {
	e, _ := newEngine(t, WithCapacity(10))
	for i := 0; i < 50; i++ {
		e.Resolve(fmt.Sprintf("query %d", i), google)
	}
	results, matches := e.CacheStats()
	assert.Equal(t, 10, results.Size)
	assert.LessOrEqual(t, matches.Size, 10)
}

func TestResolve_Concurrent(t *testing.T) {
	e, _ := newEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if j%25 == 0 {
					e.SetDucklings(testDucklings())
				}
				r := e.Resolve(fmt.Sprintf("!gh q%d", j%10), google)
				assert.Equal(t, KindBang, r.Kind)
			}
		}(i)
	}
	wg.Wait()
}
