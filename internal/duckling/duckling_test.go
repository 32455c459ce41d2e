package duckling

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/ducky/internal/domain"
	"github.com/joss/ducky/internal/store"
)

func sampleDucklings() []domain.Duckling {
	return []domain.Duckling{
		{Pattern: "github", BangCommand: "raw", TargetValue: "https://github.com"},
		{Pattern: "gitlab", BangCommand: "raw", TargetValue: "https://gitlab.com"},
		{Pattern: "ducky", BangCommand: "ghr", TargetValue: "shalevari/ducky"},
		{Pattern: "docs", BangCommand: "gh", TargetValue: "docs"},
	}
}

func TestMatchQuery(t *testing.T) {
	ds := sampleDucklings()

	cases := []struct {
		name  string
		query string
		want  *Match
	}{
		{name: "exact", query: "ducky", want: &Match{BangCommand: "ghr", RemainingQuery: "shalevari/ducky"}},
		{name: "exact raw", query: "github", want: &Match{BangCommand: "raw", RemainingQuery: "https://github.com"}},
		{name: "prefix", query: "docs routing", want: &Match{BangCommand: "gh", RemainingQuery: "docs routing"}},
		{name: "escape", query: `\github`, want: &Match{BangCommand: "none", RemainingQuery: "github"}},
		{name: "escape multi word", query: `\ducky stars`, want: &Match{BangCommand: "none", RemainingQuery: "ducky stars"}},
		{name: "ambiguous", query: "github vs gitlab", want: nil},
		{name: "no match", query: "weather", want: nil},
		{name: "pattern must be followed by space", query: "duckyfoo bar", want: nil},
		{name: "case sensitive", query: "Ducky", want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MatchQuery(tc.query, ds)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("MatchQuery(%q) mismatch (-want +got):\n%s", tc.query, diff)
			}
		})
	}
}

func TestMatchQuery_EmptyList(t *testing.T) {
	assert.Nil(t, MatchQuery("ducky", nil))

	m := MatchQuery(`\ducky`, nil)
	require.NotNil(t, m)
	assert.Equal(t, domain.DucklingNone, m.Kind())
}

func TestMatchQuery_ListOrderWins(t *testing.T) {
	ds := []domain.Duckling{
		{Pattern: "x", BangCommand: "g", TargetValue: "first"},
		{Pattern: "x", BangCommand: "w", TargetValue: "second"},
	}
	m := MatchQuery("x", ds)
	require.NotNil(t, m)
	assert.Equal(t, "g", m.BangCommand)
}

func TestMatchQuery_SelfPatternInRest(t *testing.T) {
	ds := []domain.Duckling{{Pattern: "go", BangCommand: "gh", TargetValue: "golang/go"}}
	m := MatchQuery("go go issues", ds)
	require.NotNil(t, m)
	assert.Equal(t, "golang/go go issues", m.RemainingQuery)
}

func TestParseRecords_Versions(t *testing.T) {
	data := []byte(`[
		{"pattern": "old", "bangCommand": "gh", "description": "legacy"},
		{"pattern": "blank", "bangCommand": "gh", "targetValue": ""},
		{"pattern": "new", "bangCommand": "ghr", "targetValue": "a/b"}
	]`)

	records, err := ParseRecords(data)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.NotNil(t, records[0].Legacy)
	assert.NotNil(t, records[1].Legacy)
	assert.NotNil(t, records[2].Current)

	assert.Equal(t, "old", records[0].Duckling().TargetValue)
	assert.Equal(t, "a/b", records[2].Duckling().TargetValue)
	assert.Equal(t, domain.Duckling{}, Record{}.Duckling())
}

func TestDecodeList(t *testing.T) {
	list, migrated, err := DecodeList([]byte(`[{"pattern":"x","bangCommand":"g"}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, migrated)
	assert.Equal(t, []domain.Duckling{{Pattern: "x", BangCommand: "g", TargetValue: "x"}}, list)

	_, _, err = DecodeList([]byte(`{"not":"a list"}`))
	assert.Error(t, err)
}

func TestService_InitializeSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory(), nil)

	list, err := svc.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, Defaults, list)

	// A second call keeps existing data
	require.NoError(t, svc.Add(ctx, domain.Duckling{Pattern: "hn", BangCommand: "raw", TargetValue: "https://news.ycombinator.com"}))
	list, err = svc.Initialize(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestService_AddReplacesSamePattern(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory(), nil)

	require.NoError(t, svc.Add(ctx, domain.Duckling{Pattern: "a", BangCommand: "g", TargetValue: "one"}))
	require.NoError(t, svc.Add(ctx, domain.Duckling{Pattern: "b", BangCommand: "g", TargetValue: "two"}))
	require.NoError(t, svc.Add(ctx, domain.Duckling{Pattern: "a", BangCommand: "w", TargetValue: "three"}))

	list, err := svc.Load(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Pattern)
	assert.Equal(t, "three", list[0].TargetValue)
}

func TestService_AddValidates(t *testing.T) {
	svc := NewService(store.NewMemory(), nil)
	err := svc.Add(context.Background(), domain.Duckling{Pattern: "x", BangCommand: "raw"})
	assert.ErrorIs(t, err, domain.ErrEmptyTarget)
}

func TestService_RemoveAndGet(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory(), nil)
	_, err := svc.Initialize(ctx)
	require.NoError(t, err)

	d, err := svc.Get(ctx, "ducky")
	require.NoError(t, err)
	assert.Equal(t, "ghr", d.BangCommand)

	ok, err := svc.Remove(ctx, "ducky")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Remove(ctx, "ducky")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Get(ctx, "ducky")
	assert.True(t, store.IsNotFound(err))
}

func TestService_LoadMigratesAndPersists(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Set(ctx, store.KeyDucklings, []byte(`[{"pattern":"gh","bangCommand":"gh","description":""}]`)))

	svc := NewService(mem, nil)
	list, err := svc.Load(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "gh", list[0].TargetValue)

	raw, err := mem.Get(ctx, store.KeyDucklings)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"targetValue":"gh"`)
}

func TestService_LoadMalformed(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Set(ctx, store.KeyDucklings, []byte(`{broken`)))

	list, err := NewService(mem, nil).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_OnChange(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory(), nil)

	var seen [][]domain.Duckling
	svc.OnChange(func(list []domain.Duckling) { seen = append(seen, list) })

	require.NoError(t, svc.Add(ctx, domain.Duckling{Pattern: "a", BangCommand: "g", TargetValue: "a"}))
	_, err := svc.Remove(ctx, "a")
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Len(t, seen[0], 1)
	assert.Empty(t, seen[1])
}

func TestService_Merge(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory(), nil)
	_, err := svc.Initialize(ctx)
	require.NoError(t, err)

	incoming := []domain.Duckling{
		{Pattern: "ducky", BangCommand: "gh", TargetValue: "ducky"},
		{Pattern: "new", BangCommand: "g", TargetValue: "new"},
	}
	require.NoError(t, svc.Merge(ctx, incoming, false))
	list, err := svc.Load(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "gh", list[0].BangCommand)

	require.NoError(t, svc.Merge(ctx, incoming[1:], true))
	list, err = svc.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	err = svc.Merge(ctx, []domain.Duckling{{Pattern: ""}}, false)
	assert.ErrorIs(t, err, domain.ErrEmptyPattern)
}

func TestExportImport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sampleDucklings()))
	assert.Contains(t, buf.String(), "bang: ghr")

	got, err := Import(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleDucklings(), got); diff != "" {
		t.Errorf("import mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_DefaultsTargetAndRejectsFutureVersion(t *testing.T) {
	got, err := Import(strings.NewReader("version: 1\nducklings:\n  - pattern: gh\n    bang: gh\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "gh", got[0].TargetValue)

	_, err = Import(strings.NewReader("version: 9\nducklings: []\n"))
	assert.Error(t, err)

	got, err = Import(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}
