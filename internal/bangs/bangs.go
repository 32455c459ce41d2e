// Package bangs loads the bang table: the mapping from short tokens to
// search URL templates.
package bangs

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sahilm/fuzzy"

	"github.com/joss/ducky/internal/domain"
)

//go:embed data/bangs.json
var embedded []byte

// record is one entry of a generated bang dataset. Only t, s, d and u are
// used; the rest is carried by the dataset generator.
type record struct {
	T  string `json:"t"`
	S  string `json:"s"`
	D  string `json:"d"`
	U  string `json:"u"`
	C  string `json:"c,omitempty"`
	SC string `json:"sc,omitempty"`
	R  int    `json:"r,omitempty"`
}

func (r record) bang(key string) domain.Bang {
	token := r.T
	if token == "" {
		token = key
	}
	return domain.Bang{
		Token:       strings.ToLower(token),
		ShortLabel:  r.S,
		Domain:      r.D,
		URLTemplate: r.U,
	}
}

// Table is an immutable token -> bang lookup.
type Table struct {
	bangs  map[string]domain.Bang
	tokens []string
}

// NewTable builds a table from bangs. Tokens are lowercased; later entries win.
func NewTable(list ...domain.Bang) *Table {
	t := &Table{bangs: make(map[string]domain.Bang, len(list))}
	for _, b := range list {
		b.Token = strings.ToLower(b.Token)
		if b.Token == "" {
			continue
		}
		t.bangs[b.Token] = b
	}
	t.index()
	return t
}

func (t *Table) index() {
	t.tokens = make([]string, 0, len(t.bangs))
	for k := range t.bangs {
		t.tokens = append(t.tokens, k)
	}
	sort.Strings(t.tokens)
}

// Get looks up a bang by token. The token must already be lowercase.
func (t *Table) Get(token string) (domain.Bang, bool) {
	if t == nil {
		return domain.Bang{}, false
	}
	b, ok := t.bangs[token]
	return b, ok
}

// Has reports whether token names a bang.
func (t *Table) Has(token string) bool {
	_, ok := t.Get(token)
	return ok
}

// Len returns the number of bangs.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.bangs)
}

// Tokens returns all tokens in lexical order.
func (t *Table) Tokens() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.tokens))
	copy(out, t.tokens)
	return out
}

// List returns all bangs in token order.
func (t *Table) List() []domain.Bang {
	out := make([]domain.Bang, 0, t.Len())
	for _, tok := range t.Tokens() {
		out = append(out, t.bangs[tok])
	}
	return out
}

// Merge returns a new table holding t's bangs overlaid with other's.
func (t *Table) Merge(other *Table) *Table {
	merged := &Table{bangs: make(map[string]domain.Bang, t.Len()+other.Len())}
	if t != nil {
		for k, v := range t.bangs {
			merged.bangs[k] = v
		}
	}
	if other != nil {
		for k, v := range other.bangs {
			merged.bangs[k] = v
		}
	}
	merged.index()
	return merged
}

// searchSource adapts a table for fuzzy matching over "token label".
type searchSource struct {
	t *Table
}

func (s searchSource) String(i int) string {
	b := s.t.bangs[s.t.tokens[i]]
	return b.Token + " " + b.ShortLabel
}

func (s searchSource) Len() int { return len(s.t.tokens) }

// Search returns up to limit bangs whose token or label fuzzily matches term,
// best match first. An exact token match always ranks first.
func (t *Table) Search(term string, limit int) []domain.Bang {
	term = strings.TrimSpace(term)
	if term == "" || t.Len() == 0 {
		return nil
	}

	var out []domain.Bang
	seen := make(map[string]bool)
	if b, ok := t.Get(strings.ToLower(term)); ok {
		out = append(out, b)
		seen[b.Token] = true
	}

	for _, m := range fuzzy.FindFrom(term, searchSource{t: t}) {
		if limit > 0 && len(out) >= limit {
			break
		}
		tok := t.tokens[m.Index]
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, t.bangs[tok])
	}
	return out
}

// Decode parses a bang dataset. Both the generated map form
// ({"gh": {"t": "gh", ...}}) and the raw array form ([{"t": "gh", ...}])
// are accepted.
func Decode(data []byte) (*Table, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return NewTable(), nil
	}

	var list []domain.Bang
	switch data[0] {
	case '{':
		var m map[string]record
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode bang map: %w", err)
		}
		for k, r := range m {
			list = append(list, r.bang(k))
		}
	case '[':
		var arr []record
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, fmt.Errorf("decode bang list: %w", err)
		}
		for _, r := range arr {
			list = append(list, r.bang(""))
		}
	default:
		return nil, fmt.Errorf("decode bangs: unexpected leading %q", data[0])
	}

	for _, b := range list {
		if strings.Count(b.URLTemplate, domain.Placeholder) > 1 {
			return nil, fmt.Errorf("bang %q: template has more than one placeholder", b.Token)
		}
	}
	return NewTable(list...), nil
}

// Default returns the bang table compiled into the binary.
func Default() *Table {
	t, err := Decode(embedded)
	if err != nil {
		panic(fmt.Sprintf("embedded bang dataset: %v", err))
	}
	return t
}

// LoadFiles returns the embedded table overlaid with every dataset file
// matching pattern (doublestar syntax, e.g. "~/.ducky/bangs/**/*.json").
// Files are applied in lexical order so later files win.
func LoadFiles(pattern string) (*Table, []string, error) {
	base := Default()
	if strings.TrimSpace(pattern) == "" {
		return base, nil, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return base, nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return base, matches, fmt.Errorf("read %s: %w", path, err)
		}
		t, err := Decode(data)
		if err != nil {
			return base, matches, fmt.Errorf("%s: %w", path, err)
		}
		base = base.Merge(t)
	}
	return base, matches, nil
}
