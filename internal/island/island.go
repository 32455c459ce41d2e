// Package island resolves prompt-injection suffixes appended to bang tokens.
package island

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joss/ducky/internal/bangs"
	"github.com/joss/ducky/internal/domain"
)

// Table is an insertion-ordered key -> island map. The zero value is empty
// and ready to use. Order matters: Split returns the first matching key.
type Table struct {
	keys    []string
	islands map[string]domain.Island
}

// NewTable builds a table from islands in order. A repeated key keeps its
// first position and takes the later value.
func NewTable(list ...domain.Island) *Table {
	t := &Table{}
	for _, is := range list {
		t.Put(is)
	}
	return t
}

// Put inserts or replaces is under is.Key.
func (t *Table) Put(is domain.Island) {
	if t.islands == nil {
		t.islands = make(map[string]domain.Island)
	}
	if _, ok := t.islands[is.Key]; !ok {
		t.keys = append(t.keys, is.Key)
	}
	t.islands[is.Key] = is
}

// Delete removes key and reports whether it existed.
func (t *Table) Delete(key string) bool {
	if _, ok := t.islands[key]; !ok {
		return false
	}
	delete(t.islands, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the island stored under key.
func (t *Table) Get(key string) (domain.Island, bool) {
	if t == nil {
		return domain.Island{}, false
	}
	is, ok := t.islands[key]
	return is, ok
}

// Len returns the number of islands.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns keys in table order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// List returns islands in table order.
func (t *Table) List() []domain.Island {
	out := make([]domain.Island, 0, t.Len())
	for _, k := range t.Keys() {
		out = append(out, t.islands[k])
	}
	return out
}

// Clone returns an independent copy.
func (t *Table) Clone() *Table {
	return NewTable(t.List()...)
}

// MarshalJSON encodes the table as a JSON object in table order.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(t.islands[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the document's key order.
// The object key overrides an island's own key field.
func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("islands: expected object, got %v", tok)
	}

	fresh := &Table{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("islands: expected key, got %v", tok)
		}
		var is domain.Island
		if err := dec.Decode(&is); err != nil {
			return fmt.Errorf("islands: %s: %w", key, err)
		}
		is.Key = key
		fresh.Put(is)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = *fresh
	return nil
}

// Split separates an island suffix from a bang candidate.
//
// The candidate is lowercased; a key matches when the candidate ends with it
// and is strictly longer. By default the first matching key in table order
// wins. With longestSuffix the longest matching key wins, ties going to
// table order. No match returns the whole candidate and ok=false.
func (t *Table) Split(candidate string, longestSuffix bool) (bang string, is domain.Island, ok bool) {
	candidate = strings.ToLower(candidate)
	best := ""
	for _, k := range t.Keys() {
		lk := strings.ToLower(k)
		if lk == "" || len(candidate) <= len(lk) || !strings.HasSuffix(candidate, lk) {
			continue
		}
		if !longestSuffix {
			return candidate[:len(candidate)-len(lk)], t.islands[k], true
		}
		if best == "" || len(lk) > len(best) {
			best = k
		}
	}
	if best == "" {
		return candidate, domain.Island{}, false
	}
	return candidate[:len(candidate)-len(best)], t.islands[best], true
}

// Conflicts returns the bang tokens that key would shadow: tokens ending in
// key whose prefix is itself a bang, so "!<prefix><key>" would split instead
// of reaching the token.
func Conflicts(key string, table *bangs.Table) []string {
	key = strings.ToLower(key)
	if key == "" {
		return nil
	}
	var out []string
	for _, tok := range table.Tokens() {
		if len(tok) <= len(key) || !strings.HasSuffix(tok, key) {
			continue
		}
		if table.Has(tok[:len(tok)-len(key)]) {
			out = append(out, tok)
		}
	}
	return out
}
