// Package domain defines the rule types ducky resolves queries against.
// Bangs, ducklings and islands are plain values; nothing here touches storage.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Placeholder is the substring of a URL template replaced by the encoded query.
const Placeholder = "{{{s}}}"

// EscapeMarker forces a literal default-bang search when it prefixes a query.
const EscapeMarker = `\`

// Sentinel bang commands a duckling may carry instead of a real bang token.
const (
	CommandRaw  = "raw"
	CommandNone = "none"
)

// Bang is a named search shortcut.
type Bang struct {
	Token       string `json:"t"`
	ShortLabel  string `json:"s"`
	Domain      string `json:"d"`
	URLTemplate string `json:"u"`
}

// IsZero reports whether b is the empty bang.
func (b Bang) IsZero() bool {
	return b.Token == "" && b.Domain == "" && b.URLTemplate == ""
}

// Home returns the bare-domain fallback used when a bang has nothing to search for.
func (b Bang) Home() string {
	if b.Domain == "" {
		return ""
	}
	return "https://" + b.Domain
}

// DucklingKind classifies what a duckling's bang command points at.
type DucklingKind string

const (
	DucklingBang DucklingKind = "bang"
	DucklingRaw  DucklingKind = "raw"
	DucklingNone DucklingKind = "none"
)

// Duckling maps a literal trigger pattern to a bang command and target value.
type Duckling struct {
	Pattern     string `json:"pattern" yaml:"pattern"`
	BangCommand string `json:"bangCommand" yaml:"bang"`
	TargetValue string `json:"targetValue" yaml:"target"`
	Description string `json:"description" yaml:"description,omitempty"`
}

// Kind returns which of the three command forms d uses.
func (d Duckling) Kind() DucklingKind {
	switch d.BangCommand {
	case CommandRaw:
		return DucklingRaw
	case CommandNone:
		return DucklingNone
	default:
		return DucklingBang
	}
}

// Rule validation errors.
var (
	ErrEmptyPattern     = errors.New("duckling pattern is empty")
	ErrEmptyBangCommand = errors.New("duckling bang command is empty")
	ErrEmptyTarget      = errors.New("raw duckling needs a target URL")
	ErrInvalidIslandKey = errors.New("island key must be 1-3 letters")
)

// Validate checks the fields a duckling needs to be matchable.
func (d Duckling) Validate() error {
	if strings.TrimSpace(d.Pattern) == "" {
		return ErrEmptyPattern
	}
	if strings.TrimSpace(d.BangCommand) == "" {
		return ErrEmptyBangCommand
	}
	if d.Kind() == DucklingRaw && strings.TrimSpace(d.TargetValue) == "" {
		return ErrEmptyTarget
	}
	return nil
}

// Island injects a prompt in front of the query when its key suffixes a bang token.
type Island struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// Validate checks that the key is a short alphabetic suffix.
func (i Island) Validate() error {
	if len(i.Key) < 1 || len(i.Key) > 3 {
		return fmt.Errorf("%w: %q", ErrInvalidIslandKey, i.Key)
	}
	for _, r := range i.Key {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return fmt.Errorf("%w: %q", ErrInvalidIslandKey, i.Key)
		}
	}
	return nil
}

// CacheEntry is one persisted query to URL resolution. DefaultBang is the
// default in effect when the entry was written.
type CacheEntry struct {
	Query       string `json:"query"`
	DefaultBang string `json:"default_bang,omitempty"`
	URL         string `json:"url"`
	Timestamp   int64  `json:"timestamp"`
}

// Age returns how long ago the entry was written.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(e.Timestamp))
}
