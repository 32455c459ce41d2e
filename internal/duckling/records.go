package duckling

import (
	"encoding/json"
	"fmt"

	"github.com/joss/ducky/internal/domain"
)

// Record is one persisted duckling in either storage generation.
// Exactly one of Legacy and Current is set.
type Record struct {
	Legacy  *LegacyDuckling
	Current *domain.Duckling
}

// LegacyDuckling is the first storage generation, which had no target value:
// the pattern itself was passed to the bang.
type LegacyDuckling struct {
	Pattern     string `json:"pattern"`
	BangCommand string `json:"bangCommand"`
	Description string `json:"description"`
}

// Migrate converts a legacy duckling to the current shape.
func (l LegacyDuckling) Migrate() domain.Duckling {
	return domain.Duckling{
		Pattern:     l.Pattern,
		BangCommand: l.BangCommand,
		TargetValue: l.Pattern,
		Description: l.Description,
	}
}

// Duckling returns the record in the current shape.
func (r Record) Duckling() domain.Duckling {
	if r.Current != nil {
		return *r.Current
	}
	if r.Legacy != nil {
		return r.Legacy.Migrate()
	}
	return domain.Duckling{}
}

// wire accepts both generations; TargetValue is a pointer so a missing field
// can be told apart from an explicit one.
type wire struct {
	Pattern     string  `json:"pattern"`
	BangCommand string  `json:"bangCommand"`
	TargetValue *string `json:"targetValue"`
	Description string  `json:"description"`
}

// ParseRecords decodes the persisted duckling list into versioned records.
// A record with an absent or empty targetValue is legacy.
func ParseRecords(data []byte) ([]Record, error) {
	var raw []wire
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ducklings: %w", err)
	}

	out := make([]Record, 0, len(raw))
	for _, w := range raw {
		if w.TargetValue == nil || *w.TargetValue == "" {
			out = append(out, Record{Legacy: &LegacyDuckling{
				Pattern:     w.Pattern,
				BangCommand: w.BangCommand,
				Description: w.Description,
			}})
			continue
		}
		out = append(out, Record{Current: &domain.Duckling{
			Pattern:     w.Pattern,
			BangCommand: w.BangCommand,
			TargetValue: *w.TargetValue,
			Description: w.Description,
		}})
	}
	return out, nil
}

// DecodeList parses and migrates a persisted duckling list. The second
// return value counts migrated legacy records.
func DecodeList(data []byte) ([]domain.Duckling, int, error) {
	records, err := ParseRecords(data)
	if err != nil {
		return nil, 0, err
	}
	list := make([]domain.Duckling, 0, len(records))
	migrated := 0
	for _, r := range records {
		if r.Legacy != nil {
			migrated++
		}
		list = append(list, r.Duckling())
	}
	return list, migrated, nil
}
