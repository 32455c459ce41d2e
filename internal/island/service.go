package island

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/joss/ducky/internal/domain"
	"github.com/joss/ducky/internal/store"
)

// AnswerPrompt asks an AI engine for the short answer before the explanation.
const AnswerPrompt = `The user is going to give you a question (the "Input"). Give them the TL;DR version of the answer first, and only then explain it. ` +
	`If the question is about a terminal command, output the command in a code block first. ` +
	`The TL;DR must state the key point from its very first word, with no filler, and the key part in bold. ` +
	`Use a markdown "# TL;DR" heading for the short answer, then a new line, then a "# Explanation" heading for the in-depth answer. ` +
	`These rules only apply to the first question. After that, answer normally. Input: `

// Defaults seeds an empty island table on first run.
var Defaults = []domain.Island{
	{Key: "a", Name: "Just Give Me The Answer", Prompt: AnswerPrompt},
}

// Service manages the persisted island table.
type Service struct {
	store store.RuleStore
	log   *zap.Logger

	mu        sync.Mutex
	listeners []func(*Table)
}

// NewService creates an island service over st.
func NewService(st store.RuleStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log.Named("island")}
}

// OnChange registers fn to receive a copy of the table after every save.
func (s *Service) OnChange(fn func(*Table)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Load returns the stored table. Malformed data yields an empty table and
// a logged warning.
func (s *Service) Load(ctx context.Context) (*Table, error) {
	t, err := store.Load(ctx, s.store, store.KeyIslands, &Table{})
	if err != nil {
		if store.IsDecode(err) {
			s.log.Warn("malformed island data, using empty table", zap.Error(err))
			return &Table{}, nil
		}
		return &Table{}, fmt.Errorf("load islands: %w", err)
	}
	if t == nil {
		t = &Table{}
	}
	return t, nil
}

// Save replaces the stored table and notifies listeners.
func (s *Service) Save(ctx context.Context, t *Table) error {
	if t == nil {
		t = &Table{}
	}
	if err := store.Save(ctx, s.store, store.KeyIslands, t); err != nil {
		return fmt.Errorf("save islands: %w", err)
	}

	s.mu.Lock()
	listeners := make([]func(*Table), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(t.Clone())
	}
	return nil
}

// Initialize seeds Defaults when nothing is stored and returns the table.
func (s *Service) Initialize(ctx context.Context) (*Table, error) {
	t, err := s.Load(ctx)
	if err != nil {
		return t, err
	}
	if t.Len() > 0 {
		return t, nil
	}
	seed := NewTable(Defaults...)
	if err := s.Save(ctx, seed); err != nil {
		return t, err
	}
	return seed, nil
}

// Add inserts is, replacing any island with the same key.
func (s *Service) Add(ctx context.Context, is domain.Island) error {
	if err := is.Validate(); err != nil {
		return err
	}
	t, err := s.Load(ctx)
	if err != nil {
		return err
	}
	t.Put(is)
	return s.Save(ctx, t)
}

// Update stores is under key. When the key changes the old entry is removed.
func (s *Service) Update(ctx context.Context, key string, is domain.Island) error {
	if err := is.Validate(); err != nil {
		return err
	}
	t, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if key != is.Key {
		t.Delete(key)
	}
	t.Put(is)
	return s.Save(ctx, t)
}

// Remove deletes key. It reports whether the island existed.
func (s *Service) Remove(ctx context.Context, key string) (bool, error) {
	t, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	if !t.Delete(key) {
		return false, nil
	}
	return true, s.Save(ctx, t)
}

// Get returns the island stored under key.
func (s *Service) Get(ctx context.Context, key string) (domain.Island, error) {
	t, err := s.Load(ctx)
	if err != nil {
		return domain.Island{}, err
	}
	is, ok := t.Get(key)
	if !ok {
		return domain.Island{}, store.NewNotFoundError("island", key)
	}
	return is, nil
}
