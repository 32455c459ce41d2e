package duckling

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/joss/ducky/internal/domain"
	"github.com/joss/ducky/internal/store"
)

// Defaults seeds an empty duckling list on first run.
var Defaults = []domain.Duckling{
	{
		Pattern:     "ducky",
		BangCommand: "ghr",
		TargetValue: "shalevari/ducky",
		Description: "Go to the Ducky GitHub repository",
	},
}

// Service manages the persisted duckling list.
type Service struct {
	store store.RuleStore
	log   *zap.Logger

	mu        sync.Mutex
	listeners []func([]domain.Duckling)
}

// NewService creates a duckling service over st.
func NewService(st store.RuleStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log.Named("duckling")}
}

// OnChange registers fn to receive the full list after every save.
func (s *Service) OnChange(fn func([]domain.Duckling)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Load returns the stored ducklings, migrating legacy records in place.
// Malformed data yields an empty list and a logged warning.
func (s *Service) Load(ctx context.Context) ([]domain.Duckling, error) {
	raw, err := s.store.Get(ctx, store.KeyDucklings)
	if err != nil {
		if store.IsNotFound(err) {
			return []domain.Duckling{}, nil
		}
		return []domain.Duckling{}, fmt.Errorf("load ducklings: %w", err)
	}

	list, migrated, err := DecodeList(raw)
	if err != nil {
		s.log.Warn("malformed duckling data, using empty list", zap.Error(err))
		return []domain.Duckling{}, nil
	}

	if migrated > 0 {
		s.log.Info("migrated legacy ducklings", zap.Int("count", migrated))
		if err := store.Save(ctx, s.store, store.KeyDucklings, list); err != nil {
			s.log.Warn("persist migrated ducklings", zap.Error(err))
		}
	}
	return list, nil
}

// Save replaces the stored list and notifies listeners.
func (s *Service) Save(ctx context.Context, list []domain.Duckling) error {
	if list == nil {
		list = []domain.Duckling{}
	}
	if err := store.Save(ctx, s.store, store.KeyDucklings, list); err != nil {
		return fmt.Errorf("save ducklings: %w", err)
	}

	s.mu.Lock()
	listeners := make([]func([]domain.Duckling), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		snapshot := make([]domain.Duckling, len(list))
		copy(snapshot, list)
		fn(snapshot)
	}
	return nil
}

// Initialize seeds Defaults when nothing is stored and returns the list.
func (s *Service) Initialize(ctx context.Context) ([]domain.Duckling, error) {
	list, err := s.Load(ctx)
	if err != nil {
		return list, err
	}
	if len(list) > 0 {
		return list, nil
	}
	seed := make([]domain.Duckling, len(Defaults))
	copy(seed, Defaults)
	if err := s.Save(ctx, seed); err != nil {
		return list, err
	}
	return seed, nil
}

// Add inserts d, replacing any duckling with the same pattern in place.
func (s *Service) Add(ctx context.Context, d domain.Duckling) error {
	if err := d.Validate(); err != nil {
		return err
	}
	list, err := s.Load(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range list {
		if list[i].Pattern == d.Pattern {
			list[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, d)
	}
	return s.Save(ctx, list)
}

// Remove deletes the duckling with pattern. It reports whether one existed.
func (s *Service) Remove(ctx context.Context, pattern string) (bool, error) {
	list, err := s.Load(ctx)
	if err != nil {
		return false, err
	}

	kept := list[:0]
	found := false
	for _, d := range list {
		if d.Pattern == pattern {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		return false, nil
	}
	return true, s.Save(ctx, kept)
}

// Get returns the duckling with pattern.
func (s *Service) Get(ctx context.Context, pattern string) (domain.Duckling, error) {
	list, err := s.Load(ctx)
	if err != nil {
		return domain.Duckling{}, err
	}
	for _, d := range list {
		if d.Pattern == pattern {
			return d, nil
		}
	}
	return domain.Duckling{}, store.NewNotFoundError("duckling", pattern)
}

// Merge adds every duckling in incoming (last write wins per pattern), or
// replaces the whole list when replace is set. Invalid entries abort the merge.
func (s *Service) Merge(ctx context.Context, incoming []domain.Duckling, replace bool) error {
	var errs []error
	for _, d := range incoming {
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", d.Pattern, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	var list []domain.Duckling
	if !replace {
		var err error
		if list, err = s.Load(ctx); err != nil {
			return err
		}
	}

	index := make(map[string]int, len(list))
	for i, d := range list {
		index[d.Pattern] = i
	}
	for _, d := range incoming {
		if i, ok := index[d.Pattern]; ok {
			list[i] = d
			continue
		}
		index[d.Pattern] = len(list)
		list = append(list, d)
	}
	return s.Save(ctx, list)
}
