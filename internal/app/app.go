// Package app assembles the ducky services around one rule store and keeps
// the resolver in sync with rule edits.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/joss/ducky/internal/bangs"
	"github.com/joss/ducky/internal/cache"
	"github.com/joss/ducky/internal/config"
	"github.com/joss/ducky/internal/domain"
	"github.com/joss/ducky/internal/duckling"
	"github.com/joss/ducky/internal/island"
	"github.com/joss/ducky/internal/metrics"
	"github.com/joss/ducky/internal/recent"
	"github.com/joss/ducky/internal/redirect"
	"github.com/joss/ducky/internal/resolver"
	"github.com/joss/ducky/internal/storage"
	"github.com/joss/ducky/internal/store"
)

// App holds every long-lived service.
type App struct {
	Config    config.Config
	Log       *zap.Logger
	Store     store.RuleStore
	Ducklings *duckling.Service
	Islands   *island.Service
	Recent    *recent.Tracker
	Super     *cache.SuperCache
	Engine    *resolver.Engine
	Redirect  *redirect.Service
	Metrics   *metrics.Metrics

	datasetPattern string
	closeStore     bool
}

// Options configures New.
type Options struct {
	Config config.Config
	// Store is required.
	Store store.RuleStore
	// BangsDir is the default home of extra dataset files.
	BangsDir string
	// Bangs replaces dataset loading when set.
	Bangs *bangs.Table
	Log   *zap.Logger
}

// Open opens the sqlite rule store under paths.Data and builds the app on it.
// Close releases the store.
func Open(ctx context.Context, paths config.Paths, cfg config.Config, log *zap.Logger) (*App, error) {
	st, err := storage.New(paths.Data)
	if err != nil {
		return nil, fmt.Errorf("open rule store: %w", err)
	}
	a, err := New(ctx, Options{Config: cfg, Store: st, BangsDir: paths.Bangs, Log: log})
	if err != nil {
		st.Close()
		return nil, err
	}
	a.closeStore = true
	return a, nil
}

// New builds the services. Rule loading problems are logged and replaced by
// defaults; only a missing store is an error.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Store == nil {
		return nil, errors.New("app: nil store")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Config

	a := &App{
		Config:         cfg,
		Log:            log,
		Store:          opts.Store,
		Metrics:        metrics.New(),
		datasetPattern: cfg.DatasetPattern(opts.BangsDir),
	}

	table := opts.Bangs
	if table == nil {
		var files []string
		var err error
		table, files, err = bangs.LoadFiles(a.datasetPattern)
		if err != nil {
			log.Warn("bang dataset load failed, using built-in bangs", zap.Error(err))
		}
		log.Debug("bangs loaded", zap.Int("bangs", table.Len()), zap.Int("files", len(files)))
	}

	a.Ducklings = duckling.NewService(opts.Store, log)
	ducks, err := a.Ducklings.Initialize(ctx)
	if err != nil {
		log.Warn("ducklings unavailable", zap.Error(err))
	}

	a.Islands = island.NewService(opts.Store, log)
	islands, err := a.Islands.Initialize(ctx)
	if err != nil {
		log.Warn("islands unavailable", zap.Error(err))
	}

	a.Recent = recent.NewTracker(opts.Store, log, recent.DefaultQueueSize)
	a.Super = cache.NewSuperCache(opts.Store, log,
		cache.WithTTL(cfg.SuperCacheTTLDuration()),
		cache.WithForcedOn(cfg.Cache.SuperCache),
	)

	a.Engine = resolver.New(table, ducks, islands,
		resolver.WithCapacity(cfg.Cache.Capacity),
		resolver.WithLongestSuffix(cfg.Islands.LongestSuffix),
		resolver.WithRecorder(a.Recent),
		resolver.WithObserver(a.Metrics),
		resolver.WithLogger(log),
	)
	a.Metrics.SetCacheSizer(func() (int, int) {
		results, matches := a.Engine.CacheStats()
		return results.Size, matches.Size
	})
	a.Redirect = redirect.New(a.Engine, opts.Store, a.Super,
		redirect.WithObserver(a.Metrics),
		redirect.WithLogger(log),
		redirect.WithConfigBang(cfg.DefaultBang),
	)

	a.Ducklings.OnChange(func(list []domain.Duckling) {
		a.Engine.SetDucklings(list)
		a.clearSuper("ducklings")
	})
	a.Islands.OnChange(func(t *island.Table) {
		a.Engine.SetIslands(t)
		a.clearSuper("islands")
	})
	return a, nil
}

// clearSuper drops persisted redirects that may no longer match the rules.
func (a *App) clearSuper(reason string) {
	if err := a.Super.Clear(context.Background()); err != nil {
		a.Log.Warn("clear super cache", zap.String("reason", reason), zap.Error(err))
	}
}

// ReloadBangs swaps in a new bang table.
func (a *App) ReloadBangs(t *bangs.Table) {
	a.Engine.SetBangs(t)
	a.clearSuper("bangs")
	a.Metrics.RecordReload(true)
}

// DatasetPattern is the glob of extra bang dataset files.
func (a *App) DatasetPattern() string {
	return a.datasetPattern
}

// Watcher returns a dataset watcher wired to ReloadBangs.
func (a *App) Watcher() (*bangs.Watcher, error) {
	w, err := bangs.NewWatcher(a.datasetPattern, a.ReloadBangs, a.Log)
	if err != nil {
		return nil, err
	}
	w.SetDebounce(a.Config.DebounceDuration())
	w.OnError(func(error) { a.Metrics.RecordReload(false) })
	return w, nil
}

// Close drains pending recency updates, then closes the store if Open
// created it.
func (a *App) Close() error {
	var errs []error
	if err := a.Recent.Close(); err != nil {
		errs = append(errs, fmt.Errorf("recent: %w", err))
	}
	if a.closeStore {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	return errors.Join(errs...)
}
