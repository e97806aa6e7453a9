package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/cache"
	"github.com/sells-group/intake-cli/internal/collector"
	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/cost"
	"github.com/sells-group/intake-cli/internal/dedup"
	"github.com/sells-group/intake-cli/internal/pipeline"
	"github.com/sells-group/intake-cli/internal/runner"
	"github.com/sells-group/intake-cli/internal/store"
	anthropicpkg "github.com/sells-group/intake-cli/pkg/anthropic"
	notionpkg "github.com/sells-group/intake-cli/pkg/notion"
)

// intakeEnv holds the initialized store, caches, and runner shared by
// the run and serve commands.
type intakeEnv struct {
	Store      store.Store
	Cache      *cache.Cache
	Tracker    *cost.Tracker
	Runner     *runner.Runner
	Collectors []collector.Collector
}

// Close releases resources held by the environment.
func (e *intakeEnv) Close() {
	if e.Tracker != nil {
		_ = e.Tracker.Close()
	}
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "intake.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "notion":
		return store.NewNotion(notionpkg.NewClient(cfg.Notion.Token), cfg.Notion.EntryDB), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the store, rules, collectors, caches, and pipeline.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*intakeEnv, error) {
	if err := cfg.Validate("run"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	rules, err := config.LoadRules(cfg.Pipeline.RulesFile)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load rules")
	}

	sources, err := config.LoadSources(cfg.Collect.SourcesFile)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load sources")
	}
	collectors, err := collector.FromSources(sources, collector.Options{
		Timeout: time.Duration(cfg.Collect.TimeoutSecs) * time.Second,
		Retries: cfg.Collect.Retries,
	})
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "build collectors")
	}

	resultCache, err := cache.New(cfg.Cache.Path, time.Duration(cfg.Cache.TTLDays)*24*time.Hour)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "open cache")
	}

	tracker, err := cost.NewTracker(cfg.Cost.LedgerPath, cfg.Cost.DailyBudget, cfg.Cost.MonthlyBudget)
	if err != nil {
		_ = resultCache.Close()
		_ = st.Close()
		return nil, eris.Wrap(err, "open cost ledger")
	}

	pc := &pipeline.Context{
		Cfg:     cfg,
		Rules:   rules,
		Costs:   tracker,
		Results: resultCache,
	}
	if cfg.LLM.Enabled && cfg.Anthropic.Key != "" {
		pc.LLM = anthropicpkg.NewClient(cfg.Anthropic.Key)
		zap.L().Info("llm enrichment enabled", zap.Strings("features", cfg.LLM.Features))
	}
	if cfg.Pipeline.SemDedup.Enabled {
		pc.NewEmbedder = func(ctx context.Context) (pipeline.Embedder, error) {
			return pipeline.NewHashEmbedder(0), nil
		}
	}

	pipe := pipeline.New(pc, pipeline.DefaultStages(pc)...)
	zap.L().Info("pipeline assembled",
		zap.Strings("stages", pipe.Stages()),
		zap.Int("sources", len(collectors)))

	r := runner.New(pipe, st, dedup.New(resultCache, st), runner.Options{
		SourceConcurrency: cfg.Run.SourceConcurrency,
		ItemConcurrency:   cfg.Run.ItemConcurrency,
	})

	return &intakeEnv{
		Store:      st,
		Cache:      resultCache,
		Tracker:    tracker,
		Runner:     r,
		Collectors: collectors,
	}, nil
}
