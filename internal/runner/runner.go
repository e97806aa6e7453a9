// Package runner drives a full intake pass: collect from every source,
// run each entry through the pipeline, and persist the survivors.
package runner

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/intake-cli/internal/collector"
	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/pipeline"
)

// Pipeline processes one collected entry.
type Pipeline interface {
	Process(ctx context.Context, e model.CollectedEntry) pipeline.Result
}

// Saver persists processed entries. created=false with a nil error means
// the entry already existed and the write was skipped.
type Saver interface {
	Save(ctx context.Context, e *model.ProcessedEntry) (created bool, err error)
}

// Deduper filters already-processed links.
type Deduper interface {
	IsDuplicate(ctx context.Context, link string) (bool, error)
	MarkProcessed(ctx context.Context, link string) error
}

// Stats summarizes one intake pass. Skipped covers everything not
// persisted without error: dedup hits, store conflicts, and pipeline
// drops. Dropped breaks out the pipeline drops alone.
type Stats struct {
	Collected int64 `json:"collected"`
	Created   int64 `json:"created"`
	Skipped   int64 `json:"skipped"`
	Dropped   int64 `json:"dropped"`
	Errors    int64 `json:"errors"`
}

// counters is the mutable, goroutine-safe form of Stats.
type counters struct {
	collected atomic.Int64
	created   atomic.Int64
	skipped   atomic.Int64
	dropped   atomic.Int64
	errors    atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Collected: c.collected.Load(),
		Created:   c.created.Load(),
		Skipped:   c.skipped.Load(),
		Dropped:   c.dropped.Load(),
		Errors:    c.errors.Load(),
	}
}

const (
	defaultSourceConcurrency = 10
	defaultItemConcurrency   = 5
)

// Runner wires the collectors, pipeline, dedup, and store together.
type Runner struct {
	pipe  Pipeline
	store Saver
	dedup Deduper

	sourceConcurrency int
	itemConcurrency   int
}

// Options tunes the concurrent driver.
type Options struct {
	SourceConcurrency int
	ItemConcurrency   int
}

// New creates a Runner. dedup may be nil to disable duplicate filtering.
func New(pipe Pipeline, store Saver, dedup Deduper, opts Options) *Runner {
	sc := opts.SourceConcurrency
	if sc <= 0 {
		sc = defaultSourceConcurrency
	}
	ic := opts.ItemConcurrency
	if ic <= 0 {
		ic = defaultItemConcurrency
	}
	return &Runner{
		pipe:              pipe,
		store:             store,
		dedup:             dedup,
		sourceConcurrency: sc,
		itemConcurrency:   ic,
	}
}

// Run collects and processes every source sequentially.
func (r *Runner) Run(ctx context.Context, collectors []collector.Collector) Stats {
	var stats counters
	for _, c := range collectors {
		entries, ok := r.collect(ctx, c, &stats)
		if !ok {
			continue
		}
		for i := range entries {
			r.processEntry(ctx, entries[i], &stats)
		}
	}
	return stats.snapshot()
}

// RunConcurrent fans sources and items out across worker goroutines.
// Failures are counted, never propagated, so the semantics match Run.
func (r *Runner) RunConcurrent(ctx context.Context, collectors []collector.Collector) Stats {
	var stats counters

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.sourceConcurrency)
	for _, c := range collectors {
		g.Go(func() error {
			entries, ok := r.collect(gctx, c, &stats)
			if !ok {
				return nil
			}
			ig, igctx := errgroup.WithContext(gctx)
			ig.SetLimit(r.itemConcurrency)
			for i := range entries {
				ig.Go(func() error {
					r.processEntry(igctx, entries[i], &stats)
					return nil
				})
			}
			return ig.Wait()
		})
	}
	_ = g.Wait() // workers never return errors

	return stats.snapshot()
}

func (r *Runner) collect(ctx context.Context, c collector.Collector, stats *counters) ([]model.CollectedEntry, bool) {
	entries, err := c.Collect(ctx)
	if err != nil {
		zap.L().Error("source collection failed",
			zap.String("source", c.Name()), zap.Error(err))
		stats.errors.Add(1)
		return nil, false
	}
	stats.collected.Add(int64(len(entries)))
	zap.L().Info("source collected",
		zap.String("source", c.Name()), zap.Int("entries", len(entries)))
	return entries, true
}

func (r *Runner) processEntry(ctx context.Context, e model.CollectedEntry, stats *counters) {
	if err := e.Validate(); err != nil {
		zap.L().Debug("invalid entry skipped", zap.String("link", e.Link), zap.Error(err))
		stats.errors.Add(1)
		return
	}

	if r.dedup != nil {
		dup, err := r.dedup.IsDuplicate(ctx, e.Link)
		if err != nil {
			zap.L().Warn("dedup check failed", zap.String("link", e.Link), zap.Error(err))
			stats.errors.Add(1)
			return
		}
		if dup {
			stats.skipped.Add(1)
			return
		}
	}

	res := r.pipe.Process(ctx, e)
	if res.Dropped {
		zap.L().Debug("entry dropped",
			zap.String("link", e.Link),
			zap.String("stage", res.Stage),
			zap.String("reason", res.Reason))
		stats.dropped.Add(1)
		stats.skipped.Add(1)
		return
	}

	created, err := r.store.Save(ctx, res.Entry)
	if err != nil {
		zap.L().Error("save failed", zap.String("link", e.Link), zap.Error(err))
		stats.errors.Add(1)
		return
	}
	if created {
		stats.created.Add(1)
	} else {
		stats.skipped.Add(1)
	}

	if r.dedup != nil {
		if err := r.dedup.MarkProcessed(ctx, e.Link); err != nil {
			zap.L().Warn("dedup mark failed", zap.String("link", e.Link), zap.Error(err))
		}
	}
}
