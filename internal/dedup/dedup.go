// Package dedup decides whether an entry URL has already been handled,
// combining the fast local cache with the authoritative store.
package dedup

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// URLCache is the seen-URL side of the cache.
type URLCache interface {
	SeenURL(ctx context.Context, url string) (bool, error)
	MarkURL(ctx context.Context, url string) error
}

// ExistenceChecker is the store-side duplicate lookup.
type ExistenceChecker interface {
	Exists(ctx context.Context, link string) (bool, error)
}

// Deduplicator checks the cache first and falls back to the store. A
// store hit backfills the cache so the next run short-circuits.
type Deduplicator struct {
	cache URLCache
	store ExistenceChecker
}

// New creates a Deduplicator. Either collaborator may be nil; a nil
// cache disables the fast path, a nil store disables the authoritative
// check.
func New(cache URLCache, store ExistenceChecker) *Deduplicator {
	return &Deduplicator{cache: cache, store: store}
}

// IsDuplicate reports whether link was already processed. Cache errors
// degrade to a store lookup rather than failing the entry.
func (d *Deduplicator) IsDuplicate(ctx context.Context, link string) (bool, error) {
	if d.cache != nil {
		seen, err := d.cache.SeenURL(ctx, link)
		if err != nil {
			zap.L().Warn("dedup cache lookup failed", zap.String("link", link), zap.Error(err))
		} else if seen {
			return true, nil
		}
	}

	if d.store == nil {
		return false, nil
	}
	exists, err := d.store.Exists(ctx, link)
	if err != nil {
		return false, eris.Wrap(err, "dedup: store lookup")
	}
	if exists && d.cache != nil {
		if err := d.cache.MarkURL(ctx, link); err != nil {
			zap.L().Warn("dedup cache backfill failed", zap.String("link", link), zap.Error(err))
		}
	}
	return exists, nil
}

// MarkProcessed records link in the cache only; the store learns about
// the entry through its own Save.
func (d *Deduplicator) MarkProcessed(ctx context.Context, link string) error {
	if d.cache == nil {
		return nil
	}
	return d.cache.MarkURL(ctx, link)
}
