// Package store persists processed entries behind a driver-neutral
// interface with SQLite, Postgres, and Notion backends.
package store

import (
	"context"

	"github.com/sells-group/intake-cli/internal/model"
)

// EntryFilter specifies criteria for listing stored entries.
type EntryFilter struct {
	Priority model.Priority `json:"priority,omitempty"`
	Topic    string         `json:"topic,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
}

const defaultListLimit = 100

// Store defines the persistence interface for processed entries.
type Store interface {
	// Save persists the entry, keyed by link. It returns created=false
	// with a nil error when an entry with the same link already exists;
	// the stored entry is left untouched.
	Save(ctx context.Context, e *model.ProcessedEntry) (created bool, err error)

	// Exists reports whether an entry with the given link is stored.
	Exists(ctx context.Context, link string) (bool, error)

	// List returns stored entries matching the filter, newest first.
	List(ctx context.Context, filter EntryFilter) ([]model.ProcessedEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
