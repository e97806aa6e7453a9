// Package pipeline runs collected entries through an ordered sequence of
// stateless processing stages.
package pipeline

import (
	"context"

	"github.com/sells-group/intake-cli/internal/model"
)

// Outcome is a stage's verdict on an entry. The zero value continues
// processing; a drop terminates the pipeline for this entry.
type Outcome struct {
	Drop   bool
	Reason string
}

// Continue lets the entry proceed to the next stage.
func Continue() Outcome { return Outcome{} }

// DropEntry terminates processing with the given reason.
func DropEntry(reason string) Outcome {
	return Outcome{Drop: true, Reason: reason}
}

// Stage is one processing step. Stages mutate only their own field group
// on the entry and keep no per-entry state, so a single stage instance is
// safe for concurrent entries.
//
// A returned error signals an unexpected fault, not a verdict; the
// composer logs it and passes the entry on unchanged (fail-open).
// Expected negative verdicts are expressed with DropEntry.
type Stage interface {
	Name() string
	Enabled() bool
	Process(ctx context.Context, e *model.ProcessedEntry, pc *Context) (Outcome, error)
}
