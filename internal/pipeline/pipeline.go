package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
)

// Result is the pipeline's verdict on one entry. Entry is always
// populated, even for drops, so callers can inspect partial state.
type Result struct {
	Entry   *model.ProcessedEntry
	Dropped bool
	Stage   string
	Reason  string
}

// Pipeline runs entries through its stages in order. Disabled stages
// are filtered out at construction, so Process never re-checks them.
type Pipeline struct {
	stages []Stage
	pc     *Context
}

// New builds a pipeline from the enabled subset of stages.
func New(pc *Context, stages ...Stage) *Pipeline {
	enabled := make([]Stage, 0, len(stages))
	for _, st := range stages {
		if st.Enabled() {
			enabled = append(enabled, st)
		}
	}
	return &Pipeline{stages: enabled, pc: pc}
}

// DefaultStages returns the standard stage order.
func DefaultStages(pc *Context) []Stage {
	cfg := pc.Cfg
	return []Stage{
		NewCleanStage(cfg.Pipeline.MaxSummaryLength),
		NewQualityStage(cfg.Pipeline.Quality),
		NewSemDedupStage(cfg.Pipeline.SemDedup),
		NewVerifyStage(cfg.Pipeline.Verify),
		NewKeywordStage(),
		NewKnowledgeStage(),
		NewRankStage(),
		NewLLMStage(cfg.LLM, cfg.Anthropic.Model, cfg.Pipeline.MaxSummaryLength),
	}
}

// Stages lists the enabled stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, st := range p.stages {
		names[i] = st.Name()
	}
	return names
}

// Process runs one collected entry through every enabled stage. A stage
// error or panic is logged and processing continues with the entry
// unchanged; only an explicit drop terminates early.
func (p *Pipeline) Process(ctx context.Context, in model.CollectedEntry) Result {
	e := model.FromCollected(in)
	log := zap.L().With(zap.String("link", e.Link))

	for _, st := range p.stages {
		start := time.Now()
		outcome, err := p.runStage(ctx, st, e)
		elapsed := time.Since(start)

		if err != nil {
			log.Warn("stage failed, continuing",
				zap.String("stage", st.Name()),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
			continue
		}
		if outcome.Drop {
			log.Debug("entry dropped",
				zap.String("stage", st.Name()),
				zap.String("reason", outcome.Reason),
			)
			return Result{Entry: e, Dropped: true, Stage: st.Name(), Reason: outcome.Reason}
		}
		log.Debug("stage complete",
			zap.String("stage", st.Name()),
			zap.Duration("elapsed", elapsed),
		)
	}
	return Result{Entry: e}
}

// runStage isolates one stage call, converting a panic into an error so
// a buggy stage cannot kill the run.
func (p *Pipeline) runStage(ctx context.Context, st Stage, e *model.ProcessedEntry) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Continue()
			err = panicError(st.Name(), r)
		}
	}()
	return st.Process(ctx, e, p.pc)
}

func panicError(stage string, r any) error {
	return eris.Errorf("pipeline: stage %s panicked: %v", stage, r)
}
