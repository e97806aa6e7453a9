package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/cost"
	"github.com/sells-group/intake-cli/internal/runner"
)

var runConcurrent bool

// runSummary is the JSON report printed after a pass.
type runSummary struct {
	runner.Stats
	Costs *cost.Summary `json:"costs,omitempty"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect all sources and process new entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var stats runner.Stats
		if runConcurrent {
			stats = env.Runner.RunConcurrent(ctx, env.Collectors)
		} else {
			stats = env.Runner.Run(ctx, env.Collectors)
		}

		if err := env.Cache.Prune(ctx); err != nil {
			zap.L().Warn("cache prune failed", zap.Error(err))
		}

		zap.L().Info("intake pass complete",
			zap.Int64("collected", stats.Collected),
			zap.Int64("created", stats.Created),
			zap.Int64("skipped", stats.Skipped),
			zap.Int64("dropped", stats.Dropped),
			zap.Int64("errors", stats.Errors),
		)

		summary := runSummary{Stats: stats}
		if costs, err := env.Tracker.Summarize(); err != nil {
			zap.L().Warn("cost summary unavailable", zap.Error(err))
		} else {
			summary.Costs = &costs
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runConcurrent, "concurrent", false, "fan sources and entries out across workers")
	rootCmd.AddCommand(runCmd)
}
