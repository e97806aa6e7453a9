package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/intake-cli/internal/cost"
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Show LLM spend against the daily and monthly budgets",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("costs"); err != nil {
			return err
		}

		tracker, err := cost.NewTracker(cfg.Cost.LedgerPath, cfg.Cost.DailyBudget, cfg.Cost.MonthlyBudget)
		if err != nil {
			return eris.Wrap(err, "open cost ledger")
		}
		defer tracker.Close()

		summary, err := tracker.Summarize()
		if err != nil {
			return eris.Wrap(err, "summarize costs")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	rootCmd.AddCommand(costsCmd)
}
