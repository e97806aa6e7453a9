package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the configuration is usable for the given
// command mode. Modes: run, serve, export, costs.
func (c *Config) Validate(mode string) error {
	var problems []string

	checkStore := func() {
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.SQLitePath == "" {
				problems = append(problems, "store.sqlite_path is required for the sqlite driver")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres driver")
			}
		case "notion":
			if c.Notion.Token == "" {
				problems = append(problems, "notion.token is required for the notion driver")
			}
			if c.Notion.EntryDB == "" {
				problems = append(problems, "notion.entry_db is required for the notion driver")
			}
		default:
			problems = append(problems, "store.driver must be sqlite, postgres, or notion")
		}
	}

	checkPipeline := func() {
		if c.Pipeline.MaxSummaryLength < 1 {
			problems = append(problems, "pipeline.max_summary_length must be > 0")
		}
		if q := c.Pipeline.Quality.MinQualityScore; q < 0 || q > 1 {
			problems = append(problems, "pipeline.quality.min_quality_score must be in [0,1]")
		}
		if s := c.Pipeline.SemDedup.SimilarityThreshold; s < 0 || s > 1 {
			problems = append(problems, "pipeline.semantic_dedup.similarity_threshold must be in [0,1]")
		}
		if c.Run.SourceConcurrency < 1 || c.Run.SourceConcurrency > 50 {
			problems = append(problems, "run.source_concurrency must be between 1 and 50")
		}
		if c.Run.ItemConcurrency < 1 || c.Run.ItemConcurrency > 50 {
			problems = append(problems, "run.item_concurrency must be between 1 and 50")
		}
		if c.LLM.Enabled && c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required when llm.enabled is true")
		}
		if c.Cost.DailyBudget < 0 || c.Cost.MonthlyBudget < 0 {
			problems = append(problems, "cost budgets must be >= 0")
		}
	}

	switch mode {
	case "run":
		checkStore()
		checkPipeline()
	case "serve":
		checkStore()
		checkPipeline()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "export":
		checkStore()
	case "costs":
		if c.Cost.LedgerPath == "" {
			problems = append(problems, "cost.ledger_path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
