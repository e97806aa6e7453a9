package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Collect   CollectConfig   `yaml:"collect" mapstructure:"collect"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Cost      CostConfig      `yaml:"cost" mapstructure:"cost"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Run       RunConfig       `yaml:"run" mapstructure:"run"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the workspace store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, notion
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// NotionConfig holds Notion API credentials and the target database.
type NotionConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	EntryDB string `yaml:"entry_db" mapstructure:"entry_db"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// CollectConfig configures the collectors.
type CollectConfig struct {
	SourcesFile string `yaml:"sources_file" mapstructure:"sources_file"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int    `yaml:"retries" mapstructure:"retries"`
}

// PipelineConfig configures the processing stages.
type PipelineConfig struct {
	RulesFile        string         `yaml:"rules_file" mapstructure:"rules_file"`
	MaxSummaryLength int            `yaml:"max_summary_length" mapstructure:"max_summary_length"`
	Quality          QualityConfig  `yaml:"quality" mapstructure:"quality"`
	SemDedup         SemDedupConfig `yaml:"semantic_dedup" mapstructure:"semantic_dedup"`
	Verify           VerifyConfig   `yaml:"verify" mapstructure:"verify"`
}

// QualityConfig configures the quality assessment stage.
type QualityConfig struct {
	Enabled          bool    `yaml:"enabled" mapstructure:"enabled"`
	MinQualityScore  float64 `yaml:"min_quality_score" mapstructure:"min_quality_score"`
	MinContentLength int     `yaml:"min_content_length" mapstructure:"min_content_length"`
}

// SemDedupConfig configures the semantic deduplication stage.
type SemDedupConfig struct {
	Enabled             bool    `yaml:"enabled" mapstructure:"enabled"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	IndexSize           int     `yaml:"index_size" mapstructure:"index_size"`
}

// VerifyConfig configures the source verification stage.
type VerifyConfig struct {
	Enabled      bool    `yaml:"enabled" mapstructure:"enabled"`
	MinimumScore float64 `yaml:"minimum_score" mapstructure:"minimum_score"`
	CrossVerify  bool    `yaml:"cross_verify" mapstructure:"cross_verify"`
	LLMFactCheck bool    `yaml:"llm_fact_check" mapstructure:"llm_fact_check"`
}

// LLMConfig configures the enrichment stage.
type LLMConfig struct {
	Enabled         bool     `yaml:"enabled" mapstructure:"enabled"`
	Features        []string `yaml:"features" mapstructure:"features"` // summarization, translation, categorization
	TargetLanguages []string `yaml:"target_languages" mapstructure:"target_languages"`
	MaxTokens       int      `yaml:"max_tokens" mapstructure:"max_tokens"`
	RatePerSec      float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// CostConfig holds the LLM budget caps in USD.
type CostConfig struct {
	DailyBudget   float64 `yaml:"daily_budget" mapstructure:"daily_budget"`
	MonthlyBudget float64 `yaml:"monthly_budget" mapstructure:"monthly_budget"`
	LedgerPath    string  `yaml:"ledger_path" mapstructure:"ledger_path"`
}

// CacheConfig configures the seen-URL and LLM result caches.
type CacheConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`
	TTLDays int    `yaml:"ttl_days" mapstructure:"ttl_days"`
}

// RunConfig configures the run loop.
type RunConfig struct {
	SourceConcurrency int `yaml:"source_concurrency" mapstructure:"source_concurrency"`
	ItemConcurrency   int `yaml:"item_concurrency" mapstructure:"item_concurrency"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// Environment
	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "intake.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("collect.sources_file", "configs/sources.yaml")
	v.SetDefault("collect.timeout_secs", 30)
	v.SetDefault("collect.retries", 2)
	v.SetDefault("pipeline.rules_file", "configs/rules.yaml")
	v.SetDefault("pipeline.max_summary_length", 500)
	v.SetDefault("pipeline.quality.enabled", true)
	v.SetDefault("pipeline.quality.min_quality_score", 0.3)
	v.SetDefault("pipeline.quality.min_content_length", 50)
	v.SetDefault("pipeline.semantic_dedup.enabled", false)
	v.SetDefault("pipeline.semantic_dedup.similarity_threshold", 0.85)
	v.SetDefault("pipeline.semantic_dedup.index_size", 1000)
	v.SetDefault("pipeline.verify.enabled", true)
	v.SetDefault("pipeline.verify.minimum_score", 0.3)
	v.SetDefault("pipeline.verify.cross_verify", false)
	v.SetDefault("pipeline.verify.llm_fact_check", false)
	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.features", []string{"summarization"})
	v.SetDefault("llm.target_languages", []string{})
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.rate_per_sec", 2.0)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("cost.daily_budget", 5.0)
	v.SetDefault("cost.monthly_budget", 50.0)
	v.SetDefault("cost.ledger_path", "costs.db")
	v.SetDefault("cache.path", "cache.db")
	v.SetDefault("cache.ttl_days", 30)
	v.SetDefault("run.source_concurrency", 10)
	v.SetDefault("run.item_concurrency", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
