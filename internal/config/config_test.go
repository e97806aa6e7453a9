package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Pipeline.MaxSummaryLength)
	assert.True(t, cfg.Pipeline.Quality.Enabled)
	assert.InDelta(t, 0.3, cfg.Pipeline.Quality.MinQualityScore, 0.001)
	assert.Equal(t, 50, cfg.Pipeline.Quality.MinContentLength)
	assert.False(t, cfg.Pipeline.SemDedup.Enabled)
	assert.InDelta(t, 0.85, cfg.Pipeline.SemDedup.SimilarityThreshold, 0.001)
	assert.Equal(t, 1000, cfg.Pipeline.SemDedup.IndexSize)
	assert.True(t, cfg.Pipeline.Verify.Enabled)
	assert.InDelta(t, 0.3, cfg.Pipeline.Verify.MinimumScore, 0.001)
	assert.False(t, cfg.LLM.Enabled)
	assert.Equal(t, []string{"summarization"}, cfg.LLM.Features)
	assert.InDelta(t, 5.0, cfg.Cost.DailyBudget, 0.001)
	assert.InDelta(t, 50.0, cfg.Cost.MonthlyBudget, 0.001)
	assert.Equal(t, 30, cfg.Cache.TTLDays)
	assert.Equal(t, 10, cfg.Run.SourceConcurrency)
	assert.Equal(t, 5, cfg.Run.ItemConcurrency)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/intake
log:
  level: debug
  format: console
server:
  port: 9090
llm:
  enabled: true
  features: [summarization, categorization]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.LLM.Enabled)
	assert.Equal(t, []string{"summarization", "categorization"}, cfg.LLM.Features)
	// Defaults still apply for unset values
	assert.Equal(t, 500, cfg.Pipeline.MaxSummaryLength)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("INTAKE_STORE_DRIVER", "postgres")
	t.Setenv("INTAKE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("INTAKE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "intake.db"
	cfg.Pipeline.MaxSummaryLength = 500
	cfg.Pipeline.Quality.MinQualityScore = 0.3
	cfg.Pipeline.SemDedup.SimilarityThreshold = 0.85
	cfg.Run.SourceConcurrency = 10
	cfg.Run.ItemConcurrency = 5
	cfg.Server.Port = 8080
	cfg.Cost.LedgerPath = "costs.db"
	return cfg
}

func TestValidateRun_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("run"))
}

func TestValidateRun_MissingStorePath(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.SQLitePath = ""

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.sqlite_path is required")
}

func TestValidateRun_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/intake"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateRun_NotionNeedsCredentials(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "notion"

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "notion.token is required")
	assert.Contains(t, err.Error(), "notion.entry_db is required")
}

func TestValidateRun_LLMNeedsKey(t *testing.T) {
	cfg := validDefaults()
	cfg.LLM.Enabled = true

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Run.SourceConcurrency = 0
	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "run.source_concurrency must be between 1 and 50")

	cfg.Run.SourceConcurrency = 51
	err = cfg.Validate("run")
	assert.Error(t, err)

	cfg.Run.SourceConcurrency = 50
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateThresholdBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Pipeline.Quality.MinQualityScore = 1.1
	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "min_quality_score")

	cfg.Pipeline.Quality.MinQualityScore = 0.3
	cfg.Pipeline.SemDedup.SimilarityThreshold = -0.1
	err = cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "similarity_threshold")
}
