package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.RabbitMQ.Host)

	assert.Equal(t, []string{"en", "fr"}, cfg.Transcript.PreferredLanguages)
	assert.Equal(t, 24*time.Hour, cfg.Transcript.CacheTTL)
	assert.NotEmpty(t, cfg.Transcript.InvidiousInstances)
	assert.True(t, cfg.Transcript.RateLimitEnabled)

	assert.Equal(t, "mistral-small-latest", cfg.LLM.DefaultModel)
	assert.Equal(t, "gpt-4o", cfg.LLM.ComplexModel)
	assert.Equal(t, "sonar", cfg.WebSearch.Model)
}

func TestLoadPlanDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	free := cfg.PlanFor("free")
	assert.Equal(t, 10, free.ChatDailyLimit)
	assert.Equal(t, 5, free.ChatPerVideoLimit)
	assert.False(t, free.WebSearchEnabled)

	pro := cfg.PlanFor("pro")
	assert.Equal(t, 300, pro.ChatDailyLimit)
	assert.True(t, pro.WebSearchEnabled)
	assert.Equal(t, "gpt-4o", pro.DefaultModel)

	unlimited := cfg.PlanFor("unlimited")
	assert.Equal(t, -1, unlimited.ChatDailyLimit)
	assert.Equal(t, -1, unlimited.WebSearchMonthly)
}

func TestPlanForFallsBackToFree(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	unknown := cfg.PlanFor("platinum")
	assert.Equal(t, cfg.Plans["free"], unknown)

	// Lookup is case-insensitive.
	assert.Equal(t, cfg.Plans["pro"], cfg.PlanFor("PRO"))
}

func TestLoadFromEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_DATABASE_URL", "postgres://app:secret@db:5432/vidsage")
	t.Setenv("APP_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://app:secret@db:5432/vidsage", cfg.Database.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	content := []byte(`
server:
  port: 7070
redis:
  url: redis://localhost:6379/1
transcript:
  preferredlanguages:
    - de
    - en
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
	assert.Equal(t, []string{"de", "en"}, cfg.Transcript.PreferredLanguages)
	// Untouched sections keep their defaults.
	assert.Equal(t, "mistral-small-latest", cfg.LLM.DefaultModel)
}
