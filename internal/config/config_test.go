package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/life-assistant/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(homeEnv, t.TempDir())

	cfg, _, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "glm", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 5, cfg.News.ArticlesPerSummary)
	assert.Equal(t, 4*time.Hour, cfg.News.RefreshAfter)
	assert.Equal(t, 10, cfg.Window.MaxMessages)
	assert.Equal(t, 6000, cfg.Context.TokenBudget)
	assert.Equal(t, "keyword", cfg.Memory.Backend)
	assert.Equal(t, DefaultFeeds, cfg.News.Feeds)
	assert.Empty(t, cfg.File)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(homeEnv, dir)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[llm]
provider = "anthropic"
api_key = "from-file"

[window]
max_messages = 3

[[news.feeds]]
name = "Local"
url = "http://example.test/rss"
`), 0o600))
	t.Setenv("LIFE_LLM_API_KEY", "from-env")

	cfg, _, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, 3, cfg.Window.MaxMessages)
	assert.Equal(t, []Feed{{Name: "Local", URL: "http://example.test/rss"}}, cfg.News.Feeds)
	assert.NoError(t, cfg.RequireLLM())
}

func TestValidate(t *testing.T) {
	t.Setenv(homeEnv, t.TempDir())
	t.Setenv("LIFE_WEATHER_PROVIDER", "nope")

	_, _, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "weather.provider")
}

func TestRequireLLM(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.RequireLLM(), model.ErrConfigInvalid)
}

func TestModelFor(t *testing.T) {
	cfg := &Config{LLM: LLM{Model: "glm-4-flash"}}
	assert.Equal(t, "glm-4-flash", cfg.ModelFor(true))

	cfg.LLM.MainModel = "glm-4-plus"
	cfg.LLM.LightweightModel = "glm-4-air"
	assert.Equal(t, "glm-4-plus", cfg.ModelFor(false))
	assert.Equal(t, "glm-4-air", cfg.ModelFor(true))
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(homeEnv, dir)
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, WriteDefault(path, false))
	assert.Error(t, WriteDefault(path, false), "existing file must not be overwritten")
	require.NoError(t, WriteDefault(path, true))

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "glm", cfg.LLM.Provider)
	assert.Equal(t, 50*time.Millisecond, cfg.Server.ChunkDelay)
	assert.Len(t, cfg.News.Feeds, len(DefaultFeeds))
}
