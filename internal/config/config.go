// Package config loads assistant configuration from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/rcliao/life-assistant/internal/model"
)

const (
	configName = "config"
	envPrefix  = "LIFE"
	homeEnv    = "LIFE_ASSISTANT_HOME"
	homeDir    = ".life-assistant"
)

// Feed is a named RSS or Atom source.
type Feed struct {
	Name string `mapstructure:"name" toml:"name"`
	URL  string `mapstructure:"url" toml:"url"`
}

type LLM struct {
	Provider         string        `mapstructure:"provider" toml:"provider"`
	APIKey           string        `mapstructure:"api_key" toml:"api_key"`
	Model            string        `mapstructure:"model" toml:"model"`
	BaseURL          string        `mapstructure:"base_url" toml:"base_url,omitempty"`
	MainModel        string        `mapstructure:"main_model" toml:"main_model,omitempty"`
	LightweightModel string        `mapstructure:"lightweight_model" toml:"lightweight_model,omitempty"`
	Timeout          time.Duration `mapstructure:"timeout" toml:"timeout"`
	MaxTokens        int           `mapstructure:"max_tokens" toml:"max_tokens"`
	Temperature      float64       `mapstructure:"temperature" toml:"temperature"`
}

type News struct {
	ArticlesPerSummary int           `mapstructure:"articles_per_summary" toml:"articles_per_summary"`
	EntriesPerFeed     int           `mapstructure:"entries_per_feed" toml:"entries_per_feed"`
	RefreshAfter       time.Duration `mapstructure:"refresh_after" toml:"refresh_after"`
	Feeds              []Feed        `mapstructure:"feeds" toml:"feeds"`
}

type Weather struct {
	Provider string        `mapstructure:"provider" toml:"provider"`
	APIKey   string        `mapstructure:"api_key" toml:"api_key"`
	Location string        `mapstructure:"location" toml:"location"`
	BaseURL  string        `mapstructure:"base_url" toml:"base_url,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" toml:"timeout"`
}

type Window struct {
	MaxMessages int `mapstructure:"max_messages" toml:"max_messages"`
}

type Context struct {
	TokenBudget int `mapstructure:"token_budget" toml:"token_budget"`
	HistoryDays int `mapstructure:"history_days" toml:"history_days"`
}

type Memory struct {
	SearchLimit int    `mapstructure:"search_limit" toml:"search_limit"`
	Backend     string `mapstructure:"backend" toml:"backend"`
	EmbedModel  string `mapstructure:"embed_model" toml:"embed_model,omitempty"`
	EmbedURL    string `mapstructure:"embed_url" toml:"embed_url,omitempty"`
	EmbedAPIKey string `mapstructure:"embed_api_key" toml:"embed_api_key,omitempty"`
}

type Store struct {
	Path string `mapstructure:"path" toml:"path"`
}

type Server struct {
	Addr       string        `mapstructure:"addr" toml:"addr"`
	ChunkSize  int           `mapstructure:"chunk_size" toml:"chunk_size"`
	ChunkDelay time.Duration `mapstructure:"chunk_delay" toml:"chunk_delay"`
}

type Logging struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
}

// Config holds all assistant configuration.
type Config struct {
	LLM         LLM     `mapstructure:"llm" toml:"llm"`
	News        News    `mapstructure:"news" toml:"news"`
	Weather     Weather `mapstructure:"weather" toml:"weather"`
	Window      Window  `mapstructure:"window" toml:"window"`
	Context     Context `mapstructure:"context" toml:"context"`
	Memory      Memory  `mapstructure:"memory" toml:"memory"`
	Store       Store   `mapstructure:"store" toml:"store"`
	Server      Server  `mapstructure:"server" toml:"server"`
	Logging     Logging `mapstructure:"logging" toml:"logging"`
	Preferences string  `mapstructure:"preferences" toml:"preferences"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" toml:"-"`
}

var (
	validLLMProviders     = map[string]bool{"glm": true, "anthropic": true, "claude": true}
	validWeatherProviders = map[string]bool{"qweather": true, "seniverse": true, "openweathermap": true}
	validBackends         = map[string]bool{"keyword": true, "ollama": true, "openai": true, "genai": true}
)

// DefaultFeeds are used when no feeds are configured.
var DefaultFeeds = []Feed{
	{Name: "Hacker News", URL: "https://hnrss.org/frontpage"},
	{Name: "MIT Technology Review", URL: "https://www.technologyreview.com/feed/"},
	{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml"},
	{Name: "BBC World", URL: "https://feeds.bbci.co.uk/news/world/rss.xml"},
}

// Dir returns the assistant home directory.
func Dir() string {
	if env := os.Getenv(homeEnv); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, homeDir)
}

// Defaults registers default values on v.
func Defaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "glm")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("news.articles_per_summary", 5)
	v.SetDefault("news.entries_per_feed", 10)
	v.SetDefault("news.refresh_after", 4*time.Hour)
	v.SetDefault("weather.provider", "openweathermap")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.location", "Beijing")
	v.SetDefault("weather.timeout", 10*time.Second)
	v.SetDefault("window.max_messages", 10)
	v.SetDefault("context.token_budget", 6000)
	v.SetDefault("context.history_days", 7)
	v.SetDefault("memory.search_limit", 5)
	v.SetDefault("memory.backend", "keyword")
	v.SetDefault("memory.embed_api_key", "")
	v.SetDefault("store.path", filepath.Join(Dir(), "assistant.db"))
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.chunk_size", 5)
	v.SetDefault("server.chunk_delay", 50*time.Millisecond)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("preferences", "Comfortable, minimalist smart-casual; neutral colours; prefers breathable fabrics.")
}

// New returns a viper instance wired with defaults, search paths and env overrides.
// An explicit file path takes precedence over the search paths.
func New(file string) *viper.Viper {
	v := viper.New()
	Defaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration. A missing config file is not an error.
func Load(file string) (*Config, *viper.Viper, error) {
	v := New(file)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(file != "" && os.IsNotExist(err)) {
			return nil, nil, fmt.Errorf("read config file: %w", err)
		}
	}
	cfg, err := Decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", model.ErrConfigInvalid, err)
	}
	cfg.File = v.ConfigFileUsed()
	if len(cfg.News.Feeds) == 0 {
		cfg.News.Feeds = append([]Feed(nil), DefaultFeeds...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural constraints. Credentials are checked by RequireLLM.
func (c *Config) Validate() error {
	var problems []string
	if !validLLMProviders[c.LLM.Provider] {
		problems = append(problems, fmt.Sprintf("llm.provider %q not one of glm, anthropic, claude", c.LLM.Provider))
	}
	if !validWeatherProviders[c.Weather.Provider] {
		problems = append(problems, fmt.Sprintf("weather.provider %q not one of qweather, seniverse, openweathermap", c.Weather.Provider))
	}
	if !validBackends[c.Memory.Backend] {
		problems = append(problems, fmt.Sprintf("memory.backend %q not one of keyword, ollama, openai, genai", c.Memory.Backend))
	}
	if c.News.ArticlesPerSummary <= 0 {
		problems = append(problems, "news.articles_per_summary must be positive")
	}
	if c.Window.MaxMessages <= 0 {
		problems = append(problems, "window.max_messages must be positive")
	}
	if c.Context.TokenBudget <= 0 {
		problems = append(problems, "context.token_budget must be positive")
	}
	for _, f := range c.News.Feeds {
		if f.URL == "" {
			problems = append(problems, fmt.Sprintf("news feed %q has no url", f.Name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", model.ErrConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// RequireLLM reports whether LLM credentials are present.
func (c *Config) RequireLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("%w: llm.api_key is required (or set %s_LLM_API_KEY)", model.ErrConfigInvalid, envPrefix)
	}
	return nil
}

// ModelFor picks the lightweight model for cheap calls when configured.
func (c *Config) ModelFor(lightweight bool) string {
	if lightweight && c.LLM.LightweightModel != "" {
		return c.LLM.LightweightModel
	}
	if c.LLM.MainModel != "" {
		return c.LLM.MainModel
	}
	return c.LLM.Model
}

// WriteDefault writes the default configuration as TOML to path.
// An existing file is left untouched unless overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	v := viper.New()
	Defaults(v)
	cfg, err := Decode(v)
	if err != nil {
		return err
	}
	b, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, b, 0o600)
}

// Watch re-decodes the config whenever the file changes and hands the
// result to onChange. Invalid edits are reported through onError.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Decode(v)
		if err != nil {
			onError(err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
