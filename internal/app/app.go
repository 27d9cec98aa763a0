// Package app wires configuration into the long-lived collaborators of the
// assistant and builds a fresh ChiefOfStaff per invocation.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/agent"
	"github.com/rcliao/life-assistant/internal/chief"
	"github.com/rcliao/life-assistant/internal/config"
	"github.com/rcliao/life-assistant/internal/embedding"
	"github.com/rcliao/life-assistant/internal/feeds"
	"github.com/rcliao/life-assistant/internal/llm"
	"github.com/rcliao/life-assistant/internal/memory"
	"github.com/rcliao/life-assistant/internal/store"
)

// Options overrides collaborators that would otherwise be built from config.
type Options struct {
	LLM     llm.Client
	Fetcher agent.FeedFetcher
	Weather feeds.WeatherProvider
	Now     func() time.Time
	// RequireLLM fails Open when no LLM client can be built.
	RequireLLM bool
}

// Runtime holds the collaborators shared by every run. Per-run state (bus,
// window, chief) is created by NewChief.
type Runtime struct {
	Store      *store.SQLiteStore
	LLM        llm.Client
	Memory     *memory.SemanticMemory
	Summarizer *memory.Summarizer
	Fetcher    agent.FeedFetcher
	Weather    feeds.WeatherProvider
	Logger     *zap.Logger
	Now        func() time.Time

	mu  sync.RWMutex
	cfg *config.Config
}

// Open builds a runtime from cfg. The LLM client is optional unless
// opts.RequireLLM is set, so memory-only commands work without credentials.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	client := opts.LLM
	if client == nil {
		c, err := llm.NewFromConfig(cfg)
		if err != nil && opts.RequireLLM {
			return nil, err
		}
		client = c
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s, err := store.NewSQLiteStore(cfg.Store.Path, store.WithClock(opts.Now))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var retriever memory.Retriever
	emb, err := embedding.New(ctx, embedding.Settings{
		Backend: cfg.Memory.Backend,
		Model:   cfg.Memory.EmbedModel,
		BaseURL: cfg.Memory.EmbedURL,
		APIKey:  cfg.Memory.EmbedAPIKey,
	})
	if err != nil {
		logger.Warn("embedding backend unavailable, using keyword retrieval", zap.String("backend", cfg.Memory.Backend), zap.Error(err))
	} else if emb != nil {
		retriever = embedding.NewRetriever(emb, s)
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = feeds.NewRSSFetcher(0, cfg.News.EntriesPerFeed, logger)
	}
	weather := opts.Weather
	if weather == nil {
		weather, err = feeds.NewWeatherProvider(feeds.WeatherSettings{
			Provider: cfg.Weather.Provider,
			APIKey:   cfg.Weather.APIKey,
			BaseURL:  cfg.Weather.BaseURL,
			Timeout:  cfg.Weather.Timeout,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	return &Runtime{
		Store:      s,
		LLM:        client,
		Memory:     memory.NewSemanticMemory(s, retriever, cfg.Memory.SearchLimit),
		Summarizer: memory.NewSummarizer(client, s, logger),
		Fetcher:    fetcher,
		Weather:    weather,
		Logger:     logger,
		Now:        opts.Now,
		cfg:        cfg,
	}, nil
}

// Config returns the current configuration.
func (r *Runtime) Config() *config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Apply swaps in a reloaded configuration. It affects runs started afterwards.
func (r *Runtime) Apply(cfg *config.Config) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

// RequireLLM reports why LLM-backed operations cannot run, or nil.
func (r *Runtime) RequireLLM() error {
	if r.LLM != nil {
		return nil
	}
	return r.Config().RequireLLM()
}

// NewWindow returns an empty window sized by configuration.
func (r *Runtime) NewWindow() *memory.SlidingWindow {
	return memory.NewSlidingWindow(r.Config().Window.MaxMessages)
}

// Orchestrator returns a context orchestrator using the configured budget.
func (r *Runtime) Orchestrator() *memory.Orchestrator {
	return memory.NewOrchestrator(r.Memory, r.Store, r.Config().Context.TokenBudget, r.Logger)
}

// Deps returns agent collaborators bound to window.
func (r *Runtime) Deps(window *memory.SlidingWindow) agent.Deps {
	return agent.Deps{
		LLM:          r.LLM,
		Store:        r.Store,
		Memory:       r.Memory,
		Orchestrator: r.Orchestrator(),
		Window:       window,
		Logger:       r.Logger,
		Now:          r.Now,
	}
}

// Sources returns the configured feeds.
func (r *Runtime) Sources() []feeds.Source {
	cfg := r.Config()
	out := make([]feeds.Source, 0, len(cfg.News.Feeds))
	for _, f := range cfg.News.Feeds {
		out = append(out, feeds.Source{Name: f.Name, URL: f.URL})
	}
	return out
}

// NewChief builds a ChiefOfStaff with its own bus over window.
func (r *Runtime) NewChief(window *memory.SlidingWindow, opts ...chief.Option) *chief.ChiefOfStaff {
	cfg := r.Config()
	d := r.Deps(window)
	agents := chief.Agents{
		News:   agent.NewNews(d, r.Fetcher, r.Sources(), cfg.News.ArticlesPerSummary),
		Outfit: agent.NewOutfit(d, r.Weather, cfg.Weather.Location, func() string { return r.Config().Preferences }),
		Life:   agent.NewLife(d),
		Work:   agent.NewWork(d),
		Review: agent.NewReview(d),
	}
	opts = append([]chief.Option{chief.WithSummarizer(r.Summarizer)}, opts...)
	return chief.New(agents, window, r.Logger, opts...)
}

// Close releases the store.
func (r *Runtime) Close() error {
	return r.Store.Close()
}
