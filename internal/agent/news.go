package agent

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/feeds"
	"github.com/rcliao/life-assistant/internal/model"
)

// DefaultArticles is the default number of stories in a briefing.
const DefaultArticles = 5

// FeedFetcher fetches feed items from a set of sources.
type FeedFetcher interface {
	FetchAll(ctx context.Context, sources []feeds.Source) ([]model.FeedItem, error)
}

// News curates the day's feeds into a briefing and stores its articles.
type News struct {
	*Base
	fetcher FeedFetcher
	sources []feeds.Source
	topK    atomic.Int64
}

func NewNews(d Deps, fetcher FeedFetcher, sources []feeds.Source, topK int) *News {
	n := &News{Base: newBase(NameNews, d), fetcher: fetcher, sources: sources}
	n.SetTopK(topK)
	return n
}

// SetTopK changes how many stories later briefings select.
func (n *News) SetTopK(k int) {
	if k <= 0 {
		k = DefaultArticles
	}
	n.topK.Store(int64(k))
}

func (n *News) TopK() int { return int(n.topK.Load()) }

func (n *News) Collect(ctx context.Context, _ Inputs) (any, error) {
	if len(n.sources) == 0 {
		return nil, fmt.Errorf("%w: no feeds configured", model.ErrCollectionFailed)
	}
	items, err := n.fetcher.FetchAll(ctx, n.sources)
	if err != nil {
		return nil, err
	}
	return feeds.FormatItems(items), nil
}

func (n *News) Process(ctx context.Context, raw any, history string) (string, error) {
	return n.Ask(ctx, newsSystem, fmt.Sprintf(newsPrompt, n.TopK(), historyBlock(history), fmt.Sprint(raw)))
}

// Persist indexes the briefing and upserts its articles for today.
func (n *News) Persist(ctx context.Context, result string) bool {
	ok := n.Base.Persist(ctx, result)
	if _, err := n.SaveArticles(ctx, result); err != nil {
		n.log.Error("persist articles failed", zap.Error(err))
		ok = false
	}
	return ok
}

// SaveArticles parses briefing into article rows dated today.
func (n *News) SaveArticles(ctx context.Context, briefing string) (int, error) {
	articles := ParseArticles(briefing, n.today())
	if len(articles) == 0 || n.deps.Store == nil {
		return 0, nil
	}
	c, err := n.deps.Store.UpsertArticles(ctx, articles)
	if err != nil {
		return 0, fmt.Errorf("%w: upsert articles: %v", model.ErrPersistFailed, err)
	}
	return c, nil
}

func historyBlock(history string) string {
	if history == "" {
		return ""
	}
	return "\n" + history + "\n"
}
