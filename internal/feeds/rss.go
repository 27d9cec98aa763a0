// Package feeds fetches the external inputs agents collect: news feeds and
// current weather.
package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/life-assistant/internal/model"
)

const (
	// DefaultEntriesPerFeed bounds the items taken from each feed.
	DefaultEntriesPerFeed = 10

	maxFeedBytes   = 4 << 20
	maxSummaryLen  = 300
	feedConcurrent = 4
)

// Source is a named feed URL.
type Source struct {
	Name string
	URL  string
}

// RSSFetcher downloads and parses feeds.
type RSSFetcher struct {
	client  *http.Client
	limit   int
	logger  *zap.Logger
	agentUA string
}

func NewRSSFetcher(timeout time.Duration, perFeed int, logger *zap.Logger) *RSSFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if perFeed <= 0 {
		perFeed = DefaultEntriesPerFeed
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RSSFetcher{
		client:  &http.Client{Timeout: timeout},
		limit:   perFeed,
		logger:  logger,
		agentUA: "life-assistant/1.0",
	}
}

// FetchAll fetches every source concurrently and returns items grouped in
// source order. Sources that fail are logged and skipped; the call fails
// with model.ErrCollectionFailed only when no source yields items.
func (f *RSSFetcher) FetchAll(ctx context.Context, sources []Source) ([]model.FeedItem, error) {
	results := make([][]model.FeedItem, len(sources))
	var mu sync.Mutex
	var errs []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(feedConcurrent)
	for i, src := range sources {
		g.Go(func() error {
			items, err := f.Fetch(gctx, src)
			if err != nil {
				f.logger.Warn("feed fetch failed", zap.String("feed", src.Name), zap.Error(err))
				mu.Lock()
				errs = append(errs, src.Name)
				mu.Unlock()
				return nil
			}
			results[i] = items
			return nil
		})
	}
	g.Wait()

	var all []model.FeedItem
	for _, items := range results {
		all = append(all, items...)
	}
	if len(all) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrCollectionFailed, err)
		}
		return nil, fmt.Errorf("%w: no feed items (failed: %s)", model.ErrCollectionFailed, strings.Join(errs, ", "))
	}
	return all, nil
}

// Fetch downloads one feed and returns up to the per-feed limit of items.
func (f *RSSFetcher) Fetch(ctx context.Context, src Source) ([]model.FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCollectionFailed, err)
	}
	req.Header.Set("User-Agent", f.agentUA)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrCollectionFailed, src.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", model.ErrCollectionFailed, src.Name, resp.StatusCode)
	}

	items, err := ParseFeed(io.LimitReader(resp.Body, maxFeedBytes), src.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrCollectionFailed, src.Name, err)
	}
	if len(items) > f.limit {
		items = items[:f.limit]
	}
	return items, nil
}

// ParseFeed parses RSS, Atom or JSON Feed. Non-UTF-8 documents are decoded
// from their declared charset.
func ParseFeed(r io.Reader, source string) ([]model.FeedItem, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var out []model.FeedItem
	for _, it := range feed.Items {
		title := clean(it.Title)
		if title == "" {
			continue
		}
		link := it.Link
		if link == "" && len(it.Links) > 0 {
			link = it.Links[0]
		}
		summary := it.Description
		if summary == "" {
			summary = it.Content
		}
		published := it.Published
		if published == "" {
			published = it.Updated
		}
		out = append(out, model.FeedItem{
			Source:    source,
			Title:     title,
			Link:      strings.TrimSpace(link),
			Summary:   truncate(StripHTML(summary), maxSummaryLen),
			Published: strings.TrimSpace(published),
		})
	}
	return out, nil
}

// FormatItems renders items as the Source / Title / Link blocks the news
// curator prompt consumes.
func FormatItems(items []model.FeedItem) string {
	var sb strings.Builder
	for i, it := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Source: %s\nTitle: %s\nLink: %s\n", it.Source, it.Title, it.Link)
		if it.Summary != "" {
			fmt.Fprintf(&sb, "Summary: %s\n", it.Summary)
		}
	}
	return sb.String()
}

// StripHTML returns the text content of an HTML fragment with whitespace collapsed.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return clean(s)
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return clean(sb.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br", "p", "div", "li":
				sb.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if n := string(name); (n == "script" || n == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
