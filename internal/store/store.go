// Package store provides the assistant's persistent storage and its SQLite implementation.
package store

import (
	"context"
	"time"

	"github.com/rcliao/life-assistant/internal/model"
)

// SummaryParams holds parameters for creating a daily summary.
type SummaryParams struct {
	AgentType      string
	SummaryDate    string // YYYY-MM-DD; defaults to today
	ContentSummary string
	KeyDecisions   string
	ActionItems    string
}

// SummaryRangeParams holds parameters for listing summaries in a date window.
type SummaryRangeParams struct {
	AgentType string
	Start     string // inclusive, YYYY-MM-DD
	End       string // inclusive, YYYY-MM-DD
	Limit     int
}

// AddMemoryParams holds parameters for storing a semantic memory.
type AddMemoryParams struct {
	AgentType string
	Category  string
	Content   string
	Metadata  string
}

// ListMemoriesParams holds parameters for listing semantic memories.
type ListMemoriesParams struct {
	AgentType string
	Category  string
	Limit     int
}

// Store defines the assistant storage interface.
type Store interface {
	// CreateSummary persists a new daily summary. Summaries are never updated.
	CreateSummary(ctx context.Context, p SummaryParams) (*model.DailySummary, error)

	// LatestSummary returns the most recent summary for an agent type,
	// or model.ErrNotFound.
	LatestSummary(ctx context.Context, agentType string) (*model.DailySummary, error)

	// SummaryRange returns summaries in [Start, End], oldest first.
	SummaryRange(ctx context.Context, p SummaryRangeParams) ([]model.DailySummary, error)

	// AddMemory appends a semantic memory. Identical content in the same
	// agent type and category returns the existing entry.
	AddMemory(ctx context.Context, p AddMemoryParams) (*model.MemoryEntry, error)

	// ListMemories lists semantic memories, newest first.
	ListMemories(ctx context.Context, p ListMemoriesParams) ([]model.MemoryEntry, error)

	// SearchMemories performs scored keyword retrieval.
	SearchMemories(ctx context.Context, p SearchParams) ([]model.ScoredMemory, error)

	// PutContent writes the content index row for (agent type, date).
	PutContent(ctx context.Context, e model.ContentIndexEntry) (*model.ContentIndexEntry, error)

	// GetContent reads the content index row for (agent type, date), or model.ErrNotFound.
	GetContent(ctx context.Context, agentType, date string) (*model.ContentIndexEntry, error)

	// UpsertArticles writes article rows unique by (link, article_date).
	UpsertArticles(ctx context.Context, articles []model.NewsArticle) (int, error)

	// ListArticles lists articles for a date, most important first.
	ListArticles(ctx context.Context, date string, limit int) ([]model.NewsArticle, error)

	// LatestArticleTime returns max(created_at) of a date's articles; ok is false when none exist.
	LatestArticleTime(ctx context.Context, date string) (t time.Time, ok bool, err error)

	// Close closes the store.
	Close() error
}
