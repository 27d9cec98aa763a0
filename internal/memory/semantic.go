// Package memory implements the tiered conversation memory: the per-run
// context bus, the sliding window, long-term semantic recall, layered
// prompt assembly and turn summarisation.
package memory

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/life-assistant/internal/model"
	"github.com/rcliao/life-assistant/internal/store"
)

const (
	// DefaultSearchLimit is the default number of long-term hits.
	DefaultSearchLimit = 5

	snippetLen    = 500
	contextHeader = "Long-term context (relevant memories):"
)

// Retriever ranks long-term memories for a query. Implementations must
// return at most limit results sorted by non-increasing score, and nothing
// for a blank query.
type Retriever interface {
	Search(ctx context.Context, query string, limit int, agentType string) ([]model.ScoredMemory, error)
}

// KeywordRetriever scores memories by matching query tokens. The content
// index is searched as an auxiliary corpus.
type KeywordRetriever struct {
	Store        store.Store
	IncludeIndex bool
}

func (k KeywordRetriever) Search(ctx context.Context, query string, limit int, agentType string) ([]model.ScoredMemory, error) {
	return k.Store.SearchMemories(ctx, store.SearchParams{
		Query:        query,
		AgentType:    agentType,
		Limit:        limit,
		IncludeIndex: k.IncludeIndex,
	})
}

// SemanticMemory is the classified long-term memory layer.
type SemanticMemory struct {
	store     store.Store
	retriever Retriever
	limit     int
}

// NewSemanticMemory wraps s. A nil retriever selects keyword retrieval
// over memories and the content index.
func NewSemanticMemory(s store.Store, r Retriever, limit int) *SemanticMemory {
	if r == nil {
		r = KeywordRetriever{Store: s, IncludeIndex: true}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &SemanticMemory{store: s, retriever: r, limit: limit}
}

// Add appends a memory entry.
func (m *SemanticMemory) Add(ctx context.Context, content, agentType, category, metadata string) (*model.MemoryEntry, error) {
	e, err := m.store.AddMemory(ctx, store.AddMemoryParams{
		AgentType: agentType,
		Category:  category,
		Content:   content,
		Metadata:  metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: add memory: %v", model.ErrPersistFailed, err)
	}
	return e, nil
}

// Search returns ranked memories for query. limit <= 0 uses the configured default.
func (m *SemanticMemory) Search(ctx context.Context, query string, limit int, agentType string) ([]model.ScoredMemory, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = m.limit
	}
	results, err := m.retriever.Search(ctx, query, limit, agentType)
	if err != nil {
		return nil, err
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// FormatContext renders results as a prompt block, or "" when empty.
func FormatContext(results []model.ScoredMemory) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(contextHeader)
	for _, r := range results {
		date := r.CreatedAt.Format(model.DateLayout)
		if r.Category == store.CategoryContentIndex && r.Metadata != "" {
			date = r.Metadata
		}
		fmt.Fprintf(&sb, "\n- [%s] (%s) %s", date, r.Category, snippet(r.Content, snippetLen))
	}
	return sb.String()
}

func snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
