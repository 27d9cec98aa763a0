package embedding

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rcliao/life-assistant/internal/model"
	"github.com/rcliao/life-assistant/internal/store"
)

// MinSimilarity is the lowest cosine similarity returned as a hit.
const MinSimilarity = 0.3

const candidateLimit = 500

// MemoryLister is the store surface the retriever reads from.
type MemoryLister interface {
	ListMemories(ctx context.Context, p store.ListMemoriesParams) ([]model.MemoryEntry, error)
}

// Retriever ranks semantic memories by cosine similarity to the query.
// Memory vectors are cached by entry ID since entries never change.
type Retriever struct {
	embedder Embedder
	memories MemoryLister

	mu    sync.Mutex
	cache map[string]Vector
}

func NewRetriever(e Embedder, m MemoryLister) *Retriever {
	return &Retriever{embedder: e, memories: m, cache: make(map[string]Vector)}
}

// Search returns up to limit memories with similarity >= MinSimilarity,
// most similar first.
func (r *Retriever) Search(ctx context.Context, query string, limit int, agentType string) ([]model.ScoredMemory, error) {
	if len(store.Tokenize(query)) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	entries, err := r.memories.ListMemories(ctx, store.ListMemoriesParams{AgentType: agentType, Limit: candidateLimit})
	if err != nil {
		return nil, err
	}

	var hits []model.ScoredMemory
	for _, m := range entries {
		v, err := r.vector(ctx, m)
		if err != nil {
			return nil, err
		}
		sim := CosineSimilarity(qv, v)
		if sim < MinSimilarity {
			continue
		}
		hits = append(hits, model.ScoredMemory{MemoryEntry: m, Score: sim})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (r *Retriever) vector(ctx context.Context, m model.MemoryEntry) (Vector, error) {
	r.mu.Lock()
	v, ok := r.cache[m.ID]
	r.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err := r.embedder.Embed(ctx, m.Content)
	if err != nil {
		return nil, fmt.Errorf("embed memory %s: %w", m.ID, err)
	}
	r.mu.Lock()
	r.cache[m.ID] = v
	r.mu.Unlock()
	return v, nil
}
