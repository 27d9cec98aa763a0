package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/life-assistant/internal/model"
)

// maxCandidates bounds the rows pulled from SQLite before scoring.
const maxCandidates = 500

// CategoryContentIndex marks search hits that came from the content index.
const CategoryContentIndex = "content_index"

// SearchParams holds parameters for searching semantic memories.
type SearchParams struct {
	Query     string
	AgentType string
	Limit     int
	// IncludeIndex also searches the content index as an auxiliary corpus.
	IncludeIndex bool
}

// Tokenize splits a query on whitespace into distinct lowercase tokens.
func Tokenize(query string) []string {
	seen := map[string]bool{}
	var tokens []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if seen[f] {
			continue
		}
		seen[f] = true
		tokens = append(tokens, f)
	}
	return tokens
}

// Score counts how many tokens occur in content, case-insensitively.
func Score(content string, tokens []string) int {
	lower := strings.ToLower(content)
	n := 0
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			n++
		}
	}
	return n
}

// SearchMemories returns memories containing at least one query token,
// ordered by match count desc then created_at desc, capped at Limit.
func (s *SQLiteStore) SearchMemories(ctx context.Context, p SearchParams) ([]model.ScoredMemory, error) {
	tokens := Tokenize(p.Query)
	if len(tokens) == 0 {
		return nil, nil
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 5
	}

	candidates, err := s.memoryCandidates(ctx, tokens, p.AgentType)
	if err != nil {
		return nil, err
	}
	if p.IncludeIndex {
		indexed, err := s.contentCandidates(ctx, tokens, p.AgentType)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, indexed...)
	}

	var results []model.ScoredMemory
	for _, m := range candidates {
		score := Score(m.Content, tokens)
		if score == 0 {
			continue
		}
		results = append(results, model.ScoredMemory{MemoryEntry: m, Score: float64(score)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID > results[j].ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *SQLiteStore) memoryCandidates(ctx context.Context, tokens []string, agentType string) ([]model.MemoryEntry, error) {
	where, args := likeClause("content", tokens)
	if agentType != "" {
		where = "agent_type = ? AND " + where
		args = append([]interface{}{agentType}, args...)
	}
	args = append(args, maxCandidates)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM semantic_memories WHERE %s ORDER BY created_at DESC LIMIT ?`,
		memoryColumns, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MemoryEntry
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// contentCandidates maps content index rows onto memory entries with
// category "content_index" and the content date as metadata.
func (s *SQLiteStore) contentCandidates(ctx context.Context, tokens []string, agentType string) ([]model.MemoryEntry, error) {
	where, args := likeClause("content_text", tokens)
	if agentType != "" {
		where = "agent_type = ? AND " + where
		args = append([]interface{}{agentType}, args...)
	}
	args = append(args, maxCandidates)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM content_index WHERE %s ORDER BY created_at DESC LIMIT ?`,
		contentColumns, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MemoryEntry
	for rows.Next() {
		e, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, model.MemoryEntry{
			ID:        e.ID,
			AgentType: e.AgentType,
			Category:  CategoryContentIndex,
			Content:   e.ContentText,
			Metadata:  e.ContentDate,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, rows.Err()
}

// likeClause builds "(col LIKE ? OR col LIKE ? ...)" with escaped patterns.
func likeClause(col string, tokens []string) (string, []interface{}) {
	parts := make([]string, 0, len(tokens))
	args := make([]interface{}, 0, len(tokens))
	for _, t := range tokens {
		parts = append(parts, col+` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(t)+"%")
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
