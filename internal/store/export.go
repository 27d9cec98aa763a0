package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/life-assistant/internal/model"
)

// ExportMemories returns every semantic memory, oldest first. An empty agentType exports all agents.
func (s *SQLiteStore) ExportMemories(ctx context.Context, agentType string) ([]model.MemoryEntry, error) {
	query := `SELECT ` + memoryColumns + ` FROM semantic_memories`
	var args []any
	if agentType != "" {
		query += ` WHERE agent_type = ?`
		args = append(args, agentType)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("export memories: %w", err)
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

// ImportMemories re-adds exported memories and returns how many entries were accepted.
// Entries without content or agent type are skipped; exact duplicates collapse onto
// the existing row through AddMemory's content hash.
func (s *SQLiteStore) ImportMemories(ctx context.Context, memories []model.MemoryEntry) (int, error) {
	n := 0
	for i, m := range memories {
		if strings.TrimSpace(m.Content) == "" || m.AgentType == "" {
			continue
		}
		if _, err := s.AddMemory(ctx, AddMemoryParams{
			AgentType: m.AgentType,
			Category:  m.Category,
			Content:   m.Content,
			Metadata:  m.Metadata,
		}); err != nil {
			return n, fmt.Errorf("import memory %d: %w", i, err)
		}
		n++
	}
	return n, nil
}
