package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/rcliao/life-assistant/internal/model"
)

const memoryColumns = `id, agent_type, category, content, metadata, created_at`

// AddMemory appends a semantic memory unless an identical one already exists.
func (s *SQLiteStore) AddMemory(ctx context.Context, p AddMemoryParams) (*model.MemoryEntry, error) {
	content := strings.TrimSpace(p.Content)
	if content == "" {
		return nil, fmt.Errorf("add memory: content is required")
	}
	category := p.Category
	if category == "" {
		category = model.CategoryGeneral
	}
	if !model.ValidCategories[category] {
		return nil, fmt.Errorf("add memory: invalid category %q", category)
	}
	hash := contentHash(content)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	existing, err := scanMemory(tx.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM semantic_memories
		 WHERE agent_type = ? AND category = ? AND content_hash = ? LIMIT 1`,
		p.AgentType, category, hash))
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup memory: %w", err)
	}

	now := s.now().UTC()
	m := &model.MemoryEntry{
		ID:        s.newID(),
		AgentType: p.AgentType,
		Category:  category,
		Content:   content,
		Metadata:  p.Metadata,
		CreatedAt: now,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO semantic_memories (id, agent_type, category, content, metadata, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.AgentType, m.Category, m.Content, nullable(m.Metadata), hash, now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMemories lists semantic memories, newest first.
func (s *SQLiteStore) ListMemories(ctx context.Context, p ListMemoriesParams) ([]model.MemoryEntry, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"1 = 1"}
	var args []interface{}
	if p.AgentType != "" {
		where = append(where, "agent_type = ?")
		args = append(args, p.AgentType)
	}
	if p.Category != "" {
		where = append(where, "category = ?")
		args = append(args, p.Category)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM semantic_memories WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC, id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.MemoryEntry
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func scanMemory(row scanner) (model.MemoryEntry, error) {
	var m model.MemoryEntry
	var metadata sql.NullString
	var createdAt string

	err := row.Scan(&m.ID, &m.AgentType, &m.Category, &m.Content, &metadata, &createdAt)
	if err != nil {
		return m, err
	}
	m.Metadata = metadata.String
	m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return m, nil
}

func contentHash(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
