package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/life-assistant/internal/model"
)

const contentColumns = `id, agent_type, content_date, content_text, keywords, created_at`

// PutContent writes the content index row for (agent type, date), replacing
// an earlier row for the same pair.
func (s *SQLiteStore) PutContent(ctx context.Context, e model.ContentIndexEntry) (*model.ContentIndexEntry, error) {
	if e.AgentType == "" {
		return nil, fmt.Errorf("put content: agent type is required")
	}
	if e.ContentDate == "" {
		e.ContentDate = s.today()
	}
	now := s.now().UTC()
	e.ID = s.newID()
	e.CreatedAt = now

	var keywords *string
	if len(e.Keywords) > 0 {
		b, _ := json.Marshal(e.Keywords)
		k := string(b)
		keywords = &k
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO content_index (id, agent_type, content_date, content_text, keywords, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (agent_type, content_date) DO UPDATE SET
		   content_text = excluded.content_text,
		   keywords = excluded.keywords,
		   created_at = excluded.created_at`,
		e.ID, e.AgentType, e.ContentDate, e.ContentText, keywords, now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("upsert content: %w", err)
	}

	// On conflict the original id survives.
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM content_index WHERE agent_type = ? AND content_date = ?`,
		e.AgentType, e.ContentDate).Scan(&e.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetContent reads the content index row for (agent type, date).
func (s *SQLiteStore) GetContent(ctx context.Context, agentType, date string) (*model.ContentIndexEntry, error) {
	e, err := scanContent(s.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM content_index WHERE agent_type = ? AND content_date = ?`,
		agentType, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content %s/%s: %w", agentType, date, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanContent(row scanner) (model.ContentIndexEntry, error) {
	var e model.ContentIndexEntry
	var keywords sql.NullString
	var createdAt string

	err := row.Scan(&e.ID, &e.AgentType, &e.ContentDate, &e.ContentText, &keywords, &createdAt)
	if err != nil {
		return e, err
	}
	if keywords.Valid {
		json.Unmarshal([]byte(keywords.String), &e.Keywords)
	}
	e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return e, nil
}
