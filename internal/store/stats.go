package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string       `json:"db_path"`
	DBSizeBytes int64        `json:"db_size_bytes"`
	Summaries   int          `json:"summaries"`
	Memories    int          `json:"memories"`
	ContentRows int          `json:"content_rows"`
	Articles    int          `json:"articles"`
	NewestNews  string       `json:"newest_news,omitempty"`
	Agents      []AgentStats `json:"agents"`
}

// AgentStats holds per-agent row counts.
type AgentStats struct {
	AgentType string `json:"agent_type"`
	Memories  int    `json:"memories"`
	Summaries int    `json:"summaries"`
}

// Stats counts rows per table and per agent. dbPath is only used for the file size.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		table string
		dst   *int
	}{
		{"summaries", &st.Summaries},
		{"semantic_memories", &st.Memories},
		{"content_index", &st.ContentRows},
		{"news_articles", &st.Articles},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dst); err != nil {
			return st, fmt.Errorf("count %s: %w", c.table, err)
		}
	}

	var newest sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(article_date) FROM news_articles`).Scan(&newest); err != nil {
		return st, fmt.Errorf("newest article: %w", err)
	}
	st.NewestNews = newest.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_type, SUM(mem), SUM(sums) FROM (
			SELECT agent_type, 1 AS mem, 0 AS sums FROM semantic_memories
			UNION ALL
			SELECT agent_type, 0, 1 FROM summaries
		) GROUP BY agent_type ORDER BY agent_type`)
	if err != nil {
		return st, fmt.Errorf("agent stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a AgentStats
		if err := rows.Scan(&a.AgentType, &a.Memories, &a.Summaries); err != nil {
			return st, err
		}
		st.Agents = append(st.Agents, a)
	}
	return st, rows.Err()
}
