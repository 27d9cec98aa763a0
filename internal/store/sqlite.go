package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/life-assistant/internal/model"
)

// timeLayout is fixed-width so that created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var _ Store = (*SQLiteStore)(nil)

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock overrides the clock used for created_at and default dates.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

func (s *SQLiteStore) today() string {
	return s.now().Format(model.DateLayout)
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS summaries (
		id              TEXT PRIMARY KEY,
		agent_type      TEXT NOT NULL,
		summary_date    TEXT NOT NULL,
		content_summary TEXT NOT NULL,
		key_decisions   TEXT,
		action_items    TEXT,
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_summaries_agent_date ON summaries(agent_type, summary_date DESC, created_at DESC);

	CREATE TABLE IF NOT EXISTS semantic_memories (
		id           TEXT PRIMARY KEY,
		agent_type   TEXT NOT NULL,
		category     TEXT NOT NULL DEFAULT 'general',
		content      TEXT NOT NULL,
		metadata     TEXT,
		content_hash TEXT NOT NULL,
		created_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_agent ON semantic_memories(agent_type, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_hash ON semantic_memories(agent_type, category, content_hash);

	CREATE TABLE IF NOT EXISTS content_index (
		id           TEXT PRIMARY KEY,
		agent_type   TEXT NOT NULL,
		content_date TEXT NOT NULL,
		content_text TEXT NOT NULL,
		keywords     TEXT,
		created_at   TEXT NOT NULL,
		UNIQUE (agent_type, content_date)
	);

	CREATE TABLE IF NOT EXISTS news_articles (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		source           TEXT,
		link             TEXT NOT NULL,
		summary          TEXT,
		content          TEXT,
		image_url        TEXT,
		thumbnail_url    TEXT,
		importance_score INTEGER NOT NULL DEFAULT 3 CHECK (importance_score BETWEEN 1 AND 5),
		category         TEXT,
		published_date   TEXT,
		article_date     TEXT NOT NULL,
		created_at       TEXT NOT NULL,
		UNIQUE (link, article_date)
	);
	CREATE INDEX IF NOT EXISTS idx_articles_date ON news_articles(article_date, importance_score DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSummary persists a new daily summary.
func (s *SQLiteStore) CreateSummary(ctx context.Context, p SummaryParams) (*model.DailySummary, error) {
	if p.AgentType == "" {
		return nil, fmt.Errorf("create summary: agent type is required")
	}
	date := p.SummaryDate
	if date == "" {
		date = s.today()
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, fmt.Errorf("create summary: invalid date %q: %w", date, err)
	}

	now := s.now().UTC()
	sum := &model.DailySummary{
		ID:             s.newID(),
		AgentType:      p.AgentType,
		SummaryDate:    date,
		ContentSummary: p.ContentSummary,
		KeyDecisions:   p.KeyDecisions,
		ActionItems:    p.ActionItems,
		CreatedAt:      now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (id, agent_type, summary_date, content_summary, key_decisions, action_items, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.AgentType, sum.SummaryDate, sum.ContentSummary,
		nullable(sum.KeyDecisions), nullable(sum.ActionItems), now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	return sum, nil
}

// LatestSummary returns the newest summary by (summary_date desc, created_at desc).
func (s *SQLiteStore) LatestSummary(ctx context.Context, agentType string) (*model.DailySummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, agent_type, summary_date, content_summary, key_decisions, action_items, created_at
		 FROM summaries WHERE agent_type = ?
		 ORDER BY summary_date DESC, created_at DESC, id DESC LIMIT 1`, agentType)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("summary for %s: %w", agentType, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// SummaryRange returns summaries within the inclusive date window, oldest first.
func (s *SQLiteStore) SummaryRange(ctx context.Context, p SummaryRangeParams) ([]model.DailySummary, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_type, summary_date, content_summary, key_decisions, action_items, created_at
		 FROM summaries WHERE agent_type = ? AND summary_date >= ? AND summary_date <= ?
		 ORDER BY summary_date ASC, created_at ASC, id ASC LIMIT ?`,
		p.AgentType, p.Start, p.End, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DailySummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSummary(row scanner) (model.DailySummary, error) {
	var sum model.DailySummary
	var decisions, actions sql.NullString
	var createdAt string

	err := row.Scan(&sum.ID, &sum.AgentType, &sum.SummaryDate, &sum.ContentSummary,
		&decisions, &actions, &createdAt)
	if err != nil {
		return sum, err
	}
	sum.KeyDecisions = decisions.String
	sum.ActionItems = actions.String
	sum.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return sum, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
