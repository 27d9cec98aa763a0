package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/life-assistant/internal/model"
)

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	if len(opts) == 0 {
		opts = []Option{WithClock(stepClock(time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)))}
	}
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"), opts...)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndLatestSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.CreateSummary(ctx, SummaryParams{
		AgentType: "work", SummaryDate: "2025-01-15",
		ContentSummary: "S", KeyDecisions: "D", ActionItems: "A",
	})
	if err != nil {
		t.Fatalf("create summary: %v", err)
	}
	if created.ID == "" {
		t.Error("expected non-empty ID")
	}

	got, err := s.LatestSummary(ctx, "work")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected latest %s, got %s", created.ID, got.ID)
	}
	if got.ContentSummary != "S" || got.KeyDecisions != "D" || got.ActionItems != "A" {
		t.Errorf("fields not persisted: %+v", got)
	}
}

func TestLatestSummaryOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.CreateSummary(ctx, SummaryParams{AgentType: "work", SummaryDate: "2025-01-16", ContentSummary: "newer date"})
	s.CreateSummary(ctx, SummaryParams{AgentType: "work", SummaryDate: "2025-01-14", ContentSummary: "older date, created later"})
	s.CreateSummary(ctx, SummaryParams{AgentType: "work", SummaryDate: "2025-01-16", ContentSummary: "same date, created later"})

	got, err := s.LatestSummary(ctx, "work")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.ContentSummary != "same date, created later" {
		t.Errorf("expected newest by (date, created_at), got %q", got.ContentSummary)
	}
}

func TestLatestSummaryNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LatestSummary(context.Background(), "nobody")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSummaryRangeOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.CreateSummary(ctx, SummaryParams{AgentType: "life", SummaryDate: "2025-01-12", ContentSummary: "c"})
	s.CreateSummary(ctx, SummaryParams{AgentType: "life", SummaryDate: "2025-01-10", ContentSummary: "a"})
	s.CreateSummary(ctx, SummaryParams{AgentType: "life", SummaryDate: "2025-01-11", ContentSummary: "b"})
	s.CreateSummary(ctx, SummaryParams{AgentType: "life", SummaryDate: "2025-01-01", ContentSummary: "outside"})
	s.CreateSummary(ctx, SummaryParams{AgentType: "work", SummaryDate: "2025-01-11", ContentSummary: "other agent"})

	got, err := s.SummaryRange(ctx, SummaryRangeParams{AgentType: "life", Start: "2025-01-09", End: "2025-01-12"})
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].ContentSummary != want {
			t.Errorf("position %d: expected %q, got %q", i, want, got[i].ContentSummary)
		}
	}
}

func TestCreateSummaryRejectsBadDate(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateSummary(context.Background(), SummaryParams{AgentType: "work", SummaryDate: "15/01/2025", ContentSummary: "x"})
	if err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestAddMemoryDedupe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.AddMemory(ctx, AddMemoryParams{AgentType: "outfit", Category: model.CategoryUserPreferences, Content: "prefers blue shirts"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := s.AddMemory(ctx, AddMemoryParams{AgentType: "outfit", Category: model.CategoryUserPreferences, Content: "  prefers blue shirts "})
	if err != nil {
		t.Fatalf("add duplicate: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected duplicate to return existing entry %s, got %s", first.ID, second.ID)
	}

	other, _ := s.AddMemory(ctx, AddMemoryParams{AgentType: "outfit", Category: model.CategoryGeneral, Content: "prefers blue shirts"})
	if other.ID == first.ID {
		t.Error("expected a new entry for a different category")
	}

	all, _ := s.ListMemories(ctx, ListMemoriesParams{AgentType: "outfit"})
	if len(all) != 2 {
		t.Errorf("expected 2 memories, got %d", len(all))
	}
}

func TestAddMemoryValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.AddMemory(ctx, AddMemoryParams{AgentType: "work", Content: "   "}); err == nil {
		t.Error("expected error for empty content")
	}
	if _, err := s.AddMemory(ctx, AddMemoryParams{AgentType: "work", Category: "gossip", Content: "x"}); err == nil {
		t.Error("expected error for invalid category")
	}
	m, err := s.AddMemory(ctx, AddMemoryParams{AgentType: "work", Content: "x"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if m.Category != model.CategoryGeneral {
		t.Errorf("expected default category general, got %q", m.Category)
	}
}

func TestPutContentUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.PutContent(ctx, model.ContentIndexEntry{AgentType: "work", ContentDate: "2025-01-14", ContentText: "- [ ] draft"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := s.PutContent(ctx, model.ContentIndexEntry{AgentType: "work", ContentDate: "2025-01-14", ContentText: "- [x] draft", Keywords: []string{"draft"}})
	if err != nil {
		t.Fatalf("put again: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected one row per (agent, date); ids %s vs %s", first.ID, second.ID)
	}

	got, err := s.GetContent(ctx, "work", "2025-01-14")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ContentText != "- [x] draft" {
		t.Errorf("expected replaced text, got %q", got.ContentText)
	}
	if len(got.Keywords) != 1 || got.Keywords[0] != "draft" {
		t.Errorf("expected keywords [draft], got %v", got.Keywords)
	}

	if _, err := s.GetContent(ctx, "work", "2025-01-13"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertArticles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, ok, _ := s.LatestArticleTime(ctx, "2025-01-15"); ok {
		t.Fatal("expected no articles yet")
	}

	n, err := s.UpsertArticles(ctx, []model.NewsArticle{
		{Title: "A", Link: "https://a", ImportanceScore: 5, ArticleDate: "2025-01-15"},
		{Title: "B", Link: "https://b", ImportanceScore: 9, ArticleDate: "2025-01-15"},
		{Title: "C", Link: "https://c", ArticleDate: "2025-01-15"},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 written, got %d", n)
	}
	first, ok, err := s.LatestArticleTime(ctx, "2025-01-15")
	if err != nil || !ok {
		t.Fatalf("latest time: ok=%v err=%v", ok, err)
	}

	// Same link and date updates in place.
	s.UpsertArticles(ctx, []model.NewsArticle{{Title: "A2", Link: "https://a", ImportanceScore: 1, ArticleDate: "2025-01-15"}})

	list, err := s.ListArticles(ctx, "2025-01-15", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 unique articles, got %d", len(list))
	}
	if list[0].Title != "B" || list[0].ImportanceScore != 5 {
		t.Errorf("expected B clamped to 5 first, got %s/%d", list[0].Title, list[0].ImportanceScore)
	}
	for _, a := range list {
		if a.Link == "https://c" && a.ImportanceScore != 3 {
			t.Errorf("expected default importance 3, got %d", a.ImportanceScore)
		}
		if a.Link == "https://a" && a.Title != "A2" {
			t.Errorf("expected updated title, got %q", a.Title)
		}
	}

	refreshed, _, _ := s.LatestArticleTime(ctx, "2025-01-15")
	if !refreshed.After(first) {
		t.Errorf("expected created_at to move forward on upsert: %v <= %v", refreshed, first)
	}
}

func TestUpsertArticlesRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.UpsertArticles(ctx, []model.NewsArticle{
		{Title: "ok", Link: "https://ok", ArticleDate: "2025-01-15"},
		{Title: "", Link: "https://bad", ArticleDate: "2025-01-15"},
	})
	if err == nil {
		t.Fatal("expected error for missing title")
	}
	list, _ := s.ListArticles(ctx, "2025-01-15", 10)
	if len(list) != 0 {
		t.Errorf("expected rollback, found %d rows", len(list))
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestStatsAndExport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "stats.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.AddMemory(ctx, AddMemoryParams{AgentType: "work", Content: "ship the report"})
	s.AddMemory(ctx, AddMemoryParams{AgentType: "life", Content: "walk after lunch"})
	s.CreateSummary(ctx, SummaryParams{AgentType: "work", ContentSummary: "busy"})

	st, err := s.Stats(ctx, dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Memories != 2 || st.Summaries != 1 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if len(st.Agents) != 2 {
		t.Errorf("expected 2 agents, got %d", len(st.Agents))
	}

	exported, err := s.ExportMemories(ctx, "work")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exported) != 1 {
		t.Fatalf("expected 1 exported, got %d", len(exported))
	}

	other := newTestStore(t)
	n, err := other.ImportMemories(ctx, exported)
	if err != nil || n != 1 {
		t.Fatalf("import: n=%d err=%v", n, err)
	}
	got, _ := other.ListMemories(ctx, ListMemoriesParams{AgentType: "work"})
	if len(got) != 1 || got[0].Content != "ship the report" {
		t.Errorf("unexpected imported memories: %+v", got)
	}
}
