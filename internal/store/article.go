package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rcliao/life-assistant/internal/model"
)

// UpsertArticles writes article rows unique by (link, article_date). A
// conflicting row is refreshed, including its created_at. All rows commit
// together or not at all.
func (s *SQLiteStore) UpsertArticles(ctx context.Context, articles []model.NewsArticle) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	now := s.now().UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, a := range articles {
		if a.Link == "" || a.Title == "" {
			return 0, fmt.Errorf("upsert article: title and link are required")
		}
		date := a.ArticleDate
		if date == "" {
			date = s.today()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO news_articles (id, title, source, link, summary, content, image_url, thumbnail_url,
			                            importance_score, category, published_date, article_date, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (link, article_date) DO UPDATE SET
			   title = excluded.title,
			   source = excluded.source,
			   summary = excluded.summary,
			   content = excluded.content,
			   importance_score = excluded.importance_score,
			   category = excluded.category,
			   created_at = excluded.created_at`,
			s.newID(), a.Title, a.Source, a.Link, a.Summary, nullable(a.Content),
			nullable(a.ImageURL), nullable(a.ThumbnailURL), clampImportance(a.ImportanceScore),
			nullable(a.Category), nullable(a.PublishedDate), date, now)
		if err != nil {
			return 0, fmt.Errorf("upsert article %q: %w", a.Link, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(articles), nil
}

// ListArticles lists articles for a date, most important first.
func (s *SQLiteStore) ListArticles(ctx context.Context, date string, limit int) ([]model.NewsArticle, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, source, link, summary, content, image_url, thumbnail_url,
		        importance_score, category, published_date, article_date, created_at
		 FROM news_articles WHERE article_date = ?
		 ORDER BY importance_score DESC, created_at DESC, id ASC LIMIT ?`, date, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.NewsArticle
	for rows.Next() {
		var a model.NewsArticle
		var source, summary, content, image, thumb, category, published sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Title, &source, &a.Link, &summary, &content, &image, &thumb,
			&a.ImportanceScore, &category, &published, &a.ArticleDate, &createdAt); err != nil {
			return nil, err
		}
		a.Source = source.String
		a.Summary = summary.String
		a.Content = content.String
		a.ImageURL = image.String
		a.ThumbnailURL = thumb.String
		a.Category = category.String
		a.PublishedDate = published.String
		a.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestArticleTime returns max(created_at) for a date's articles.
func (s *SQLiteStore) LatestArticleTime(ctx context.Context, date string) (time.Time, bool, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM news_articles WHERE article_date = ?`, date).Scan(&latest)
	if err != nil {
		return time.Time{}, false, err
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(timeLayout, latest.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse created_at: %w", err)
	}
	return t, true, nil
}

func clampImportance(score int) int {
	switch {
	case score == 0:
		return 3
	case score < 1:
		return 1
	case score > 5:
		return 5
	}
	return score
}
