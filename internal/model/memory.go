// Package model defines the core assistant data types.
package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for summary, content and article dates.
const DateLayout = "2006-01-02"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn as sent to an LLM.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DailySummary is a compressed record of a past conversation day (mid-term memory).
type DailySummary struct {
	ID             string    `json:"id"`
	AgentType      string    `json:"agent_type"`
	SummaryDate    string    `json:"summary_date"`
	ContentSummary string    `json:"content_summary"`
	KeyDecisions   string    `json:"key_decisions,omitempty"`
	ActionItems    string    `json:"action_items,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Memory categories.
const (
	CategoryUserPreferences    = "user_preferences"
	CategoryImportantDecisions = "important_decisions"
	CategoryTaskHistory        = "task_history"
	CategoryHealthPatterns     = "health_patterns"
	CategoryExtractedInsight   = "extracted_insight"
	CategoryGeneral            = "general"
)

// ValidCategories are the allowed semantic memory categories.
var ValidCategories = map[string]bool{
	CategoryUserPreferences:    true,
	CategoryImportantDecisions: true,
	CategoryTaskHistory:        true,
	CategoryHealthPatterns:     true,
	CategoryExtractedInsight:   true,
	CategoryGeneral:            true,
}

// MemoryEntry is a classified long-term memory. Entries are immutable once written.
type MemoryEntry struct {
	ID        string    `json:"id" yaml:"id"`
	AgentType string    `json:"agent_type" yaml:"agent_type"`
	Category  string    `json:"category" yaml:"category"`
	Content   string    `json:"content" yaml:"content"`
	Metadata  string    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// ScoredMemory is a retrieval hit. Score is the number of matching query
// tokens for keyword retrieval, or cosine similarity for vector retrieval.
type ScoredMemory struct {
	MemoryEntry
	Score float64 `json:"score"`
}

// ContentIndexEntry is the persisted output of one agent for one day.
type ContentIndexEntry struct {
	ID          string    `json:"id"`
	AgentType   string    `json:"agent_type"`
	ContentDate string    `json:"content_date"`
	ContentText string    `json:"content_text"`
	Keywords    []string  `json:"keywords,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewsArticle is a normalised article row derived from a news briefing.
type NewsArticle struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Source          string    `json:"source"`
	Link            string    `json:"link"`
	Summary         string    `json:"summary"`
	Content         string    `json:"content,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	ImportanceScore int       `json:"importance_score"`
	Category        string    `json:"category"`
	PublishedDate   string    `json:"published_date,omitempty"`
	ArticleDate     string    `json:"article_date"`
	CreatedAt       time.Time `json:"created_at"`
}

// FeedItem is one entry fetched from an RSS or Atom feed.
type FeedItem struct {
	Source    string `json:"source"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Summary   string `json:"summary,omitempty"`
	Published string `json:"published,omitempty"`
}

// Weather is a point-in-time weather snapshot.
type Weather struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Alert       string  `json:"alert,omitempty"`
}

// Desc returns the human-readable condition.
func (w Weather) Desc() string { return w.Condition }

func (w Weather) String() string {
	s := fmt.Sprintf("%s: %.1f°C, %s, humidity %.0f%%, wind %.1f m/s",
		w.Location, w.Temperature, w.Condition, w.Humidity, w.WindSpeed)
	if w.Alert != "" {
		s += ", alert: " + w.Alert
	}
	return s
}
