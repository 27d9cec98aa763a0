package memory

import (
	"fmt"
	"unicode/utf8"

	"github.com/rcliao/life-assistant/internal/model"
)

// Reserved bus keys recognised by hooks and downstream agents.
const (
	KeyNewsBriefing       = "news_briefing"
	KeyOutfit             = "outfit_recommendation"
	KeyLifePlan           = "life_plan"
	KeyWorkPlan           = "work_plan"
	KeyWeather            = "weather"
	KeyUrgentNotification = "urgent_notification"
	KeyFormalRequirement  = "formal_requirement"
	KeyReview             = "review"
)

// maxEchoLen bounds which string values are echoed into the window.
const maxEchoLen = 500

// Entry is a bus value annotated with the agent that produced it.
type Entry struct {
	Value  any
	Source string
}

// Snapshot is an immutable copy of the bus for hook evaluation.
type Snapshot map[string]Entry

// Get returns the value for key or def.
func (s Snapshot) Get(key string, def any) any {
	if e, ok := s[key]; ok {
		return e.Value
	}
	return def
}

// String returns the value for key when it is a string, else "".
func (s Snapshot) String(key string) string {
	v, _ := s.Get(key, "").(string)
	return v
}

// ContextBus is the per-run key/value store shared by agents and hooks.
// It is owned by a single driver and is not safe for concurrent mutation.
type ContextBus struct {
	entries map[string]Entry
	window  *SlidingWindow
}

// NewContextBus creates a bus. Short string values are echoed as system
// messages into window when it is non-nil.
func NewContextBus(window *SlidingWindow) *ContextBus {
	return &ContextBus{entries: make(map[string]Entry), window: window}
}

// Set records value under key, replacing any previous value.
func (b *ContextBus) Set(key string, value any, source string) {
	b.entries[key] = Entry{Value: value, Source: source}
	if s, ok := value.(string); ok && b.window != nil && utf8.RuneCountInString(s) < maxEchoLen {
		b.window.Add(model.RoleSystem, fmt.Sprintf("Context Update from %s: %s = %s", source, key, s))
	}
}

// Get returns the last value written for key, or def.
func (b *ContextBus) Get(key string, def any) any {
	if e, ok := b.entries[key]; ok {
		return e.Value
	}
	return def
}

// String returns the value for key when it is a string, else "".
func (b *ContextBus) String(key string) string {
	v, _ := b.Get(key, "").(string)
	return v
}

func (b *ContextBus) Has(key string) bool {
	_, ok := b.entries[key]
	return ok
}

// Source returns the agent that wrote key.
func (b *ContextBus) Source(key string) string { return b.entries[key].Source }

// Snapshot copies the current entries.
func (b *ContextBus) Snapshot() Snapshot {
	out := make(Snapshot, len(b.entries))
	for k, v := range b.entries {
		out[k] = v
	}
	return out
}

// Clear drops all entries.
func (b *ContextBus) Clear() {
	b.entries = make(map[string]Entry)
}
