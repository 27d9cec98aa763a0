// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/rcliao/life-assistant/internal/llm"
	"github.com/rcliao/life-assistant/internal/model"
)

// Rule answers calls whose last user message contains Match.
type Rule struct {
	Match string
	Reply string
	Err   error
}

// Fake replies with the first matching rule, or Default. Every message list
// it receives is recorded.
type Fake struct {
	mu      sync.Mutex
	Rules   []Rule
	Default string
	// Hook, when set, runs before the reply is chosen.
	Hook  func(ctx context.Context, messages []model.Message) error
	calls [][]model.Message
}

var _ llm.Client = (*Fake)(nil)

func (f *Fake) SendMessage(ctx context.Context, messages []model.Message, _ ...llm.Option) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]model.Message(nil), messages...))
	rules := f.Rules
	def := f.Default
	hook := f.Hook
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if hook != nil {
		if err := hook(ctx, messages); err != nil {
			return "", err
		}
	}

	last := LastUser(messages)
	for _, r := range rules {
		if strings.Contains(last, r.Match) {
			return r.Reply, r.Err
		}
	}
	return def, nil
}

// Calls returns every recorded message list.
func (f *Fake) Calls() [][]model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]model.Message(nil), f.calls...)
}

// CallsMatching returns the recorded calls whose last user message contains s.
func (f *Fake) CallsMatching(s string) [][]model.Message {
	var out [][]model.Message
	for _, c := range f.Calls() {
		if strings.Contains(LastUser(c), s) {
			out = append(out, c)
		}
	}
	return out
}

// LastUser returns the content of the last user message.
func LastUser(messages []model.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
