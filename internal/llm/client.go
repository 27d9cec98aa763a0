// Package llm provides chat-completion clients for the supported providers.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/life-assistant/internal/model"
)

// Client sends a message list to a chat model and returns the reply text.
type Client interface {
	SendMessage(ctx context.Context, messages []model.Message, opts ...Option) (string, error)
}

// CallOptions are per-call overrides. Zero values mean the client default.
type CallOptions struct {
	Model       string
	MaxTokens   int
	Temperature *float64
}

type Option func(*CallOptions)

func WithModel(m string) Option { return func(o *CallOptions) { o.Model = m } }

func WithMaxTokens(n int) Option { return func(o *CallOptions) { o.MaxTokens = n } }

func WithTemperature(t float64) Option { return func(o *CallOptions) { o.Temperature = &t } }

func resolve(opts []Option, def Defaults) CallOptions {
	o := CallOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Model == "" {
		o.Model = def.Model
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = def.MaxTokens
	}
	if o.Temperature == nil {
		t := def.Temperature
		o.Temperature = &t
	}
	return o
}

// SimpleChat sends a single user turn under a system prompt.
func SimpleChat(ctx context.Context, c Client, userMessage, systemPrompt string, opts ...Option) (string, error) {
	var msgs []model.Message
	if systemPrompt != "" {
		msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: systemPrompt})
	}
	msgs = append(msgs, model.Message{Role: model.RoleUser, Content: userMessage})
	return c.SendMessage(ctx, msgs, opts...)
}

// ContentOf normalises a reply that may be a plain string, an object
// carrying a "content" field, or a Stringer.
func ContentOf(reply any) string {
	switch v := reply.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		if c, ok := v["content"]; ok {
			return ContentOf(c)
		}
		return ""
	case map[string]string:
		return v["content"]
	case model.Message:
		return v.Content
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func unavailable(provider, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", model.ErrLLMUnavailable, provider, fmt.Sprintf(format, args...))
}

func trimBody(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}
