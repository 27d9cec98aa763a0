package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/llm"
	"github.com/rcliao/life-assistant/internal/model"
	"github.com/rcliao/life-assistant/internal/store"
)

// DefaultSummaryMessages is how many trailing messages a summary covers.
const DefaultSummaryMessages = 5

const summarizerSystem = "You compress conversations into durable notes. Reply with JSON only."

const summarizerPrompt = `Summarise the conversation below for future reference.
Return a JSON object with exactly these fields:
  "summary": two or three sentences on what was discussed,
  "decisions": key decisions that were made (empty string if none),
  "action_items": follow-up actions (empty string if none).

Conversation:
%s`

// Summary is the parsed result of a compression call.
type Summary struct {
	Summary     string
	Decisions   string
	ActionItems string
}

// Summarizer compresses the tail of a conversation into a daily summary.
type Summarizer struct {
	llm    llm.Client
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
	tail   int
}

func NewSummarizer(client llm.Client, s store.Store, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{llm: client, store: s, logger: logger, now: time.Now, tail: DefaultSummaryMessages}
}

// Summarize compresses the last messages and persists the summary under
// agentType for today. It returns nil, nil when there is nothing to summarise.
func (s *Summarizer) Summarize(ctx context.Context, agentType string, messages []model.Message) (*model.DailySummary, error) {
	var turns []model.Message
	for _, m := range messages {
		if m.Role != model.RoleSystem && strings.TrimSpace(m.Content) != "" {
			turns = append(turns, m)
		}
	}
	if len(turns) > s.tail {
		turns = turns[len(turns)-s.tail:]
	}
	if len(turns) == 0 {
		return nil, nil
	}

	var convo strings.Builder
	for _, m := range turns {
		fmt.Fprintf(&convo, "%s: %s\n", m.Role, m.Content)
	}

	reply, err := llm.SimpleChat(ctx, s.llm, fmt.Sprintf(summarizerPrompt, convo.String()), summarizerSystem,
		llm.WithTemperature(0.2), llm.WithMaxTokens(500))
	if err != nil {
		return nil, err
	}

	parsed := ParseSummary(reply)
	if parsed.Summary == "" {
		return nil, fmt.Errorf("%w: empty summary", model.ErrLLMUnavailable)
	}

	saved, err := s.store.CreateSummary(ctx, store.SummaryParams{
		AgentType:      agentType,
		SummaryDate:    s.now().Format(model.DateLayout),
		ContentSummary: parsed.Summary,
		KeyDecisions:   parsed.Decisions,
		ActionItems:    parsed.ActionItems,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create summary: %v", model.ErrPersistFailed, err)
	}
	s.logger.Debug("summary saved", zap.String("agent", agentType), zap.String("id", saved.ID))
	return saved, nil
}

// ParseSummary reads a compression reply. Replies may be a string, an
// object with a content field, or JSON text; unparseable text becomes the
// summary verbatim.
func ParseSummary(reply any) Summary {
	if obj, ok := reply.(map[string]any); ok {
		if _, ok := obj["summary"]; ok {
			return fromObject(obj)
		}
	}
	text := strings.TrimSpace(llm.ContentOf(reply))
	if text == "" {
		return Summary{}
	}

	var obj map[string]any
	if err := llm.DecodeJSON(text, &obj); err != nil {
		return Summary{Summary: text}
	}
	if _, ok := obj["summary"]; !ok {
		if inner, ok := obj["content"]; ok {
			return ParseSummary(inner)
		}
		return Summary{Summary: text}
	}
	return fromObject(obj)
}

func fromObject(obj map[string]any) Summary {
	return Summary{
		Summary:     flatten(obj["summary"]),
		Decisions:   flatten(firstOf(obj, "decisions", "key_decisions")),
		ActionItems: flatten(firstOf(obj, "action_items", "actions")),
	}
}

func firstOf(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v
		}
	}
	return nil
}

func flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := flatten(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
