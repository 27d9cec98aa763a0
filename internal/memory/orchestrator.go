package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/model"
	"github.com/rcliao/life-assistant/internal/store"
)

// DefaultTokenBudget is the default prompt budget in estimated tokens.
const DefaultTokenBudget = 6000

// Layer names reported in Assembled.Dropped.
const (
	LayerLongTerm = "long_term"
	LayerWindow   = "window"
	LayerMidTerm  = "mid_term"
)

// AssembleParams holds the inputs of one prompt assembly.
type AssembleParams struct {
	System    string
	AgentType string
	Query     string
	Window    *SlidingWindow
	// NoRecall skips the long-term layer.
	NoRecall bool
}

// Assembled is the layered message list for one LLM call.
type Assembled struct {
	Messages []model.Message `json:"messages"`
	Budget   int             `json:"budget"`
	Used     int             `json:"used"`
	// Dropped lists removed layers in drop order. A window entry is
	// reported once per evicted message.
	Dropped []string `json:"dropped,omitempty"`
}

// Orchestrator assembles prompts from system identity, long-term recall,
// the latest mid-term summary, the sliding window and the current turn.
type Orchestrator struct {
	memory    *SemanticMemory
	summaries store.Store
	budget    int
	logger    *zap.Logger
}

func NewOrchestrator(mem *SemanticMemory, summaries store.Store, budget int, logger *zap.Logger) *Orchestrator {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{memory: mem, summaries: summaries, budget: budget, logger: logger}
}

func (o *Orchestrator) Budget() int { return o.budget }

// SetBudget changes the token budget for subsequent assemblies.
func (o *Orchestrator) SetBudget(n int) {
	if n > 0 {
		o.budget = n
	}
}

// Assemble builds the message list. Layers are dropped in the order
// long-term, oldest window entries, mid-term until the estimate fits the
// budget. System identity and the current turn are never dropped; if they
// alone exceed the budget the result wraps model.ErrContextTooLarge.
func (o *Orchestrator) Assemble(ctx context.Context, p AssembleParams) (*Assembled, error) {
	var longTerm, midTerm *model.Message

	if !p.NoRecall {
		if block := o.longTerm(ctx, p.Query, p.AgentType); block != "" {
			longTerm = &model.Message{Role: model.RoleSystem, Content: block}
		}
	}
	if block := o.midTerm(ctx, p.AgentType); block != "" {
		midTerm = &model.Message{Role: model.RoleSystem, Content: block}
	}
	var window []model.Message
	if p.Window != nil {
		window = p.Window.History()
	}

	res := &Assembled{Budget: o.budget}
	build := func() []model.Message {
		var msgs []model.Message
		if p.System != "" {
			msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: p.System})
		}
		if longTerm != nil {
			msgs = append(msgs, *longTerm)
		}
		if midTerm != nil {
			msgs = append(msgs, *midTerm)
		}
		msgs = append(msgs, window...)
		return append(msgs, model.Message{Role: model.RoleUser, Content: p.Query})
	}

	msgs := build()
	for TotalTokens(msgs) > o.budget {
		switch {
		case longTerm != nil:
			longTerm = nil
			res.Dropped = append(res.Dropped, LayerLongTerm)
		case len(window) > 0:
			window = window[1:]
			res.Dropped = append(res.Dropped, LayerWindow)
		case midTerm != nil:
			midTerm = nil
			res.Dropped = append(res.Dropped, LayerMidTerm)
		default:
			return nil, fmt.Errorf("%w: %d tokens over budget %d", model.ErrContextTooLarge, TotalTokens(msgs), o.budget)
		}
		msgs = build()
	}

	if len(res.Dropped) > 0 {
		o.logger.Debug("context trimmed to budget",
			zap.String("agent", p.AgentType),
			zap.Strings("dropped", res.Dropped),
			zap.Int("budget", o.budget))
	}
	res.Messages = msgs
	res.Used = TotalTokens(msgs)
	return res, nil
}

// Fallback is the message list used when Assemble fails: system identity,
// the full window and the current turn.
func Fallback(system, query string, window *SlidingWindow) []model.Message {
	var msgs []model.Message
	if system != "" {
		msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: system})
	}
	if window != nil {
		msgs = append(msgs, window.History()...)
	}
	return append(msgs, model.Message{Role: model.RoleUser, Content: query})
}

// Messages assembles the prompt and falls back to the window-only list
// when the layered prompt cannot fit.
func (o *Orchestrator) Messages(ctx context.Context, p AssembleParams) []model.Message {
	res, err := o.Assemble(ctx, p)
	if err != nil {
		o.logger.Warn("context assembly failed, using window only",
			zap.String("agent", p.AgentType), zap.Error(err))
		return Fallback(p.System, p.Query, p.Window)
	}
	return res.Messages
}

func (o *Orchestrator) longTerm(ctx context.Context, query, agentType string) string {
	if o.memory == nil {
		return ""
	}
	results, err := o.memory.Search(ctx, query, 0, agentType)
	if err != nil {
		o.logger.Warn("long-term recall failed", zap.String("agent", agentType), zap.Error(err))
		return ""
	}
	return FormatContext(results)
}

func (o *Orchestrator) midTerm(ctx context.Context, agentType string) string {
	if o.summaries == nil || agentType == "" {
		return ""
	}
	s, err := o.summaries.LatestSummary(ctx, agentType)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			o.logger.Warn("mid-term summary lookup failed", zap.String("agent", agentType), zap.Error(err))
		}
		return ""
	}
	return RenderSummary(s)
}

// RenderSummary renders a daily summary as the mid-term prompt block.
func RenderSummary(s *model.DailySummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mid-term summary (%s):\n%s", s.SummaryDate, strings.TrimSpace(s.ContentSummary))
	if d := strings.TrimSpace(s.KeyDecisions); d != "" {
		sb.WriteString("\nKey decisions: " + d)
	}
	if a := strings.TrimSpace(s.ActionItems); a != "" {
		sb.WriteString("\nAction items: " + a)
	}
	return sb.String()
}
