// Package agent implements the collect, process and persist lifecycle shared
// by the assistant's agents, and the five concrete agents.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/llm"
	"github.com/rcliao/life-assistant/internal/memory"
	"github.com/rcliao/life-assistant/internal/model"
	"github.com/rcliao/life-assistant/internal/store"
)

// Agent names. They double as agent_type in persisted rows.
const (
	NameNews   = "news"
	NameWork   = "work"
	NameOutfit = "outfit"
	NameLife   = "life"
	NameReview = "review"
)

// Input keys understood by the agents.
const (
	InputUserInput       = "user_input"
	InputWeather         = "weather"
	InputFormalRequested = "formal_requested"
	InputVisionResults   = "vision_results"
	InputOutputs         = "outputs"
)

const (
	queryLen      = 500
	errorPrefix   = "Error: "
	maxInsights   = 3
	keywordsCount = 10
)

// Inputs carries named step inputs.
type Inputs map[string]any

// String returns the string input for key, or "".
func (in Inputs) String(key string) string {
	s, _ := in[key].(string)
	return s
}

// Bool returns the bool input for key.
func (in Inputs) Bool(key string) bool {
	b, _ := in[key].(bool)
	return b
}

// Agent is one step of a pipeline.
type Agent interface {
	Name() string
	// Collect gathers external inputs. Failures wrap model.ErrCollectionFailed.
	Collect(ctx context.Context, in Inputs) (any, error)
	// Process turns raw input and recalled history into the agent's result.
	Process(ctx context.Context, raw any, history string) (string, error)
	// Persist records a successful result. It reports whether every write succeeded.
	Persist(ctx context.Context, result string) bool
	// History renders long-term memories relevant to query.
	History(ctx context.Context, query string) string
}

// Deps are the collaborators shared by all agents of a run.
type Deps struct {
	LLM          llm.Client
	Store        store.Store
	Memory       *memory.SemanticMemory
	Orchestrator *memory.Orchestrator
	// Window is the run's short-term window. Agents read it when assembling
	// prompts; the bus writes cross-agent updates into it.
	Window *memory.SlidingWindow
	Logger *zap.Logger
	Now    func() time.Time
}

// Base implements the shared parts of an agent.
type Base struct {
	name string
	deps Deps
	log  *zap.Logger
}

func newBase(name string, d Deps) *Base {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Base{name: name, deps: d, log: d.Logger.With(zap.String("agent", name))}
}

func (b *Base) Name() string { return b.name }

func (b *Base) today() string { return b.deps.Now().Format(model.DateLayout) }

// History searches long-term memory for this agent and formats the hits.
func (b *Base) History(ctx context.Context, query string) string {
	if b.deps.Memory == nil {
		return ""
	}
	results, err := b.deps.Memory.Search(ctx, query, 0, b.name)
	if err != nil {
		b.log.Warn("history search failed", zap.Error(err))
		return ""
	}
	return memory.FormatContext(results)
}

// Persist writes the content index row for today and stores insight lines
// as extracted_insight memories.
func (b *Base) Persist(ctx context.Context, result string) bool {
	if b.deps.Store == nil {
		return false
	}
	ok := true
	_, err := b.deps.Store.PutContent(ctx, model.ContentIndexEntry{
		AgentType:   b.name,
		ContentDate: b.today(),
		ContentText: result,
		Keywords:    Keywords(result, keywordsCount),
	})
	if err != nil {
		b.log.Error("persist content failed", zap.Error(fmt.Errorf("%w: %v", model.ErrPersistFailed, err)))
		ok = false
	}

	if b.deps.Memory == nil {
		return ok
	}
	for _, insight := range ExtractInsights(result, maxInsights) {
		if _, err := b.deps.Memory.Add(ctx, insight, b.name, model.CategoryExtractedInsight, b.today()); err != nil {
			b.log.Error("persist insight failed", zap.Error(err))
			ok = false
		}
	}
	return ok
}

// Ask sends prompt under system through the context orchestrator. The run
// window is included but not modified. Long-term recall is skipped since
// agents embed their history in the prompt.
func (b *Base) Ask(ctx context.Context, system, prompt string, opts ...llm.Option) (string, error) {
	if b.deps.LLM == nil {
		return "", fmt.Errorf("%w: no client configured", model.ErrLLMUnavailable)
	}
	p := memory.AssembleParams{
		System:    system,
		AgentType: b.name,
		Query:     prompt,
		Window:    b.deps.Window,
		NoRecall:  true,
	}
	var msgs []model.Message
	if b.deps.Orchestrator != nil {
		msgs = b.deps.Orchestrator.Messages(ctx, p)
	} else {
		msgs = memory.Fallback(system, prompt, b.deps.Window)
	}

	start := time.Now()
	reply, err := b.deps.LLM.SendMessage(ctx, msgs, opts...)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", model.ErrLLMUnavailable)
	}
	b.log.Debug("llm call", zap.Int("messages", len(msgs)), zap.Duration("duration", time.Since(start)))
	return reply, nil
}

// Execute runs one agent through collect, recall, process and persist. It
// never returns an error: expected failures yield "", anything else
// (including panics) yields "Error: <message>".
func Execute(ctx context.Context, a Agent, in Inputs, useMemory bool, logger *zap.Logger) (result string) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("agent", a.Name()))
	defer func() {
		if r := recover(); r != nil {
			log.Error("agent panicked", zap.Any("panic", r))
			result = errorPrefix + fmt.Sprint(r)
		}
	}()

	raw, err := a.Collect(ctx, in)
	if err != nil {
		return failure(log, "collect", err)
	}

	history := ""
	if useMemory {
		history = a.History(ctx, truncate(fmt.Sprint(raw), queryLen))
	}

	out, err := a.Process(ctx, raw, history)
	if err != nil {
		return failure(log, "process", err)
	}
	if strings.TrimSpace(out) == "" {
		log.Warn("agent produced no output")
		return ""
	}

	if !a.Persist(ctx, out) {
		log.Warn("agent result not fully persisted")
	}
	return out
}

func failure(log *zap.Logger, stage string, err error) string {
	log.Warn("agent failed", zap.String("stage", stage), zap.Error(err))
	switch {
	case errors.Is(err, model.ErrCollectionFailed),
		errors.Is(err, model.ErrLLMUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return ""
	default:
		return errorPrefix + err.Error()
	}
}

// IsFailure reports whether an Execute result signals failure.
func IsFailure(result string) bool {
	return strings.TrimSpace(result) == "" || strings.HasPrefix(result, errorPrefix)
}
