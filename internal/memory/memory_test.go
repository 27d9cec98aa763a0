package memory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rcliao/life-assistant/internal/llm/llmtest"
	"github.com/rcliao/life-assistant/internal/model"
	"github.com/rcliao/life-assistant/internal/store"
)

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	start := time.Date(2025, 1, 16, 8, 0, 0, 0, time.UTC)
	n := 0
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"), store.WithClock(func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func contents(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestSlidingWindow_Eviction(t *testing.T) {
	w := NewSlidingWindow(3)
	for _, c := range []string{"a", "b", "c", "d"} {
		w.Add(model.RoleUser, c)
	}
	if diff := cmp.Diff([]string{"b", "c", "d"}, contents(w.History())); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestSlidingWindow_Boundary(t *testing.T) {
	w := NewSlidingWindow(4)
	for i := 0; i < 4; i++ {
		w.Add(model.RoleUser, fmt.Sprint(i))
	}
	assert.Equal(t, []string{"0", "1", "2", "3"}, contents(w.History()), "exactly W messages must not evict")

	w.Add(model.RoleAssistant, "4")
	assert.Equal(t, []string{"1", "2", "3", "4"}, contents(w.History()))

	for i := 5; i < 40; i++ {
		w.Add(model.RoleUser, fmt.Sprint(i))
		assert.LessOrEqual(t, w.Len(), 4)
	}
	assert.Equal(t, []string{"36", "37", "38", "39"}, contents(w.History()))

	h := w.History()
	h[0].Content = "mutated"
	assert.Equal(t, "36", w.History()[0].Content, "history must be a copy")

	w.Clear()
	assert.Empty(t, w.History())
}

func TestSlidingWindow_DefaultSize(t *testing.T) {
	assert.Equal(t, DefaultWindowSize, NewSlidingWindow(0).Max())
}

func TestContextBus(t *testing.T) {
	w := NewSlidingWindow(10)
	b := NewContextBus(w)

	assert.Equal(t, "fallback", b.Get("weather", "fallback"))

	b.Set(KeyNewsBriefing, "first", "news")
	b.Set(KeyNewsBriefing, "second", "news")
	assert.Equal(t, "second", b.Get(KeyNewsBriefing, nil))
	assert.Equal(t, "news", b.Source(KeyNewsBriefing))

	b.Set(KeyFormalRequirement, true, "hooks")
	assert.Equal(t, true, b.Get(KeyFormalRequirement, false))

	snap := b.Snapshot()
	b.Set(KeyNewsBriefing, "third", "news")
	assert.Equal(t, "second", snap.String(KeyNewsBriefing), "snapshot must not see later writes")

	b.Clear()
	for _, k := range []string{KeyNewsBriefing, KeyFormalRequirement} {
		assert.Nil(t, b.Get(k, nil))
		assert.False(t, b.Has(k))
	}
}

func TestContextBus_EchoesShortStrings(t *testing.T) {
	w := NewSlidingWindow(10)
	b := NewContextBus(w)

	b.Set(KeyUrgentNotification, "server down", "hooks")
	b.Set(KeyNewsBriefing, strings.Repeat("x", 500), "news")
	b.Set(KeyWeather, model.Weather{Condition: "Sunny"}, "chief")

	hist := w.History()
	require.Len(t, hist, 1)
	assert.Equal(t, model.RoleSystem, hist[0].Role)
	assert.Equal(t, "Context Update from hooks: urgent_notification = server down", hist[0].Content)
}

func TestSemanticMemory_SearchAndFormat(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	mem := NewSemanticMemory(s, nil, 3)

	_, err := mem.Add(ctx, "A1 prefers blue shirts", "outfit", model.CategoryUserPreferences, "")
	require.NoError(t, err)
	_, err = mem.Add(ctx, "A2 likes red shoes", "outfit", model.CategoryUserPreferences, "")
	require.NoError(t, err)

	results, err := mem.Search(ctx, "blue shirts", 5, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A1 prefers blue shirts", results[0].Content)
	assert.Equal(t, 2.0, results[0].Score)

	empty, err := mem.Search(ctx, "  ", 5, "")
	require.NoError(t, err)
	assert.Empty(t, empty)

	block := FormatContext(results)
	assert.True(t, strings.HasPrefix(block, contextHeader))
	assert.Contains(t, block, "- [2025-01-16] (user_preferences) A1 prefers blue shirts")
	assert.Equal(t, "", FormatContext(nil))
}

func TestSemanticMemory_InvalidCategory(t *testing.T) {
	mem := NewSemanticMemory(newStore(t), nil, 0)
	_, err := mem.Add(context.Background(), "x", "work", "gossip", "")
	assert.ErrorIs(t, err, model.ErrPersistFailed)
}

func TestFormatContext_Truncates(t *testing.T) {
	long := strings.Repeat("é", 600)
	block := FormatContext([]model.ScoredMemory{{MemoryEntry: model.MemoryEntry{
		Category: "general", Content: long, CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}}})
	assert.Contains(t, block, strings.Repeat("é", 500)+"...")
	assert.NotContains(t, block, strings.Repeat("é", 501))
}

type stubRetriever struct {
	results []model.ScoredMemory
	err     error
}

func (s stubRetriever) Search(context.Context, string, int, string) ([]model.ScoredMemory, error) {
	return s.results, s.err
}

func TestSemanticMemory_CapsRetrieverResults(t *testing.T) {
	r := stubRetriever{results: make([]model.ScoredMemory, 8)}
	mem := NewSemanticMemory(newStore(t), r, 0)
	got, err := mem.Search(context.Background(), "q", 2, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestOrchestrator_MidTermRendering(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, err := s.CreateSummary(ctx, store.SummaryParams{
		AgentType: "work", SummaryDate: "2025-01-15",
		ContentSummary: "S", KeyDecisions: "D", ActionItems: "A",
	})
	require.NoError(t, err)

	o := NewOrchestrator(NewSemanticMemory(s, nil, 0), s, 0, zaptest.NewLogger(t))
	res, err := o.Assemble(ctx, AssembleParams{System: "identity", AgentType: "work", Query: "plan my day"})
	require.NoError(t, err)

	require.Len(t, res.Messages, 3)
	mid := res.Messages[1].Content
	idx := []int{
		strings.Index(mid, "2025-01-15"),
		strings.Index(mid, "S"),
		strings.Index(mid, "D"),
		strings.Index(mid, "A"),
	}
	for i, v := range idx {
		require.GreaterOrEqual(t, v, 0, "part %d missing from %q", i, mid)
		if i > 0 {
			assert.Greater(t, v, idx[i-1], "parts out of order in %q", mid)
		}
	}
}

func TestOrchestrator_LayerOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	s.AddMemory(ctx, store.AddMemoryParams{AgentType: "work", Content: "standup moved to ten"})
	s.CreateSummary(ctx, store.SummaryParams{AgentType: "work", SummaryDate: "2025-01-15", ContentSummary: "planned sprint"})

	w := NewSlidingWindow(5)
	w.Add(model.RoleUser, "earlier question")
	w.Add(model.RoleAssistant, "earlier answer")

	o := NewOrchestrator(NewSemanticMemory(s, nil, 0), s, 0, nil)
	res, err := o.Assemble(ctx, AssembleParams{System: "identity", AgentType: "work", Query: "when is standup", Window: w})
	require.NoError(t, err)

	msgs := res.Messages
	require.Len(t, msgs, 6)
	assert.Equal(t, "identity", msgs[0].Content)
	assert.Contains(t, strings.ToLower(msgs[1].Content), "long-term context")
	assert.Contains(t, msgs[2].Content, "planned sprint")
	assert.Equal(t, []string{"earlier question", "earlier answer"}, contents(msgs[3:5]))
	assert.Equal(t, model.Message{Role: model.RoleUser, Content: "when is standup"}, msgs[5])
	assert.Empty(t, res.Dropped)
	assert.Equal(t, TotalTokens(msgs), res.Used)
}

func TestOrchestrator_DropOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	s.AddMemory(ctx, store.AddMemoryParams{AgentType: "work", Content: "budget " + strings.Repeat("x", 400)})
	s.CreateSummary(ctx, store.SummaryParams{AgentType: "work", SummaryDate: "2025-01-15", ContentSummary: strings.Repeat("s", 100)})

	w := NewSlidingWindow(10)
	for i := 0; i < 4; i++ {
		w.Add(model.RoleUser, fmt.Sprintf("turn %d %s", i, strings.Repeat("w", 76)))
	}
	query := "budget"

	// Estimates: long-term block 122, summary 37, each window entry 25, turn 6.
	tests := []struct {
		name      string
		budget    int
		dropped   []string
		windowLen int
		hasMid    bool
	}{
		{"everything fits", 1000, nil, 4, true},
		{"long-term dropped", 160, []string{LayerLongTerm}, 4, true},
		{"oldest window dropped", 100, []string{LayerLongTerm, LayerWindow, LayerWindow}, 2, true},
		{"mid-term dropped last", 20, []string{LayerLongTerm, LayerWindow, LayerWindow, LayerWindow, LayerWindow, LayerMidTerm}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(NewSemanticMemory(s, nil, 0), s, tt.budget, nil)
			res, err := o.Assemble(ctx, AssembleParams{AgentType: "work", Query: query, Window: w})
			require.NoError(t, err)
			assert.Equal(t, tt.dropped, res.Dropped)
			assert.LessOrEqual(t, res.Used, tt.budget)

			var window, mid int
			for _, m := range res.Messages {
				if strings.HasPrefix(m.Content, "turn ") {
					window++
				}
				if strings.HasPrefix(m.Content, "Mid-term summary") {
					mid++
				}
			}
			assert.Equal(t, tt.windowLen, window)
			assert.Equal(t, tt.hasMid, mid == 1)
			assert.Equal(t, model.Message{Role: model.RoleUser, Content: query}, res.Messages[len(res.Messages)-1])
		})
	}
}

func TestOrchestrator_ContextTooLarge(t *testing.T) {
	o := NewOrchestrator(nil, nil, 10, nil)
	w := NewSlidingWindow(3)
	w.Add(model.RoleUser, "older")

	_, err := o.Assemble(context.Background(), AssembleParams{System: strings.Repeat("x", 200), Query: "q", Window: w})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrContextTooLarge))

	sys := strings.Repeat("x", 200)
	msgs := o.Messages(context.Background(), AssembleParams{System: sys, Query: "q", Window: w})
	assert.Equal(t, []string{sys, "older", "q"}, contents(msgs))
}

func TestOrchestrator_MonotoneInLayers(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	w := NewSlidingWindow(3)
	o := NewOrchestrator(NewSemanticMemory(s, nil, 0), s, 0, nil)
	p := AssembleParams{System: "sys", AgentType: "life", Query: "sleep schedule", Window: w}

	base, err := o.Assemble(ctx, p)
	require.NoError(t, err)
	n := len(base.Messages)

	s.AddMemory(ctx, store.AddMemoryParams{AgentType: "life", Content: "sleep by eleven"})
	s.CreateSummary(ctx, store.SummaryParams{AgentType: "life", ContentSummary: "talked about sleep"})
	w.Add(model.RoleUser, "hi")

	more, err := o.Assemble(ctx, p)
	require.NoError(t, err)
	assert.Greater(t, len(more.Messages), n)
	assert.Equal(t, "sleep schedule", more.Messages[len(more.Messages)-1].Content)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 1, EstimateTokens("日本語"))
	assert.Equal(t, 6, MessageTokens(model.Message{Content: "abcdefgh"}))
}

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name  string
		reply any
		want  Summary
	}{
		{"json string", `{"summary":"S","decisions":"D","action_items":"A"}`, Summary{"S", "D", "A"}},
		{"fenced with lists", "```json\n{\"summary\":\"S\",\"decisions\":[\"D1\",\"D2\"],\"action_items\":[]}\n```", Summary{"S", "D1; D2", ""}},
		{"dict reply", map[string]any{"content": `{"summary":"S","key_decisions":"D"}`}, Summary{Summary: "S", Decisions: "D"}},
		{"dict with fields", map[string]any{"summary": "S", "actions": "A"}, Summary{Summary: "S", ActionItems: "A"}},
		{"plain text", "We talked about lunch.", Summary{Summary: "We talked about lunch."}},
		{"empty", "", Summary{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSummary(tt.reply))
		})
	}
}

func TestSummarizer_PersistsLastTurns(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	fake := &llmtest.Fake{Default: `{"summary":"discussed groceries","decisions":"buy oat milk","action_items":"shop friday"}`}
	sum := NewSummarizer(fake, s, zaptest.NewLogger(t))
	sum.now = func() time.Time { return time.Date(2025, 1, 16, 20, 0, 0, 0, time.UTC) }

	var msgs []model.Message
	msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: "Context Update from news: x = y"})
	for i := 0; i < 7; i++ {
		msgs = append(msgs, model.Message{Role: model.RoleUser, Content: fmt.Sprintf("msg %d", i)})
	}

	saved, err := sum.Summarize(ctx, "life", msgs)
	require.NoError(t, err)
	require.NotNil(t, saved)

	prompt := llmtest.LastUser(fake.Calls()[0])
	assert.NotContains(t, prompt, "msg 1\n")
	assert.Contains(t, prompt, "msg 2")
	assert.Contains(t, prompt, "msg 6")
	assert.NotContains(t, prompt, "Context Update")

	latest, err := s.LatestSummary(ctx, "life")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-16", latest.SummaryDate)
	assert.Equal(t, "discussed groceries", latest.ContentSummary)
	assert.Equal(t, "buy oat milk", latest.KeyDecisions)
	assert.Equal(t, "shop friday", latest.ActionItems)
}

func TestSummarizer_NothingToSummarise(t *testing.T) {
	fake := &llmtest.Fake{Default: "unused"}
	saved, err := NewSummarizer(fake, newStore(t), nil).Summarize(context.Background(), "work", nil)
	assert.NoError(t, err)
	assert.Nil(t, saved)
	assert.Empty(t, fake.Calls())
}

func TestSummarizer_LLMFailure(t *testing.T) {
	fake := &llmtest.Fake{Rules: []llmtest.Rule{{Match: "", Err: model.ErrLLMUnavailable}}}
	s := newStore(t)
	_, err := NewSummarizer(fake, s, nil).Summarize(context.Background(), "work",
		[]model.Message{{Role: model.RoleUser, Content: "hello"}})
	assert.ErrorIs(t, err, model.ErrLLMUnavailable)
	_, err = s.LatestSummary(context.Background(), "work")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
