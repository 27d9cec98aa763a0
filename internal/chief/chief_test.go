package chief

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rcliao/life-assistant/internal/agent"
	"github.com/rcliao/life-assistant/internal/feeds"
	"github.com/rcliao/life-assistant/internal/hooks"
	"github.com/rcliao/life-assistant/internal/llm/llmtest"
	"github.com/rcliao/life-assistant/internal/memory"
	"github.com/rcliao/life-assistant/internal/model"
	"github.com/rcliao/life-assistant/internal/store"
)

const (
	matchNews    = "Select the"
	matchOutfit  = "Recommend today's outfit"
	matchReplan  = "Conditions changed"
	matchLife    = "Plan a healthy day"
	matchWork    = "Produce today's task list"
	matchReview  = "Review the day"
	matchPrefs   = "lasting preferences"
	matchSummary = "Summarise the conversation"
	briefingText = "## Breaking: model release\nSource: Tech Daily\nSummary: A lab shipped a model.\nLink: https://ex.test/model"
)

type fetcher struct{ err error }

func (f fetcher) FetchAll(context.Context, []feeds.Source) ([]model.FeedItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.FeedItem{{Source: "Tech Daily", Title: "Model release", Link: "https://ex.test/model"}}, nil
}

type weather struct {
	w   model.Weather
	err error
}

func (w weather) Current(context.Context, string) (model.Weather, error) { return w.w, w.err }

type fixture struct {
	chief *ChiefOfStaff
	fake  *llmtest.Fake
	store *store.SQLiteStore
}

func newFixture(t *testing.T, fake *llmtest.Fake, wp feeds.WeatherProvider) fixture {
	t.Helper()
	now := time.Date(2025, 1, 15, 7, 30, 0, 0, time.UTC)
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "chief.db"), store.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logger := zaptest.NewLogger(t)
	window := memory.NewSlidingWindow(10)
	mem := memory.NewSemanticMemory(s, nil, 0)
	d := agent.Deps{
		LLM:          fake,
		Store:        s,
		Memory:       mem,
		Orchestrator: memory.NewOrchestrator(mem, s, 0, logger),
		Window:       window,
		Logger:       logger,
		Now:          func() time.Time { return now },
	}
	agents := Agents{
		News:   agent.NewNews(d, fetcher{}, []feeds.Source{{Name: "Tech Daily", URL: "https://ex.test/rss"}}, 5),
		Outfit: agent.NewOutfit(d, wp, "Beijing", nil),
		Life:   agent.NewLife(d),
		Work:   agent.NewWork(d),
		Review: agent.NewReview(d),
	}
	c := New(agents, window, logger, WithSummarizer(memory.NewSummarizer(fake, s, logger)))
	return fixture{chief: c, fake: fake, store: s}
}

func scripted() *llmtest.Fake {
	return &llmtest.Fake{
		Rules: []llmtest.Rule{
			{Match: matchNews, Reply: briefingText},
			{Match: matchOutfit, Reply: "Navy chinos and a light jacket"},
			{Match: matchReplan, Reply: "Raincoat and boots"},
			{Match: matchLife, Reply: "## Diet\n- oats"},
			{Match: matchWork, Reply: "- [ ] [HIGH] brief the team"},
			{Match: matchPrefs, Reply: "[]"},
			{Match: matchReview, Reply: "## Highlights\nGood day."},
			{Match: matchSummary, Reply: `{"summary": "Reviewed a good day.", "decisions": "", "action_items": "brief the team"}`},
		},
	}
}

var mild = weather{w: model.Weather{Location: "Beijing", Temperature: 18, Condition: "clear"}}

func TestMorning_BreakingNewsReachesWork(t *testing.T) {
	f := newFixture(t, scripted(), mild)

	r := f.chief.Morning(context.Background(), nil)
	require.NoError(t, r.Err)

	assert.Contains(t, r.Results[agent.NameNews], "Breaking: model release")
	assert.Equal(t, "Breaking: model release", f.chief.Bus().String(memory.KeyUrgentNotification))
	assert.Contains(t, r.Fired, hooks.BreakingNews)

	work := f.fake.CallsMatching(matchWork)
	require.Len(t, work, 1)
	prompt := llmtest.LastUser(work[0])
	assert.True(t, strings.HasPrefix(prompt, "URGENT:"), "work prompt was %q", prompt)
	assert.Contains(t, prompt, "News context: ## Breaking: model release")

	assert.Equal(t, []string{agent.NameNews, agent.NameOutfit, agent.NameLife, agent.NameWork}, r.Order)
	for _, name := range r.Order {
		assert.NotEmpty(t, r.Results[name], name)
	}
}

func TestMorning_StepOrder(t *testing.T) {
	f := newFixture(t, scripted(), mild)
	f.chief.Morning(context.Background(), nil)

	var order []string
	for _, c := range f.fake.Calls() {
		last := llmtest.LastUser(c)
		for _, m := range []string{matchNews, matchOutfit, matchLife, matchWork} {
			if strings.Contains(last, m) {
				order = append(order, m)
			}
		}
	}
	assert.Equal(t, []string{matchNews, matchOutfit, matchLife, matchWork}, order)
}

func TestFullDay_OutfitFailureIsContained(t *testing.T) {
	f := newFixture(t, scripted(), weather{err: fmt.Errorf("%w: weather down", model.ErrCollectionFailed)})

	r := f.chief.FullDay(context.Background(), nil)
	require.NoError(t, r.Err)

	assert.Equal(t, "", r.Results[agent.NameOutfit])
	for _, name := range []string{agent.NameNews, agent.NameLife, agent.NameWork, agent.NameReview} {
		assert.NotEmpty(t, r.Results[name], name)
	}
	assert.False(t, f.chief.Bus().Has(memory.KeyOutfit))
	assert.Empty(t, f.fake.CallsMatching(matchOutfit))

	review := llmtest.LastUser(f.fake.CallsMatching(matchReview)[0])
	assert.NotContains(t, review, "### outfit")
	assert.Contains(t, review, "### work\n- [ ] [HIGH] brief the team")
}

func TestMorning_WeatherAlertReplansOutfit(t *testing.T) {
	storm := weather{w: model.Weather{Location: "Beijing", Temperature: 22, Condition: "thunderstorm"}}
	f := newFixture(t, scripted(), storm)

	r := f.chief.Morning(context.Background(), nil)

	assert.Contains(t, r.Fired, hooks.WeatherAlert)
	assert.Equal(t, "Raincoat and boots", r.Results[agent.NameOutfit])
	assert.Equal(t, hooks.WeatherAlert, f.chief.Bus().Source(memory.KeyOutfit))
	assert.Len(t, f.fake.CallsMatching(matchReplan), 1)
}

func TestMorning_FormalScheduleFromWorkPlan(t *testing.T) {
	fake := scripted()
	fake.Rules[4] = llmtest.Rule{Match: matchWork, Reply: "- [ ] [HIGH] client presentation at 10"}
	f := newFixture(t, fake, mild)

	r := f.chief.Morning(context.Background(), nil)
	assert.Contains(t, r.Fired, hooks.FormalSchedule)
	assert.Equal(t, true, f.chief.Bus().Get(memory.KeyFormalRequirement, false))
	assert.Equal(t, "Raincoat and boots", r.Results[agent.NameOutfit])
}

func TestMorning_CancelMidPipeline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := scripted()
	fake.Hook = func(_ context.Context, msgs []model.Message) error {
		if strings.Contains(llmtest.LastUser(msgs), matchOutfit) {
			cancel()
			return context.Canceled
		}
		return nil
	}
	f := newFixture(t, fake, mild)

	r := f.chief.Morning(ctx, nil)
	require.ErrorIs(t, r.Err, model.ErrCancelRequested)

	assert.NotEmpty(t, r.Results[agent.NameNews])
	assert.Equal(t, "", r.Results[agent.NameOutfit])
	assert.Equal(t, []string{agent.NameLife, agent.NameWork}, r.Skipped)
	assert.Empty(t, f.fake.CallsMatching(matchLife))
	assert.Empty(t, f.fake.CallsMatching(matchWork))
	assert.False(t, f.chief.Bus().Has(memory.KeyOutfit))
}

func TestRunStep(t *testing.T) {
	f := newFixture(t, scripted(), mild)
	ctx := context.Background()

	r, err := f.chief.RunStep(ctx, StepNews, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{agent.NameNews}, r.Order)
	assert.True(t, f.chief.Bus().Has(memory.KeyUrgentNotification))

	r, err = f.chief.RunStep(ctx, StepEvening, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, r.Results[agent.NameReview])

	_, err = f.chief.RunStep(ctx, "brunch", nil)
	assert.Error(t, err)
}

func TestWorkInput(t *testing.T) {
	bus := memory.NewContextBus(nil)
	assert.Equal(t, "notes", WorkInput(bus, " notes "))

	bus.Set(memory.KeyNewsBriefing, strings.Repeat("n", 300), agent.NameNews)
	bus.Set(memory.KeyUrgentNotification, "Breaking: x", hooks.BreakingNews)
	got := WorkInput(bus, "notes")
	assert.Equal(t, "URGENT: Breaking: x\nNews context: "+strings.Repeat("n", 200)+"\nnotes", got)
}

func TestReport_Failed(t *testing.T) {
	r := newReport(StepMorning)
	r.record(agent.NameNews, "")
	assert.True(t, r.Failed())
	r.record(agent.NameWork, "plan")
	assert.False(t, r.Failed())
}

func TestFullDay_StoresReviewSummary(t *testing.T) {
	f := newFixture(t, scripted(), mild)
	ctx := context.Background()

	r := f.chief.FullDay(ctx, nil)
	require.NoError(t, r.Err)

	sum, err := f.store.LatestSummary(ctx, agent.NameReview)
	require.NoError(t, err)
	assert.Equal(t, "Reviewed a good day.", sum.ContentSummary)
	assert.Equal(t, "brief the team", sum.ActionItems)

	calls := f.fake.CallsMatching(matchSummary)
	require.Len(t, calls, 1)
	prompt := llmtest.LastUser(calls[0])
	assert.Contains(t, prompt, "news: ## Breaking: model release")
	assert.Contains(t, prompt, "## Highlights")

	assert.True(t, f.chief.Bus().Has(memory.KeyNewsBriefing), "full day keeps the morning bus")
}

func TestEvening_StoresSummaryOnClearedBus(t *testing.T) {
	f := newFixture(t, scripted(), mild)
	ctx := context.Background()

	f.chief.Morning(ctx, nil)
	require.True(t, f.chief.Bus().Has(memory.KeyNewsBriefing))

	r := f.chief.Evening(ctx, nil)
	require.NoError(t, r.Err)
	assert.NotEmpty(t, r.Results[agent.NameReview])
	assert.False(t, f.chief.Bus().Has(memory.KeyNewsBriefing))
	assert.True(t, f.chief.Bus().Has(memory.KeyReview))

	_, err := f.store.LatestSummary(ctx, agent.NameReview)
	require.NoError(t, err)
}

func TestEvening_FailedReviewWritesNoSummary(t *testing.T) {
	fake := scripted()
	fake.Rules[6] = llmtest.Rule{Match: matchReview, Err: fmt.Errorf("%w: down", model.ErrLLMUnavailable)}
	f := newFixture(t, fake, mild)
	ctx := context.Background()

	f.chief.Morning(ctx, nil)
	r := f.chief.Evening(ctx, nil)
	assert.Equal(t, "", r.Results[agent.NameReview])
	assert.Empty(t, f.fake.CallsMatching(matchSummary))

	_, err := f.store.LatestSummary(ctx, agent.NameReview)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
