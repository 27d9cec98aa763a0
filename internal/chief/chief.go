// Package chief sequences the agents of a run, routes their results through
// the context bus and runs the hooks between steps.
package chief

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/agent"
	"github.com/rcliao/life-assistant/internal/hooks"
	"github.com/rcliao/life-assistant/internal/memory"
	"github.com/rcliao/life-assistant/internal/model"
)

// Step names accepted by RunStep.
const (
	StepNews    = agent.NameNews
	StepWork    = agent.NameWork
	StepOutfit  = agent.NameOutfit
	StepLife    = agent.NameLife
	StepReview  = agent.NameReview
	StepMorning = "morning"
	StepEvening = "evening"
	StepFull    = "full"
)

// Steps lists every step name in display order.
var Steps = []string{StepNews, StepWork, StepOutfit, StepLife, StepReview, StepMorning, StepEvening, StepFull}

const newsHintLen = 200

// Agents are the concrete agents a chief drives. Every field is required.
type Agents struct {
	News   *agent.News
	Outfit *agent.Outfit
	Life   *agent.Life
	Work   *agent.Work
	Review *agent.Review
}

// Report is the outcome of one pipeline invocation. Results holds one entry
// per agent that was scheduled; failed or skipped agents map to "".
type Report struct {
	Step     string            `json:"step"`
	Results  map[string]string `json:"results"`
	Order    []string          `json:"order"`
	Fired    []string          `json:"hooks_fired,omitempty"`
	Skipped  []string          `json:"skipped,omitempty"`
	Err      error             `json:"-"`
	Duration time.Duration     `json:"duration"`
}

func newReport(step string) *Report {
	return &Report{Step: step, Results: map[string]string{}}
}

// Failed reports whether no scheduled agent produced output.
func (r *Report) Failed() bool {
	for _, name := range r.Order {
		if r.Results[name] != "" {
			return false
		}
	}
	return true
}

func (r *Report) record(name, result string) {
	if _, ok := r.Results[name]; !ok {
		r.Order = append(r.Order, name)
	}
	r.Results[name] = result
}

func (r *Report) merge(o *Report) {
	for _, name := range o.Order {
		r.record(name, o.Results[name])
	}
	r.Fired = append(r.Fired, o.Fired...)
	r.Skipped = append(r.Skipped, o.Skipped...)
	if r.Err == nil {
		r.Err = o.Err
	}
}

// ChiefOfStaff owns the bus of one run. It is not safe for concurrent use;
// construct one per invocation.
type ChiefOfStaff struct {
	agents    Agents
	bus       *memory.ContextBus
	hooks     *hooks.Manager
	useMemory bool
	summaries *memory.Summarizer
	log       *zap.Logger
}

// Option configures a ChiefOfStaff.
type Option func(*ChiefOfStaff)

// WithHooks replaces the default hook set.
func WithHooks(m *hooks.Manager) Option {
	return func(c *ChiefOfStaff) { c.hooks = m }
}

// WithSummarizer stores a review summary after each successful review.
func WithSummarizer(s *memory.Summarizer) Option {
	return func(c *ChiefOfStaff) { c.summaries = s }
}

// WithoutMemory disables long-term recall in agent prompts.
func WithoutMemory() Option {
	return func(c *ChiefOfStaff) { c.useMemory = false }
}

// New creates a chief whose bus echoes into window. The default hooks are
// registered with the chief as their outfit replanner.
func New(a Agents, window *memory.SlidingWindow, logger *zap.Logger, opts ...Option) *ChiefOfStaff {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ChiefOfStaff{
		agents:    a,
		bus:       memory.NewContextBus(window),
		useMemory: true,
		log:       logger,
	}
	for _, o := range opts {
		o(c)
	}
	if c.hooks == nil {
		c.hooks = hooks.NewDefaultManager(logger, c)
	}
	return c
}

// Bus returns the run's context bus.
func (c *ChiefOfStaff) Bus() *memory.ContextBus { return c.bus }

// Agents returns the driven agents.
func (c *ChiefOfStaff) Agents() Agents { return c.agents }

// ReplanOutfit asks the outfit agent for a revised recommendation using the
// weather and outfit currently on the bus.
func (c *ChiefOfStaff) ReplanOutfit(ctx context.Context, bus *memory.ContextBus, reason string, formal bool) (string, error) {
	var w model.Weather
	switch v := bus.Get(memory.KeyWeather, nil).(type) {
	case model.Weather:
		w = v
	case *model.Weather:
		w = *v
	}
	return c.agents.Outfit.Replan(ctx, w, bus.String(memory.KeyOutfit), reason, formal)
}

// RunStep runs a named step. Unknown names are an error; agent failures are not.
func (c *ChiefOfStaff) RunStep(ctx context.Context, step string, in agent.Inputs) (*Report, error) {
	switch step {
	case StepMorning:
		return c.Morning(ctx, in), nil
	case StepEvening:
		return c.Evening(ctx, in), nil
	case StepFull:
		return c.FullDay(ctx, in), nil
	case StepNews, StepWork, StepOutfit, StepLife, StepReview:
		start := time.Now()
		p := c.begin(step, in)
		r := p.r
		switch step {
		case StepNews:
			p.news(ctx)
		case StepWork:
			p.work(ctx)
		case StepOutfit:
			p.weather(ctx)
			p.outfit(ctx)
			p.syncOutfit()
		case StepLife:
			p.life(ctx)
		case StepReview:
			p.review(ctx, nil)
		}
		r.Duration = time.Since(start)
		return r, nil
	default:
		return nil, fmt.Errorf("unknown step %q (want one of %s)", step, strings.Join(Steps, ", "))
	}
}

// Morning runs News, Outfit, Life and Work on a fresh bus.
func (c *ChiefOfStaff) Morning(ctx context.Context, in agent.Inputs) *Report {
	start := time.Now()
	p := c.begin(StepMorning, in)
	r := p.r
	p.news(ctx)
	p.weather(ctx)
	p.outfit(ctx)
	p.life(ctx)
	p.work(ctx)
	p.syncOutfit()
	r.Duration = time.Since(start)
	c.log.Info("pipeline finished", zap.String("step", StepMorning), zap.Duration("duration", r.Duration), zap.Strings("hooks", r.Fired))
	return r
}

// Evening runs Review over today's outputs.
func (c *ChiefOfStaff) Evening(ctx context.Context, in agent.Inputs) *Report {
	start := time.Now()
	p := c.begin(StepEvening, in)
	r := p.r
	p.review(ctx, nil)
	r.Duration = time.Since(start)
	c.log.Info("pipeline finished", zap.String("step", StepEvening), zap.Duration("duration", r.Duration))
	return r
}

// FullDay runs Morning then Evening, handing the morning results to Review.
// The bus is cleared once, so Review sees what the morning left on it.
func (c *ChiefOfStaff) FullDay(ctx context.Context, in agent.Inputs) *Report {
	start := time.Now()
	r := newReport(StepFull)
	morning := c.Morning(ctx, in)
	r.merge(morning)

	p := &pipeline{c: c, r: r, in: in}
	p.review(ctx, morning.Results)
	r.Duration = time.Since(start)
	return r
}

// begin starts a pipeline on a cleared bus.
func (c *ChiefOfStaff) begin(step string, in agent.Inputs) *pipeline {
	c.bus.Clear()
	return &pipeline{c: c, r: newReport(step), in: in}
}

// pipeline carries the state of one invocation between steps.
type pipeline struct {
	c  *ChiefOfStaff
	r  *Report
	in agent.Inputs
}

// proceed reports whether the next agent may run. Once the context is done
// every remaining agent is recorded as skipped.
func (p *pipeline) proceed(ctx context.Context, name string) bool {
	if err := ctx.Err(); err != nil {
		if p.r.Err == nil {
			p.r.Err = fmt.Errorf("%w: %v", model.ErrCancelRequested, err)
			p.c.log.Warn("pipeline cancelled", zap.String("step", p.r.Step), zap.String("agent", name), zap.Error(err))
		}
		p.r.record(name, "")
		p.r.Skipped = append(p.r.Skipped, name)
		return false
	}
	return true
}

// execute runs a and publishes a successful result under key.
func (p *pipeline) execute(ctx context.Context, a agent.Agent, in agent.Inputs, key string) string {
	if !p.proceed(ctx, a.Name()) {
		return ""
	}
	start := time.Now()
	out := agent.Execute(ctx, a, in, p.c.useMemory, p.c.log)
	if agent.IsFailure(out) {
		p.c.log.Warn("agent step failed", zap.String("agent", a.Name()), zap.String("result", out))
		out = ""
	}
	p.r.record(a.Name(), out)
	if out == "" {
		return ""
	}
	p.c.log.Info("agent step done", zap.String("agent", a.Name()), zap.Duration("duration", time.Since(start)))
	p.c.bus.Set(key, out, a.Name())
	p.runHooks(ctx)
	return out
}

func (p *pipeline) runHooks(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	p.r.Fired = append(p.r.Fired, p.c.hooks.Process(ctx, p.c.bus)...)
}

func (p *pipeline) news(ctx context.Context) {
	p.execute(ctx, p.c.agents.News, p.in, memory.KeyNewsBriefing)
}

// weather pre-fetches the snapshot so weather hooks can see it.
func (p *pipeline) weather(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	w, err := p.c.agents.Outfit.FetchWeather(ctx)
	if err != nil {
		p.c.log.Warn("weather fetch failed", zap.Error(err))
		return
	}
	p.c.bus.Set(memory.KeyWeather, w, "weather")
	p.runHooks(ctx)
}

func (p *pipeline) outfit(ctx context.Context) {
	in := agent.Inputs{}
	for k, v := range p.in {
		in[k] = v
	}
	if w, ok := p.c.bus.Get(memory.KeyWeather, nil).(model.Weather); ok {
		in[agent.InputWeather] = w
	}
	formal, _ := p.c.bus.Get(memory.KeyFormalRequirement, false).(bool)
	in[agent.InputFormalRequested] = formal || p.in.Bool(agent.InputFormalRequested)
	p.execute(ctx, p.c.agents.Outfit, in, memory.KeyOutfit)
}

// syncOutfit reports the outfit as hooks last left it on the bus.
func (p *pipeline) syncOutfit() {
	if p.r.Results[agent.NameOutfit] == "" {
		return
	}
	if v := p.c.bus.String(memory.KeyOutfit); v != "" {
		p.r.Results[agent.NameOutfit] = v
	}
}

func (p *pipeline) life(ctx context.Context) {
	p.execute(ctx, p.c.agents.Life, p.in, memory.KeyLifePlan)
}

func (p *pipeline) work(ctx context.Context) {
	in := agent.Inputs{}
	for k, v := range p.in {
		in[k] = v
	}
	in[agent.InputUserInput] = WorkInput(p.c.bus, p.in.String(agent.InputUserInput))
	p.execute(ctx, p.c.agents.Work, in, memory.KeyWorkPlan)
}

// review runs Review. outputs, when non-nil, are preferred over the content index.
func (p *pipeline) review(ctx context.Context, outputs map[string]string) {
	in := agent.Inputs{}
	for k, v := range p.in {
		in[k] = v
	}
	if outputs != nil {
		in[agent.InputOutputs] = outputs
	}
	out := p.execute(ctx, p.c.agents.Review, in, memory.KeyReview)
	if out == "" || p.c.summaries == nil || ctx.Err() != nil {
		return
	}
	if _, err := p.c.summaries.Summarize(ctx, agent.NameReview, reviewTranscript(outputs, out)); err != nil {
		p.c.log.Warn("review summary failed", zap.Error(err))
	}
}

// reviewTranscript lays out the reviewed outputs followed by the review
// itself, in the order the summarizer keeps them.
func reviewTranscript(outputs map[string]string, review string) []model.Message {
	var msgs []model.Message
	for _, name := range []string{agent.NameNews, agent.NameOutfit, agent.NameLife, agent.NameWork} {
		if text := strings.TrimSpace(outputs[name]); text != "" {
			msgs = append(msgs, model.Message{Role: model.RoleAssistant, Content: name + ": " + text})
		}
	}
	return append(msgs, model.Message{Role: model.RoleAssistant, Content: review})
}

// WorkInput builds the work planner's input from the bus: the urgent
// notification first, then a hint from the news briefing, then user text.
func WorkInput(bus *memory.ContextBus, user string) string {
	var sb strings.Builder
	if urgent := bus.String(memory.KeyUrgentNotification); urgent != "" {
		sb.WriteString("URGENT: " + urgent + "\n")
	}
	if news := bus.String(memory.KeyNewsBriefing); news != "" {
		r := []rune(news)
		if len(r) > newsHintLen {
			r = r[:newsHintLen]
		}
		sb.WriteString("News context: " + string(r) + "\n")
	}
	if user = strings.TrimSpace(user); user != "" {
		sb.WriteString(user)
	}
	return strings.TrimSpace(sb.String())
}
