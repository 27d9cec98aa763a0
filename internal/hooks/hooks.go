// Package hooks evaluates condition/action triggers against the context bus
// between pipeline steps.
package hooks

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/feeds"
	"github.com/rcliao/life-assistant/internal/memory"
	"github.com/rcliao/life-assistant/internal/model"
)

// Names of the default hooks. They are also the bus source of values the
// hooks write.
const (
	WeatherAlert   = "weather_alert"
	BreakingNews   = "breaking_news"
	FormalSchedule = "formal_schedule"
)

// Hook is a named condition/action pair. Conditions read a snapshot;
// actions receive the live bus.
type Hook struct {
	Name      string
	Condition func(snap memory.Snapshot) bool
	Action    func(ctx context.Context, bus *memory.ContextBus) error
}

// OutfitReplanner regenerates the outfit recommendation from the current bus.
type OutfitReplanner interface {
	ReplanOutfit(ctx context.Context, bus *memory.ContextBus, reason string, formal bool) (string, error)
}

// Manager runs hooks in registration order.
type Manager struct {
	hooks  []Hook
	logger *zap.Logger
}

// NewManager returns an empty manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger}
}

// NewDefaultManager returns a manager with the weather alert, breaking news
// and formal schedule hooks registered. replanner may be nil, in which case
// alert hooks only log.
func NewDefaultManager(logger *zap.Logger, replanner OutfitReplanner) *Manager {
	m := NewManager(logger)
	m.Add(WeatherAlertHook(replanner, m.logger))
	m.Add(BreakingNewsHook())
	m.Add(FormalScheduleHook(replanner))
	return m
}

func (m *Manager) Add(h Hook) { m.hooks = append(m.hooks, h) }

// Hooks returns the registered hook names in evaluation order.
func (m *Manager) Hooks() []string {
	names := make([]string, len(m.hooks))
	for i, h := range m.hooks {
		names[i] = h.Name
	}
	return names
}

// Process evaluates every hook against a fresh snapshot of bus and runs the
// actions whose condition holds. A failing or panicking action is logged
// and the next hook runs. It returns the names of hooks that fired.
func (m *Manager) Process(ctx context.Context, bus *memory.ContextBus) []string {
	var fired []string
	for _, h := range m.hooks {
		if !m.evaluate(h, bus.Snapshot()) {
			continue
		}
		fired = append(fired, h.Name)
		if err := m.run(ctx, h, bus); err != nil {
			m.logger.Warn("hook action failed", zap.String("hook", h.Name), zap.Error(err))
			continue
		}
		m.logger.Info("hook fired", zap.String("hook", h.Name))
	}
	return fired
}

func (m *Manager) evaluate(h Hook, snap memory.Snapshot) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("hook condition panicked", zap.String("hook", h.Name), zap.Any("panic", r))
			ok = false
		}
	}()
	return h.Condition != nil && h.Condition(snap)
}

func (m *Manager) run(ctx context.Context, h Hook, bus *memory.ContextBus) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", model.ErrHookActionFailed, h.Name, r)
		}
	}()
	if h.Action == nil {
		return nil
	}
	if err := h.Action(ctx, bus); err != nil {
		return fmt.Errorf("%w: %s: %v", model.ErrHookActionFailed, h.Name, err)
	}
	return nil
}

// WeatherAlertHook re-plans an existing outfit recommendation when the
// weather carries an alert or a storm/warning condition.
func WeatherAlertHook(replanner OutfitReplanner, logger *zap.Logger) Hook {
	return Hook{
		Name: WeatherAlert,
		Condition: func(snap memory.Snapshot) bool {
			e, ok := snap[memory.KeyWeather]
			if !ok || !weatherSevere(e.Value) {
				return false
			}
			outfit, ok := snap[memory.KeyOutfit]
			return ok && outfit.Source != WeatherAlert
		},
		Action: func(ctx context.Context, bus *memory.ContextBus) error {
			alert := weatherAlert(bus.Get(memory.KeyWeather, nil))
			logger.Info("weather alert, re-planning outfit", zap.String("alert", alert))
			if replanner == nil {
				return nil
			}
			formal, _ := bus.Get(memory.KeyFormalRequirement, false).(bool)
			outfit, err := replanner.ReplanOutfit(ctx, bus, "Weather alert: "+alert, formal)
			if err != nil {
				return err
			}
			bus.Set(memory.KeyOutfit, outfit, WeatherAlert)
			return nil
		},
	}
}

// BreakingNewsHook copies the first breaking headline into urgent_notification.
func BreakingNewsHook() Hook {
	return Hook{
		Name: BreakingNews,
		Condition: func(snap memory.Snapshot) bool {
			if _, ok := snap[memory.KeyUrgentNotification]; ok {
				return false
			}
			return BreakingLine(snap.String(memory.KeyNewsBriefing)) != ""
		},
		Action: func(_ context.Context, bus *memory.ContextBus) error {
			line := BreakingLine(bus.String(memory.KeyNewsBriefing))
			if line == "" {
				return nil
			}
			bus.Set(memory.KeyUrgentNotification, line, BreakingNews)
			return nil
		},
	}
}

var breakingMarkers = []string{"breaking", "突发"}

// BreakingLine returns the first briefing line that carries an urgency
// marker, stripped of markdown decoration, or "".
func BreakingLine(briefing string) string {
	for _, line := range strings.Split(briefing, "\n") {
		lower := strings.ToLower(line)
		for _, marker := range breakingMarkers {
			if strings.Contains(lower, marker) {
				return strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "#*-> "))
			}
		}
	}
	return ""
}

var formalMarkers = []string{
	"meeting", "interview", "presentation", "ceremony", "conference", "wedding",
	"会议", "面试", "演讲", "典礼",
}

// MentionsFormalEvent reports whether a plan mentions an event that calls for formal dress.
func MentionsFormalEvent(plan string) bool {
	lower := strings.ToLower(plan)
	for _, m := range formalMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// FormalScheduleHook marks formal_requirement when the work or life plan
// mentions a formal event, and re-plans an existing outfit for it.
func FormalScheduleHook(replanner OutfitReplanner) Hook {
	return Hook{
		Name: FormalSchedule,
		Condition: func(snap memory.Snapshot) bool {
			if _, ok := snap[memory.KeyFormalRequirement]; ok {
				return false
			}
			return MentionsFormalEvent(snap.String(memory.KeyWorkPlan)) || MentionsFormalEvent(snap.String(memory.KeyLifePlan))
		},
		Action: func(ctx context.Context, bus *memory.ContextBus) error {
			bus.Set(memory.KeyFormalRequirement, true, FormalSchedule)
			if replanner == nil || !bus.Has(memory.KeyOutfit) {
				return nil
			}
			outfit, err := replanner.ReplanOutfit(ctx, bus, "Today's schedule includes a formal event.", true)
			if err != nil {
				return err
			}
			bus.Set(memory.KeyOutfit, outfit, FormalSchedule)
			return nil
		},
	}
}

func weatherSevere(v any) bool {
	return weatherAlert(v) != ""
}

// weatherAlert returns the alert text of a bus weather value, or "".
func weatherAlert(v any) string {
	switch w := v.(type) {
	case model.Weather:
		return alertOf(w.Alert, w.Desc())
	case *model.Weather:
		if w == nil {
			return ""
		}
		return alertOf(w.Alert, w.Desc())
	case map[string]any:
		alert, _ := w["alert"].(string)
		desc, _ := w["desc"].(string)
		if desc == "" {
			desc, _ = w["condition"].(string)
		}
		if _, has := w["alert"]; has && alert == "" {
			alert = "weather alert"
		}
		return alertOf(alert, desc)
	case string:
		return alertOf("", w)
	default:
		return ""
	}
}

func alertOf(alert, desc string) string {
	if alert != "" {
		return alert
	}
	if feeds.IsSevere(desc) {
		return desc
	}
	return ""
}
