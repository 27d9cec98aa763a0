package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/life-assistant/internal/model"
)

// LifeInput is the collected input of the lifestyle advisor.
type LifeInput struct {
	Date    string
	Weekday string
	Health  map[string]string
	Vision  string
}

func (l LifeInput) String() string {
	return fmt.Sprintf("%s %s %s %s", l.Date, l.Weekday, formatHealth(l.Health), l.Vision)
}

// Life plans diet, exercise and schedule for the day.
type Life struct {
	*Base
}

func NewLife(d Deps) *Life { return &Life{Base: newBase(NameLife, d)} }

// Health metrics are placeholders until a tracker is connected.
func placeholderHealth() map[string]string {
	return map[string]string{
		"sleep_hours": "7",
		"steps":       "unknown",
		"resting_hr":  "unknown",
	}
}

func (l *Life) Collect(_ context.Context, in Inputs) (any, error) {
	now := l.deps.Now()
	return LifeInput{
		Date:    now.Format(model.DateLayout),
		Weekday: now.Weekday().String(),
		Health:  placeholderHealth(),
		Vision:  strings.TrimSpace(in.String(InputVisionResults)),
	}, nil
}

func (l *Life) Process(ctx context.Context, raw any, history string) (string, error) {
	in, ok := raw.(LifeInput)
	if !ok {
		return "", fmt.Errorf("life: unexpected input %T", raw)
	}
	vision := ""
	if in.Vision != "" {
		vision = "Image analysis: " + in.Vision + "\n"
	}
	return l.Ask(ctx, lifeSystem, fmt.Sprintf(lifePrompt, in.Date, in.Weekday, formatHealth(in.Health), vision, historyBlock(history)))
}

func formatHealth(h map[string]string) string {
	keys := []string{"sleep_hours", "steps", "resting_hr"}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v, ok := h[k]; ok {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, ", ")
}
