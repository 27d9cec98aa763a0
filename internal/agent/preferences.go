package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/life-assistant/internal/llm"
	"github.com/rcliao/life-assistant/internal/model"
)

const maxPreferences = 5

// PreferenceExtractor derives user preferences from text and stores them
// as user_preferences memories.
type PreferenceExtractor struct {
	base *Base
}

// Extract asks the model for preferences in text and stores each one under
// the owning agent. It returns the stored preferences.
func (p PreferenceExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	reply, err := llm.SimpleChat(ctx, p.base.deps.LLM, fmt.Sprintf(preferencePrompt, text), preferenceSystem,
		llm.WithTemperature(0.1), llm.WithMaxTokens(300))
	if err != nil {
		return nil, err
	}

	prefs := ParsePreferences(reply)
	var stored []string
	for _, pref := range prefs {
		if _, err := p.base.deps.Memory.Add(ctx, pref, p.base.name, model.CategoryUserPreferences, p.base.today()); err != nil {
			return stored, err
		}
		stored = append(stored, pref)
	}
	return stored, nil
}

// ParsePreferences reads a JSON array of strings, falling back to bullet
// lines when the reply is not JSON.
func ParsePreferences(reply string) []string {
	var arr []any
	if err := llm.DecodeJSON(reply, &arr); err == nil {
		var out []string
		for _, v := range arr {
			var s string
			switch t := v.(type) {
			case string:
				s = t
			case map[string]any:
				s = llm.ContentOf(t)
				if s == "" {
					s, _ = t["preference"].(string)
				}
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return capList(out)
	}

	var out []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "*") && !strings.HasPrefix(line, "•") {
			continue
		}
		if s := strings.TrimSpace(strings.TrimLeft(line, "-*• ")); s != "" {
			out = append(out, s)
		}
	}
	return capList(out)
}

func capList(s []string) []string {
	if len(s) > maxPreferences {
		return s[:maxPreferences]
	}
	return s
}
