package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/life-assistant/internal/agent"
	"github.com/rcliao/life-assistant/internal/memory"
	"github.com/rcliao/life-assistant/internal/model"
)

// Chat answers one free-form turn for agentType using the layered context
// and records the exchange in window on success.
func (r *Runtime) Chat(ctx context.Context, agentType, message string, window *memory.SlidingWindow) (string, error) {
	if err := r.RequireLLM(); err != nil {
		return "", err
	}
	msgs := r.Orchestrator().Messages(ctx, memory.AssembleParams{
		System:    agent.ChatSystem(agentType),
		AgentType: agentType,
		Query:     message,
		Window:    window,
	})
	out, err := r.LLM.SendMessage(ctx, msgs)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty reply", model.ErrLLMUnavailable)
	}
	window.Add(model.RoleUser, message)
	window.Add(model.RoleAssistant, out)
	return out, nil
}
