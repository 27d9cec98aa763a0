package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/life-assistant/internal/model"
)

const defaultWorkInput = "Plan today's work."

// WorkInput is the collected input of the work planner.
type WorkInput struct {
	Input    string
	Rollover []string
}

func (w WorkInput) String() string {
	return w.Input + "\n" + strings.Join(w.Rollover, "\n")
}

// Work turns free-text notes and yesterday's unfinished tasks into a plan.
type Work struct {
	*Base
}

func NewWork(d Deps) *Work { return &Work{Base: newBase(NameWork, d)} }

func (w *Work) Collect(ctx context.Context, in Inputs) (any, error) {
	input := strings.TrimSpace(in.String(InputUserInput))
	if input == "" {
		input = defaultWorkInput
	}
	rollover, err := w.Rollover(ctx)
	if err != nil {
		return nil, err
	}
	return WorkInput{Input: input, Rollover: rollover}, nil
}

// Rollover returns yesterday's incomplete task lines, those marked "[ ]".
func (w *Work) Rollover(ctx context.Context) ([]string, error) {
	if w.deps.Store == nil {
		return nil, nil
	}
	yesterday := w.deps.Now().Add(-24 * time.Hour).Format(model.DateLayout)
	e, err := w.deps.Store.GetContent(ctx, w.name, yesterday)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read rollover: %v", model.ErrCollectionFailed, err)
	}
	var open []string
	for _, line := range strings.Split(e.ContentText, "\n") {
		if strings.Contains(line, "[ ]") {
			open = append(open, strings.TrimSpace(line))
		}
	}
	return open, nil
}

func (w *Work) Process(ctx context.Context, raw any, history string) (string, error) {
	in, ok := raw.(WorkInput)
	if !ok {
		return "", fmt.Errorf("work: unexpected input %T", raw)
	}
	rollover := "(none)"
	if len(in.Rollover) > 0 {
		rollover = strings.Join(in.Rollover, "\n")
	}
	return w.Ask(ctx, workSystem, fmt.Sprintf(workPrompt, in.Input, rollover, historyBlock(history)))
}
