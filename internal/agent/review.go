package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/model"
)

// reviewSources are the agents whose outputs a review reads, in order.
var reviewSources = []string{NameNews, NameOutfit, NameLife, NameWork}

// Review reflects on the day's outputs and learns preferences from the reflection.
type Review struct {
	*Base
	prefs PreferenceExtractor
}

func NewReview(d Deps) *Review {
	r := &Review{Base: newBase(NameReview, d)}
	r.prefs = PreferenceExtractor{base: r.Base}
	return r
}

// Collect concatenates the day's outputs. Outputs passed in by the caller
// win; missing ones are read from today's content index.
func (r *Review) Collect(ctx context.Context, in Inputs) (any, error) {
	given, _ := in[InputOutputs].(map[string]string)
	var sb strings.Builder
	for _, name := range reviewSources {
		text := strings.TrimSpace(given[name])
		if text == "" && r.deps.Store != nil {
			e, err := r.deps.Store.GetContent(ctx, name, r.today())
			if err != nil && !errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("%w: read %s output: %v", model.ErrCollectionFailed, name, err)
			}
			if e != nil {
				text = strings.TrimSpace(e.ContentText)
			}
		}
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "### %s\n%s\n\n", name, text)
	}
	if notes := strings.TrimSpace(in.String(InputUserInput)); notes != "" {
		fmt.Fprintf(&sb, "### notes\n%s\n", notes)
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("%w: nothing to review today", model.ErrCollectionFailed)
	}
	return sb.String(), nil
}

func (r *Review) Process(ctx context.Context, raw any, history string) (string, error) {
	return r.Ask(ctx, reviewSystem, fmt.Sprintf(reviewPrompt, fmt.Sprint(raw), historyBlock(history)))
}

// Persist indexes the review and stores preferences extracted from it.
func (r *Review) Persist(ctx context.Context, result string) bool {
	ok := r.Base.Persist(ctx, result)
	if r.deps.Memory == nil || r.deps.LLM == nil {
		return ok
	}
	prefs, err := r.prefs.Extract(ctx, result)
	if err != nil {
		r.log.Warn("preference extraction failed", zap.Error(err))
		return false
	}
	if len(prefs) > 0 {
		r.log.Info("preferences learned", zap.Int("count", len(prefs)))
	}
	return ok
}
