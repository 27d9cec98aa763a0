package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/life-assistant/internal/feeds"
	"github.com/rcliao/life-assistant/internal/model"
)

// DefaultPreferences is used when no preference block is configured.
const DefaultPreferences = "Comfortable smart-casual, neutral colours, breathable fabrics."

// OutfitInput is the collected input of the stylist.
type OutfitInput struct {
	Weather model.Weather
	Formal  bool
}

func (o OutfitInput) String() string {
	s := o.Weather.String()
	if o.Formal {
		s += " formal"
	}
	return s
}

// Outfit recommends clothing for the day's weather.
type Outfit struct {
	*Base
	weather     feeds.WeatherProvider
	location    string
	preferences func() string
}

// NewOutfit creates the stylist. preferences is read on every call so
// configuration reloads apply.
func NewOutfit(d Deps, weather feeds.WeatherProvider, location string, preferences func() string) *Outfit {
	if preferences == nil {
		preferences = func() string { return DefaultPreferences }
	}
	return &Outfit{Base: newBase(NameOutfit, d), weather: weather, location: location, preferences: preferences}
}

// FetchWeather returns current weather for the configured location.
func (o *Outfit) FetchWeather(ctx context.Context) (model.Weather, error) {
	if o.weather == nil {
		return model.Weather{}, fmt.Errorf("%w: no weather provider", model.ErrCollectionFailed)
	}
	return o.weather.Current(ctx, o.location)
}

func (o *Outfit) Collect(ctx context.Context, in Inputs) (any, error) {
	var w model.Weather
	switch v := in[InputWeather].(type) {
	case model.Weather:
		w = v
	case *model.Weather:
		w = *v
	default:
		fetched, err := o.FetchWeather(ctx)
		if err != nil {
			return nil, err
		}
		w = fetched
	}
	return OutfitInput{Weather: w, Formal: in.Bool(InputFormalRequested)}, nil
}

func (o *Outfit) Process(ctx context.Context, raw any, history string) (string, error) {
	in, ok := raw.(OutfitInput)
	if !ok {
		return "", fmt.Errorf("outfit: unexpected input %T", raw)
	}
	return o.Ask(ctx, outfitSystem, fmt.Sprintf(outfitPrompt,
		in.Weather.String(), AnalyzeWeather(in.Weather), formalLine(in.Formal), o.prefs(), historyBlock(history)))
}

// Replan revises a recommendation after conditions changed.
func (o *Outfit) Replan(ctx context.Context, w model.Weather, previous, reason string, formal bool) (string, error) {
	return o.Ask(ctx, outfitSystem, fmt.Sprintf(outfitReplanPrompt, reason, w.String(), previous, formalLine(formal)))
}

func (o *Outfit) prefs() string {
	if p := strings.TrimSpace(o.preferences()); p != "" {
		return p
	}
	return DefaultPreferences
}

func formalLine(formal bool) string {
	if formal {
		return "The user has a formal occasion today: the outfit must be business formal.\n"
	}
	return ""
}

// AnalyzeWeather summarises what the weather means for clothing.
func AnalyzeWeather(w model.Weather) string {
	var notes []string
	switch t := w.Temperature; {
	case t < 0:
		notes = append(notes, "freezing, heavy insulated layers")
	case t < 10:
		notes = append(notes, "cold, warm coat and layers")
	case t < 18:
		notes = append(notes, "cool, light jacket")
	case t < 26:
		notes = append(notes, "mild, single layer")
	default:
		notes = append(notes, "hot, light breathable fabrics")
	}
	if w.Humidity >= 80 {
		notes = append(notes, "humid")
	}
	if w.WindSpeed >= 8 {
		notes = append(notes, "windy, avoid loose layers")
	}
	c := strings.ToLower(w.Condition)
	if strings.Contains(c, "rain") || strings.Contains(c, "drizzle") || strings.Contains(c, "雨") {
		notes = append(notes, "wet, waterproof shoes and umbrella")
	}
	if strings.Contains(c, "snow") || strings.Contains(c, "雪") {
		notes = append(notes, "snow, insulated boots")
	}
	if w.Alert != "" {
		notes = append(notes, "ALERT: "+w.Alert+", prioritise protection")
	}
	return strings.Join(notes, "; ")
}
