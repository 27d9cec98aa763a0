package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rcliao/life-assistant/internal/model"
)

// WeatherProvider returns current conditions for a location.
type WeatherProvider interface {
	Current(ctx context.Context, location string) (model.Weather, error)
}

// WeatherSettings configures a provider. BaseURL overrides the public endpoint.
type WeatherSettings struct {
	Provider string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// severeTokens mark a weather condition as an alert.
var severeTokens = []string{
	"storm", "thunder", "warning", "typhoon", "hurricane", "tornado",
	"blizzard", "hail", "squall", "暴", "警", "台风", "雷",
}

// IsSevere reports whether a condition text contains a storm or warning token.
func IsSevere(condition string) bool {
	c := strings.ToLower(condition)
	for _, tok := range severeTokens {
		if strings.Contains(c, tok) {
			return true
		}
	}
	return false
}

// NewWeatherProvider builds the configured provider.
func NewWeatherProvider(s WeatherSettings) (WeatherProvider, error) {
	if s.Timeout <= 0 {
		s.Timeout = 10 * time.Second
	}
	h := httpGetter{client: &http.Client{Timeout: s.Timeout}}
	switch s.Provider {
	case "qweather":
		return &QWeather{key: s.APIKey, base: orDefault(s.BaseURL, "https://devapi.qweather.com"), http: h}, nil
	case "seniverse":
		return &Seniverse{key: s.APIKey, base: orDefault(s.BaseURL, "https://api.seniverse.com"), http: h}, nil
	case "openweathermap", "":
		return &OpenWeatherMap{key: s.APIKey, base: orDefault(s.BaseURL, "https://api.openweathermap.org"), http: h}, nil
	default:
		return nil, fmt.Errorf("%w: unknown weather provider %q", model.ErrConfigInvalid, s.Provider)
	}
}

// QWeather uses the /v7/weather/now endpoint. Wind speed arrives in km/h.
type QWeather struct {
	key, base string
	http      httpGetter
}

func (q *QWeather) Current(ctx context.Context, location string) (model.Weather, error) {
	var out struct {
		Code string `json:"code"`
		Now  struct {
			Temp      string `json:"temp"`
			Text      string `json:"text"`
			Humidity  string `json:"humidity"`
			WindSpeed string `json:"windSpeed"`
		} `json:"now"`
	}
	q2 := url.Values{"location": {location}, "key": {q.key}, "lang": {"en"}}
	if err := q.http.getJSON(ctx, "qweather", q.base+"/v7/weather/now?"+q2.Encode(), q.key, &out); err != nil {
		return model.Weather{}, err
	}
	if out.Code != "200" {
		return model.Weather{}, fmt.Errorf("%w: qweather: code %s", model.ErrCollectionFailed, out.Code)
	}
	return finish(model.Weather{
		Location:    location,
		Temperature: num(out.Now.Temp),
		Condition:   out.Now.Text,
		Humidity:    num(out.Now.Humidity),
		WindSpeed:   num(out.Now.WindSpeed) / 3.6,
	}), nil
}

// Seniverse uses the /v3/weather/now.json endpoint.
type Seniverse struct {
	key, base string
	http      httpGetter
}

func (s *Seniverse) Current(ctx context.Context, location string) (model.Weather, error) {
	var out struct {
		Results []struct {
			Location struct {
				Name string `json:"name"`
			} `json:"location"`
			Now struct {
				Text        string `json:"text"`
				Temperature string `json:"temperature"`
				Humidity    string `json:"humidity"`
				WindSpeed   string `json:"wind_speed"`
			} `json:"now"`
		} `json:"results"`
	}
	q := url.Values{"key": {s.key}, "location": {location}, "language": {"en"}, "unit": {"c"}}
	if err := s.http.getJSON(ctx, "seniverse", s.base+"/v3/weather/now.json?"+q.Encode(), s.key, &out); err != nil {
		return model.Weather{}, err
	}
	if len(out.Results) == 0 {
		return model.Weather{}, fmt.Errorf("%w: seniverse: no results", model.ErrCollectionFailed)
	}
	r := out.Results[0]
	name := r.Location.Name
	if name == "" {
		name = location
	}
	return finish(model.Weather{
		Location:    name,
		Temperature: num(r.Now.Temperature),
		Condition:   r.Now.Text,
		Humidity:    num(r.Now.Humidity),
		WindSpeed:   num(r.Now.WindSpeed) / 3.6,
	}), nil
}

// OpenWeatherMap uses /data/2.5/weather in metric units.
type OpenWeatherMap struct {
	key, base string
	http      httpGetter
}

func (o *OpenWeatherMap) Current(ctx context.Context, location string) (model.Weather, error) {
	var out struct {
		Name string `json:"name"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	}
	q := url.Values{"q": {location}, "appid": {o.key}, "units": {"metric"}}
	if err := o.http.getJSON(ctx, "openweathermap", o.base+"/data/2.5/weather?"+q.Encode(), o.key, &out); err != nil {
		return model.Weather{}, err
	}
	cond := ""
	if len(out.Weather) > 0 {
		cond = out.Weather[0].Description
		if cond == "" {
			cond = out.Weather[0].Main
		}
	}
	name := out.Name
	if name == "" {
		name = location
	}
	return finish(model.Weather{
		Location:    name,
		Temperature: out.Main.Temp,
		Condition:   cond,
		Humidity:    out.Main.Humidity,
		WindSpeed:   out.Wind.Speed,
	}), nil
}

type httpGetter struct {
	client *http.Client
}

func (h httpGetter) getJSON(ctx context.Context, provider, endpoint, key string, out any) error {
	if key == "" {
		return fmt.Errorf("%w: %s: API key not configured", model.ErrCollectionFailed, provider)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", model.ErrCollectionFailed, provider, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: request failed: %v", model.ErrCollectionFailed, provider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: status %d: %s", model.ErrCollectionFailed, provider, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", model.ErrCollectionFailed, provider, err)
	}
	return nil
}

func finish(w model.Weather) model.Weather {
	if IsSevere(w.Condition) {
		w.Alert = w.Condition
	}
	return w
}

func num(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return strings.TrimRight(s, "/")
}
