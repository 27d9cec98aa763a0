package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rcliao/life-assistant/internal/model"
)

const (
	DefaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	DefaultAnthropicModel   = "claude-3-5-haiku-latest"
	anthropicVersion        = "2023-06-01"
)

// AnthropicClient speaks the Anthropic Messages API.
type AnthropicClient struct {
	def        Defaults
	httpClient *http.Client
}

type anthropicRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system,omitempty"`
	Messages    []model.Message `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicClient(def Defaults) *AnthropicClient {
	if def.BaseURL == "" {
		def.BaseURL = DefaultAnthropicBaseURL
	}
	if def.Model == "" {
		def.Model = DefaultAnthropicModel
	}
	if def.MaxTokens <= 0 {
		def.MaxTokens = 2000
	}
	if def.Timeout <= 0 {
		def.Timeout = 60 * time.Second
	}
	return &AnthropicClient{def: def, httpClient: &http.Client{Timeout: def.Timeout}}
}

// splitSystem lifts system messages out of the list. Messages cannot carry
// the system role, so they are joined into the top-level system field.
func splitSystem(messages []model.Message) (string, []model.Message) {
	var system []string
	var rest []model.Message
	for _, m := range messages {
		if m.Role == model.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

func (c *AnthropicClient) SendMessage(ctx context.Context, messages []model.Message, opts ...Option) (string, error) {
	if c.def.APIKey == "" {
		return "", unavailable("anthropic", "API key not configured")
	}
	o := resolve(opts, c.def)
	system, rest := splitSystem(messages)

	body, err := json.Marshal(anthropicRequest{
		Model:       o.Model,
		System:      system,
		Messages:    rest,
		MaxTokens:   o.MaxTokens,
		Temperature: *o.Temperature,
	})
	if err != nil {
		return "", unavailable("anthropic", "marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.def.BaseURL, "/")+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", unavailable("anthropic", "create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.def.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", unavailable("anthropic", "request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", unavailable("anthropic", "read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", unavailable("anthropic", "status %d: %s", resp.StatusCode, trimBody(raw))
	}

	var out anthropicResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", unavailable("anthropic", "parse response: %v", err)
	}
	if out.Error != nil {
		return "", unavailable("anthropic", "API error: %s", out.Error.Message)
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", unavailable("anthropic", "no completion returned")
	}
	return sb.String(), nil
}
