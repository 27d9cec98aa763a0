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
	DefaultGLMBaseURL = "https://open.bigmodel.cn/api/paas/v4"
	DefaultGLMModel   = "glm-4-flash"
)

// Defaults are the client-level fallbacks for every call.
type Defaults struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// OpenAIClient speaks the OpenAI-compatible chat completions API, which GLM serves.
type OpenAIClient struct {
	name       string
	def        Defaults
	httpClient *http.Client
}

type chatRequest struct {
	Model       string          `json:"model"`
	Messages    []model.Message `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message model.Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGLMClient creates a GLM client with GLM defaults filled in.
func NewGLMClient(def Defaults) *OpenAIClient {
	if def.BaseURL == "" {
		def.BaseURL = DefaultGLMBaseURL
	}
	if def.Model == "" {
		def.Model = DefaultGLMModel
	}
	return newOpenAIClient("glm", def)
}

func newOpenAIClient(name string, def Defaults) *OpenAIClient {
	if def.Timeout <= 0 {
		def.Timeout = 60 * time.Second
	}
	return &OpenAIClient{
		name:       name,
		def:        def,
		httpClient: &http.Client{Timeout: def.Timeout},
	}
}

func (c *OpenAIClient) SendMessage(ctx context.Context, messages []model.Message, opts ...Option) (string, error) {
	if c.def.APIKey == "" {
		return "", unavailable(c.name, "API key not configured")
	}
	o := resolve(opts, c.def)

	body, err := json.Marshal(chatRequest{
		Model:       o.Model,
		Messages:    messages,
		MaxTokens:   o.MaxTokens,
		Temperature: *o.Temperature,
	})
	if err != nil {
		return "", unavailable(c.name, "marshal request: %v", err)
	}

	url := strings.TrimRight(c.def.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", unavailable(c.name, "create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.def.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", unavailable(c.name, "request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", unavailable(c.name, "read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", unavailable(c.name, "status %d: %s", resp.StatusCode, trimBody(raw))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", unavailable(c.name, "parse response: %v", err)
	}
	if out.Error != nil {
		return "", unavailable(c.name, "API error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", unavailable(c.name, "no completion returned")
	}
	return out.Choices[0].Message.Content, nil
}
