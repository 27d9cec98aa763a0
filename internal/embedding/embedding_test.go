package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rcliao/life-assistant/internal/model"
	"github.com/rcliao/life-assistant/internal/store"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		expected float64
	}{
		{"identical", Vector{1, 0, 0}, Vector{1, 0, 0}, 1.0},
		{"orthogonal", Vector{1, 0, 0}, Vector{0, 1, 0}, 0.0},
		{"opposite", Vector{1, 0, 0}, Vector{-1, 0, 0}, -1.0},
		{"similar", Vector{1, 1, 0}, Vector{1, 0, 0}, 0.707},
		{"empty", Vector{}, Vector{}, 0.0},
		{"different lengths", Vector{1, 0}, Vector{1, 0, 0}, 0.0},
		{"zero vector", Vector{0, 0, 0}, Vector{1, 0, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 0.01 {
				t.Errorf("CosineSimilarity(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestNew_KeywordBackendIsNil(t *testing.T) {
	for _, b := range []string{"", "keyword"} {
		e, err := New(context.Background(), Settings{Backend: b})
		if err != nil || e != nil {
			t.Errorf("backend %q: expected nil embedder, got %v, %v", b, e, err)
		}
	}
	if _, err := New(context.Background(), Settings{Backend: "magic"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewGenAI_RequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	if _, err := New(context.Background(), Settings{Backend: "genai"}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.5,0.5]}]}`))
	}))
	defer srv.Close()

	v, err := NewOpenAIEmbedder(srv.URL, "k", "", 2).Embed(context.Background(), "hi")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(v) != 2 || v[0] != 0.5 {
		t.Errorf("unexpected vector %v", v)
	}
}

func TestOllamaEmbedder_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder(srv.URL, "x").Embed(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected 404 error, got %v", err)
	}
}

// wordEmbedder maps text onto a fixed vocabulary, one dimension per word.
type wordEmbedder struct {
	vocab []string
	calls int
}

func (w *wordEmbedder) Embed(_ context.Context, text string) (Vector, error) {
	w.calls++
	v := make(Vector, len(w.vocab))
	lower := strings.ToLower(text)
	for i, word := range w.vocab {
		if strings.Contains(lower, word) {
			v[i] = 1
		}
	}
	return v, nil
}

func (w *wordEmbedder) Dims() int { return len(w.vocab) }

type fakeLister []model.MemoryEntry

func (f fakeLister) ListMemories(_ context.Context, p store.ListMemoriesParams) ([]model.MemoryEntry, error) {
	var out []model.MemoryEntry
	for _, m := range f {
		if p.AgentType == "" || m.AgentType == p.AgentType {
			out = append(out, m)
		}
	}
	return out, nil
}

func TestRetriever(t *testing.T) {
	emb := &wordEmbedder{vocab: []string{"blue", "shirt", "red", "shoes", "coffee"}}
	mems := fakeLister{
		{ID: "1", AgentType: "outfit", Content: "prefers blue shirt"},
		{ID: "2", AgentType: "outfit", Content: "likes red shoes"},
		{ID: "3", AgentType: "life", Content: "blue mood coffee"},
	}
	r := NewRetriever(emb, mems)
	ctx := context.Background()

	hits, err := r.Search(ctx, "blue shirt", 5, "outfit")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "1" {
		t.Fatalf("expected only memory 1, got %+v", hits)
	}
	if math.Abs(hits[0].Score-1) > 0.001 {
		t.Errorf("expected similarity 1, got %f", hits[0].Score)
	}

	before := emb.calls
	if _, err := r.Search(ctx, "blue shirt", 5, "outfit"); err != nil {
		t.Fatal(err)
	}
	if emb.calls != before+1 {
		t.Errorf("expected only the query to be re-embedded, got %d new calls", emb.calls-before)
	}

	if hits, _ := r.Search(ctx, "   ", 5, ""); hits != nil {
		t.Errorf("expected no hits for blank query, got %v", hits)
	}
}

func TestOllamaRequestBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "all-minilm" || body["prompt"] != "hello" {
			t.Errorf("unexpected body %v", body)
		}
		w.Write([]byte(`{"embedding":[1,2,3]}`))
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "all-minilm")
	if e.Dims() != 384 {
		t.Errorf("expected 384 dims, got %d", e.Dims())
	}
	if _, err := e.Embed(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
}
