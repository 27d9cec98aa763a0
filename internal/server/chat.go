package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/agent"
	"github.com/rcliao/life-assistant/internal/chunker"
	"github.com/rcliao/life-assistant/internal/model"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message"`
	AgentType string `json:"agent_type"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := s.logger(r)
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.AgentType == "" {
		req.AgentType = agent.NameWork
	}
	log = log.With(zap.String("agent", req.AgentType))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)
	send := func(v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
			return err
		}
		return rc.Flush()
	}

	window := s.rt.NewWindow()
	reply, err := s.rt.Chat(r.Context(), req.AgentType, req.Message, window)
	if err != nil {
		log.Warn("chat failed", zap.Error(err))
		send(map[string]string{"error": chatError(err)})
		return
	}

	cfg := s.rt.Config()
	err = chunker.Stream(r.Context(), reply, cfg.Server.ChunkSize, cfg.Server.ChunkDelay, func(chunk string) error {
		return send(map[string]string{"content": chunk})
	})
	if err != nil {
		log.Info("chat stream aborted", zap.Error(err))
		return
	}
	send(map[string]string{"status": "completed"})

	history := window.History()
	ctx := context.WithoutCancel(r.Context())
	s.goBackground(func(bg context.Context) {
		if bg.Err() != nil {
			return
		}
		if _, err := s.rt.Summarizer.Summarize(ctx, req.AgentType, history); err != nil {
			log.Warn("chat summary failed", zap.Error(err))
		}
	})
}

func chatError(err error) string {
	switch {
	case errors.Is(err, model.ErrConfigInvalid):
		return "assistant is not configured"
	case errors.Is(err, model.ErrLLMUnavailable):
		return "assistant is temporarily unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "request cancelled"
	default:
		return "chat failed"
	}
}
