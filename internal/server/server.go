// Package server is the HTTP delivery layer: chunked chat over server-sent
// events, the daily news view with background refresh, and summaries.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/agent"
	"github.com/rcliao/life-assistant/internal/app"
	"github.com/rcliao/life-assistant/internal/chief"
	"github.com/rcliao/life-assistant/internal/model"
	"github.com/rcliao/life-assistant/internal/store"
)

const (
	snippetLen      = 200
	defaultLatest   = 20
	maxRequestBytes = 1 << 20
	requestIDHeader = "X-Request-ID"
)

type ctxKey struct{}

// Server serves the assistant over HTTP.
type Server struct {
	rt  *app.Runtime
	log *zap.Logger

	// refreshing guards the single in-flight news refresh.
	refreshing atomic.Bool
	bg         sync.WaitGroup
	bgCtx      context.Context
	bgCancel   context.CancelFunc
}

func New(rt *app.Runtime, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{rt: rt, log: logger, bgCtx: ctx, bgCancel: cancel}
}

// Handler returns the routed handler. JSON routes are gzip-compressed; the
// event stream is not, so frames reach the client as they are written.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.Handle("GET /news", gzhttp.GzipHandler(http.HandlerFunc(s.handleNews)))
	mux.Handle("GET /summaries", gzhttp.GzipHandler(http.HandlerFunc(s.handleSummaries)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return s.withRequestID(mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down and
// waits for background work.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("http server listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close cancels background refreshes and summaries and waits for them.
func (s *Server) Close() {
	s.bgCancel()
	s.bg.Wait()
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (s *Server) logger(r *http.Request) *zap.Logger {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return s.log.With(zap.String("request_id", id), zap.String("path", r.URL.Path))
}

// goBackground runs fn on the server's background context.
func (s *Server) goBackground(fn func(ctx context.Context)) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		fn(s.bgCtx)
	}()
}

// NewsResponse is the body of GET /news.
type NewsResponse struct {
	Date        string              `json:"date"`
	Articles    []model.NewsArticle `json:"articles"`
	Content     string              `json:"content"`
	ContentHTML string              `json:"content_html,omitempty"`
	Snippet     string              `json:"snippet"`
	Generated   bool                `json:"generated"`
	IsUpdating  bool                `json:"is_updating"`
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.logger(r)
	today := s.rt.Now().Format(model.DateLayout)

	date := r.URL.Query().Get("target_date")
	if date == "" {
		date = today
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "target_date must be YYYY-MM-DD")
		return
	}
	latest := defaultLatest
	if v := r.URL.Query().Get("latest"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "latest must be a positive integer")
			return
		}
		latest = n
	}

	articles, err := s.rt.Store.ListArticles(ctx, date, latest)
	if err != nil {
		log.Error("list articles failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load articles")
		return
	}
	resp := NewsResponse{Date: date, Articles: articles}
	if resp.Articles == nil {
		resp.Articles = []model.NewsArticle{}
	}

	entry, err := s.rt.Store.GetContent(ctx, agent.NameNews, date)
	switch {
	case err == nil:
		resp.Content = entry.ContentText
		resp.ContentHTML = agent.RenderHTML(entry.ContentText)
		resp.Snippet = snippet(entry.ContentText)
	case !errors.Is(err, model.ErrNotFound):
		log.Warn("load briefing failed", zap.Error(err))
	}
	resp.Generated = len(articles) > 0 || resp.Content != ""

	scheduled := false
	if date == today {
		stale, err := s.NeedsRefresh(ctx, date)
		if err != nil {
			log.Warn("refresh check failed", zap.Error(err))
		}
		if stale {
			scheduled = s.scheduleRefresh(log)
		}
	}
	resp.IsUpdating = scheduled || s.refreshing.Load()
	writeJSON(w, http.StatusOK, resp)
}

// NeedsRefresh reports whether date has no stored articles or the newest
// is older than the configured refresh interval.
func (s *Server) NeedsRefresh(ctx context.Context, date string) (bool, error) {
	latest, ok, err := s.rt.Store.LatestArticleTime(ctx, date)
	if err != nil {
		return true, err
	}
	if !ok {
		return true, nil
	}
	after := s.rt.Config().News.RefreshAfter
	if after <= 0 {
		after = 4 * time.Hour
	}
	return s.rt.Now().Sub(latest) > after, nil
}

// scheduleRefresh starts a news run unless one is already in flight.
func (s *Server) scheduleRefresh(log *zap.Logger) bool {
	if !s.refreshing.CompareAndSwap(false, true) {
		return false
	}
	log.Info("scheduling news refresh")
	s.goBackground(func(ctx context.Context) {
		defer s.refreshing.Store(false)
		start := time.Now()
		c := s.rt.NewChief(s.rt.NewWindow())
		rep, err := c.RunStep(ctx, chief.StepNews, nil)
		if err != nil || rep.Failed() {
			log.Warn("news refresh produced nothing", zap.Error(err))
			return
		}
		log.Info("news refresh done", zap.Duration("duration", time.Since(start)))
	})
	return true
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	agentType := r.URL.Query().Get("agent_type")
	if agentType == "" {
		agentType = agent.NameWork
	}
	days := s.rt.Config().Context.HistoryDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	now := s.rt.Now()
	sums, err := s.rt.Store.SummaryRange(r.Context(), store.SummaryRangeParams{
		AgentType: agentType,
		Start:     now.AddDate(0, 0, -(days - 1)).Format(model.DateLayout),
		End:       now.Format(model.DateLayout),
	})
	if err != nil {
		s.logger(r).Error("summary range failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load summaries")
		return
	}
	if sums == nil {
		sums = []model.DailySummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"agent_type": agentType, "summaries": sums})
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLen {
		return s
	}
	return string(r[:snippetLen]) + "..."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
