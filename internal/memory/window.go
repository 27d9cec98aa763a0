package memory

import (
	"sync"

	"github.com/rcliao/life-assistant/internal/model"
)

// DefaultWindowSize is the default sliding window bound.
const DefaultWindowSize = 10

// SlidingWindow is the bounded short-term message buffer of a conversation.
type SlidingWindow struct {
	mu   sync.Mutex
	max  int
	msgs []model.Message
}

// NewSlidingWindow creates a window holding at most max messages.
func NewSlidingWindow(max int) *SlidingWindow {
	if max <= 0 {
		max = DefaultWindowSize
	}
	return &SlidingWindow{max: max}
}

// Add appends a message and evicts from the head past the bound.
func (w *SlidingWindow) Add(role, content string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, model.Message{Role: role, Content: content})
	if over := len(w.msgs) - w.max; over > 0 {
		w.msgs = append([]model.Message(nil), w.msgs[over:]...)
	}
}

// History returns the messages oldest first. The slice is a copy.
func (w *SlidingWindow) History() []model.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.Message(nil), w.msgs...)
}

func (w *SlidingWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.msgs)
}

func (w *SlidingWindow) Max() int { return w.max }

func (w *SlidingWindow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = nil
}
