package memory

import (
	"unicode/utf8"

	"github.com/rcliao/life-assistant/internal/model"
)

// messageOverhead approximates the per-message role and framing tokens.
const messageOverhead = 4

// EstimateTokens approximates token count at ~4 characters per token.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// MessageTokens estimates one message including framing overhead.
func MessageTokens(m model.Message) int {
	return EstimateTokens(m.Content) + messageOverhead
}

// TotalTokens estimates a full message list.
func TotalTokens(msgs []model.Message) int {
	total := 0
	for _, m := range msgs {
		total += MessageTokens(m)
	}
	return total
}
