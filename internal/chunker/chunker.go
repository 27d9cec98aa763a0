// Package chunker splits a finished response into fixed-size pieces for
// chunked delivery.
package chunker

import (
	"context"
	"time"
)

const DefaultSize = 5

// ChunkResult is one piece of the text with its rune offsets.
type ChunkResult struct {
	Text  string
	Start int
	End   int
}

// Chunk splits text into pieces of at most size runes. A non-positive size
// uses DefaultSize. Empty text yields nil.
func Chunk(text string, size int) []ChunkResult {
	if size <= 0 {
		size = DefaultSize
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	out := make([]ChunkResult, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, ChunkResult{Text: string(runes[start:end]), Start: start, End: end})
	}
	return out
}

// Stream hands each chunk of text to emit, pausing delay between chunks.
// It stops at the first emit error or when ctx is done.
func Stream(ctx context.Context, text string, size int, delay time.Duration, emit func(string) error) error {
	chunks := Chunk(text, size)
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(c.Text); err != nil {
			return err
		}
		if delay <= 0 || i == len(chunks)-1 {
			continue
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}
