package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/app"
	"github.com/rcliao/life-assistant/internal/memory"
)

const quitCommand = "/quit"

// runREPL chats with agentType line by line until /quit or EOF, then
// summarises the conversation.
func runREPL(ctx context.Context, rt *app.Runtime, agentType string, window *memory.SlidingWindow, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Chatting with %s. Type %s to exit.\n", agentType, quitCommand)
	sc := bufio.NewScanner(in)
	turns := 0
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == quitCommand {
			break
		}
		reply, err := rt.Chat(ctx, agentType, line, window)
		if err != nil {
			rt.Logger.Warn("chat turn failed", zap.String("agent", agentType), zap.Error(err))
			fmt.Fprintln(out, muted(out, "(no reply: "+err.Error()+")"))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		turns++
		fmt.Fprintln(out, renderMarkdown(out, reply))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if turns == 0 {
		return nil
	}
	if _, err := rt.Summarizer.Summarize(context.WithoutCancel(ctx), agentType, window.History()); err != nil {
		rt.Logger.Warn("session summary failed", zap.Error(err))
	}
	return nil
}
