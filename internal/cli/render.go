package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/rcliao/life-assistant/internal/chief"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// renderMarkdown styles md for a terminal; other writers get it unchanged.
func renderMarkdown(w io.Writer, md string) string {
	if !isTTY(w) {
		return md
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func muted(w io.Writer, s string) string {
	if !isTTY(w) {
		return s
	}
	return mutedStyle.Render(s)
}

func header(w io.Writer, title string) string {
	if !isTTY(w) {
		return "== " + title + " =="
	}
	return headerStyle.Render(strings.ToUpper(title))
}

type reportJSON struct {
	Step    string            `json:"step"`
	Results map[string]string `json:"results"`
	Order   []string          `json:"order"`
	Hooks   []string          `json:"hooks_fired,omitempty"`
	Skipped []string          `json:"skipped,omitempty"`
	Error   string            `json:"error,omitempty"`
	Seconds float64           `json:"duration_seconds"`
}

func printReport(w io.Writer, rep *chief.Report) error {
	if formatFlag == "json" {
		out := reportJSON{
			Step:    rep.Step,
			Results: rep.Results,
			Order:   rep.Order,
			Hooks:   rep.Fired,
			Skipped: rep.Skipped,
			Seconds: rep.Duration.Seconds(),
		}
		if rep.Err != nil {
			out.Error = rep.Err.Error()
		}
		return printJSON(w, out)
	}

	for _, name := range rep.Order {
		fmt.Fprintln(w, header(w, name))
		if res := rep.Results[name]; res != "" {
			fmt.Fprintln(w, renderMarkdown(w, res))
		} else {
			fmt.Fprintln(w, muted(w, "(no output)"))
		}
		fmt.Fprintln(w)
	}
	if len(rep.Fired) > 0 {
		fmt.Fprintln(w, muted(w, "hooks fired: "+strings.Join(rep.Fired, ", ")))
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
