package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/life-assistant/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Store a long-term memory",
		Long:  "Store a semantic memory. Content can be a positional arg or piped via stdin. Identical memories are not duplicated.",
		Run:   runRemember,
	}

	cmd.Flags().StringP("agent", "a", "", "Owning agent type (required)")
	cmd.Flags().String("category", model.CategoryGeneral, "Category: user_preferences, important_decisions, task_history, health_patterns, extracted_insight, general")
	cmd.Flags().String("meta", "", "Free-text metadata")

	cmd.MarkFlagRequired("agent")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	agentType, _ := cmd.Flags().GetString("agent")
	category, _ := cmd.Flags().GetString("category")
	meta, _ := cmd.Flags().GetString("meta")

	// Get content: positional arg first, then check stdin
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	if strings.TrimSpace(content) == "" {
		exitErr("remember", fmt.Errorf("content is required (positional arg or stdin)"))
	}
	if !model.ValidCategories[category] {
		exitErr("remember", fmt.Errorf("unknown category %q", category))
	}

	rt, _ := openRuntime(cmd.Context())
	defer rt.Close()

	m, err := rt.Memory.Add(cmd.Context(), strings.TrimSpace(content), agentType, category, meta)
	if err != nil {
		exitErr("remember", err)
	}

	out := cmd.OutOrStdout()
	if formatFlag == "json" {
		printJSON(out, m)
		return
	}
	fmt.Fprintf(out, "stored %s (%s/%s)\n", m.ID, m.AgentType, m.Category)
}
