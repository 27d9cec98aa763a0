package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	rt, cfg := openRuntime(cmd.Context())
	defer rt.Close()

	stats, err := rt.Store.Stats(cmd.Context(), cfg.Store.Path)
	if err != nil {
		exitErr("stats", err)
	}

	out := cmd.OutOrStdout()
	if formatFlag == "json" {
		printJSON(out, stats)
		return
	}
	fmt.Fprintf(out, "db:        %s (%d bytes)\n", stats.DBPath, stats.DBSizeBytes)
	fmt.Fprintf(out, "summaries: %d\nmemories:  %d\ncontent:   %d\narticles:  %d\n",
		stats.Summaries, stats.Memories, stats.ContentRows, stats.Articles)
	if stats.NewestNews != "" {
		fmt.Fprintf(out, "newest:    %s\n", stats.NewestNews)
	}
	for _, a := range stats.Agents {
		fmt.Fprintf(out, "  %-8s memories=%d summaries=%d\n", a.AgentType, a.Memories, a.Summaries)
	}
}
