package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search long-term memory",
		Long:  "Search semantic memories and past agent outputs for matching terms.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("agent", "a", "", "Filter by agent type")
	cmd.Flags().IntP("limit", "l", 0, "Max results (default: memory.search_limit)")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	agentType, _ := cmd.Flags().GetString("agent")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	rt, _ := openRuntime(cmd.Context())
	defer rt.Close()

	results, err := rt.Memory.Search(cmd.Context(), query, limit, agentType)
	if err != nil {
		exitErr("search", err)
	}

	out := cmd.OutOrStdout()
	if formatFlag == "json" {
		if len(results) == 0 {
			fmt.Fprintln(out, "[]")
			return
		}
		printJSON(out, results)
		return
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No memories found.")
		return
	}
	for _, r := range results {
		fmt.Fprintf(out, "%.2f  %s/%s  %s\n", r.Score, r.AgentType, r.Category, r.Content)
	}
}
