package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/life-assistant/internal/agent"
	"github.com/rcliao/life-assistant/internal/memory"
	"github.com/rcliao/life-assistant/internal/model"
	"github.com/rcliao/life-assistant/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "summaries",
		Short: "List daily summaries",
		Long:  "List an agent's mid-term summaries for the last N days, oldest first.",
		Run:   runSummaries,
	}

	cmd.Flags().StringP("agent", "a", agent.NameWork, "Agent type")
	cmd.Flags().Int("days", 0, "Days to include (default: context.history_days)")
	cmd.Flags().IntP("limit", "l", 50, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSummaries(cmd *cobra.Command, args []string) {
	agentType, _ := cmd.Flags().GetString("agent")
	days, _ := cmd.Flags().GetInt("days")
	limit, _ := cmd.Flags().GetInt("limit")

	rt, cfg := openRuntime(cmd.Context())
	defer rt.Close()

	if days <= 0 {
		days = cfg.Context.HistoryDays
	}
	now := rt.Now()
	sums, err := rt.Store.SummaryRange(cmd.Context(), store.SummaryRangeParams{
		AgentType: agentType,
		Start:     now.AddDate(0, 0, -(days - 1)).Format(model.DateLayout),
		End:       now.Format(model.DateLayout),
		Limit:     limit,
	})
	if err != nil {
		exitErr("summaries", err)
	}

	out := cmd.OutOrStdout()
	if formatFlag == "json" {
		if len(sums) == 0 {
			fmt.Fprintln(out, "[]")
			return
		}
		printJSON(out, sums)
		return
	}
	if len(sums) == 0 {
		fmt.Fprintln(out, "No summaries.")
		return
	}
	for i := range sums {
		fmt.Fprintln(out, memory.RenderSummary(&sums[i]))
		fmt.Fprintln(out)
	}
}
