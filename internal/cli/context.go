package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/life-assistant/internal/agent"
	"github.com/rcliao/life-assistant/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [query]",
		Short: "Show the layered context assembled for a query",
		Long:  "Assemble long-term memories, the latest summary and the current turn for an agent, trimmed to the token budget.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}

	cmd.Flags().StringP("agent", "a", agent.NameWork, "Agent type")
	cmd.Flags().IntP("budget", "b", 0, "Token budget (default: context.token_budget)")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	agentType, _ := cmd.Flags().GetString("agent")
	budget, _ := cmd.Flags().GetInt("budget")
	query := strings.Join(args, " ")

	rt, _ := openRuntime(cmd.Context())
	defer rt.Close()

	orch := rt.Orchestrator()
	if budget > 0 {
		orch.SetBudget(budget)
	}
	res, err := orch.Assemble(cmd.Context(), memory.AssembleParams{
		System:    agent.ChatSystem(agentType),
		AgentType: agentType,
		Query:     query,
	})
	if err != nil {
		exitErr("context", err)
	}

	out := cmd.OutOrStdout()
	if formatFlag == "json" {
		printJSON(out, res)
		return
	}
	for _, m := range res.Messages {
		fmt.Fprintln(out, header(out, m.Role))
		fmt.Fprintln(out, m.Content)
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "tokens: %d/%d", res.Used, res.Budget)
	if len(res.Dropped) > 0 {
		fmt.Fprintf(out, "  dropped: %s", strings.Join(res.Dropped, ", "))
	}
	fmt.Fprintln(out)
}
