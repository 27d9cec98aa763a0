package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rcliao/life-assistant/internal/agent"
	"github.com/rcliao/life-assistant/internal/app"
	"github.com/rcliao/life-assistant/internal/chief"
	"github.com/rcliao/life-assistant/internal/model"
)

const maxSearchLimit = 20

// SearchTool handles memory_search.
type SearchTool struct {
	rt *app.Runtime
}

func NewSearchTool(rt *app.Runtime) *SearchTool { return &SearchTool{rt: rt} }

func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_search",
		mcp.WithDescription("Search the assistant's long-term memory: preferences, decisions, insights and past agent outputs."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Keywords to search for"),
		),
		mcp.WithString("agent_type",
			mcp.Description("Restrict to one agent: news, work, outfit, life or review"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 5, max: 20)"),
		),
	)
}

func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit := min(intArg(req, "limit", 0), maxSearchLimit)

	results, err := t.rt.Memory.Search(ctx, query, limit, req.GetString("agent_type", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No memories found matching your query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d memories:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s/%s (score %.2f)\n    %s\n\n", i+1, r.AgentType, r.Category, r.Score, r.Content)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// AddTool handles memory_add.
type AddTool struct {
	rt *app.Runtime
}

func NewAddTool(rt *app.Runtime) *AddTool { return &AddTool{rt: rt} }

func (t *AddTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_add",
		mcp.WithDescription("Store a durable fact or preference in long-term memory. Identical entries are not duplicated."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The fact to remember"),
		),
		mcp.WithString("agent_type",
			mcp.Required(),
			mcp.Description("Owning agent: news, work, outfit, life or review"),
		),
		mcp.WithString("category",
			mcp.Description("One of user_preferences, important_decisions, task_history, health_patterns, extracted_insight, general (default)"),
		),
	)
}

func (t *AddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := strings.TrimSpace(req.GetString("content", ""))
	agentType := strings.TrimSpace(req.GetString("agent_type", ""))
	if content == "" || agentType == "" {
		return mcp.NewToolResultError("'content' and 'agent_type' are required"), nil
	}
	category := req.GetString("category", model.CategoryGeneral)
	if !model.ValidCategories[category] {
		return mcp.NewToolResultError(fmt.Sprintf("unknown category %q", category)), nil
	}

	m, err := t.rt.Memory.Add(ctx, content, agentType, category, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("store failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stored memory %s (%s/%s).", m.ID, m.AgentType, m.Category)), nil
}

// RunStepTool handles run_step.
type RunStepTool struct {
	rt *app.Runtime
}

func NewRunStepTool(rt *app.Runtime) *RunStepTool { return &RunStepTool{rt: rt} }

func (t *RunStepTool) Definition() mcp.Tool {
	return mcp.NewTool("run_step",
		mcp.WithDescription("Run an assistant pipeline step and return each agent's output."),
		mcp.WithString("step",
			mcp.Required(),
			mcp.Description("One of "+strings.Join(chief.Steps, ", ")),
		),
		mcp.WithString("input",
			mcp.Description("Optional free-text notes passed to the work and review agents"),
		),
	)
}

func (t *RunStepTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	step := req.GetString("step", "")
	if err := t.rt.RequireLLM(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c := t.rt.NewChief(t.rt.NewWindow())
	in := agent.Inputs{}
	if notes := req.GetString("input", ""); notes != "" {
		in[agent.InputUserInput] = notes
	}
	rep, err := c.RunStep(ctx, step, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	for _, name := range rep.Order {
		out := rep.Results[name]
		if out == "" {
			out = "(no output)"
		}
		fmt.Fprintf(&b, "# %s\n\n%s\n\n", name, out)
	}
	if len(rep.Fired) > 0 {
		fmt.Fprintf(&b, "Hooks fired: %s\n", strings.Join(rep.Fired, ", "))
	}
	if rep.Err != nil {
		fmt.Fprintf(&b, "Stopped early: %v\n", rep.Err)
	}
	if rep.Failed() {
		return mcp.NewToolResultError(b.String()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}
