package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rcliao/life-assistant/internal/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a default config file",
		Long:  "Write the default configuration as TOML (default: $LIFE_ASSISTANT_HOME/config.toml or ~/.life-assistant/config.toml).",
		Args:  cobra.MaximumNArgs(1),
		Run:   runInitConfig,
	}

	cmd.Flags().Bool("force", false, "Overwrite an existing file")

	RootCmd.AddCommand(cmd)
}

func runInitConfig(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	path := filepath.Join(config.Dir(), "config.toml")
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.WriteDefault(path, force); err != nil {
		exitErr("init-config", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\nset llm.api_key there or export LIFE_LLM_API_KEY\n", path)
}
