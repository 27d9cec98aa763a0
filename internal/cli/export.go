package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/life-assistant/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export semantic memories",
		Long:  "Export semantic memories, oldest first, as JSON or YAML. Filter by agent with -a.",
		Run:   runExport,
	}

	cmd.Flags().StringP("agent", "a", "", "Filter by agent type")
	cmd.Flags().StringP("output", "o", "json", "Encoding: json or yaml")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	agentType, _ := cmd.Flags().GetString("agent")
	enc, _ := cmd.Flags().GetString("output")

	rt, _ := openRuntime(cmd.Context())
	defer rt.Close()

	memories, err := rt.Store.ExportMemories(cmd.Context(), agentType)
	if err != nil {
		exitErr("export", err)
	}
	if err := writeMemories(cmd.OutOrStdout(), memories, enc); err != nil {
		exitErr("export", err)
	}
}

func writeMemories(w io.Writer, memories []model.MemoryEntry, enc string) error {
	if memories == nil {
		memories = []model.MemoryEntry{}
	}
	switch enc {
	case "json":
		return printJSON(w, memories)
	case "yaml":
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(memories); err != nil {
			return err
		}
		return e.Close()
	default:
		return fmt.Errorf("unknown encoding %q (want json or yaml)", enc)
	}
}
