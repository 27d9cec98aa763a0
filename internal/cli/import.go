package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/life-assistant/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import semantic memories",
		Long:  "Import memories from JSON or YAML (file or stdin) in the format produced by export. Existing identical memories are skipped.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		exitErr("read input", err)
	}

	memories, err := readMemories(data)
	if err != nil {
		exitErr("parse input", err)
	}

	rt, _ := openRuntime(cmd.Context())
	defer rt.Close()

	imported, err := rt.Store.ImportMemories(cmd.Context(), memories)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", imported)
}

// readMemories decodes a JSON array, or YAML when the input is not JSON.
func readMemories(data []byte) ([]model.MemoryEntry, error) {
	var memories []model.MemoryEntry
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &memories); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
		return memories, nil
	}
	if err := yaml.Unmarshal(trimmed, &memories); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return memories, nil
}
