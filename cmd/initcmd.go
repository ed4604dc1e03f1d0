package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/uascm/uascm/internal/config"
)

const configTemplate = `project {
  source = "src"
  nodes  = ["AGENT.DISPLAYS", "AGENT.OBJECTS", "SYSTEM.LIBRARY.PROJECT"]
}

server {
  endpoint = "http://localhost:8888"
}

sync {
  concurrency  = 8
  max_attempts = 3
  transformers = ["display", "script", "quickdynamic"]
}

watch {
  debounce    = "100ms"
  reload_addr = "localhost:35729"
}
`

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scaffold a new project in the given directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
			return err
		}
		cfgPath := filepath.Join(dir, config.DefaultFile)
		if _, err := os.Stat(cfgPath); err == nil {
			return fmt.Errorf("%s already exists", cfgPath)
		}
		if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o644); err != nil {
			return err
		}
		fmt.Printf("Initialized project in %s\n", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
