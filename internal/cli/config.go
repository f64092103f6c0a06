package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daydemir/devloop/internal/config"
	"github.com/daydemir/devloop/internal/workspace"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "View or modify configuration",
	Long: `View or modify devloop configuration.

Examples:
  devloop config                          Show all config
  devloop config llm.backend              Get a specific value
  devloop config llm.backend kilocode     Set a value

Any key can also be overridden from the environment, e.g.
DEVLOOP_NETLIFY_TOKEN or DEVLOOP_ORCHESTRATOR_SUSPEND_TIMEOUT=10m.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		wsDir, err := workspace.Find()
		if err != nil {
			return err
		}

		switch len(args) {
		case 0:
			content, err := os.ReadFile(workspace.ConfigPath(wsDir))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			fmt.Println(string(content))
		case 1:
			value, err := config.Get(wsDir, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
		case 2:
			if err := config.Set(wsDir, args[0], args[1]); err != nil {
				return err
			}
			if _, err := config.Load(wsDir); err != nil {
				return fmt.Errorf("value written but config is now invalid: %w", err)
			}
			fmt.Printf("Set %s = %s\n", args[0], args[1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
