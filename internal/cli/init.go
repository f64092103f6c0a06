package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/daydemir/devloop/internal/workspace"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new devloop workspace",
	Long: `Initialize a new devloop workspace in the current directory.

Creates .devloop/ folder with:
  - config.yaml   Configuration settings
  - prompts/      Customizable role prompt templates
  - projects/     Generated code, one folder per objective
  - logs/         Prompt and response transcripts
  - screenshots/  Page snapshots taken while researching
  - docs/         Generated PDF reports`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		if err := workspace.Init(cwd, initForce); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s Initialized %s\n", green("✓"), workspace.Path(cwd))
		fmt.Printf("\nNext: %s\n", cyan(`devloop run "describe what to build"`))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing workspace")
	rootCmd.AddCommand(initCmd)
}
