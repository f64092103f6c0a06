package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/daydemir/devloop/internal/logs"
	"github.com/daydemir/devloop/internal/workspace"
)

var logsPathOnly bool

var logsCmd = &cobra.Command{
	Use:   "logs <objective>",
	Short: "Show the prompt/response transcript of an objective",
	Long: `Print every prompt devloop sent and every raw model response it got
for an objective, as recorded in .devloop/logs/<objective>.md.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openStore()
		if err != nil {
			return err
		}
		defer a.Close()

		objective := args[0]
		if err := suggestObjective(context.Background(), a.store, objective); err != nil {
			return err
		}

		transcripts := logs.NewTranscripts(workspace.LogsPath(a.wsDir))
		if logsPathOnly {
			fmt.Println(transcripts.Path(objective))
			return nil
		}

		content, err := transcripts.Read(objective)
		if err != nil {
			return err
		}
		dim := color.New(color.FgHiBlack).SprintFunc()
		fmt.Println(dim(transcripts.Path(objective)))
		fmt.Println()
		fmt.Print(content)
		return nil
	},
}

func init() {
	logsCmd.Flags().BoolVar(&logsPathOnly, "path", false, "print only the transcript path")
	rootCmd.AddCommand(logsCmd)
}
