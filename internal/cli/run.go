package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var runObjective string

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Start a new objective",
	Long: `Plan, research and build what the prompt describes.

The planner names the objective unless --objective picks an existing one.
If the run stops to ask you something, type the answer here (when attached
to a terminal) or from another shell with:

  devloop reply <objective> "<answer>"

Ctrl-C abandons the run and leaves the objective inactive.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.TrimSpace(strings.Join(args, " "))
		if prompt == "" {
			return fmt.Errorf("prompt cannot be empty")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, os.Stdout)
		if err != nil {
			return err
		}
		defer a.Close()

		var answers <-chan string
		if stdinIsTerminal() {
			answers = readLines(os.Stdin)
		}

		run, err := a.sup.StartExecute(prompt, runObjective)
		if err != nil {
			return err
		}
		a.display.Box("devloop run", prompt)

		done, err := a.follow(ctx, run.ID, 0, answers)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s %s is ready in %s\n", green("✓"), done.Objective, a.store.ProjectPath(done.Objective))
		fmt.Printf("Follow up with: %s\n", cyan(fmt.Sprintf(`devloop chat %s "run it"`, done.Objective)))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runObjective, "objective", "o", "", "continue an existing objective instead of creating one")
	rootCmd.AddCommand(runCmd)
}
