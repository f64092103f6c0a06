package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daydemir/devloop/internal/server"
)

var (
	version   = "0.1.0"
	noColor   bool
	flagModel string
)

var rootCmd = &cobra.Command{
	Use:   "devloop",
	Short: "Plan, research and build projects with an LLM coding agent",
	Long: `devloop turns a natural-language objective into a working project.

A run plans the work, researches it on the web, may stop to ask you a
question, and then writes the code. Afterwards you can keep talking to
the objective: ask questions, run it, deploy it, add features, report bugs
or ask for a PDF report.

Get started:
  devloop init                          Initialize a new workspace
  devloop run "Build a todo app"        Start a new objective
  devloop reply todo-app "Use Svelte"   Answer a question from a paused run
  devloop chat todo-app "deploy it"     Follow up on a finished objective
  devloop serve                         Serve MCP tools over stdio`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "model to use (overrides llm.model)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("devloop version %s\n", version))
	server.Version = version
}
