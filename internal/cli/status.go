package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/daydemir/devloop/internal/display"
	"github.com/daydemir/devloop/internal/session"
)

var statusVerbose bool

var statusCmd = &cobra.Command{
	Use:   "status [objective]",
	Short: "Show objectives and their state",
	Long: `List every objective with its state:

  active     a run is working on it
  paused     a run stopped to ask you something, or was abandoned
  completed  the last run finished
  idle       created but not running

Pass an objective to see its recent messages; --verbose shows them all.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openStore()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		if len(args) == 1 {
			return showObjective(ctx, a.store, args[0])
		}

		names, err := a.store.List(ctx)
		if err != nil {
			return err
		}
		bold := color.New(color.Bold).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		if len(names) == 0 {
			fmt.Println("No objectives yet.")
			fmt.Printf("\nStart one with: %s\n", cyan(`devloop run "describe what to build"`))
			return nil
		}

		fmt.Printf("%s v%s - %d objective(s)\n\n", bold("devloop"), version, len(names))
		for _, name := range names {
			snap, err := a.store.Snapshot(ctx, name)
			if err != nil {
				return err
			}
			fmt.Printf("  %s %-24s %-10s %3d msgs  created %s\n",
				stateIcon(snap), name, stateLabel(snap), snap.MessageCount, humanize.Time(snap.CreatedAt))
		}
		return nil
	},
}

func showObjective(ctx context.Context, store session.Store, objective string) error {
	if err := suggestObjective(ctx, store, objective); err != nil {
		return err
	}
	snap, err := store.Snapshot(ctx, objective)
	if err != nil {
		return err
	}
	conv, err := store.Conversation(ctx, objective)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s %s\n", bold(objective), stateLabel(snap))
	fmt.Printf("  Created:  %s\n", humanize.Time(snap.CreatedAt))
	fmt.Printf("  Messages: %d\n", snap.MessageCount)
	fmt.Printf("  Project:  %s\n\n", store.ProjectPath(objective))

	if !statusVerbose && len(conv) > 5 {
		fmt.Printf("  ... %d earlier message(s) (use --verbose to show all)\n", len(conv)-5)
		conv = conv[len(conv)-5:]
	}
	d := display.NewWithOptions(color.Output, noColor)
	for _, m := range conv {
		d.Message(m)
	}
	return nil
}

// suggestObjective returns an unknown-objective error listing close matches
func suggestObjective(ctx context.Context, store session.Store, objective string) error {
	ok, err := store.Exists(ctx, objective)
	if err != nil || ok {
		return err
	}

	names, err := store.List(ctx)
	if err != nil {
		return err
	}
	matches := fuzzy.Find(objective, names)
	if len(matches) == 0 {
		return fmt.Errorf("%w: %s", session.ErrUnknownObjective, objective)
	}

	suggestions := make([]string, 0, 3)
	for i, m := range matches {
		if i == 3 {
			break
		}
		suggestions = append(suggestions, m.Str)
	}
	return fmt.Errorf("%w: %s (did you mean %s?)", session.ErrUnknownObjective, objective, strings.Join(suggestions, ", "))
}

func stateLabel(s session.Snapshot) string {
	switch {
	case s.Active:
		return "active"
	case s.Completed:
		return "completed"
	case s.MessageCount > 0:
		return "paused"
	default:
		return "idle"
	}
}

func stateIcon(s session.Snapshot) string {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	switch stateLabel(s) {
	case "active":
		return cyan("◐")
	case "completed":
		return green("✓")
	case "paused":
		return yellow("?")
	default:
		return "○"
	}
}

func init() {
	statusCmd.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "show every message")
	rootCmd.AddCommand(statusCmd)
}
