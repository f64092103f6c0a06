package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daydemir/devloop/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat <objective> <message>",
	Short: "Follow up on an objective",
	Long: `Send a follow-up message to an objective.

devloop picks one action for the message and carries it out:
  answer   reply to a question about the project
  run      run the project and record the command output
  deploy   publish the project to Netlify
  feature  implement a new feature
  bug      fix a reported bug
  report   write a PDF report about the project`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		objective := args[0]
		message := strings.TrimSpace(strings.Join(args[1:], " "))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, os.Stdout)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := suggestObjective(ctx, a.store, objective); err != nil {
			return err
		}
		a.serveBackground(ctx)

		conv, err := a.store.Conversation(ctx, objective)
		if err != nil {
			return err
		}

		run, started, err := a.sup.Deliver(ctx, objective, message)
		if err != nil {
			return err
		}
		if !started {
			return fmt.Errorf("a run is already in flight for %q", objective)
		}

		_, err = a.follow(ctx, run.ID, len(conv), nil)
		return err
	},
}

var decideCmd = &cobra.Command{
	Use:   "decide <objective> <message>",
	Short: "Let devloop choose how to handle a request",
	Long: `Let devloop decide between writing a PDF document, browsing the web
and starting a coding project. The objective is created if needed.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		objective := args[0]
		message := strings.TrimSpace(strings.Join(args[1:], " "))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, os.Stdout)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.Create(ctx, objective); err != nil && !errors.Is(err, session.ErrObjectiveExists) {
			return err
		}
		conv, err := a.store.Conversation(ctx, objective)
		if err != nil {
			return err
		}
		a.serveBackground(ctx)
		run, err := a.sup.Decide(ctx, objective, message)
		if err != nil {
			return err
		}

		_, err = a.follow(ctx, run.ID, len(conv), nil)
		return err
	},
}

var replyCmd = &cobra.Command{
	Use:   "reply <objective> <answer>",
	Short: "Answer a question from a paused run",
	Long: `Record an answer for a run that stopped to ask a question.

The run may be in another terminal or behind "devloop serve"; with the
sqlite session backend it picks the answer up on its next poll.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		objective := args[0]
		answer := strings.TrimSpace(strings.Join(args[1:], " "))
		if answer == "" {
			return fmt.Errorf("answer cannot be empty")
		}

		a, err := openStore()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		if err := suggestObjective(ctx, a.store, objective); err != nil {
			return err
		}
		msg, err := a.store.AppendUserMessage(ctx, objective, answer)
		if err != nil {
			return err
		}
		fmt.Printf("Reply recorded on %s (message %d)\n", objective, msg.Seq)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(replyCmd)
}
