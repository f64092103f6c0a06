package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daydemir/devloop/internal/httpapi"
	"github.com/daydemir/devloop/internal/orchestrator"
	"github.com/daydemir/devloop/internal/server"
)

var serveHTTPOnly bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve devloop over MCP (stdio) and HTTP",
	Long: `Serve devloop tools to an MCP client over stdin/stdout, and the HTTP
API (report downloads, messages, status) on server.host:server.port.

Progress output goes to stderr so it never mixes with the MCP stream.
Use --http-only to run just the HTTP API.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		a.sup.OnFinish = func(r orchestrator.Run) {
			if r.State == orchestrator.RunFailed {
				a.display.Error(fmt.Sprintf("run %s (%s) failed: %s", r.ID, r.Objective, r.Error))
				return
			}
			a.display.Success(fmt.Sprintf("run %s (%s) finished", r.ID, r.Objective))
		}

		handler := httpapi.New(a.store, a.sup, a.documents)
		if serveHTTPOnly {
			err := httpapi.Serve(ctx, a.cfg.Addr(), handler, func(addr string) {
				a.display.Info("http", "listening on "+addr)
			})
			a.sup.Wait()
			return err
		}

		a.serveBackground(ctx)
		err = server.ServeStdio(server.New(a.sup, a.store))
		stop()
		a.sup.Wait()
		return err
	},
}

// serveBackground starts the HTTP API for the life of ctx. A failure to bind
// is reported and otherwise ignored; another devloop process may already be
// serving the same workspace.
func (a *app) serveBackground(ctx context.Context) {
	handler := httpapi.New(a.store, a.sup, a.documents)
	bound := make(chan struct{})
	go func() {
		err := httpapi.Serve(ctx, a.cfg.Addr(), handler, func(string) { close(bound) })
		if err != nil {
			a.display.Warning(fmt.Sprintf("http api not started: %v", err))
			select {
			case <-bound:
			default:
				close(bound)
			}
		}
	}()
	<-bound
}

func init() {
	serveCmd.Flags().BoolVar(&serveHTTPOnly, "http-only", false, "serve only the HTTP API")
	rootCmd.AddCommand(serveCmd)
}
