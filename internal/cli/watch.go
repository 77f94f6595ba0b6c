package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/roach88/roster/internal/app"
	"github.com/roach88/roster/internal/auth"
	"github.com/roach88/roster/internal/mcpserver"
	"github.com/roach88/roster/internal/roster"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the employee list every time it changes",
		Long: `Subscribe to the signed-in user's employees and print the full list on
every change, until interrupted. With --format json each version is one line.

Example:
  roster watch --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(commandContext(cmd))
			defer cancel()

			return withClient(rootOpts, cmd, func(c *app.Client, f *OutputFormatter) error {
				return c.Watch(ctx, func(list map[string]roster.Employee) {
					if f.Format == "text" {
						fmt.Fprintf(f.Writer, "--- %d employee(s)\n", len(list))
					}
					if err := f.Success(newEmployeeList(list)); err != nil {
						slog.Warn("write employee list", "error", err)
					}
				})
			})
		},
	}
}

// NewMCPCommand creates the mcp command.
func NewMCPCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve employee tools over MCP on stdio",
		Long: `Run an MCP server on stdin/stdout exposing the employees_list,
employee_create, employee_update, employee_fire, and employee_text tools for
the signed-in user. Logs go to stderr.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(commandContext(cmd))
			defer cancel()

			return withClient(rootOpts, cmd, func(c *app.Client, f *OutputFormatter) error {
				if c.CurrentUser() == nil {
					return auth.ErrNotSignedIn
				}
				return mcpserver.New(c, rootOpts.Version).Run(ctx, &mcp.StdioTransport{})
			})
		},
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
