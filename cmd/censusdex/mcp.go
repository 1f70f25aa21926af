package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the Census tools over MCP on stdio",
	Long: `Serve the Census tools over the Model Context Protocol on stdin/stdout.

Logs go to stderr. Configure an agent host to launch "censusdex mcp".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		srv, err := a.mcpServer()
		if err != nil {
			return err
		}

		a.warm(ctx)

		a.logger.Info("Serving MCP on stdio", zap.String("name", a.cfg.MCP.Name))
		if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}
