package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/minutes/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools on stdio",
		Long: `Serve the session as Model Context Protocol tools on stdin/stdout.
Logs go to stderr so they never mix with protocol traffic.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMCP(ctx)
		},
	}
}

func runMCP(ctx context.Context) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "minutes",
		Version: version,
		Logger:  a.logger.Named("mcp"),
	}, a.session)
	if err != nil {
		return err
	}

	runErr := srv.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Close(closeCtx); err != nil {
		a.logger.Warn("pending task writes did not finish", zap.Error(err))
	}
	if ctx.Err() != nil {
		return nil
	}
	return runErr
}
