package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jward/understory/internal/mcpserver"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve code intelligence tools over MCP on stdio",
	Long:  "Runs a Model Context Protocol server exposing symbol search, call hierarchy, and snapshot tools for the project, speaking stdio until the client disconnects.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	projectRoot, err := resolveProjectRoot()
	if err != nil {
		return err
	}
	engine, cleanup, err := newEngine(projectRoot)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return mcpserver.New(engine, projectRoot).Run(ctx)
}
