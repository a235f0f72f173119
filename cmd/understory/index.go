package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jward/understory"
	"github.com/jward/understory/internal/store"
	"github.com/spf13/cobra"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Write a symbol snapshot to the project database",
	Long:  "Scans the project, extracts every definition, and persists the result as a snapshot in a SQLite database for offline queries.",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database and reindex from scratch")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	projectRoot, err := resolveProjectRoot()
	if err != nil {
		return outputError("index", err)
	}

	repoRoot := findRepoRoot(projectRoot)
	dbPath := resolveDBPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return outputError("index", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err))
	}

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return outputError("index", fmt.Errorf("removing database for --force: %w", err))
		}
	}

	db, err := store.NewStore(dbPath)
	if err != nil {
		return outputError("index", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return outputError("index", err)
	}

	engine, cleanup, err := newEngine(projectRoot, understory.WithSnapshotStore(db))
	if err != nil {
		return outputError("index", err)
	}
	defer cleanup()

	count, err := engine.Snapshot(context.Background(), projectRoot)
	if err != nil {
		return outputError("index", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s\n",
		projectRoot, time.Since(start).Round(time.Millisecond))

	return outputResult(CLIResult{
		Command: "index",
		Results: CLISnapshot{
			Project:     projectRoot,
			Database:    dbPath,
			SymbolCount: count,
		},
	})
}
