package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jward/understory"
	"github.com/spf13/cobra"
)

var callersCmd = &cobra.Command{
	Use:   "callers <file> <line> [col]",
	Short: "List functions that call the one at a position",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalls("callers", understory.Incoming, args)
	},
}

var calleesCmd = &cobra.Command{
	Use:   "callees <file> <line> [col]",
	Short: "List functions called by the one at a position",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalls("callees", understory.Outgoing, args)
	},
}

func init() {
	rootCmd.AddCommand(callersCmd)
	rootCmd.AddCommand(calleesCmd)
}

func runCalls(command string, dir understory.Direction, args []string) error {
	projectRoot, err := resolveProjectRoot()
	if err != nil {
		return outputError(command, err)
	}
	file, line, col, err := parsePosition(args)
	if err != nil {
		return outputError(command, err)
	}

	engine, cleanup, err := newEngine(projectRoot)
	if err != nil {
		return outputError(command, err)
	}
	defer cleanup()

	ctx := context.Background()
	item, err := engine.PrepareItem(ctx, file, line, col)
	if err != nil {
		if errors.Is(err, understory.ErrNoSymbolAtCursor) {
			return outputError(command, fmt.Errorf("no function at %s:%d", file, line+1))
		}
		return outputError(command, err)
	}
	edges, err := engine.Calls(ctx, projectRoot, item, dir)
	if err != nil {
		return outputError(command, err)
	}

	results := make([]CLICallEdge, 0, len(edges))
	for _, e := range edges {
		results = append(results, cliCallEdge(e))
	}
	total := len(results)
	return outputResult(CLIResult{
		Command:    command,
		Results:    results,
		TotalCount: &total,
	})
}

// parsePosition reads file, one-based line, and optional one-based column
// arguments, returning zero-based values.
func parsePosition(args []string) (file string, line, col int, err error) {
	file = args[0]
	line, err = strconv.Atoi(args[1])
	if err != nil || line < 1 {
		return "", 0, 0, fmt.Errorf("invalid line %q", args[1])
	}
	col = 1
	if len(args) > 2 {
		col, err = strconv.Atoi(args[2])
		if err != nil || col < 1 {
			return "", 0, 0, fmt.Errorf("invalid column %q", args[2])
		}
	}
	return file, line - 1, col - 1, nil
}

// cliCallEdge converts a call edge to its CLI shape with one-based lines.
func cliCallEdge(e understory.CallEdge) CLICallEdge {
	lines := make([]int, 0, len(e.FromRanges))
	for _, r := range e.FromRanges {
		lines = append(lines, r.Start.Line+1)
	}
	return CLICallEdge{
		Name:      e.Item.Name,
		Kind:      string(e.Item.Kind),
		File:      e.Item.Path,
		Line:      e.Item.Range.Start.Line + 1,
		CallCount: e.CallCount,
		CallLines: lines,
	}
}
