package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jward/understory"
	"github.com/spf13/cobra"
)

var (
	flagTreeDepth     int
	flagTreeDirection string
)

var treeCmd = &cobra.Command{
	Use:   "tree <file> <line> [col]",
	Short: "Render a call hierarchy tree from a position",
	Long:  "Builds a call hierarchy rooted at the function under the given position and expands it level by level up to --depth, printing each node once per path it is reached through.",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().IntVar(&flagTreeDepth, "depth", 3, "levels to expand")
	treeCmd.Flags().StringVar(&flagTreeDirection, "direction", "outgoing", "traversal direction: incoming|outgoing")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	dir, err := parseDirection(flagTreeDirection)
	if err != nil {
		return outputError("tree", err)
	}
	projectRoot, err := resolveProjectRoot()
	if err != nil {
		return outputError("tree", err)
	}
	file, line, col, err := parsePosition(args)
	if err != nil {
		return outputError("tree", err)
	}

	engine, cleanup, err := newEngine(projectRoot)
	if err != nil {
		return outputError("tree", err)
	}
	defer cleanup()

	ctx := context.Background()
	item, err := engine.PrepareItem(ctx, file, line, col)
	if err != nil {
		if errors.Is(err, understory.ErrNoSymbolAtCursor) {
			return outputError("tree", fmt.Errorf("no function at %s:%d", file, line+1))
		}
		return outputError("tree", err)
	}
	tree, err := engine.Hierarchy(ctx, projectRoot, item, dir)
	if err != nil {
		return outputError("tree", err)
	}

	rows := []CLITreeNode{{
		Depth: 0,
		Name:  item.Name,
		Kind:  string(item.Kind),
		File:  item.Path,
		Line:  item.Range.Start.Line + 1,
	}}
	for _, n := range tree.Roots() {
		rows = expandRows(ctx, tree, n, 1, flagTreeDepth, rows)
	}

	return outputResult(CLIResult{
		Command: "tree",
		Results: rows,
	})
}

// expandRows appends a node row and, below the depth limit, its freshly
// expanded children.
func expandRows(ctx context.Context, tree *understory.Tree, n understory.TreeNode, depth, maxDepth int, rows []CLITreeNode) []CLITreeNode {
	rows = append(rows, CLITreeNode{
		Depth:     depth,
		Name:      n.Edge.Item.Name,
		Kind:      string(n.Edge.Item.Kind),
		File:      n.Edge.Item.Path,
		Line:      n.Edge.Item.Range.Start.Line + 1,
		CallCount: n.Edge.CallCount,
	})
	if depth >= maxDepth {
		return rows
	}
	for _, child := range tree.Expand(ctx, n.ID) {
		rows = expandRows(ctx, tree, child, depth+1, maxDepth, rows)
	}
	return rows
}

// parseDirection maps the --direction flag to a Direction.
func parseDirection(s string) (understory.Direction, error) {
	switch s {
	case "incoming":
		return understory.Incoming, nil
	case "outgoing":
		return understory.Outgoing, nil
	}
	return 0, fmt.Errorf("invalid direction %q: must be incoming or outgoing", s)
}
