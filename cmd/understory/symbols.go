package main

import (
	"context"

	"github.com/jward/understory"
	"github.com/spf13/cobra"
)

var flagLimit int

var symbolsCmd = &cobra.Command{
	Use:   "symbols <query>",
	Short: "Fuzzy-search symbols across the project",
	Long:  "Searches every definition in the project for subsequence matches of the query, ranked by match quality. Results come from the language server when one is configured, otherwise from a freshly scanned (and briefly cached) heuristic index.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbols,
}

func init() {
	symbolsCmd.Flags().IntVar(&flagLimit, "limit", 50, "maximum number of results")
	rootCmd.AddCommand(symbolsCmd)
}

func runSymbols(cmd *cobra.Command, args []string) error {
	projectRoot, err := resolveProjectRoot()
	if err != nil {
		return outputError("symbols", err)
	}
	engine, cleanup, err := newEngine(projectRoot)
	if err != nil {
		return outputError("symbols", err)
	}
	defer cleanup()

	records, err := engine.SearchSymbols(context.Background(), projectRoot, args[0])
	if err != nil {
		return outputError("symbols", err)
	}
	ranked := understory.RankSymbols(records, args[0])

	total := len(ranked)
	if flagLimit > 0 && len(ranked) > flagLimit {
		ranked = ranked[:flagLimit]
	}

	results := make([]CLISymbol, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, cliSymbol(r))
	}
	return outputResult(CLIResult{
		Command:    "symbols",
		Results:    results,
		TotalCount: &total,
	})
}

// cliSymbol converts a symbol record to its CLI shape. Internal positions
// are zero-based; the CLI reports one-based lines and columns.
func cliSymbol(r understory.SymbolRecord) CLISymbol {
	return CLISymbol{
		Name:      r.Name,
		Kind:      string(r.Kind),
		Container: r.Container,
		File:      r.Path,
		StartLine: r.Range.Start.Line + 1,
		StartCol:  r.Range.Start.Col + 1,
		EndLine:   r.Range.End.Line + 1,
	}
}
