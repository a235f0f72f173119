package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tCONTAINER\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			s.Name, s.Kind, s.Container, s.File, s.StartLine)
	}
	tw.Flush()
}

// formatCallEdgesText formats CLICallEdge results as aligned columns.
func formatCallEdgesText(w io.Writer, edges []CLICallEdge) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tFILE\tLINE\tCALLS")
	for _, e := range edges {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
			e.Name, e.Kind, e.File, e.Line, e.CallCount)
	}
	tw.Flush()
}

// formatTreeText renders tree rows with two-space indentation per depth.
func formatTreeText(w io.Writer, nodes []CLITreeNode) {
	for _, n := range nodes {
		indent := strings.Repeat("  ", n.Depth)
		suffix := ""
		if n.CallCount > 1 {
			suffix = fmt.Sprintf(" (x%d)", n.CallCount)
		}
		fmt.Fprintf(w, "%s%s [%s] %s:%d%s\n",
			indent, n.Name, n.Kind, n.File, n.Line, suffix)
	}
}

// formatSnapshotText formats an index summary.
func formatSnapshotText(w io.Writer, snap CLISnapshot) {
	fmt.Fprintf(w, "Indexed %s\n", snap.Project)
	fmt.Fprintf(w, "Symbols: %d\n", snap.SymbolCount)
	fmt.Fprintf(w, "Database: %s\n", snap.Database)
}

// outputResultText dispatches to the appropriate text formatter based on
// the result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLISymbol:
		formatSymbolsText(w, v)
	case []CLICallEdge:
		formatCallEdgesText(w, v)
	case []CLITreeNode:
		formatTreeText(w, v)
	case CLISnapshot:
		formatSnapshotText(w, v)
	case nil:
		// No output for nil results.
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}

	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLISymbol:
		return len(r)
	case []CLICallEdge:
		return len(r)
	case []CLITreeNode:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as
// a CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
