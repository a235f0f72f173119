package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLISymbol is a JSON-friendly symbol search hit.
type CLISymbol struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Container string `json:"container,omitempty"`
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
}

// CLICallEdge is a JSON-friendly call hierarchy edge.
type CLICallEdge struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	CallCount int    `json:"call_count"`
	CallLines []int  `json:"call_lines,omitempty"`
}

// CLITreeNode is one row of a rendered call hierarchy tree.
type CLITreeNode struct {
	Depth     int    `json:"depth"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	CallCount int    `json:"call_count"`
}

// CLISnapshot summarizes an index run.
type CLISnapshot struct {
	Project     string `json:"project"`
	Database    string `json:"database"`
	SymbolCount int    `json:"symbol_count"`
}
