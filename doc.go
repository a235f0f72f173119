// Package understory answers code-intelligence questions from raw source
// text when no authoritative answer is available. It is the layer beneath
// the language server: when the server is down, absent, or returns nothing,
// the editor still needs "what symbols exist in this project?" and "who
// calls / is called by this function?".
//
// # Pipeline
//
// Understory recovers structure without a parser. Per-language pattern
// tables (see the redesign-friendly PatternTable abstraction in
// internal/lang) describe how definitions and calls look as line-oriented
// regular expressions; a two-pass extractor finds definitions, bounds their
// textual extent by brace balance or indentation, and collects the call
// expressions inside each extent. On top sit a subsequence fuzzy ranker for
// interactive search, a TTL-cached project symbol index, a call-graph
// builder, and a lazily expanded hierarchy tree.
//
// # Usage
//
// Create an Engine and query it:
//
//	e := understory.NewEngine()
//	ctx := context.Background()
//
//	syms, err := e.SearchSymbols(ctx, "path/to/project", "parse")
//
//	item, err := e.PrepareItem(ctx, "path/to/project/main.go", 42, 8)
//	edges, err := e.Calls(ctx, "path/to/project", item, understory.Incoming)
//
// When a Provider (an LSP client, see internal/lsp) is attached with
// WithProvider, its non-empty responses are authoritative and the heuristic
// path never runs; an empty or failing response degrades silently to the
// text-based fallback.
//
// # Fidelity
//
// The heuristics are deliberately approximate: resolution is name-based,
// not scope-correct; every request re-scans from scratch; calls never
// resolve across languages. The worst case of any analysis is fewer
// results, never an error surfaced mid-batch.
package understory
