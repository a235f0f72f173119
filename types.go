package understory

import (
	"github.com/jward/understory/internal/lang"
)

// Aliases for internal/lang types used throughout the public API. These are
// Go type aliases (=), identical to the internal types at compile time.

type Kind = lang.Kind
type Position = lang.Position
type Range = lang.Range
type CallSite = lang.CallSite
type FunctionDefinition = lang.FunctionDefinition

// KindFromCode maps an LSP numeric symbol kind to a Kind, defaulting to
// function for out-of-range codes.
func KindFromCode(code int) Kind { return lang.KindFromCode(code) }

// SymbolRecord is one named entity found by workspace symbol search.
// Immutable once produced; it lives no longer than one search response.
type SymbolRecord struct {
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	Container string `json:"container,omitempty"`
	Path      string `json:"path"`
	Range     Range  `json:"range"`
}

// CallHierarchyItem identifies one node of a call hierarchy. The ID is
// opaque and not stable across rebuilds; consumers that need symbol
// identity should compare (Path, SelectionRange).
type CallHierarchyItem struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Kind           Kind   `json:"kind"`
	Path           string `json:"path"`
	Range          Range  `json:"range"`
	SelectionRange Range  `json:"selectionRange"`
}

// CallEdge connects a hierarchy root to one neighbor, with every call site
// that realizes the connection. CallCount always equals len(FromRanges).
type CallEdge struct {
	Item       CallHierarchyItem `json:"item"`
	FromRanges []Range           `json:"fromRanges"`
	CallCount  int               `json:"callCount"`
}

// Direction selects which side of the call graph a hierarchy explores.
type Direction int

const (
	// Incoming walks "who calls this".
	Incoming Direction = iota
	// Outgoing walks "what does this call".
	Outgoing
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}
