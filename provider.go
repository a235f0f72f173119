package understory

import "context"

// Provider is an authoritative source of symbols and call edges, normally
// backed by a language server (see internal/lsp). The Engine treats a
// non-empty successful response as final and skips its own heuristics; an
// empty or failing response triggers the fallback path. Failures are never
// surfaced past the Engine; they are logged at debug level and degrade.
type Provider interface {
	// PrepareCallHierarchy resolves the hierarchy item(s) at a cursor
	// position. line and col are zero-based.
	PrepareCallHierarchy(ctx context.Context, path string, line, col int) ([]CallHierarchyItem, error)

	// IncomingCalls returns the callers of item with their call sites.
	IncomingCalls(ctx context.Context, item CallHierarchyItem) ([]CallEdge, error)

	// OutgoingCalls returns the callees of item with their call sites.
	OutgoingCalls(ctx context.Context, item CallHierarchyItem) ([]CallEdge, error)

	// WorkspaceSymbols searches project-wide symbols matching query.
	WorkspaceSymbols(ctx context.Context, root, query string) ([]SymbolRecord, error)
}

// Source supplies file content and project file enumeration. The default
// implementation reads the local filesystem (internal/scan); tests inject
// in-memory fakes.
type Source interface {
	// ReadFile returns the content of one file. Callers treat a failure
	// as "skip this file" during batch operations.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// ListFiles enumerates the code files under root, already filtered to
	// supported extensions, depth-bounded, and capped.
	ListFiles(ctx context.Context, root string) ([]string, error)
}
