package understory

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jward/understory/internal/lang"
)

// PrepareItem resolves the call-hierarchy root at a cursor position.
// The provider is preferred; the fallback extracts the anchor file and
// picks the function or method definition enclosing the cursor line.
// Finding nothing is a hard error (ErrNoSymbolAtCursor), the one failure
// in this package meant to reach the user, with a retry.
func (e *Engine) PrepareItem(ctx context.Context, path string, line, col int) (CallHierarchyItem, error) {
	if e.provider != nil {
		items, err := e.provider.PrepareCallHierarchy(ctx, path, line, col)
		if err != nil {
			e.logger.Debug("call hierarchy provider failed, falling back",
				"path", path, "err", err)
		} else if len(items) > 0 {
			return items[0], nil
		}
	}

	content, err := e.source.ReadFile(ctx, path)
	if err != nil {
		return CallHierarchyItem{}, fmt.Errorf("prepare item: read %s: %w", path, err)
	}

	defs := lang.Extract(string(content), filepath.Ext(path))
	def, ok := definitionAt(defs, line)
	if !ok {
		return CallHierarchyItem{}, ErrNoSymbolAtCursor
	}
	return itemForDefinition(path, def), nil
}

// definitionAt picks the innermost function-like definition whose extent
// contains line, falling back to any definition starting on that line.
func definitionAt(defs []lang.FunctionDefinition, line int) (lang.FunctionDefinition, bool) {
	var best lang.FunctionDefinition
	found := false
	for _, d := range defs {
		if d.StartLine <= line && line <= d.EndLine {
			if !found || d.StartLine >= best.StartLine {
				best = d
				found = true
			}
		}
	}
	if found {
		return best, true
	}
	for _, d := range defs {
		if d.StartLine == line {
			return d, true
		}
	}
	return lang.FunctionDefinition{}, false
}

// itemForDefinition builds a hierarchy item from an extracted definition.
// IDs are generated fresh per build; identity across rebuilds is
// (Path, SelectionRange), never the ID.
func itemForDefinition(path string, d lang.FunctionDefinition) CallHierarchyItem {
	return CallHierarchyItem{
		ID:   uuid.NewString(),
		Name: d.Name,
		Kind: d.Kind,
		Path: path,
		Range: Range{
			Start: Position{Line: d.StartLine},
			End:   Position{Line: d.EndLine},
		},
		SelectionRange: Range{
			Start: Position{Line: d.StartLine, Col: d.StartCol},
			End:   Position{Line: d.StartLine, Col: d.StartCol + len(d.Name)},
		},
	}
}

// Calls computes the first level of call edges around item. When the
// provider answers with at least one edge, that answer is final and none
// of the heuristic caps apply. The heuristic path works outward from the
// anchor file; for incoming edges it additionally scans a bounded number
// of other project files, skipping any that fail to read. Truncation by
// the cap is silent.
func (e *Engine) Calls(ctx context.Context, projectRoot string, item CallHierarchyItem, dir Direction) ([]CallEdge, error) {
	if e.provider != nil {
		var edges []CallEdge
		var err error
		if dir == Incoming {
			edges, err = e.provider.IncomingCalls(ctx, item)
		} else {
			edges, err = e.provider.OutgoingCalls(ctx, item)
		}
		if err != nil {
			e.logger.Debug("call provider failed, falling back",
				"item", item.Name, "direction", dir.String(), "err", err)
		} else if len(edges) > 0 {
			return edges, nil
		}
	}

	if dir == Outgoing {
		return e.outgoingCalls(ctx, item)
	}
	return e.incomingCalls(ctx, projectRoot, item)
}

// outgoingCalls groups the root definition's call sites by callee name.
// A callee that resolves to a same-file definition carries that
// definition's range; anything else becomes a stub item positioned at its
// first call site with kind function.
func (e *Engine) outgoingCalls(ctx context.Context, item CallHierarchyItem) ([]CallEdge, error) {
	content, err := e.source.ReadFile(ctx, item.Path)
	if err != nil {
		return nil, fmt.Errorf("outgoing calls: read %s: %w", item.Path, err)
	}
	defs := lang.Extract(string(content), filepath.Ext(item.Path))

	var root *lang.FunctionDefinition
	for i := range defs {
		if defs[i].Name == item.Name {
			root = &defs[i]
			break
		}
	}
	if root == nil {
		return nil, nil
	}

	byName := make(map[string][]lang.CallSite)
	var order []string
	for _, c := range root.Calls {
		if _, seen := byName[c.Name]; !seen {
			order = append(order, c.Name)
		}
		byName[c.Name] = append(byName[c.Name], c)
	}

	edges := make([]CallEdge, 0, len(order))
	for _, name := range order {
		sites := byName[name]
		edge := CallEdge{FromRanges: make([]Range, len(sites))}
		for i, s := range sites {
			edge.FromRanges[i] = s.Range
		}
		edge.CallCount = len(edge.FromRanges)

		if target, ok := findDefinition(defs, name); ok {
			edge.Item = itemForDefinition(item.Path, target)
		} else {
			first := sites[0].Range
			edge.Item = CallHierarchyItem{
				ID:             uuid.NewString(),
				Name:           name,
				Kind:           lang.KindFunction,
				Path:           item.Path,
				Range:          first,
				SelectionRange: first,
			}
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// incomingCalls finds callers of the root symbol: first inside the anchor
// file, then across at most incomingFileCap other project files.
func (e *Engine) incomingCalls(ctx context.Context, projectRoot string, item CallHierarchyItem) ([]CallEdge, error) {
	content, err := e.source.ReadFile(ctx, item.Path)
	if err != nil {
		return nil, fmt.Errorf("incoming calls: read %s: %w", item.Path, err)
	}

	edges := callersInFile(item.Path, string(content), item.Name)

	if projectRoot == "" {
		return edges, nil
	}
	paths, err := e.source.ListFiles(ctx, projectRoot)
	if err != nil {
		e.logger.Debug("incoming call scan: listing project failed",
			"root", projectRoot, "err", err)
		return edges, nil
	}

	scanned := 0
	for _, path := range paths {
		if scanned >= e.incomingFileCap {
			break
		}
		if sameFile(path, item.Path) {
			continue
		}
		scanned++
		other, err := e.source.ReadFile(ctx, path)
		if err != nil {
			e.logger.Debug("incoming call scan: skipping file", "path", path, "err", err)
			continue
		}
		edges = append(edges, callersInFile(path, string(other), item.Name)...)
	}
	return edges, nil
}

// callersInFile produces one edge per definition in content that calls
// target at least once. Self-reference is not modeled: the extractor
// already drops calls to the enclosing definition's own name.
func callersInFile(path, content, target string) []CallEdge {
	defs := lang.Extract(content, filepath.Ext(path))
	var edges []CallEdge
	for _, d := range defs {
		var ranges []Range
		for _, c := range d.Calls {
			if c.Name == target {
				ranges = append(ranges, c.Range)
			}
		}
		if len(ranges) == 0 {
			continue
		}
		edges = append(edges, CallEdge{
			Item:       itemForDefinition(path, d),
			FromRanges: ranges,
			CallCount:  len(ranges),
		})
	}
	return edges
}

func findDefinition(defs []lang.FunctionDefinition, name string) (lang.FunctionDefinition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return lang.FunctionDefinition{}, false
}

func sameFile(a, b string) bool {
	ca, err1 := filepath.Abs(a)
	cb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return ca == cb
}
