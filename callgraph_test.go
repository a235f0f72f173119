package understory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/understory/internal/lang"
)

const mainPy = "def entry():\n    helper()\n    helper()\n    emit(1)\n\ndef helper():\n    pass\n"

func edgeNames(edges []CallEdge) []string {
	names := make([]string, 0, len(edges))
	for _, e := range edges {
		names = append(names, e.Item.Name)
	}
	return names
}

// =============================================================================
// PrepareItem
// =============================================================================

func TestPrepareItem_EnclosingDefinition(t *testing.T) {
	t.Parallel()
	src := &fakeSource{files: map[string]string{"main.py": mainPy}}
	e := NewEngine(WithSource(src))

	item, err := e.PrepareItem(context.Background(), "main.py", 2, 4)
	require.NoError(t, err)
	assert.Equal(t, "entry", item.Name)
	assert.Equal(t, lang.KindFunction, item.Kind)
	assert.Equal(t, "main.py", item.Path)
	assert.NotEmpty(t, item.ID)
	// The selection range spans just the name token.
	assert.Equal(t, 0, item.SelectionRange.Start.Line)
	assert.Equal(t, len("entry"),
		item.SelectionRange.End.Col-item.SelectionRange.Start.Col)
}

func TestPrepareItem_InnermostWins(t *testing.T) {
	t.Parallel()
	src := &fakeSource{files: map[string]string{
		"a.js": "function outer() {\n  function inner() {\n    leaf();\n  }\n}\n",
	}}
	e := NewEngine(WithSource(src))

	item, err := e.PrepareItem(context.Background(), "a.js", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, "inner", item.Name)
}

func TestPrepareItem_NoSymbol(t *testing.T) {
	t.Parallel()
	src := &fakeSource{files: map[string]string{"empty.py": "# nothing here\n\nx = 1\n"}}
	e := NewEngine(WithSource(src))

	_, err := e.PrepareItem(context.Background(), "empty.py", 1, 0)
	assert.ErrorIs(t, err, ErrNoSymbolAtCursor)
}

func TestPrepareItem_ReadFailure(t *testing.T) {
	t.Parallel()
	e := NewEngine(WithSource(&fakeSource{}))

	_, err := e.PrepareItem(context.Background(), "missing.py", 0, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSymbolAtCursor)
}

func TestPrepareItem_ProviderPreferred(t *testing.T) {
	t.Parallel()
	provided := CallHierarchyItem{ID: "lsp-1", Name: "fromProvider"}
	provider := &fakeProvider{items: []CallHierarchyItem{provided}}
	e := NewEngine(WithProvider(provider), WithSource(&fakeSource{}))

	item, err := e.PrepareItem(context.Background(), "main.py", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, provided, item)
}

func TestPrepareItem_ProviderErrorFallsBack(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{itemsErr: errors.New("no server")}
	src := &fakeSource{files: map[string]string{"main.py": mainPy}}
	e := NewEngine(WithProvider(provider), WithSource(src))

	item, err := e.PrepareItem(context.Background(), "main.py", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "entry", item.Name)
}

// =============================================================================
// Outgoing calls
// =============================================================================

func TestCalls_OutgoingGroupsByCallee(t *testing.T) {
	t.Parallel()
	src := &fakeSource{files: map[string]string{"main.py": mainPy}}
	e := NewEngine(WithSource(src))

	item, err := e.PrepareItem(context.Background(), "main.py", 0, 0)
	require.NoError(t, err)
	edges, err := e.Calls(context.Background(), "/proj", item, Outgoing)
	require.NoError(t, err)

	// One edge per distinct callee, in first-call order.
	require.Equal(t, []string{"helper", "emit"}, edgeNames(edges))

	helper := edges[0]
	assert.Equal(t, 2, helper.CallCount)
	assert.Len(t, helper.FromRanges, 2)
	assert.Equal(t, 1, helper.FromRanges[0].Start.Line)
	assert.Equal(t, 2, helper.FromRanges[1].Start.Line)
	// Resolved to the same-file definition.
	assert.Equal(t, 5, helper.Item.Range.Start.Line)

	emit := edges[1]
	assert.Equal(t, 1, emit.CallCount)
	// Unresolved callee: a stub positioned at its first call site.
	assert.Equal(t, lang.KindFunction, emit.Item.Kind)
	assert.Equal(t, 3, emit.Item.Range.Start.Line)
	assert.Equal(t, emit.Item.Range, emit.Item.SelectionRange)
}

func TestCalls_OutgoingUnknownRoot(t *testing.T) {
	t.Parallel()
	src := &fakeSource{files: map[string]string{"main.py": mainPy}}
	e := NewEngine(WithSource(src))

	item := CallHierarchyItem{Name: "ghost", Path: "main.py"}
	edges, err := e.Calls(context.Background(), "/proj", item, Outgoing)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

// =============================================================================
// Incoming calls
// =============================================================================

func TestCalls_IncomingAcrossFiles(t *testing.T) {
	t.Parallel()
	src := &fakeSource{files: map[string]string{
		"main.py":  mainPy,
		"other.py": "def other_caller():\n    helper()\n",
	}}
	e := NewEngine(WithSource(src))

	item, err := e.PrepareItem(context.Background(), "main.py", 5, 0)
	require.NoError(t, err)
	require.Equal(t, "helper", item.Name)

	edges, err := e.Calls(context.Background(), "/proj", item, Incoming)
	require.NoError(t, err)
	require.Equal(t, []string{"entry", "other_caller"}, edgeNames(edges))

	assert.Equal(t, 2, edges[0].CallCount)
	assert.Len(t, edges[0].FromRanges, 2)
	assert.Equal(t, "main.py", edges[0].Item.Path)
	assert.Equal(t, 1, edges[1].CallCount)
	assert.Equal(t, "other.py", edges[1].Item.Path)
}

func TestCalls_IncomingFileCap(t *testing.T) {
	t.Parallel()
	src := &fakeSource{files: map[string]string{
		"main.py": mainPy,
		"x.py":    "def x_caller():\n    helper()\n",
		"y.py":    "def y_caller():\n    helper()\n",
	}}
	e := NewEngine(WithSource(src), WithIncomingFileCap(1))

	item, err := e.PrepareItem(context.Background(), "main.py", 5, 0)
	require.NoError(t, err)

	edges, err := e.Calls(context.Background(), "/proj", item, Incoming)
	require.NoError(t, err)
	// Anchor-file callers plus exactly one scanned file; y.py is silently
	// beyond the cap.
	assert.Equal(t, []string{"entry", "x_caller"}, edgeNames(edges))
}

func TestCalls_IncomingSkipsUnreadable(t *testing.T) {
	t.Parallel()
	src := &fakeSource{
		files: map[string]string{
			"main.py": mainPy,
			"x.py":    "def x_caller():\n    helper()\n",
			"y.py":    "def y_caller():\n    helper()\n",
		},
		failReads: map[string]bool{"x.py": true},
	}
	e := NewEngine(WithSource(src))

	item, err := e.PrepareItem(context.Background(), "main.py", 5, 0)
	require.NoError(t, err)

	edges, err := e.Calls(context.Background(), "/proj", item, Incoming)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry", "y_caller"}, edgeNames(edges))
}

func TestCalls_IncomingEmptyRootStaysInFile(t *testing.T) {
	t.Parallel()
	src := &fakeSource{files: map[string]string{
		"main.py":  mainPy,
		"other.py": "def other_caller():\n    helper()\n",
	}}
	e := NewEngine(WithSource(src))

	item, err := e.PrepareItem(context.Background(), "main.py", 5, 0)
	require.NoError(t, err)

	edges, err := e.Calls(context.Background(), "", item, Incoming)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry"}, edgeNames(edges))
}

// =============================================================================
// Provider preference
// =============================================================================

func TestCalls_ProviderAnswerIsFinal(t *testing.T) {
	t.Parallel()
	provided := []CallEdge{{
		Item:       CallHierarchyItem{Name: "lspCaller"},
		FromRanges: []Range{{}},
		CallCount:  1,
	}}
	provider := &fakeProvider{incoming: provided}
	e := NewEngine(WithProvider(provider), WithSource(&fakeSource{}))

	edges, err := e.Calls(context.Background(), "/proj", CallHierarchyItem{Name: "f"}, Incoming)
	require.NoError(t, err)
	assert.Equal(t, provided, edges)
}

func TestCalls_EmptyProviderFallsBack(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{}
	src := &fakeSource{files: map[string]string{"main.py": mainPy}}
	e := NewEngine(WithProvider(provider), WithSource(src))

	item := CallHierarchyItem{Name: "helper", Path: "main.py"}
	edges, err := e.Calls(context.Background(), "", item, Incoming)
	require.NoError(t, err)
	assert.Equal(t, []string{"entry"}, edgeNames(edges))
}
