package understory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func edge(name string) CallEdge {
	return CallEdge{
		Item:       CallHierarchyItem{Name: name},
		FromRanges: []Range{{}},
		CallCount:  1,
	}
}

func staticFetch(byName map[string][]CallEdge) (FetchFunc, *atomic.Int32) {
	var calls atomic.Int32
	return func(_ context.Context, item CallHierarchyItem) ([]CallEdge, error) {
		calls.Add(1)
		return byName[item.Name], nil
	}, &calls
}

func TestTree_InitialState(t *testing.T) {
	t.Parallel()
	fetch, _ := staticFetch(nil)
	tree := NewTree(CallHierarchyItem{Name: "root"}, []CallEdge{edge("a"), edge("b")}, fetch)

	assert.Equal(t, "root", tree.Root().Name)
	roots := tree.Roots()
	require.Len(t, roots, 2)
	for _, n := range roots {
		assert.Equal(t, NodeCollapsed, n.State)
		assert.False(t, n.Expanded)
		assert.Empty(t, n.Children)
	}
	assert.Equal(t, "a", roots[0].Edge.Item.Name)
	assert.Equal(t, "b", roots[1].Edge.Item.Name)
}

func TestTree_ExpandLoadsChildren(t *testing.T) {
	t.Parallel()
	fetch, calls := staticFetch(map[string][]CallEdge{
		"a": {edge("a1"), edge("a2")},
	})
	tree := NewTree(CallHierarchyItem{Name: "root"}, []CallEdge{edge("a")}, fetch)
	id := tree.Roots()[0].ID

	children := tree.Expand(context.Background(), id)
	require.Len(t, children, 2)
	assert.Equal(t, "a1", children[0].Edge.Item.Name)
	assert.Equal(t, "a2", children[1].Edge.Item.Name)
	assert.Equal(t, int32(1), calls.Load())

	n, ok := tree.Node(id)
	require.True(t, ok)
	assert.Equal(t, NodeLoaded, n.State)
	assert.True(t, n.Expanded)
	assert.Len(t, n.Children, 2)
}

func TestTree_ReExpandRefetches(t *testing.T) {
	t.Parallel()
	fetch, calls := staticFetch(map[string][]CallEdge{
		"a": {edge("a1")},
	})
	tree := NewTree(CallHierarchyItem{Name: "root"}, []CallEdge{edge("a")}, fetch)
	id := tree.Roots()[0].ID

	first := tree.Expand(context.Background(), id)
	second := tree.Expand(context.Background(), id)
	assert.Equal(t, int32(2), calls.Load())

	// The level is replaced wholesale; node identities do not survive.
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID)
	_, ok := tree.Node(first[0].ID)
	assert.False(t, ok, "previous generation is discarded")
}

func TestTree_CollapseRetainsChildren(t *testing.T) {
	t.Parallel()
	fetch, calls := staticFetch(map[string][]CallEdge{
		"a": {edge("a1")},
	})
	tree := NewTree(CallHierarchyItem{Name: "root"}, []CallEdge{edge("a")}, fetch)
	id := tree.Roots()[0].ID

	tree.Expand(context.Background(), id)
	tree.Collapse(id)

	n, ok := tree.Node(id)
	require.True(t, ok)
	assert.False(t, n.Expanded)
	assert.Equal(t, NodeLoaded, n.State)
	assert.Len(t, n.Children, 1, "collapse hides, it does not discard")

	// Expanding again refetches rather than reusing what was kept.
	tree.Expand(context.Background(), id)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTree_ExpandFailureIsSwallowed(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	fetch := func(_ context.Context, _ CallHierarchyItem) ([]CallEdge, error) {
		calls.Add(1)
		return nil, errors.New("provider exploded")
	}
	tree := NewTree(CallHierarchyItem{Name: "root"}, []CallEdge{edge("a")}, fetch)
	id := tree.Roots()[0].ID

	children := tree.Expand(context.Background(), id)
	assert.Empty(t, children)

	n, ok := tree.Node(id)
	require.True(t, ok)
	assert.Equal(t, NodeLoaded, n.State)
	assert.True(t, n.Expanded, "a failed expand still counts as expanded")
}

func TestTree_ExpandUnknownID(t *testing.T) {
	t.Parallel()
	fetch, calls := staticFetch(nil)
	tree := NewTree(CallHierarchyItem{Name: "root"}, nil, fetch)

	assert.Nil(t, tree.Expand(context.Background(), "no-such-node"))
	assert.Equal(t, int32(0), calls.Load())
	_, ok := tree.Node("no-such-node")
	assert.False(t, ok)
}

func TestTree_ExpandWhileLoadingIsNoOp(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(_ context.Context, _ CallHierarchyItem) ([]CallEdge, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return []CallEdge{edge("child")}, nil
	}
	tree := NewTree(CallHierarchyItem{Name: "root"}, []CallEdge{edge("a")}, fetch)
	id := tree.Roots()[0].ID

	done := make(chan []TreeNode)
	go func() {
		done <- tree.Expand(context.Background(), id)
	}()
	<-started

	// A second expand during the in-flight fetch does not start another.
	assert.Empty(t, tree.Expand(context.Background(), id))
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	children := <-done
	require.Len(t, children, 1)
	assert.Equal(t, "child", children[0].Edge.Item.Name)
}

func TestTree_CollapseWhileLoadingIgnored(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(_ context.Context, _ CallHierarchyItem) ([]CallEdge, error) {
		close(started)
		<-release
		return nil, nil
	}
	tree := NewTree(CallHierarchyItem{Name: "root"}, []CallEdge{edge("a")}, fetch)
	id := tree.Roots()[0].ID

	done := make(chan struct{})
	go func() {
		tree.Expand(context.Background(), id)
		close(done)
	}()
	<-started
	tree.Collapse(id)
	close(release)
	<-done

	n, _ := tree.Node(id)
	assert.True(t, n.Expanded, "collapse during a fetch is ignored")
}

func TestHierarchy_EngineWiring(t *testing.T) {
	t.Parallel()
	src := &fakeSource{files: map[string]string{"main.py": mainPy}}
	e := NewEngine(WithSource(src))

	item, err := e.PrepareItem(context.Background(), "main.py", 0, 0)
	require.NoError(t, err)

	tree, err := e.Hierarchy(context.Background(), "/proj", item, Outgoing)
	require.NoError(t, err)

	roots := tree.Roots()
	require.Equal(t, []string{"helper", "emit"}, func() []string {
		names := make([]string, len(roots))
		for i, n := range roots {
			names[i] = n.Edge.Item.Name
		}
		return names
	}())

	// helper's own body calls nothing, so expanding it loads an empty level.
	children := tree.Expand(context.Background(), roots[0].ID)
	assert.Empty(t, children)
	n, _ := tree.Node(roots[0].ID)
	assert.Equal(t, NodeLoaded, n.State)
}
