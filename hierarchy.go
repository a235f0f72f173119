package understory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// NodeState is the explicit lifecycle tag of a hierarchy node. Modeling
// the state directly (rather than inferring it from nil children) makes
// the refetch-on-every-expand behavior below a visible choice.
type NodeState int

const (
	// NodeCollapsed: never expanded, no children fetched.
	NodeCollapsed NodeState = iota
	// NodeLoading: exactly one fetch in flight for this node.
	NodeLoading
	// NodeLoaded: expanded at least once; Children holds the last fetch.
	NodeLoaded
)

// FetchFunc retrieves one level of call edges for a node's item.
type FetchFunc func(ctx context.Context, item CallHierarchyItem) ([]CallEdge, error)

// TreeNode is a caller-facing snapshot of one node. Mutating it has no
// effect on the tree.
type TreeNode struct {
	ID       string
	Edge     CallEdge
	State    NodeState
	Expanded bool
	Children []string
}

type treeNode struct {
	id       string
	edge     CallEdge
	state    NodeState
	expanded bool
	children []string
}

// Tree is a lazily expanded call hierarchy. Nodes live in an arena
// addressed by opaque id; each expand action fetches exactly one level.
//
// Expanding a node that already has retained children still re-fetches:
// collapse keeps the old children for display, but a subsequent expand
// always asks the fetcher again and replaces them wholesale. Fetch
// failures are swallowed: the node is marked expanded with whatever was
// obtained so the UI never spins forever.
type Tree struct {
	mu    sync.Mutex
	fetch FetchFunc
	root  CallHierarchyItem
	nodes map[string]*treeNode
	roots []string
}

// NewTree builds a tree from a root item and its already-computed first
// level of edges.
func NewTree(root CallHierarchyItem, firstLevel []CallEdge, fetch FetchFunc) *Tree {
	t := &Tree{
		fetch: fetch,
		root:  root,
		nodes: make(map[string]*treeNode),
	}
	t.roots = t.insertEdges(firstLevel)
	return t
}

// Hierarchy opens a call hierarchy rooted at item: it computes the first
// level of edges in direction dir and wires the resulting tree to fetch
// further levels on demand through the same engine.
func (e *Engine) Hierarchy(ctx context.Context, projectRoot string, item CallHierarchyItem, dir Direction) (*Tree, error) {
	edges, err := e.Calls(ctx, projectRoot, item, dir)
	if err != nil {
		return nil, err
	}
	return NewTree(item, edges, func(ctx context.Context, it CallHierarchyItem) ([]CallEdge, error) {
		return e.Calls(ctx, projectRoot, it, dir)
	}), nil
}

// Root returns the item the hierarchy is rooted at.
func (t *Tree) Root() CallHierarchyItem { return t.root }

// Roots returns snapshots of the first-level nodes.
func (t *Tree) Roots() []TreeNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshots(t.roots)
}

// Node returns a snapshot of one node by id.
func (t *Tree) Node(id string) (TreeNode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return TreeNode{}, false
	}
	return t.snapshot(n), true
}

// Expand fetches the children of node id and returns their snapshots.
// While a fetch is in flight, further Expand calls on the same node are
// no-ops returning the current children. A failed fetch still marks the
// node expanded (with whatever children were obtained) and reports no
// error; per-node failures never surface as a tree error state.
func (t *Tree) Expand(ctx context.Context, id string) []TreeNode {
	t.mu.Lock()
	n, ok := t.nodes[id]
	if !ok || n.state == NodeLoading {
		var current []TreeNode
		if ok {
			current = t.snapshots(n.children)
		}
		t.mu.Unlock()
		return current
	}
	n.state = NodeLoading
	item := n.edge.Item
	t.mu.Unlock()

	edges, err := t.fetch(ctx, item)
	if err != nil {
		edges = nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok = t.nodes[id]
	if !ok {
		// Node was discarded while the fetch was in flight; the result
		// fires into the void.
		return nil
	}
	for _, child := range n.children {
		t.removeSubtree(child)
	}
	n.children = t.insertEdges(edges)
	n.state = NodeLoaded
	n.expanded = true
	return t.snapshots(n.children)
}

// Collapse hides a node's children but retains them; a later Expand
// re-fetches rather than reusing what was kept.
func (t *Tree) Collapse(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.nodes[id]; ok && n.state != NodeLoading {
		n.expanded = false
	}
}

// insertEdges allocates arena nodes for a level of edges. Caller holds
// the lock (or owns the tree exclusively during construction).
func (t *Tree) insertEdges(edges []CallEdge) []string {
	ids := make([]string, 0, len(edges))
	for _, edge := range edges {
		n := &treeNode{id: uuid.NewString(), edge: edge}
		t.nodes[n.id] = n
		ids = append(ids, n.id)
	}
	return ids
}

func (t *Tree) removeSubtree(id string) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	for _, child := range n.children {
		t.removeSubtree(child)
	}
	delete(t.nodes, id)
}

func (t *Tree) snapshot(n *treeNode) TreeNode {
	children := make([]string, len(n.children))
	copy(children, n.children)
	return TreeNode{
		ID:       n.id,
		Edge:     n.edge,
		State:    n.state,
		Expanded: n.expanded,
		Children: children,
	}
}

func (t *Tree) snapshots(ids []string) []TreeNode {
	out := make([]TreeNode, 0, len(ids))
	for _, id := range ids {
		if n, ok := t.nodes[id]; ok {
			out = append(out, t.snapshot(n))
		}
	}
	return out
}
