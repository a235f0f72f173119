package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jward/understory"
	"github.com/jward/understory/internal/lang"
)

// Config describes how to launch and talk to a language server.
type Config struct {
	Command  string        // server binary, e.g. "gopls"
	Args     []string      // e.g. ["serve"]
	RootPath string        // workspace root
	Timeout  time.Duration // per-request timeout, default 5s
}

// Client speaks LSP to one language-server process and adapts its answers
// to the engine's Provider contract. Requests are matched to responses by
// id through a pending map; server-initiated notifications are discarded.
type Client struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Reader

	nextID  atomic.Int64
	timeout time.Duration
	root    string

	mu      sync.Mutex
	pending map[int64]chan *rpcResponse
	// items keeps the server's original hierarchy items keyed by the
	// opaque id handed to callers, so follow-up calls can send back the
	// exact item (including its private data field).
	items  map[string]hierarchyItem
	closed bool

	writeMu sync.Mutex
}

// Dial launches the server, wires stdio, and runs the initialize
// handshake.
func Dial(cfg Config) (*Client, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("lsp: server command is required")
	}
	if cfg.RootPath == "" {
		return nil, fmt.Errorf("lsp: root path is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	path, err := exec.LookPath(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("lsp: %s not found in PATH: %w", cfg.Command, err)
	}

	cmd := exec.Command(path, cfg.Args...)
	cmd.Dir = cfg.RootPath
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lsp: start %s: %w", cfg.Command, err)
	}

	c := &Client{
		cmd:     cmd,
		stdin:   stdin,
		reader:  bufio.NewReader(stdout),
		timeout: cfg.Timeout,
		root:    cfg.RootPath,
		pending: make(map[int64]chan *rpcResponse),
		items:   make(map[string]hierarchyItem),
	}
	go c.readLoop()

	if err := c.initialize(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// initialize runs the LSP initialize/initialized handshake.
func (c *Client) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	params := map[string]any{
		"processId": nil,
		"rootUri":   pathToURI(c.root),
		"capabilities": map[string]any{
			"workspace": map[string]any{"symbol": map[string]any{}},
			"textDocument": map[string]any{
				"callHierarchy": map[string]any{},
			},
		},
	}
	var result json.RawMessage
	if err := c.call(ctx, "initialize", params, &result); err != nil {
		return fmt.Errorf("lsp: initialize: %w", err)
	}
	return c.notify("initialized", map[string]any{})
}

// Close shuts the server down, best-effort, and reaps the process.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var discard json.RawMessage
	_ = c.call(ctx, "shutdown", nil, &discard)
	_ = c.notify("exit", nil)
	_ = c.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		_ = c.cmd.Process.Kill()
		return <-done
	}
}

// readLoop delivers responses to waiting calls until the stream ends.
func (c *Client) readLoop() {
	for {
		body, err := readMessage(c.reader)
		if err != nil {
			c.failPending(err)
			return
		}
		var resp rpcResponse
		if err := json.Unmarshal(body, &resp); err != nil || resp.ID == nil {
			continue // malformed or a notification; not ours to answer
		}
		c.mu.Lock()
		ch, ok := c.pending[*resp.ID]
		if ok {
			delete(c.pending, *resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}
}

// failPending unblocks every in-flight call after the stream breaks.
func (c *Client) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		delete(c.pending, id)
		ch <- &rpcResponse{Error: &rpcError{Code: -1, Message: err.Error()}}
	}
}

// call sends one request and decodes the response into result.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	id := c.nextID.Add(1)
	ch := make(chan *rpcResponse, 1)

	c.mu.Lock()
	if c.closed && method != "shutdown" {
		c.mu.Unlock()
		return fmt.Errorf("lsp: client closed")
	}
	c.pending[id] = ch
	c.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	c.writeMu.Lock()
	err := writeMessage(c.stdin, req)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("lsp: write %s: %w", method, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case resp := <-ch:
		if resp.Error != nil {
			return fmt.Errorf("lsp: %s: %w", method, resp.Error)
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("lsp: decode %s result: %w", method, err)
			}
		}
		return nil
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("lsp: %s timed out after %s", method, c.timeout)
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ctx.Err()
	}
}

func (c *Client) notify(method string, params any) error {
	n := rpcNotification{JSONRPC: "2.0", Method: method, Params: params}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeMessage(c.stdin, n)
}

// --- Provider implementation ---

// WorkspaceSymbols asks the server for project-wide symbols.
func (c *Client) WorkspaceSymbols(ctx context.Context, root, query string) ([]understory.SymbolRecord, error) {
	var symbols []workspaceSymbol
	err := c.call(ctx, "workspace/symbol", map[string]any{"query": query}, &symbols)
	if err != nil {
		return nil, err
	}
	records := make([]understory.SymbolRecord, 0, len(symbols))
	for _, s := range symbols {
		records = append(records, understory.SymbolRecord{
			Name:      s.Name,
			Kind:      lang.KindFromCode(s.Kind),
			Container: s.ContainerName,
			Path:      uriToPath(s.Location.URI),
			Range:     toRange(s.Location.Range),
		})
	}
	return records, nil
}

// PrepareCallHierarchy resolves hierarchy items at a position.
func (c *Client) PrepareCallHierarchy(ctx context.Context, path string, line, col int) ([]understory.CallHierarchyItem, error) {
	params := map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path)},
		"position":     position{Line: line, Character: col},
	}
	var items []hierarchyItem
	if err := c.call(ctx, "textDocument/prepareCallHierarchy", params, &items); err != nil {
		return nil, err
	}
	out := make([]understory.CallHierarchyItem, 0, len(items))
	for _, it := range items {
		out = append(out, c.adoptItem(it))
	}
	return out, nil
}

// IncomingCalls returns the callers of item.
func (c *Client) IncomingCalls(ctx context.Context, item understory.CallHierarchyItem) ([]understory.CallEdge, error) {
	var calls []incomingCall
	if err := c.call(ctx, "callHierarchy/incomingCalls",
		map[string]any{"item": c.wireItem(item)}, &calls); err != nil {
		return nil, err
	}
	edges := make([]understory.CallEdge, 0, len(calls))
	for _, call := range calls {
		edges = append(edges, c.toEdge(call.From, call.FromRanges))
	}
	return edges, nil
}

// OutgoingCalls returns the callees of item.
func (c *Client) OutgoingCalls(ctx context.Context, item understory.CallHierarchyItem) ([]understory.CallEdge, error) {
	var calls []outgoingCall
	if err := c.call(ctx, "callHierarchy/outgoingCalls",
		map[string]any{"item": c.wireItem(item)}, &calls); err != nil {
		return nil, err
	}
	edges := make([]understory.CallEdge, 0, len(calls))
	for _, call := range calls {
		edges = append(edges, c.toEdge(call.To, call.FromRanges))
	}
	return edges, nil
}

// adoptItem converts a server item to the engine shape, remembering the
// original under the generated id for follow-up requests.
func (c *Client) adoptItem(it hierarchyItem) understory.CallHierarchyItem {
	id := uuid.NewString()
	c.mu.Lock()
	c.items[id] = it
	c.mu.Unlock()
	return understory.CallHierarchyItem{
		ID:             id,
		Name:           it.Name,
		Kind:           lang.KindFromCode(it.Kind),
		Path:           uriToPath(it.URI),
		Range:          toRange(it.Range),
		SelectionRange: toRange(it.SelectionRange),
	}
}

// wireItem recovers the server's original item when we have it; items
// the server never produced (e.g. built by the fallback path) are
// reconstructed from their public fields.
func (c *Client) wireItem(item understory.CallHierarchyItem) hierarchyItem {
	c.mu.Lock()
	it, ok := c.items[item.ID]
	c.mu.Unlock()
	if ok {
		return it
	}
	return hierarchyItem{
		Name:           item.Name,
		Kind:           item.Kind.Code(),
		URI:            pathToURI(item.Path),
		Range:          fromRange(item.Range),
		SelectionRange: fromRange(item.SelectionRange),
	}
}

func (c *Client) toEdge(it hierarchyItem, spans []span) understory.CallEdge {
	ranges := make([]understory.Range, len(spans))
	for i, s := range spans {
		ranges[i] = toRange(s)
	}
	return understory.CallEdge{
		Item:       c.adoptItem(it),
		FromRanges: ranges,
		CallCount:  len(ranges),
	}
}
