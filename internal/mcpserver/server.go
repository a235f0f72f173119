// Package mcpserver exposes the fallback engine's queries as MCP tools so
// agent clients can use them over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jward/understory"
)

// Server wraps one Engine and one project root behind an MCP server.
type Server struct {
	engine *understory.Engine
	root   string
	mcp    *mcp.Server
}

// New builds a Server for the given engine and project root.
func New(engine *understory.Engine, root string) *Server {
	s := &Server{
		engine: engine,
		root:   root,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "understory",
			Version: "0.1.0",
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Argument structs

type SearchSymbolsArgs struct {
	Query string `json:"query" jsonschema:"required,description:Fuzzy query matched against symbol names"`
	Limit int    `json:"limit" jsonschema:"description:Maximum results to return (default 50)"`
}

type CallsArgs struct {
	File string `json:"file" jsonschema:"required,description:Path of the file containing the symbol"`
	Line int    `json:"line" jsonschema:"required,description:Zero-based line of the symbol"`
	Col  int    `json:"col" jsonschema:"description:Zero-based column of the symbol"`
}

type SnapshotArgs struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_symbols",
		Description: "Fuzzy-search symbols across the project, ranked by match quality",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SearchSymbolsArgs) (*mcp.CallToolResult, any, error) {
		records, err := s.engine.SearchSymbols(ctx, s.root, args.Query)
		if err != nil {
			return errorResult(fmt.Sprintf("Symbol search failed: %v", err)), nil, nil
		}
		ranked := understory.RankSymbols(records, args.Query)
		limit := args.Limit
		if limit <= 0 {
			limit = 50
		}
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}
		return jsonResult(ranked)
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "incoming_calls",
		Description: "List the callers of the function at a position, with call sites",
	}, s.callsHandler(understory.Incoming))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "outgoing_calls",
		Description: "List what the function at a position calls, with call sites",
	}, s.callsHandler(understory.Outgoing))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "snapshot",
		Description: "Scan the project and persist the symbol index snapshot",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SnapshotArgs) (*mcp.CallToolResult, any, error) {
		n, err := s.engine.Snapshot(ctx, s.root)
		if err != nil {
			return errorResult(fmt.Sprintf("Snapshot failed: %v", err)), nil, nil
		}
		return textResult(fmt.Sprintf("Snapshotted %d symbols", n)), nil, nil
	})
}

// callsHandler builds the shared handler for incoming_calls/outgoing_calls.
func (s *Server) callsHandler(dir understory.Direction) func(context.Context, *mcp.CallToolRequest, CallsArgs) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args CallsArgs) (*mcp.CallToolResult, any, error) {
		item, err := s.engine.PrepareItem(ctx, args.File, args.Line, args.Col)
		if err != nil {
			return errorResult(fmt.Sprintf("No symbol at %s:%d:%d: %v",
				args.File, args.Line, args.Col, err)), nil, nil
		}
		edges, err := s.engine.Calls(ctx, s.root, item, dir)
		if err != nil {
			return errorResult(fmt.Sprintf("Call lookup failed: %v", err)), nil, nil
		}
		return jsonResult(map[string]any{
			"root":  item,
			"edges": edges,
		})
	}
}

func textResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Encoding failed: %v", err)), nil, nil
	}
	return textResult(string(data)), nil, nil
}
