package lsp

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/jward/understory"
)

// Wire-level JSON-RPC message shapes.

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return e.Message }

// LSP protocol structures, limited to what the provider needs.

type position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type span struct {
	Start position `json:"start"`
	End   position `json:"end"`
}

type location struct {
	URI   string `json:"uri"`
	Range span   `json:"range"`
}

type workspaceSymbol struct {
	Name          string   `json:"name"`
	Kind          int      `json:"kind"`
	Location      location `json:"location"`
	ContainerName string   `json:"containerName,omitempty"`
}

type hierarchyItem struct {
	Name           string          `json:"name"`
	Kind           int             `json:"kind"`
	URI            string          `json:"uri"`
	Range          span            `json:"range"`
	SelectionRange span            `json:"selectionRange"`
	Data           json.RawMessage `json:"data,omitempty"`
}

type incomingCall struct {
	From       hierarchyItem `json:"from"`
	FromRanges []span        `json:"fromRanges"`
}

type outgoingCall struct {
	To         hierarchyItem `json:"to"`
	FromRanges []span        `json:"fromRanges"`
}

// Conversions between wire shapes and engine types.

func toRange(s span) understory.Range {
	return understory.Range{
		Start: understory.Position{Line: s.Start.Line, Col: s.Start.Character},
		End:   understory.Position{Line: s.End.Line, Col: s.End.Character},
	}
}

func fromRange(r understory.Range) span {
	return span{
		Start: position{Line: r.Start.Line, Character: r.Start.Col},
		End:   position{Line: r.End.Line, Character: r.End.Col},
	}
}

// pathToURI converts a file path to a file:// URI, normalizing Windows
// separators.
func pathToURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	abs = filepath.ToSlash(abs)
	return "file:///" + strings.TrimPrefix(abs, "/")
}

// uriToPath converts a file:// URI back to an OS path.
func uriToPath(uri string) string {
	path := strings.TrimPrefix(uri, "file:///")
	path = strings.TrimPrefix(path, "file://")
	if !strings.HasPrefix(path, "/") && !strings.Contains(path, ":") {
		path = "/" + path
	}
	return filepath.FromSlash(path)
}
