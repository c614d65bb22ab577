package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func testServer(t *testing.T, input string) (*Server, *bytes.Buffer) {
	t.Helper()
	reg := NewRegistry()
	reg.MustRegister(echoTool("echo"))

	var out bytes.Buffer
	srv, err := New(Options{
		Registry:        reg,
		Stdin:           strings.NewReader(input),
		Stdout:          &out,
		ServerName:      "test-server",
		ServerVersion:   "0.0.1",
		ProtocolVersion: "2024-11-05",
		Instructions:    "test instructions",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv, &out
}

// responses decodes each NDJSON line written by the server.
func responses(t *testing.T, out *bytes.Buffer) []rpcResponse {
	t.Helper()
	var resps []rpcResponse
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp rpcResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("decode response line %q: %v", line, err)
		}
		resps = append(resps, resp)
	}
	return resps
}

func TestServerInitializeHandshake(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test-client","version":"1.0"}}}
{"jsonrpc":"2.0","method":"notifications/initialized"}
{"jsonrpc":"2.0","id":2,"method":"tools/list"}
`
	srv, out := testServer(t, input)
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	resps := responses(t, out)
	if len(resps) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(resps))
	}

	var init initializeResult
	if err := json.Unmarshal(resps[0].Result, &init); err != nil {
		t.Fatalf("decode initialize result: %v", err)
	}
	if init.ServerInfo.Name != "test-server" || init.ProtocolVersion != "2024-11-05" {
		t.Errorf("unexpected initialize result: %+v", init)
	}
	if init.Instructions != "test instructions" {
		t.Errorf("instructions not returned: %q", init.Instructions)
	}
	if init.Capabilities.Tools == nil {
		t.Error("tools capability missing")
	}

	var list toolsListResult
	if err := json.Unmarshal(resps[1].Result, &list); err != nil {
		t.Fatalf("decode tools/list result: %v", err)
	}
	if len(list.Tools) != 1 || list.Tools[0].Name != "echo" {
		t.Errorf("unexpected tools: %+v", list.Tools)
	}
}

func TestServerRequiresInitializeFirst(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}
`
	srv, out := testServer(t, input)
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	resps := responses(t, out)
	if len(resps) != 1 || resps[0].Error == nil {
		t.Fatalf("expected an error response, got %+v", resps)
	}
	if resps[0].Error.Code != ErrCodeInvalidRequest {
		t.Errorf("code = %d, want %d", resps[0].Error.Code, ErrCodeInvalidRequest)
	}
}

func TestServerRejectsDoubleInitialize(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}
{"jsonrpc":"2.0","id":2,"method":"initialize","params":{}}
`
	srv, out := testServer(t, input)
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	resps := responses(t, out)
	if len(resps) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(resps))
	}
	if resps[0].Error != nil {
		t.Errorf("first initialize failed: %+v", resps[0].Error)
	}
	if resps[1].Error == nil {
		t.Error("second initialize accepted")
	}
}

func TestServerToolCall(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}
{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"greeting":"hi"}}}
`
	srv, out := testServer(t, input)
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	resps := responses(t, out)
	if len(resps) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(resps))
	}

	var result ToolCallResult
	if err := json.Unmarshal(resps[1].Result, &result); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content)
	}
	if !strings.Contains(string(result.Content[0]), "greeting") {
		t.Errorf("arguments not echoed: %s", result.Content[0])
	}
}

func TestServerPing(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"ping"}
`
	srv, out := testServer(t, input)
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	resps := responses(t, out)
	if len(resps) != 1 || resps[0].Error != nil {
		t.Fatalf("ping failed: %+v", resps)
	}
}

func TestServerParseErrorResponse(t *testing.T) {
	input := "this is not json\n"
	srv, out := testServer(t, input)
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	resps := responses(t, out)
	if len(resps) != 1 || resps[0].Error == nil {
		t.Fatalf("expected parse error response, got %+v", resps)
	}
	if resps[0].Error.Code != ErrCodeParseError {
		t.Errorf("code = %d, want %d", resps[0].Error.Code, ErrCodeParseError)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}
{"jsonrpc":"2.0","id":2,"method":"resources/list"}
`
	srv, out := testServer(t, input)
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	resps := responses(t, out)
	if len(resps) != 2 || resps[1].Error == nil {
		t.Fatalf("expected method-not-found, got %+v", resps)
	}
	if resps[1].Error.Code != ErrCodeMethodNotFound {
		t.Errorf("code = %d, want %d", resps[1].Error.Code, ErrCodeMethodNotFound)
	}
}

func TestServerEOFWithoutNewline(t *testing.T) {
	// Final line lacks a trailing newline; the request must still be served.
	input := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	srv, out := testServer(t, input)
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(responses(t, out)) != 1 {
		t.Fatal("request before EOF was dropped")
	}
}
