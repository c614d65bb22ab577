package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "echoes its arguments",
		InputSchema: json.RawMessage(`{"type": "object"}`),
		Handler: func(ctx context.Context, call *CallContext) (any, error) {
			var args map[string]any
			if err := call.Bind(&args); err != nil {
				return nil, err
			}
			return args, nil
		},
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(echoTool("echo")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.Register(echoTool("echo")); err == nil {
		t.Fatal("duplicate name accepted")
	}
}

func TestRegistryRejectsIncompleteTools(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Tool{Name: "no-handler"}); err == nil {
		t.Error("tool without handler accepted")
	}
	if err := reg.Register(Tool{Handler: echoTool("x").Handler}); err == nil {
		t.Error("tool without name accepted")
	}
}

func TestRegistryListPreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		reg.MustRegister(echoTool(name))
	}

	list := reg.List()
	got := []string{list[0].Name, list[1].Name, list[2].Name}
	want := []string{"zeta", "alpha", "mid"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order changed: got %v, want %v", got, want)
		}
	}
}

func TestCallUnknownToolIsProtocolError(t *testing.T) {
	reg := NewRegistry()
	_, rpcErr := reg.Call(context.Background(), "missing", NewCallContext(nil, nil))
	if rpcErr == nil {
		t.Fatal("expected RPC error")
	}
	if rpcErr.Code != ErrCodeToolNotFound {
		t.Errorf("code = %d, want %d", rpcErr.Code, ErrCodeToolNotFound)
	}
}

func TestCallHandlerErrorBecomesToolResult(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Tool{
		Name: "boom",
		Handler: func(ctx context.Context, call *CallContext) (any, error) {
			return nil, errors.New("Failed to do the thing: boom")
		},
	})

	result, rpcErr := reg.Call(context.Background(), "boom", NewCallContext(nil, nil))
	if rpcErr != nil {
		t.Fatalf("handler error escalated to protocol error: %v", rpcErr)
	}
	if !result.IsError {
		t.Fatal("result not flagged as error")
	}
	if len(result.Content) != 1 || !strings.Contains(string(result.Content[0]), "Failed to do the thing") {
		t.Errorf("unexpected content: %s", result.Content)
	}
}

func TestCallMarshalsResultAsTextBlock(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoTool("echo"))

	call := NewCallContext(json.RawMessage(`{"k": "v"}`), nil)
	result, rpcErr := reg.Call(context.Background(), "echo", call)
	if rpcErr != nil {
		t.Fatalf("call: %v", rpcErr)
	}

	var block struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(result.Content[0], &block); err != nil {
		t.Fatalf("decode content block: %v", err)
	}
	if block.Type != "text" || !strings.Contains(block.Text, `"k": "v"`) {
		t.Errorf("unexpected block: %+v", block)
	}
}

func TestCallContextInfoNilSink(t *testing.T) {
	call := NewCallContext(nil, nil)
	call.Info("must not panic %d", 1)

	var got string
	call = NewCallContext(nil, func(msg string) { got = msg })
	call.Info("hello %s", "world")
	if got != "hello world" {
		t.Errorf("sink got %q", got)
	}
}
