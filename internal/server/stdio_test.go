package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aidisdev/aidis/internal/embedding"
	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/internal/executor"
	"github.com/aidisdev/aidis/internal/observability"
	"github.com/aidisdev/aidis/internal/registry"
	"github.com/aidisdev/aidis/pkg/models"
)

// newTestStack builds a sealed registry with stub handlers, the executor
// over it, and a health producer with no database attached.
func newTestStack(t *testing.T, overrides map[string]registry.HandlerFunc) (*executor.Executor, *registry.Registry, *Health) {
	t.Helper()

	reg := registry.New("aidis")
	for _, def := range reg.Definitions() {
		fn, ok := overrides[def.Name]
		if !ok {
			fn = func(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
				return models.TextResult("stub"), nil
			}
		}
		if err := reg.Bind(def.Name, fn); err != nil {
			t.Fatalf("bind %s: %v", def.Name, err)
		}
	}
	if err := reg.Seal(); err != nil {
		t.Fatalf("seal: %v", err)
	}

	logger := observability.NewTestLogger()
	exec := executor.New(reg, logger, nil, time.Second)
	health := NewHealth(nil, nil, embedding.NewLocal(384), "test", time.Second)
	return exec, reg, health
}

// serveLines runs the stdio loop over the given input and returns the
// decoded responses keyed by id.
func serveLines(t *testing.T, overrides map[string]registry.HandlerFunc, input string) map[string]jsonrpcResponse {
	t.Helper()

	exec, reg, health := newTestStack(t, overrides)
	var out bytes.Buffer
	s := NewStdio(exec, reg, health, observability.NewTestLogger(), strings.NewReader(input), &out)

	if err := s.Serve(context.Background()); err != nil {
		t.Fatalf("serve: %v", err)
	}

	responses := map[string]jsonrpcResponse{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp jsonrpcResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("response is not valid JSON: %q", line)
		}
		key := ""
		if resp.ID != nil {
			keyBytes, _ := json.Marshal(resp.ID)
			key = string(keyBytes)
		}
		responses[key] = resp
	}
	return responses
}

func TestStdioToolsList(t *testing.T) {
	responses := serveLines(t, nil, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`+"\n")

	resp, ok := responses["1"]
	if !ok {
		t.Fatalf("no response for id 1: %v", responses)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("result is %T, want object", resp.Result)
	}
	tools, ok := result["tools"].([]any)
	if !ok || len(tools) != 31 {
		t.Errorf("tools/list returned %d tools, want 31", len(tools))
	}
}

func TestStdioToolsCall(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"aidis_ping","arguments":{"message":"hi"}}}` + "\n"
	responses := serveLines(t, map[string]registry.HandlerFunc{
		"aidis_ping": func(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
			if req.CallerID != "stdio" {
				t.Errorf("caller id = %q, want stdio", req.CallerID)
			}
			return models.TextResult("pong: hi"), nil
		},
	}, input)

	resp := responses[`"abc"`]
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
}

func TestStdioToolFailureMapsToInternalCode(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"aidis_ping","arguments":{}}}` + "\n"
	responses := serveLines(t, map[string]registry.HandlerFunc{
		"aidis_ping": func(ctx context.Context, req *registry.Request) (*models.ToolResult, error) {
			return nil, errs.NotFound("no such thing")
		},
	}, input)

	resp := responses["2"]
	if resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if resp.Error.Code != codeInternalError {
		t.Errorf("code = %d, want %d", resp.Error.Code, codeInternalError)
	}
	if !strings.Contains(resp.Error.Message, "NotFound") {
		t.Errorf("message %q should include the error kind", resp.Error.Message)
	}
}

func TestStdioProtocolErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode int
	}{
		{"parse error", "this is not json\n", codeParseError},
		{"missing method", `{"jsonrpc":"2.0","id":1}` + "\n", codeInvalidRequest},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"tools/list"}` + "\n", codeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"bogus/thing"}` + "\n", codeMethodNotFound},
		{"call without name", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}` + "\n", codeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := serveLines(t, nil, tt.input)
			if len(responses) != 1 {
				t.Fatalf("got %d responses, want 1", len(responses))
			}
			for _, resp := range responses {
				if resp.Error == nil {
					t.Fatal("expected an error response")
				}
				if resp.Error.Code != tt.wantCode {
					t.Errorf("code = %d, want %d", resp.Error.Code, tt.wantCode)
				}
			}
		})
	}
}

func TestStdioResources(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"resources/list"}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"aidis://status"}}` + "\n" +
		`{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"aidis://nope"}}` + "\n"
	responses := serveLines(t, nil, input)

	list := responses["1"]
	if list.Error != nil {
		t.Fatalf("resources/list error: %v", list.Error)
	}

	read := responses["2"]
	if read.Error != nil {
		t.Fatalf("resources/read error: %v", read.Error)
	}
	result := read.Result.(map[string]any)
	contents := result["contents"].([]any)
	text := contents[0].(map[string]any)["text"].(string)
	if !strings.Contains(text, "version") {
		t.Errorf("status resource %q should carry the version", text)
	}

	bad := responses["3"]
	if bad.Error == nil || bad.Error.Code != codeInvalidRequest {
		t.Errorf("unknown resource should return invalid request, got %v", bad.Error)
	}
}

func TestStdioInitialize(t *testing.T) {
	responses := serveLines(t, nil, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`+"\n")
	resp := responses["1"]
	if resp.Error != nil {
		t.Fatalf("initialize error: %v", resp.Error)
	}
	result := resp.Result.(map[string]any)
	info := result["serverInfo"].(map[string]any)
	if info["name"] != "aidis" {
		t.Errorf("server name = %v", info["name"])
	}
}

func TestStdioServeStopsOnCancel(t *testing.T) {
	exec, reg, health := newTestStack(t, nil)

	// An idle pipe that never closes: only cancellation can stop Serve.
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewStdio(exec, reg, health, observability.NewTestLogger(), pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}

func TestStdioSkipsBlankLines(t *testing.T) {
	input := "\n\n" + `{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n\n"
	responses := serveLines(t, nil, input)
	if len(responses) != 1 {
		t.Errorf("got %d responses, want 1", len(responses))
	}
}
