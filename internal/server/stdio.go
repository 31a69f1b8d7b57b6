package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/aidisdev/aidis/internal/errs"
	"github.com/aidisdev/aidis/internal/executor"
	"github.com/aidisdev/aidis/internal/observability"
	"github.com/aidisdev/aidis/internal/registry"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// stdioCallerID keys the ambient state of everything arriving on stdin.
const stdioCallerID = "stdio"

// statusResourceURI is the one resource the stdio transport exposes.
const statusResourceURI = "aidis://status"

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonrpcError `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Stdio serves newline-framed JSON-RPC 2.0 on an input/output pair,
// normally stdin and stdout. Stdout carries framed responses only; all
// logging goes to the logger, which writes to stderr.
type Stdio struct {
	executor *executor.Executor
	registry *registry.Registry
	health   *Health
	logger   *observability.Logger

	in  io.Reader
	out io.Writer

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// NewStdio builds the stdio transport.
func NewStdio(exec *executor.Executor, reg *registry.Registry, health *Health, logger *observability.Logger, in io.Reader, out io.Writer) *Stdio {
	return &Stdio{
		executor: exec,
		registry: reg,
		health:   health,
		logger:   logger.With("component", "stdio"),
		in:       in,
		out:      out,
	}
}

// Serve reads requests until the input closes or the context is cancelled.
// Each request is handled on its own goroutine; responses are serialized
// through a write mutex so frames never interleave. Cancellation must
// unblock Serve even while stdin is idle, so the scan loop runs on its own
// goroutine and the main loop selects against ctx.
func (s *Stdio) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			// The reader goroutine may stay parked in Scan until the
			// process exits; in-flight handlers still drain here.
			s.wg.Wait()
			s.logger.Info(ctx, "context cancelled, stdio transport stopping")
			return nil
		case line, ok := <-lines:
			if !ok {
				s.wg.Wait()
				// readErr is populated before lines closes unless the
				// reader bailed out on cancellation.
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("stdin read: %w", err)
					}
				default:
				}
				s.logger.Info(ctx, "stdin closed, stdio transport stopping")
				return nil
			}
			s.handleLine(ctx, line)
		}
	}
}

func (s *Stdio) handleLine(ctx context.Context, line []byte) {
	if len(line) == 0 {
		return
	}

	var req jsonrpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.writeError(nil, codeParseError, "parse error: invalid JSON")
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		s.writeError(req.ID, codeInvalidRequest, "invalid request: jsonrpc 2.0 with a method is required")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatch(ctx, req)
	}()
}

func (s *Stdio) dispatch(ctx context.Context, req jsonrpcRequest) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "tools/list":
		s.handleToolsList(req)
	case "tools/call":
		s.handleToolsCall(ctx, req)
	case "resources/list":
		s.handleResourcesList(req)
	case "resources/read":
		s.handleResourcesRead(ctx, req)
	default:
		s.writeError(req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (s *Stdio) handleInitialize(req jsonrpcRequest) {
	s.writeResult(req.ID, map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    "aidis",
			"version": s.health.version,
		},
	})
}

func (s *Stdio) handleToolsList(req jsonrpcRequest) {
	s.writeResult(req.ID, map[string]any{"tools": s.registry.Definitions()})
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Stdio) handleToolsCall(ctx context.Context, req jsonrpcRequest) {
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		s.writeError(req.ID, codeInvalidRequest, "tools/call params require a name")
		return
	}

	result, correlationID, err := s.executor.Execute(ctx, executor.Call{
		Tool:      params.Name,
		Args:      params.Arguments,
		CallerID:  stdioCallerID,
		Transport: "stdio",
	})
	if err != nil {
		s.write(jsonrpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &jsonrpcError{
				Code:    codeInternalError,
				Message: fmt.Sprintf("%s: %s", errs.KindOf(err), errs.MessageOf(err)),
				Data:    map[string]any{"correlationId": correlationID},
			},
		})
		return
	}
	s.writeResult(req.ID, result)
}

func (s *Stdio) handleResourcesList(req jsonrpcRequest) {
	s.writeResult(req.ID, map[string]any{
		"resources": []map[string]any{
			{
				"uri":         statusResourceURI,
				"name":        "Server status",
				"description": "Daemon health, uptime and subsystem state",
				"mimeType":    "application/json",
			},
		},
	})
}

type resourcesReadParams struct {
	URI string `json:"uri"`
}

func (s *Stdio) handleResourcesRead(ctx context.Context, req jsonrpcRequest) {
	var params resourcesReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.URI == "" {
		s.writeError(req.ID, codeInvalidRequest, "resources/read params require a uri")
		return
	}
	if params.URI != statusResourceURI {
		s.writeError(req.ID, codeInvalidRequest, fmt.Sprintf("unknown resource %q", params.URI))
		return
	}

	snap := s.health.Snapshot(ctx)
	body, err := json.Marshal(snap)
	if err != nil {
		s.writeError(req.ID, codeInternalError, "encode status resource")
		return
	}
	s.writeResult(req.ID, map[string]any{
		"contents": []map[string]any{
			{
				"uri":      statusResourceURI,
				"mimeType": "application/json",
				"text":     string(body),
			},
		},
	})
}

func (s *Stdio) writeResult(id, result any) {
	s.write(jsonrpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Stdio) writeError(id any, code int, message string) {
	s.write(jsonrpcResponse{JSONRPC: "2.0", ID: id, Error: &jsonrpcError{Code: code, Message: message}})
}

func (s *Stdio) write(resp jsonrpcResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error(context.Background(), "encode response", "error", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.logger.Error(context.Background(), "write response", "error", err)
	}
}
