package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
)

// Options configures the MCP server.
type Options struct {
	Registry        *Registry
	Stdin           io.Reader
	Stdout          io.Writer
	ServerName      string
	ServerVersion   string
	ProtocolVersion string
	Instructions    string

	// Stateless relaxes the initialize handshake for transports where
	// each request is independent (the HTTP transport): initialize is
	// idempotent and other methods do not require a prior handshake.
	Stateless bool
}

// Server is an MCP server that serves a fixed tool registry over stdio
// with NDJSON framing.
type Server struct {
	opts     Options
	registry *Registry

	// Protocol state
	initialized bool
	mu          sync.RWMutex

	// IO
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex
}

// New creates a new MCP server.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	return &Server{
		opts:     opts,
		registry: opts.Registry,
		reader:   bufio.NewReader(opts.Stdin),
		writer:   opts.Stdout,
	}, nil
}

// readResult holds a line read from stdin and any error.
type readResult struct {
	line []byte
	err  error
}

// Run processes requests until stdin is exhausted or the context is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	// Read lines from stdin in a goroutine so cancellation is honored
	// even while blocked on a read.
	lines := make(chan readResult)
	go func() {
		defer close(lines)
		for {
			line, err := s.reader.ReadBytes('\n')
			if len(line) > 0 {
				// ReadBytes buffer is only valid until the next read, so clone it.
				line = append([]byte(nil), line...)
			}
			select {
			case lines <- readResult{line, err}:
				if err != nil {
					return // Stop reading on error (including EOF)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case r, ok := <-lines:
			if !ok {
				return nil
			}

			// Process any data we got, even if there's an error (e.g., EOF without newline)
			line := bytes.TrimSpace(r.line)
			if len(line) > 0 {
				if msgErr := s.handleMessage(ctx, line); msgErr != nil {
					log.Printf("Error handling message: %v", msgErr)
				}
			}

			if r.err != nil {
				if r.err == io.EOF {
					log.Println("Client closed connection (EOF)")
					return nil
				}
				return fmt.Errorf("read request: %w", r.err)
			}
		}
	}
}

// handleMessage parses and routes a JSON-RPC message.
func (s *Server) handleMessage(ctx context.Context, data []byte) error {
	var msg rpcMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		// Parse error - respond if we can extract an ID
		s.sendError(nil, ErrParseError(err.Error()))
		return nil
	}

	// Notifications carry no ID
	if msg.ID == nil {
		return s.handleNotification(msg.Method, msg.Params)
	}

	result, rpcErr := s.HandleRequest(ctx, msg.Method, msg.Params, s.notifyFunc())
	if rpcErr != nil {
		s.sendError(msg.ID, rpcErr)
	} else {
		s.sendResult(msg.ID, result)
	}
	return nil
}

// HandleRequest processes a JSON-RPC request and returns a result or
// error. The notify sink receives tool progress lines; it may be nil.
func (s *Server) HandleRequest(ctx context.Context, method string, params json.RawMessage, notify func(string)) (any, *RPCError) {
	switch method {
	case "initialize":
		return s.handleInitialize(params)
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return s.handleToolsList()
	case "tools/call":
		return s.handleToolsCall(ctx, params, notify)
	default:
		return nil, ErrMethodNotFound(method)
	}
}

// HandleNotificationMethod processes a JSON-RPC notification method.
func (s *Server) HandleNotificationMethod(method string, params json.RawMessage) {
	_ = s.handleNotification(method, params)
}

func (s *Server) handleNotification(method string, params json.RawMessage) error {
	switch method {
	case "notifications/initialized":
		log.Println("Client sent initialized notification")
	case "notifications/cancelled":
		// No in-flight invocation cancellation at this layer; just log it.
		log.Printf("Received cancellation notification: %s", string(params))
	default:
		log.Printf("Unknown notification: %s", method)
	}
	return nil
}

// handleInitialize handles the initialize request.
func (s *Server) handleInitialize(params json.RawMessage) (any, *RPCError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized && !s.opts.Stateless {
		return nil, ErrInvalidRequest("already initialized")
	}

	var req initializeRequest
	if params != nil {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, ErrInvalidParams(err.Error())
		}
	}

	log.Printf("Initialize request from %s %s (protocol: %s)",
		req.ClientInfo.Name, req.ClientInfo.Version, req.ProtocolVersion)

	s.initialized = true

	return initializeResult{
		ProtocolVersion: s.opts.ProtocolVersion,
		ServerInfo: serverInfo{
			Name:    s.opts.ServerName,
			Version: s.opts.ServerVersion,
		},
		Capabilities: capabilities{
			Tools: &toolsCapability{},
		},
		Instructions: s.opts.Instructions,
	}, nil
}

// handleToolsList handles the tools/list request.
func (s *Server) handleToolsList() (any, *RPCError) {
	s.mu.RLock()
	initialized := s.initialized
	s.mu.RUnlock()
	if !initialized && !s.opts.Stateless {
		return nil, ErrInvalidRequest("not initialized")
	}

	return toolsListResult{Tools: s.registry.List()}, nil
}

// handleToolsCall handles the tools/call request.
func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage, notify func(string)) (any, *RPCError) {
	s.mu.RLock()
	initialized := s.initialized
	s.mu.RUnlock()
	if !initialized && !s.opts.Stateless {
		return nil, ErrInvalidRequest("not initialized")
	}

	var req toolsCallRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, ErrInvalidParams(err.Error())
	}

	log.Printf("CallTool: %s", req.Name)

	call := NewCallContext(req.Arguments, notify)
	result, rpcErr := s.registry.Call(ctx, req.Name, call)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return result, nil
}

// notifyFunc returns a sink that forwards tool progress lines to the
// client as notifications/message. Write failures are discarded.
func (s *Server) notifyFunc() func(string) {
	return func(message string) {
		s.sendNotification("notifications/message", logMessageParams{
			Level: "info",
			Data:  message,
		})
	}
}

// sendResult sends a successful JSON-RPC response.
func (s *Server) sendResult(id json.RawMessage, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		s.sendError(id, ErrInternalError(err.Error()))
		return
	}
	s.send(rpcResponse{JSONRPC: "2.0", ID: id, Result: data})
}

// sendError sends a JSON-RPC error response.
func (s *Server) sendError(id json.RawMessage, rpcErr *RPCError) {
	s.send(rpcResponse{JSONRPC: "2.0", ID: id, Error: rpcErr})
}

// sendNotification sends a JSON-RPC notification (no ID, no response).
func (s *Server) sendNotification(method string, params any) {
	data, err := json.Marshal(params)
	if err != nil {
		return
	}
	s.send(rpcMessage{JSONRPC: "2.0", Method: method, Params: data})
}

func (s *Server) send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// JSON-RPC message types

type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type initializeRequest struct {
	ProtocolVersion string     `json:"protocolVersion"`
	Capabilities    any        `json:"capabilities"`
	ClientInfo      clientInfo `json:"clientInfo"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      serverInfo   `json:"serverInfo"`
	Capabilities    capabilities `json:"capabilities"`
	Instructions    string       `json:"instructions,omitempty"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type capabilities struct {
	Tools *toolsCapability `json:"tools,omitempty"`
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

type toolsCallRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type logMessageParams struct {
	Level string `json:"level"`
	Data  string `json:"data"`
}
