// Package mcp implements the MCP protocol host: JSON-RPC message
// handling, the tool registry, and the stdio and HTTP transports.
package mcp

import (
	"encoding/json"
	"fmt"
)

// MCP JSON-RPC error codes
const (
	// Standard JSON-RPC errors
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603

	// MCP-specific custom errors (-32000 to -32099)
	ErrCodeToolNotFound = -32000
)

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// NewRPCError creates a new RPC error with optional data.
func NewRPCError(code int, message string, data any) *RPCError {
	err := &RPCError{
		Code:    code,
		Message: message,
	}
	if data != nil {
		if dataBytes, jsonErr := json.Marshal(data); jsonErr == nil {
			err.Data = dataBytes
		}
	}
	return err
}

// Error constructors for common cases

func ErrParseError(detail string) *RPCError {
	return NewRPCError(ErrCodeParseError, "Parse error: "+detail, nil)
}

func ErrInvalidRequest(detail string) *RPCError {
	return NewRPCError(ErrCodeInvalidRequest, "Invalid Request: "+detail, nil)
}

func ErrMethodNotFound(method string) *RPCError {
	return NewRPCError(ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", method), nil)
}

func ErrInvalidParams(detail string) *RPCError {
	return NewRPCError(ErrCodeInvalidParams, "Invalid params: "+detail, nil)
}

func ErrInternalError(detail string) *RPCError {
	return NewRPCError(ErrCodeInternalError, "Internal error: "+detail, nil)
}

func ErrToolNotFound(name string) *RPCError {
	return NewRPCError(ErrCodeToolNotFound, fmt.Sprintf("Tool not found: %s", name), map[string]string{"tool": name})
}
