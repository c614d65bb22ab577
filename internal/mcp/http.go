package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// sessionHeader is the MCP session header of the streamable HTTP
	// transport.
	sessionHeader = "Mcp-Session-Id"

	// credentialHeader carries a per-call Bauplan API key. It overrides
	// the process default for that call only.
	credentialHeader = "Bauplan"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// HTTPOptions configures the HTTP transport.
type HTTPOptions struct {
	Addr            string
	Registry        *Registry
	ServerName      string
	ServerVersion   string
	ProtocolVersion string
	Instructions    string
}

// HTTPServer serves MCP over HTTP: one JSON-RPC message per POST to
// /mcp, a plain-text health check, and permissive CORS for browser-based
// clients.
type HTTPServer struct {
	opts  HTTPOptions
	inner *Server
}

// NewHTTPServer creates the HTTP transport host.
func NewHTTPServer(opts HTTPOptions) (*HTTPServer, error) {
	inner, err := New(Options{
		Registry:        opts.Registry,
		Stdin:           strings.NewReader(""),
		Stdout:          io.Discard,
		ServerName:      opts.ServerName,
		ServerVersion:   opts.ServerVersion,
		ProtocolVersion: opts.ProtocolVersion,
		Instructions:    opts.Instructions,
		Stateless:       true,
	})
	if err != nil {
		return nil, err
	}
	return &HTTPServer{opts: opts, inner: inner}, nil
}

// Handler returns the HTTP handler, for serving and for tests.
func (h *HTTPServer) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		corsMiddleware,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})

	// Accept both /mcp and /mcp/ so clients that normalize the URL
	// either way keep working.
	r.Post("/mcp", h.handleRPC)
	r.Post("/mcp/", h.handleRPC)

	return r
}

// Serve runs the listener until the context is cancelled, then shuts
// down gracefully.
func (h *HTTPServer) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    h.opts.Addr,
		Handler: h.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log.Printf("HTTP transport listening on %s", h.opts.Addr)

	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// handleRPC handles one JSON-RPC message per request body.
func (h *HTTPServer) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	var msg rpcMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: ErrParseError(err.Error())})
		return
	}

	// Notifications get no response body.
	if msg.ID == nil {
		h.inner.HandleNotificationMethod(msg.Method, msg.Params)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	params := msg.Params
	if msg.Method == "tools/call" {
		params = injectAPIKey(params, apiKeyFromHeader(r))
	}

	result, rpcErr := h.inner.HandleRequest(r.Context(), msg.Method, params, nil)

	if msg.Method == "initialize" && rpcErr == nil {
		if r.Header.Get(sessionHeader) == "" {
			w.Header().Set(sessionHeader, uuid.NewString())
		}
	}

	resp := rpcResponse{JSONRPC: "2.0", ID: msg.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		data, err := json.Marshal(result)
		if err != nil {
			resp.Error = ErrInternalError(err.Error())
		} else {
			resp.Result = data
		}
	}
	writeRPC(w, resp)
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// apiKeyFromHeader extracts a per-call credential from the Bauplan
// header, stripping a case-insensitive "Bearer " prefix if present.
func apiKeyFromHeader(r *http.Request) string {
	value := r.Header.Get(credentialHeader)
	if value == "" {
		return ""
	}
	if len(value) >= 7 && strings.EqualFold(value[:7], "bearer ") {
		value = strings.TrimSpace(value[7:])
	}
	return value
}

// injectAPIKey adds the header credential to the tools/call arguments so
// the tool's provisioner sees it like any other argument. Explicit
// arguments already present win over the header.
func injectAPIKey(params json.RawMessage, apiKey string) json.RawMessage {
	if apiKey == "" || len(params) == 0 {
		return params
	}

	var req struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return params
	}
	if req.Arguments == nil {
		req.Arguments = make(map[string]any)
	}
	if _, exists := req.Arguments["api_key"]; !exists {
		req.Arguments["api_key"] = apiKey
	}

	out, err := json.Marshal(req)
	if err != nil {
		return params
	}
	return out
}

// corsMiddleware applies permissive cross-origin headers: the server is
// meant to be reachable from browser-hosted MCP clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Expose-Headers", sessionHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
