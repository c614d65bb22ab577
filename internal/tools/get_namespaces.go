package tools

import (
	"context"
	"encoding/json"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// NamespaceInfo is one namespace entry.
type NamespaceInfo struct {
	Name string `json:"name"`
}

// NamespacesOut is the get_namespaces response.
type NamespacesOut struct {
	Namespaces []NamespaceInfo `json:"namespaces"`
	Ref        string          `json:"ref"`
	TotalCount int             `json:"total_count"`
}

func getNamespacesTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "get_namespaces",
		Description: "Retrieve namespaces from a specified branch or reference of the user's Bauplan data catalog, with optional name filter and limit.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"ref": {"type": "string", "description": "Ref or branch name to list namespaces from"},
			"namespace": {"type": "string", "description": "Optional filter by name (substring match)"},
			"limit": {"type": "integer", "description": "Maximum number of namespaces to return (default 10)"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["ref"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Ref       string `json:"ref"`
				Namespace string `json:"namespace"`
				Limit     int    `json:"limit"`
				APIKey    string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("get namespaces", err)
			}
			if args.Limit <= 0 {
				args.Limit = 10
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("get namespaces", err)
			}

			namespaces, err := client.GetNamespaces(ctx, args.Ref, args.Namespace, args.Limit)
			if err != nil {
				return nil, failf("get namespaces", err)
			}

			out := make([]NamespaceInfo, 0, len(namespaces))
			for _, ns := range namespaces {
				out = append(out, NamespaceInfo{Name: ns.Name})
				if len(out) >= args.Limit {
					break
				}
			}
			return NamespacesOut{Namespaces: out, Ref: args.Ref, TotalCount: len(out)}, nil
		},
	}
}
