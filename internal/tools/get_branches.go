package tools

import (
	"context"
	"encoding/json"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// BranchInfo is one branch entry.
type BranchInfo struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// BranchesOut is the get_branches response.
type BranchesOut struct {
	Branches   []BranchInfo `json:"branches"`
	TotalCount int          `json:"total_count"`
}

func getBranchesTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "get_branches",
		Description: "Retrieve branches from the user's Bauplan data catalog as a list, with optional name, user and limit filters to reduce response size.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"name": {"type": "string", "description": "Optional filter by name (substring match)"},
			"user": {"type": "string", "description": "Optional filter by user"},
			"limit": {"type": "integer", "description": "Maximum number of branches to return (default 10)"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Name   string `json:"name"`
				User   string `json:"user"`
				Limit  int    `json:"limit"`
				APIKey string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("get branches", err)
			}
			if args.Limit <= 0 {
				args.Limit = 10
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("get branches", err)
			}

			branches, err := client.GetBranches(ctx, args.Name, args.User, args.Limit)
			if err != nil {
				return nil, failf("get branches", err)
			}

			out := make([]BranchInfo, 0, len(branches))
			for _, b := range branches {
				out = append(out, BranchInfo{Name: b.Name, Hash: b.Hash})
				if len(out) >= args.Limit {
					break
				}
			}
			return BranchesOut{Branches: out, TotalCount: len(out)}, nil
		},
	}
}
