package tools

import (
	"context"
	"encoding/json"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// TablesOut is the list_tables response.
type TablesOut struct {
	Tables    []string `json:"tables"`
	Ref       string   `json:"ref"`
	Namespace string   `json:"namespace,omitempty"`
}

func listTablesTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "list_tables",
		Description: "Retrieve a list of all data tables in a specified branch or reference of the user's Bauplan data catalog using a ref name.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"ref": {"type": "string", "description": "Ref or branch name; either @<64-hex-hash> or <username.name>"},
			"namespace": {"type": "string", "description": "Optional namespace to filter by"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["ref"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Ref       string `json:"ref"`
				Namespace string `json:"namespace"`
				APIKey    string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("list tables", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("list tables", err)
			}

			tables, err := client.GetTables(ctx, args.Ref, args.Namespace)
			if err != nil {
				return nil, failf("list tables", err)
			}

			names := make([]string, 0, len(tables))
			for _, table := range tables {
				names = append(names, table.Name)
			}
			return TablesOut{Tables: names, Ref: args.Ref, Namespace: args.Namespace}, nil
		},
	}
}
