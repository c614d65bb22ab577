package tools

import (
	"context"
	"encoding/json"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// TableWrapper pairs a table name with its schema.
type TableWrapper struct {
	TableName string        `json:"table_name"`
	Schema    []TableSchema `json:"schema"`
}

// SchemasOut is the get_schema response.
type SchemasOut struct {
	Tables    []TableWrapper `json:"tables"`
	Ref       string         `json:"ref"`
	Namespace string         `json:"namespace,omitempty"`
}

func getSchemaTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "get_schema",
		Description: "Retrieve the schemas of all the tables in a specified branch or reference of the user's Bauplan data catalog.",
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
				return nil, failf("get schema", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("get schema", err)
			}

			tables, err := client.GetTables(ctx, args.Ref, args.Namespace)
			if err != nil {
				return nil, failf("get schema", err)
			}

			// One schema fetch per table: a fixed loop over a single
			// remote operation, not an open-ended fan-out.
			out := make([]TableWrapper, 0, len(tables))
			for _, table := range tables {
				info, err := client.GetTable(ctx, args.Ref, table.Name, args.Namespace)
				if err != nil {
					return nil, failf("get schema", err)
				}
				out = append(out, TableWrapper{
					TableName: info.Name,
					Schema:    fieldsToSchema(info.Fields),
				})
			}

			return SchemasOut{Tables: out, Ref: args.Ref, Namespace: args.Namespace}, nil
		},
	}
}
