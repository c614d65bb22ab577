package tools

import (
	"context"
	"encoding/json"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/bauplan"
	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// TableSchema is one column of a table.
type TableSchema struct {
	ColumnName string `json:"column_name"`
	ColumnType string `json:"column_type"`
	Required   bool   `json:"required"`
}

// TableOut is the get_table response.
type TableOut struct {
	TableName string        `json:"table_name"`
	Ref       string        `json:"ref"`
	Namespace string        `json:"namespace,omitempty"`
	Schema    []TableSchema `json:"schema"`
}

func getTableTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "get_table",
		Description: "Retrieve the schema of a specified table in the user's Bauplan data catalog using a ref and table name.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"ref": {"type": "string", "description": "Ref or branch name; either @<64-hex-hash> or <username.name>"},
			"table_name": {"type": "string", "description": "Name of the table"},
			"namespace": {"type": "string", "description": "Optional namespace (defaults to bauplan)"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["ref", "table_name"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Ref       string `json:"ref"`
				TableName string `json:"table_name"`
				Namespace string `json:"namespace"`
				APIKey    string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("get table", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("get table", err)
			}

			table, err := client.GetTable(ctx, args.Ref, args.TableName, args.Namespace)
			if err != nil {
				return nil, failf("get table", err)
			}

			return TableOut{
				TableName: table.Name,
				Ref:       args.Ref,
				Namespace: args.Namespace,
				Schema:    fieldsToSchema(table.Fields),
			}, nil
		},
	}
}

func fieldsToSchema(fields []bauplan.TableField) []TableSchema {
	schema := make([]TableSchema, 0, len(fields))
	for _, f := range fields {
		schema = append(schema, TableSchema{
			ColumnName: f.Name,
			ColumnType: f.Type,
			Required:   f.Required,
		})
	}
	return schema
}
