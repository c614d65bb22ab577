package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// QueryMetadata describes a result set.
type QueryMetadata struct {
	RowCount    int      `json:"row_count"`
	ColumnNames []string `json:"column_names"`
	ColumnTypes []string `json:"column_types"`
	QueryTime   string   `json:"query_time"`
	Query       string   `json:"query"`
}

// QueryOut is the run_query response.
type QueryOut struct {
	Status   string           `json:"status"`
	Data     []map[string]any `json:"data"`
	Metadata *QueryMetadata   `json:"metadata,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func runQueryTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "run_query",
		Description: "Execute a SQL SELECT query on the user's Bauplan data catalog, returning results as rows using a query, optional ref, and optional namespace.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"query": {"type": "string", "description": "SQL query to execute; must be a SELECT or WITH statement"},
			"ref": {"type": "string", "description": "Ref or branch name to query; either @<64-hex-hash> or <username.name>"},
			"namespace": {"type": "string", "description": "Optional namespace (defaults to bauplan)"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["query"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Query     string `json:"query"`
				Ref       string `json:"ref"`
				Namespace string `json:"namespace"`
				APIKey    string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("run query", err)
			}

			if err := checkReadOnlyQuery(args.Query); err != nil {
				return nil, failf("run query", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("run query", err)
			}

			namespace := args.Namespace
			if namespace == "" {
				namespace = "bauplan"
			}

			call.Info("Running query on ref %q", args.Ref)

			// The original, unstripped query is what gets forwarded.
			result, err := client.Query(ctx, args.Query, args.Ref, namespace)
			if err != nil {
				return nil, failf("run query", err)
			}

			return QueryOut{
				Status: "success",
				Data:   result.Rows,
				Metadata: &QueryMetadata{
					RowCount:    len(result.Rows),
					ColumnNames: result.ColumnNames,
					ColumnTypes: result.ColumnTypes,
					QueryTime:   time.Now().Format(time.RFC3339),
					Query:       args.Query,
				},
			}, nil
		},
	}
}
