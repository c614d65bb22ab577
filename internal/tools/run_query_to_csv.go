package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// QueryToCSVResult is the run_query_to_csv response.
type QueryToCSVResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func runQueryToCSVTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "run_query_to_csv",
		Description: "Execute a SQL SELECT query on the user's Bauplan data catalog and write the results to a local CSV file.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"path": {"type": "string", "description": "Local path of the CSV file to write"},
			"query": {"type": "string", "description": "SQL query to execute; must be a SELECT or WITH statement"},
			"ref": {"type": "string", "description": "Ref or branch name to query"},
			"namespace": {"type": "string", "description": "Optional namespace (defaults to bauplan)"},
			"client_timeout": {"type": "integer", "description": "Seconds to timeout (defaults to 120)"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["path", "query"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Path          string `json:"path"`
				Query         string `json:"query"`
				Ref           string `json:"ref"`
				Namespace     string `json:"namespace"`
				ClientTimeout int    `json:"client_timeout"`
				APIKey        string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("execute query to CSV", err)
			}

			if err := checkReadOnlyQuery(args.Query); err != nil {
				return nil, failf("execute query to CSV", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("execute query to CSV", err)
			}

			namespace := args.Namespace
			if namespace == "" {
				namespace = "bauplan"
			}
			timeout := args.ClientTimeout
			if timeout <= 0 {
				timeout = 120
			}

			call.Info("Writing query results to %q", args.Path)

			if err := client.QueryToCSVFile(ctx, args.Path, args.Query, args.Ref, namespace, timeout); err != nil {
				return nil, failf(fmt.Sprintf("execute query to CSV %s", args.Path), err)
			}

			return QueryToCSVResult{
				Success: true,
				Path:    args.Path,
				Message: fmt.Sprintf("Query results written to %s", args.Path),
			}, nil
		},
	}
}
