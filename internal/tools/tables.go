package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/bauplan"
	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// TableCreated is the create_table response.
type TableCreated struct {
	Table     string        `json:"table"`
	Branch    string        `json:"branch"`
	Namespace string        `json:"namespace,omitempty"`
	Schema    []TableSchema `json:"schema,omitempty"`
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
}

// TablePlanOut is the plan_table_creation and apply_table_creation_plan
// response: the YAML-shaped plan plus the tracking job.
type TablePlanOut struct {
	JobID           string         `json:"job_id"`
	JobStatus       string         `json:"job_status"`
	CanAutoApply    bool           `json:"can_auto_apply"`
	FilesToBeImport []string       `json:"files_to_be_imported,omitempty"`
	Plan            map[string]any `json:"plan,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// TableExistsOut is the has_table response.
type TableExistsOut struct {
	Table  string `json:"table"`
	Ref    string `json:"ref"`
	Exists bool   `json:"exists"`
}

// TableDeleted is the delete_table response.
type TableDeleted struct {
	Table   string `json:"table"`
	Branch  string `json:"branch"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TableReverted is the revert_table response.
type TableReverted struct {
	Table      string `json:"table"`
	SourceRef  string `json:"source_ref"`
	IntoBranch string `json:"into_branch"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
}

// ImportOut is the import_data response.
type ImportOut struct {
	JobID     string `json:"job_id"`
	JobStatus string `json:"job_status"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// requireWorkBranch rejects empty branches and the production branch.
// Write operations on tables always happen on a user branch.
func requireWorkBranch(branch string) error {
	if branch == "" {
		return fmt.Errorf("a branch is required")
	}
	if branch == bauplan.MainBranch {
		return fmt.Errorf("writes against %q are not allowed, use a development branch", bauplan.MainBranch)
	}
	return nil
}

func createTableTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "create_table",
		Description: "Create an empty table on a development branch from the schema of one or more S3 parquet or CSV files. Does not import data.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"table": {"type": "string", "description": "Name of the table to create"},
			"search_uri": {"type": "string", "description": "S3 URI pattern of the source files, e.g. s3://bucket/prefix/*.parquet"},
			"branch": {"type": "string", "description": "Development branch to create the table on, never main"},
			"namespace": {"type": "string", "description": "Optional namespace for the table"},
			"partitioned_by": {"type": "string", "description": "Optional partitioning column"},
			"replace": {"type": "boolean", "description": "Replace the table if it already exists"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["table", "search_uri", "branch"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Table         string `json:"table"`
				SearchURI     string `json:"search_uri"`
				Branch        string `json:"branch"`
				Namespace     string `json:"namespace"`
				PartitionedBy string `json:"partitioned_by"`
				Replace       bool   `json:"replace"`
				APIKey        string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("create table", err)
			}
			if err := requireWorkBranch(args.Branch); err != nil {
				return nil, failf(fmt.Sprintf("create table %s", args.Table), err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("create table", err)
			}

			call.Info("Creating table %q on branch %q from %q", args.Table, args.Branch, args.SearchURI)

			state, err := client.CreateTable(ctx, bauplan.TablePlanOptions{
				Table:         args.Table,
				SearchURI:     args.SearchURI,
				Branch:        args.Branch,
				Namespace:     args.Namespace,
				PartitionedBy: args.PartitionedBy,
				Replace:       args.Replace,
			})
			if err != nil {
				return nil, failf(fmt.Sprintf("create table %s", args.Table), err)
			}

			return TableCreated{
				Table:     state.Name,
				Branch:    args.Branch,
				Namespace: state.Namespace,
				Schema:    fieldsToSchema(state.Fields),
				Success:   true,
				Message:   fmt.Sprintf("Table %s created on %s", state.Name, args.Branch),
			}, nil
		},
	}
}

func planTableCreationTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "plan_table_creation",
		Description: "Build a table creation plan from S3 files without applying it. The plan resolves schema conflicts across files and can be edited before apply_table_creation_plan.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"table": {"type": "string", "description": "Name of the table to plan"},
			"search_uri": {"type": "string", "description": "S3 URI pattern of the source files"},
			"branch": {"type": "string", "description": "Development branch the plan targets, never main"},
			"namespace": {"type": "string", "description": "Optional namespace for the table"},
			"partitioned_by": {"type": "string", "description": "Optional partitioning column"},
			"replace": {"type": "boolean", "description": "Replace the table if it already exists"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["table", "search_uri", "branch"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Table         string `json:"table"`
				SearchURI     string `json:"search_uri"`
				Branch        string `json:"branch"`
				Namespace     string `json:"namespace"`
				PartitionedBy string `json:"partitioned_by"`
				Replace       bool   `json:"replace"`
				APIKey        string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("plan table creation", err)
			}
			if err := requireWorkBranch(args.Branch); err != nil {
				return nil, failf(fmt.Sprintf("plan creation of table %s", args.Table), err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("plan table creation", err)
			}

			call.Info("Planning creation of table %q on branch %q", args.Table, args.Branch)

			state, err := client.PlanTableCreation(ctx, bauplan.TablePlanOptions{
				Table:         args.Table,
				SearchURI:     args.SearchURI,
				Branch:        args.Branch,
				Namespace:     args.Namespace,
				PartitionedBy: args.PartitionedBy,
				Replace:       args.Replace,
			})
			if err != nil {
				return nil, failf(fmt.Sprintf("plan creation of table %s", args.Table), err)
			}
			return planToOut(state), nil
		},
	}
}

func applyTableCreationPlanTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "apply_table_creation_plan",
		Description: "Apply a table creation plan produced by plan_table_creation, after any manual conflict edits.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"plan": {"type": "object", "description": "The plan object returned by plan_table_creation, possibly edited"},
			"args": {"type": "object", "description": "Optional string key-value arguments for the apply", "additionalProperties": {"type": "string"}},
			"client_timeout": {"type": "integer", "description": "Timeout in seconds for the apply, default 120"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["plan"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Plan          map[string]any    `json:"plan"`
				Args          map[string]string `json:"args"`
				ClientTimeout int               `json:"client_timeout"`
				APIKey        string            `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("apply table creation plan", err)
			}
			if len(args.Plan) == 0 {
				return nil, failf("apply table creation plan", fmt.Errorf("a plan is required"))
			}
			if args.ClientTimeout <= 0 {
				args.ClientTimeout = 120
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("apply table creation plan", err)
			}

			call.Info("Applying table creation plan")

			state, err := client.ApplyTableCreationPlan(ctx, args.Plan, args.Args, args.ClientTimeout)
			if err != nil {
				return nil, failf("apply table creation plan", err)
			}
			return planToOut(state), nil
		},
	}
}

func planToOut(state *bauplan.TableCreatePlanState) TablePlanOut {
	return TablePlanOut{
		JobID:           state.JobID,
		JobStatus:       state.JobStatus,
		CanAutoApply:    state.CanAutoApply,
		FilesToBeImport: state.FilesToBeImport,
		Plan:            state.Plan,
		Error:           state.Error,
	}
}

func hasTableTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "has_table",
		Description: "Check if a table exists at a ref of the user's Bauplan data catalog.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"table": {"type": "string", "description": "Name of the table to check"},
			"ref": {"type": "string", "description": "Branch, tag or commit hash to check, defaults to main"},
			"namespace": {"type": "string", "description": "Optional namespace of the table"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["table"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Table     string `json:"table"`
				Ref       string `json:"ref"`
				Namespace string `json:"namespace"`
				APIKey    string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("check table", err)
			}
			if args.Ref == "" {
				args.Ref = bauplan.MainBranch
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("check table", err)
			}

			_, err = client.GetTable(ctx, args.Ref, args.Table, args.Namespace)
			if err != nil {
				if bauplan.IsNotFound(err) {
					return TableExistsOut{Table: args.Table, Ref: args.Ref, Exists: false}, nil
				}
				return nil, failf(fmt.Sprintf("check table %s", args.Table), err)
			}
			return TableExistsOut{Table: args.Table, Ref: args.Ref, Exists: true}, nil
		},
	}
}

func deleteTableTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "delete_table",
		Description: "Delete a table from a development branch of the user's Bauplan data catalog.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"table": {"type": "string", "description": "Name of the table to delete"},
			"branch": {"type": "string", "description": "Development branch to delete the table from, never main"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["table", "branch"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Table  string `json:"table"`
				Branch string `json:"branch"`
				APIKey string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("delete table", err)
			}
			if err := requireWorkBranch(args.Branch); err != nil {
				return nil, failf(fmt.Sprintf("delete table %s", args.Table), err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("delete table", err)
			}

			call.Info("Deleting table %q from branch %q", args.Table, args.Branch)

			if err := client.DeleteTable(ctx, args.Table, args.Branch); err != nil {
				return nil, failf(fmt.Sprintf("delete table %s", args.Table), err)
			}
			return TableDeleted{
				Table:   args.Table,
				Branch:  args.Branch,
				Success: true,
				Message: fmt.Sprintf("Table %s deleted from %s", args.Table, args.Branch),
			}, nil
		},
	}
}

func revertTableTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "revert_table",
		Description: "Revert a table on a branch to its state at a source ref, typically to undo a bad pipeline write.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"table": {"type": "string", "description": "Name of the table to revert"},
			"source_ref": {"type": "string", "description": "Ref holding the desired table state"},
			"into_branch": {"type": "string", "description": "Branch whose table is replaced"},
			"replace": {"type": "boolean", "description": "Replace the table if it already exists on the target branch"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["table", "source_ref", "into_branch"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Table      string `json:"table"`
				SourceRef  string `json:"source_ref"`
				IntoBranch string `json:"into_branch"`
				Replace    bool   `json:"replace"`
				APIKey     string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("revert table", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("revert table", err)
			}

			call.Info("Reverting table %q on %q to its state at %q", args.Table, args.IntoBranch, args.SourceRef)

			if err := client.RevertTable(ctx, args.Table, args.SourceRef, args.IntoBranch, args.Replace); err != nil {
				return nil, failf(fmt.Sprintf("revert table %s", args.Table), err)
			}
			return TableReverted{
				Table:      args.Table,
				SourceRef:  args.SourceRef,
				IntoBranch: args.IntoBranch,
				Success:    true,
				Message:    fmt.Sprintf("Table %s on %s reverted to %s", args.Table, args.IntoBranch, args.SourceRef),
			}, nil
		},
	}
}

func importDataTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "import_data",
		Description: "Import data from S3 parquet or CSV files into an existing table on a development branch.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"table": {"type": "string", "description": "Name of the target table"},
			"search_uri": {"type": "string", "description": "S3 URI pattern of the source files"},
			"branch": {"type": "string", "description": "Development branch holding the table, never main"},
			"namespace": {"type": "string", "description": "Optional namespace of the table"},
			"continue_on_error": {"type": "boolean", "description": "Keep importing remaining files when one fails"},
			"client_timeout": {"type": "integer", "description": "Timeout in seconds for the import, default 120"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["table", "search_uri", "branch"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Table           string `json:"table"`
				SearchURI       string `json:"search_uri"`
				Branch          string `json:"branch"`
				Namespace       string `json:"namespace"`
				ContinueOnError bool   `json:"continue_on_error"`
				ClientTimeout   int    `json:"client_timeout"`
				APIKey          string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("import data", err)
			}
			if err := requireWorkBranch(args.Branch); err != nil {
				return nil, failf(fmt.Sprintf("import data into %s", args.Table), err)
			}
			if args.ClientTimeout <= 0 {
				args.ClientTimeout = 120
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("import data", err)
			}

			call.Info("Importing %q into table %q on branch %q", args.SearchURI, args.Table, args.Branch)

			state, err := client.ImportData(ctx, bauplan.ImportOptions{
				Table:           args.Table,
				SearchURI:       args.SearchURI,
				Namespace:       args.Namespace,
				Branch:          args.Branch,
				ContinueOnError: args.ContinueOnError,
				ClientTimeout:   args.ClientTimeout,
			})
			if err != nil {
				return nil, failf(fmt.Sprintf("import data into %s", args.Table), err)
			}

			ok := jobSucceeded(state.JobStatus)
			msg := fmt.Sprintf("Import into %s finished with status %s", args.Table, state.JobStatus)
			return ImportOut{
				JobID:     state.JobID,
				JobStatus: state.JobStatus,
				Success:   ok,
				Message:   msg,
			}, nil
		},
	}
}
