// Package tools implements the Bauplan tool surface exposed over MCP.
// Each file wraps one remote operation: decode arguments, provision a
// client, make exactly one API call (get_schema loops a fixed pair),
// map the response onto a serializable output struct.
package tools

import (
	"context"
	"fmt"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/bauplan"
	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// Client is the slice of the Bauplan API the tools call. *bauplan.Client
// implements it; tests substitute fakes.
type Client interface {
	Info(ctx context.Context) (*bauplan.InfoState, error)

	GetTables(ctx context.Context, ref, namespace string) ([]bauplan.TableWithMetadata, error)
	GetTable(ctx context.Context, ref, table, namespace string) (*bauplan.TableWithMetadata, error)

	GetBranches(ctx context.Context, name, user string, limit int) ([]bauplan.Branch, error)
	HasBranch(ctx context.Context, branch string) (bool, error)
	CreateBranch(ctx context.Context, branch, fromRef string) (*bauplan.Branch, error)
	DeleteBranch(ctx context.Context, branch string) error
	MergeBranch(ctx context.Context, sourceRef, intoBranch, commitMessage, commitBody string) error

	GetCommits(ctx context.Context, ref string, filter bauplan.CommitsFilter) ([]bauplan.Commit, error)

	GetNamespaces(ctx context.Context, ref, filterByName string, limit int) ([]bauplan.Namespace, error)
	HasNamespace(ctx context.Context, namespace, branch string) (bool, error)
	CreateNamespace(ctx context.Context, namespace, branch string) error
	DeleteNamespace(ctx context.Context, namespace, branch string) error

	GetTags(ctx context.Context, filterByName string, limit int) ([]bauplan.Tag, error)
	HasTag(ctx context.Context, tag string) (bool, error)
	CreateTag(ctx context.Context, tag, fromRef string) error
	DeleteTag(ctx context.Context, tag string) error

	Query(ctx context.Context, query, ref, namespace string) (*bauplan.QueryResult, error)
	QueryToCSVFile(ctx context.Context, path, query, ref, namespace string, timeoutSeconds int) error

	CreateTable(ctx context.Context, opts bauplan.TablePlanOptions) (*bauplan.TableCreationState, error)
	PlanTableCreation(ctx context.Context, opts bauplan.TablePlanOptions) (*bauplan.TableCreatePlanState, error)
	ApplyTableCreationPlan(ctx context.Context, plan map[string]any, args map[string]string, timeoutSeconds int) (*bauplan.TableCreatePlanState, error)
	DeleteTable(ctx context.Context, table, branch string) error
	RevertTable(ctx context.Context, table, sourceRef, intoBranch string, replace bool) error
	ImportData(ctx context.Context, opts bauplan.ImportOptions) (*bauplan.ImportState, error)

	Run(ctx context.Context, opts bauplan.RunOptions) (*bauplan.RunState, error)
	GetJobs(ctx context.Context, filter bauplan.JobsFilter) ([]bauplan.Job, error)
	GetJob(ctx context.Context, jobID string) (*bauplan.Job, error)
	CancelJob(ctx context.Context, jobID string) (*bauplan.Job, error)
	GetJobLogs(ctx context.Context, jobIDPrefix string) ([]bauplan.JobLog, error)
	GetJobSnapshot(ctx context.Context, jobID string) (map[string]string, error)
}

// Deps carries the explicit dependencies the tool handlers need. The
// transport layer builds one Deps and hands it to RegisterAll; there is
// no module-level client state.
type Deps struct {
	// Resolve provisions a fresh client for one invocation, honoring
	// the per-call api_key argument and the process profile.
	Resolve func(apiKey string) (Client, error)
}

// DefaultDeps wires the real provisioner.
func DefaultDeps() Deps {
	return Deps{
		Resolve: func(apiKey string) (Client, error) {
			return bauplan.Resolve(apiKey)
		},
	}
}

// RegisterAll registers the full Bauplan tool surface on the registry.
func RegisterAll(reg *mcp.Registry, deps Deps) error {
	all := []mcp.Tool{
		listTablesTool(deps),
		getSchemaTool(deps),
		getTableTool(deps),
		runQueryTool(deps),
		runQueryToCSVTool(deps),
		getBranchesTool(deps),
		getCommitsTool(deps),
		getNamespacesTool(deps),
		createBranchTool(deps),
		hasBranchTool(deps),
		createNamespaceTool(deps),
		hasNamespaceTool(deps),
		createTableTool(deps),
		planTableCreationTool(deps),
		applyTableCreationPlanTool(deps),
		hasTableTool(deps),
		deleteTableTool(deps),
		importDataTool(deps),
		revertTableTool(deps),
		projectRunTool(deps),
		codeRunTool(deps),
		listJobsTool(deps),
		getJobTool(deps),
		getJobLogsTool(deps),
		cancelJobTool(deps),
		mergeBranchTool(deps),
		deleteBranchTool(deps),
		deleteNamespaceTool(deps),
		getTagsTool(deps),
		createTagTool(deps),
		hasTagTool(deps),
		deleteTagTool(deps),
		getUserInfoTool(deps),
		getInstructionsTool(deps),
	}
	for _, t := range all {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// failf wraps a tool failure into the uniform user-visible message
// shape: "Failed to <verb> <object>: <cause>".
func failf(op string, err error) error {
	return fmt.Errorf("Failed to %s: %v", op, err)
}
