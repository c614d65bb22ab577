package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/bauplan"
	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// fakeClient implements Client through optional function fields. Methods
// without a field return errNotStubbed so tests fail loudly when a tool
// makes an unexpected call.
var errNotStubbed = errors.New("not stubbed")

type fakeClient struct {
	info          func(ctx context.Context) (*bauplan.InfoState, error)
	getTables     func(ctx context.Context, ref, namespace string) ([]bauplan.TableWithMetadata, error)
	getTable      func(ctx context.Context, ref, table, namespace string) (*bauplan.TableWithMetadata, error)
	getBranches   func(ctx context.Context, name, user string, limit int) ([]bauplan.Branch, error)
	hasBranch     func(ctx context.Context, branch string) (bool, error)
	createBranch  func(ctx context.Context, branch, fromRef string) (*bauplan.Branch, error)
	deleteBranch  func(ctx context.Context, branch string) error
	mergeBranch   func(ctx context.Context, sourceRef, intoBranch, commitMessage, commitBody string) error
	getCommits    func(ctx context.Context, ref string, filter bauplan.CommitsFilter) ([]bauplan.Commit, error)
	getNamespaces func(ctx context.Context, ref, filterByName string, limit int) ([]bauplan.Namespace, error)
	hasNamespace  func(ctx context.Context, namespace, branch string) (bool, error)
	createNS      func(ctx context.Context, namespace, branch string) error
	deleteNS      func(ctx context.Context, namespace, branch string) error
	getTags       func(ctx context.Context, filterByName string, limit int) ([]bauplan.Tag, error)
	hasTag        func(ctx context.Context, tag string) (bool, error)
	createTag     func(ctx context.Context, tag, fromRef string) error
	deleteTag     func(ctx context.Context, tag string) error
	query         func(ctx context.Context, query, ref, namespace string) (*bauplan.QueryResult, error)
	queryToCSV    func(ctx context.Context, path, query, ref, namespace string, timeoutSeconds int) error
	createTable   func(ctx context.Context, opts bauplan.TablePlanOptions) (*bauplan.TableCreationState, error)
	planTable     func(ctx context.Context, opts bauplan.TablePlanOptions) (*bauplan.TableCreatePlanState, error)
	applyPlan     func(ctx context.Context, plan map[string]any, args map[string]string, timeoutSeconds int) (*bauplan.TableCreatePlanState, error)
	deleteTable   func(ctx context.Context, table, branch string) error
	revertTable   func(ctx context.Context, table, sourceRef, intoBranch string, replace bool) error
	importData    func(ctx context.Context, opts bauplan.ImportOptions) (*bauplan.ImportState, error)
	run           func(ctx context.Context, opts bauplan.RunOptions) (*bauplan.RunState, error)
	getJobs       func(ctx context.Context, filter bauplan.JobsFilter) ([]bauplan.Job, error)
	getJob        func(ctx context.Context, jobID string) (*bauplan.Job, error)
	cancelJob     func(ctx context.Context, jobID string) (*bauplan.Job, error)
	getJobLogs    func(ctx context.Context, jobIDPrefix string) ([]bauplan.JobLog, error)
	getSnapshot   func(ctx context.Context, jobID string) (map[string]string, error)
}

func (f *fakeClient) Info(ctx context.Context) (*bauplan.InfoState, error) {
	if f.info != nil {
		return f.info(ctx)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) GetTables(ctx context.Context, ref, namespace string) ([]bauplan.TableWithMetadata, error) {
	if f.getTables != nil {
		return f.getTables(ctx, ref, namespace)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) GetTable(ctx context.Context, ref, table, namespace string) (*bauplan.TableWithMetadata, error) {
	if f.getTable != nil {
		return f.getTable(ctx, ref, table, namespace)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) GetBranches(ctx context.Context, name, user string, limit int) ([]bauplan.Branch, error) {
	if f.getBranches != nil {
		return f.getBranches(ctx, name, user, limit)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) HasBranch(ctx context.Context, branch string) (bool, error) {
	if f.hasBranch != nil {
		return f.hasBranch(ctx, branch)
	}
	return false, errNotStubbed
}

func (f *fakeClient) CreateBranch(ctx context.Context, branch, fromRef string) (*bauplan.Branch, error) {
	if f.createBranch != nil {
		return f.createBranch(ctx, branch, fromRef)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) DeleteBranch(ctx context.Context, branch string) error {
	if f.deleteBranch != nil {
		return f.deleteBranch(ctx, branch)
	}
	return errNotStubbed
}

func (f *fakeClient) MergeBranch(ctx context.Context, sourceRef, intoBranch, commitMessage, commitBody string) error {
	if f.mergeBranch != nil {
		return f.mergeBranch(ctx, sourceRef, intoBranch, commitMessage, commitBody)
	}
	return errNotStubbed
}

func (f *fakeClient) GetCommits(ctx context.Context, ref string, filter bauplan.CommitsFilter) ([]bauplan.Commit, error) {
	if f.getCommits != nil {
		return f.getCommits(ctx, ref, filter)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) GetNamespaces(ctx context.Context, ref, filterByName string, limit int) ([]bauplan.Namespace, error) {
	if f.getNamespaces != nil {
		return f.getNamespaces(ctx, ref, filterByName, limit)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) HasNamespace(ctx context.Context, namespace, branch string) (bool, error) {
	if f.hasNamespace != nil {
		return f.hasNamespace(ctx, namespace, branch)
	}
	return false, errNotStubbed
}

func (f *fakeClient) CreateNamespace(ctx context.Context, namespace, branch string) error {
	if f.createNS != nil {
		return f.createNS(ctx, namespace, branch)
	}
	return errNotStubbed
}

func (f *fakeClient) DeleteNamespace(ctx context.Context, namespace, branch string) error {
	if f.deleteNS != nil {
		return f.deleteNS(ctx, namespace, branch)
	}
	return errNotStubbed
}

func (f *fakeClient) GetTags(ctx context.Context, filterByName string, limit int) ([]bauplan.Tag, error) {
	if f.getTags != nil {
		return f.getTags(ctx, filterByName, limit)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) HasTag(ctx context.Context, tag string) (bool, error) {
	if f.hasTag != nil {
		return f.hasTag(ctx, tag)
	}
	return false, errNotStubbed
}

func (f *fakeClient) CreateTag(ctx context.Context, tag, fromRef string) error {
	if f.createTag != nil {
		return f.createTag(ctx, tag, fromRef)
	}
	return errNotStubbed
}

func (f *fakeClient) DeleteTag(ctx context.Context, tag string) error {
	if f.deleteTag != nil {
		return f.deleteTag(ctx, tag)
	}
	return errNotStubbed
}

func (f *fakeClient) Query(ctx context.Context, query, ref, namespace string) (*bauplan.QueryResult, error) {
	if f.query != nil {
		return f.query(ctx, query, ref, namespace)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) QueryToCSVFile(ctx context.Context, path, query, ref, namespace string, timeoutSeconds int) error {
	if f.queryToCSV != nil {
		return f.queryToCSV(ctx, path, query, ref, namespace, timeoutSeconds)
	}
	return errNotStubbed
}

func (f *fakeClient) CreateTable(ctx context.Context, opts bauplan.TablePlanOptions) (*bauplan.TableCreationState, error) {
	if f.createTable != nil {
		return f.createTable(ctx, opts)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) PlanTableCreation(ctx context.Context, opts bauplan.TablePlanOptions) (*bauplan.TableCreatePlanState, error) {
	if f.planTable != nil {
		return f.planTable(ctx, opts)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) ApplyTableCreationPlan(ctx context.Context, plan map[string]any, args map[string]string, timeoutSeconds int) (*bauplan.TableCreatePlanState, error) {
	if f.applyPlan != nil {
		return f.applyPlan(ctx, plan, args, timeoutSeconds)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) DeleteTable(ctx context.Context, table, branch string) error {
	if f.deleteTable != nil {
		return f.deleteTable(ctx, table, branch)
	}
	return errNotStubbed
}

func (f *fakeClient) RevertTable(ctx context.Context, table, sourceRef, intoBranch string, replace bool) error {
	if f.revertTable != nil {
		return f.revertTable(ctx, table, sourceRef, intoBranch, replace)
	}
	return errNotStubbed
}

func (f *fakeClient) ImportData(ctx context.Context, opts bauplan.ImportOptions) (*bauplan.ImportState, error) {
	if f.importData != nil {
		return f.importData(ctx, opts)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) Run(ctx context.Context, opts bauplan.RunOptions) (*bauplan.RunState, error) {
	if f.run != nil {
		return f.run(ctx, opts)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) GetJobs(ctx context.Context, filter bauplan.JobsFilter) ([]bauplan.Job, error) {
	if f.getJobs != nil {
		return f.getJobs(ctx, filter)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) GetJob(ctx context.Context, jobID string) (*bauplan.Job, error) {
	if f.getJob != nil {
		return f.getJob(ctx, jobID)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) CancelJob(ctx context.Context, jobID string) (*bauplan.Job, error) {
	if f.cancelJob != nil {
		return f.cancelJob(ctx, jobID)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) GetJobLogs(ctx context.Context, jobIDPrefix string) ([]bauplan.JobLog, error) {
	if f.getJobLogs != nil {
		return f.getJobLogs(ctx, jobIDPrefix)
	}
	return nil, errNotStubbed
}

func (f *fakeClient) GetJobSnapshot(ctx context.Context, jobID string) (map[string]string, error) {
	if f.getSnapshot != nil {
		return f.getSnapshot(ctx, jobID)
	}
	return nil, errNotStubbed
}

// fakeDeps returns Deps that always resolve to the given client.
func fakeDeps(c Client) Deps {
	return Deps{Resolve: func(apiKey string) (Client, error) { return c, nil }}
}

// testCallContext builds a CallContext with no arguments and no sink.
func testCallContext() *mcp.CallContext {
	return mcp.NewCallContext(nil, nil)
}

// invoke runs a tool handler with JSON arguments.
func invoke(t *testing.T, tool mcp.Tool, args string) (any, error) {
	t.Helper()
	call := mcp.NewCallContext(json.RawMessage(args), nil)
	return tool.Handler(context.Background(), call)
}

func TestRegisterAllRegistersEveryTool(t *testing.T) {
	reg := mcp.NewRegistry()
	if err := RegisterAll(reg, fakeDeps(&fakeClient{})); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}

	names := reg.Names()
	if len(names) != 34 {
		t.Fatalf("expected 34 tools, got %d: %v", len(names), names)
	}

	for _, want := range []string{
		"run_query", "project_run", "code_run", "list_jobs", "get_job",
		"get_instructions", "get_user_info", "create_branch", "merge_branch",
	} {
		found := false
		for _, name := range names {
			if name == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("tool %s not registered", want)
		}
	}
}

func TestRunQueryForwardsOriginalString(t *testing.T) {
	const original = "select /* keep me */ * from t -- trailing"
	var forwarded string
	client := &fakeClient{
		query: func(ctx context.Context, query, ref, namespace string) (*bauplan.QueryResult, error) {
			forwarded = query
			return &bauplan.QueryResult{
				ColumnNames: []string{"a"},
				ColumnTypes: []string{"int64"},
				Rows:        []map[string]any{{"a": float64(1)}},
			}, nil
		},
	}

	out, err := invoke(t, runQueryTool(fakeDeps(client)),
		`{"query": "select /* keep me */ * from t -- trailing", "ref": "main"}`)
	if err != nil {
		t.Fatalf("run_query: %v", err)
	}
	if forwarded != original {
		t.Errorf("query was rewritten before forwarding: %q", forwarded)
	}

	res := out.(QueryOut)
	if res.Status != "success" || len(res.Data) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Metadata == nil || res.Metadata.RowCount != 1 {
		t.Errorf("unexpected metadata: %+v", res.Metadata)
	}
}

func TestRunQueryRejectsMutationsWithoutRemoteCall(t *testing.T) {
	called := false
	client := &fakeClient{
		query: func(ctx context.Context, query, ref, namespace string) (*bauplan.QueryResult, error) {
			called = true
			return &bauplan.QueryResult{}, nil
		},
	}

	_, err := invoke(t, runQueryTool(fakeDeps(client)),
		`{"query": "DROP TABLE users"}`)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if called {
		t.Error("rejected query reached the client")
	}
}

func TestCreateTableRejectsMainBranch(t *testing.T) {
	for _, branch := range []string{"", "main"} {
		args, _ := json.Marshal(map[string]any{
			"table": "t", "search_uri": "s3://b/*.parquet", "branch": branch,
		})
		_, err := invoke(t, createTableTool(fakeDeps(&fakeClient{})), string(args))
		if err == nil {
			t.Errorf("branch %q: expected rejection", branch)
		}
	}
}

func TestHasTableMapsNotFound(t *testing.T) {
	client := &fakeClient{
		getTable: func(ctx context.Context, ref, table, namespace string) (*bauplan.TableWithMetadata, error) {
			return nil, &bauplan.APIError{StatusCode: 404, Message: "no such table"}
		},
	}

	out, err := invoke(t, hasTableTool(fakeDeps(client)), `{"table": "missing"}`)
	if err != nil {
		t.Fatalf("has_table: %v", err)
	}
	res := out.(TableExistsOut)
	if res.Exists {
		t.Error("404 should report exists=false")
	}
	if res.Ref != "main" {
		t.Errorf("default ref should be main, got %q", res.Ref)
	}
}

func TestToolErrorsUseFailedToPrefix(t *testing.T) {
	client := &fakeClient{
		deleteTag: func(ctx context.Context, tag string) error {
			return errors.New("boom")
		},
	}

	_, err := invoke(t, deleteTagTool(fakeDeps(client)), `{"tag": "v1"}`)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "Failed to delete tag v1: boom"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestGetUserInfo(t *testing.T) {
	client := &fakeClient{
		info: func(ctx context.Context) (*bauplan.InfoState, error) {
			return &bauplan.InfoState{User: bauplan.User{Username: "jdoe", FullName: "Jane Doe"}}, nil
		},
	}

	out, err := invoke(t, getUserInfoTool(fakeDeps(client)), `{}`)
	if err != nil {
		t.Fatalf("get_user_info: %v", err)
	}
	res := out.(UserInfo)
	if res.Username != "jdoe" || res.FullName != "Jane Doe" {
		t.Errorf("unexpected user info: %+v", res)
	}
}

func TestGetInstructions(t *testing.T) {
	tool := getInstructionsTool(fakeDeps(&fakeClient{}))

	for _, useCase := range []string{"data", "INGEST", "Pipeline", "repair", "test", "sdk"} {
		args, _ := json.Marshal(map[string]string{"use_case": useCase})
		out, err := invoke(t, tool, string(args))
		if err != nil {
			t.Fatalf("use_case %q: %v", useCase, err)
		}
		if out.(Prompt).Prompt == "" {
			t.Errorf("use_case %q: empty prompt", useCase)
		}
	}

	if _, err := invoke(t, tool, `{"use_case": "wap"}`); err == nil {
		t.Error("unknown use_case should be rejected")
	}
}
