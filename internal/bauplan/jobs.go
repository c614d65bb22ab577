package bauplan

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// ProjectConfigFile is the required configuration file of a Bauplan project.
const ProjectConfigFile = "bauplan_project.yml"

// SnapshotJobKind is the job kind produced by detached project runs.
const SnapshotJobKind = "CodeSnapshotRun"

// runRequest is the wire form of a detached run submission. The project
// files travel inline, the way the SDK ships a code snapshot.
type runRequest struct {
	Files      map[string]string `json:"files"`
	Ref        string            `json:"ref"`
	Namespace  string            `json:"namespace,omitempty"`
	Parameters map[string]any    `json:"parameters,omitempty"`
	DryRun     bool              `json:"dry_run"`
	Detach     bool              `json:"detach"`
}

// Run submits a project for detached execution and returns synchronously
// with the job identifier. It does not wait for the run to finish.
func (c *Client) Run(ctx context.Context, opts RunOptions) (*RunState, error) {
	files, err := readProjectDir(opts.ProjectDir)
	if err != nil {
		return nil, err
	}

	req := runRequest{
		Files:      files,
		Ref:        opts.Ref,
		Namespace:  opts.Namespace,
		Parameters: opts.Parameters,
		DryRun:     opts.DryRun,
		Detach:     true,
	}
	var state RunState
	if err := c.post(ctx, "/v0/runs", req, &state, opts.ClientTimeout); err != nil {
		return nil, err
	}
	return &state, nil
}

// readProjectDir loads a project directory into a name -> content map,
// preserving nested paths relative to the root.
func readProjectDir(dir string) (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read project dir %s: %w", dir, err)
	}
	return files, nil
}

// ImportData appends data from a search URI into an existing table.
func (c *Client) ImportData(ctx context.Context, opts ImportOptions) (*ImportState, error) {
	body := map[string]any{
		"table":             opts.Table,
		"search_uri":        opts.SearchURI,
		"continue_on_error": opts.ContinueOnError,
	}
	if opts.Namespace != "" {
		body["namespace"] = opts.Namespace
	}
	if opts.Branch != "" {
		body["branch"] = opts.Branch
	}
	var state ImportState
	if err := c.post(ctx, "/v0/imports", body, &state, opts.ClientTimeout); err != nil {
		return nil, err
	}
	return &state, nil
}

// CreateTable creates a table from the schema of the files under a search
// URI in a single step.
func (c *Client) CreateTable(ctx context.Context, opts TablePlanOptions) (*TableCreationState, error) {
	var state TableCreationState
	if err := c.post(ctx, "/v0/tables", tablePlanBody(opts), &state, 0); err != nil {
		return nil, err
	}
	return &state, nil
}

// PlanTableCreation builds a table-creation plan from a search URI. The
// returned plan surfaces schema conflicts for manual resolution.
func (c *Client) PlanTableCreation(ctx context.Context, opts TablePlanOptions) (*TableCreatePlanState, error) {
	var state TableCreatePlanState
	if err := c.post(ctx, "/v0/table-plans", tablePlanBody(opts), &state, 0); err != nil {
		return nil, err
	}
	return &state, nil
}

// ApplyTableCreationPlan applies a (possibly hand-edited) creation plan.
func (c *Client) ApplyTableCreationPlan(ctx context.Context, plan map[string]any, args map[string]string, timeoutSeconds int) (*TableCreatePlanState, error) {
	body := map[string]any{"plan": plan}
	if len(args) > 0 {
		body["args"] = args
	}
	var state TableCreatePlanState
	if err := c.post(ctx, "/v0/table-plans/apply", body, &state, timeoutSeconds); err != nil {
		return nil, err
	}
	return &state, nil
}

func tablePlanBody(opts TablePlanOptions) map[string]any {
	body := map[string]any{
		"table":      opts.Table,
		"search_uri": opts.SearchURI,
	}
	if opts.Branch != "" {
		body["branch"] = opts.Branch
	}
	if opts.Namespace != "" {
		body["namespace"] = opts.Namespace
	}
	if opts.PartitionedBy != "" {
		body["partitioned_by"] = opts.PartitionedBy
	}
	if opts.Replace {
		body["replace"] = true
	}
	return body
}

// GetJobs lists jobs matching a filter, newest first.
func (c *Client) GetJobs(ctx context.Context, filter JobsFilter) ([]Job, error) {
	q := url.Values{}
	if filter.ID != "" {
		q.Set("id", filter.ID)
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.StartTime != nil {
		q.Set("start_time", filter.StartTime.UTC().Format(time.RFC3339))
	}
	if filter.FinishTime != nil {
		q.Set("finish_time", filter.FinishTime.UTC().Format(time.RFC3339))
	}
	var out struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.get(ctx, "/v0/jobs", q, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// GetJob fetches one job's metadata.
func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.get(ctx, "/v0/jobs/"+url.PathEscape(jobID), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// CancelJob requests cancellation and returns the post-cancellation
// metadata. The status may still show a transitional state.
func (c *Client) CancelJob(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.post(ctx, "/v0/jobs/"+url.PathEscape(jobID)+"/cancel", nil, &job, 0); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobLogs returns the accumulated log lines of every job whose ID
// starts with the given prefix.
func (c *Client) GetJobLogs(ctx context.Context, jobIDPrefix string) ([]JobLog, error) {
	q := url.Values{}
	q.Set("id_prefix", jobIDPrefix)
	var out struct {
		Logs []JobLog `json:"logs"`
	}
	if err := c.get(ctx, "/v0/job-logs", q, &out); err != nil {
		return nil, err
	}
	return out.Logs, nil
}

// GetJobSnapshot returns the code snapshot a job was submitted with, as a
// name -> content map. Jobs without a snapshot return a not-found error.
func (c *Client) GetJobSnapshot(ctx context.Context, jobID string) (map[string]string, error) {
	var out struct {
		Files map[string]string `json:"files"`
	}
	if err := c.get(ctx, "/v0/jobs/"+url.PathEscape(jobID)+"/snapshot", nil, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}
