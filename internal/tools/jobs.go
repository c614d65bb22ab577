package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/bauplan"
	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// jobsTimeLayout is the accepted format of list_jobs time filters.
const jobsTimeLayout = "01/02/06 15:04:05"

// JobInfo is one job entry in the list_jobs and get_job responses.
type JobInfo struct {
	ID                  string `json:"id"`
	Kind                string `json:"kind"`
	User                string `json:"user"`
	HumanReadableStatus string `json:"human_readable_status"`
	CreatedAt           string `json:"created_at,omitempty"`
	FinishedAt          string `json:"finished_at,omitempty"`
	Status              string `json:"status"`
}

// JobsList is the list_jobs response.
type JobsList struct {
	Jobs       []JobInfo `json:"jobs"`
	TotalCount int       `json:"total_count"`
}

// JobOut is the get_job response: metadata plus the code snapshot the
// job was submitted with, when one is available.
type JobOut struct {
	Job           JobInfo           `json:"job"`
	ProjectConfig string            `json:"project_config,omitempty"`
	ProjectFiles  map[string]string `json:"project_files,omitempty"`
}

// JobCancelled is the cancel_job response. Status is a post-cancellation
// snapshot and may still be transitional.
type JobCancelled struct {
	Job     JobInfo `json:"job"`
	Message string  `json:"message"`
}

// JobLogInfo is one log line in the get_job_logs response.
type JobLogInfo struct {
	Message string `json:"message"`
	Stream  string `json:"stream"`
}

// JobLogsList is the get_job_logs response.
type JobLogsList struct {
	JobID      string       `json:"job_id"`
	Logs       []JobLogInfo `json:"logs"`
	TotalCount int          `json:"total_count"`
}

func jobToInfo(j *bauplan.Job) JobInfo {
	info := JobInfo{
		ID:                  j.ID,
		Kind:                j.Kind,
		User:                j.User,
		HumanReadableStatus: j.HumanReadableStatus,
		Status:              j.Status,
	}
	if j.CreatedAt != nil {
		info.CreatedAt = j.CreatedAt.UTC().Format(time.RFC3339)
	}
	if j.FinishedAt != nil {
		info.FinishedAt = j.FinishedAt.UTC().Format(time.RFC3339)
	}
	return info
}

// jobNotFound refines the opaque lookup failures the backend returns
// for unknown job ids into a stable message.
func jobNotFound(jobID string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "JobGetError") || strings.Contains(msg, "Failed to get job") {
		return fmt.Errorf("job %s not found", jobID)
	}
	return err
}

func parseJobsTime(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(jobsTimeLayout, value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%s must match MM/DD/YY HH:MM:SS, got %q", field, value)
	}
	return &t, nil
}

func listJobsTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "list_jobs",
		Description: "List the user's Bauplan pipeline run jobs, optionally filtered by job id, status (COMPLETE, FAIL, ABORT, RUNNING), user name and time window.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"job_id": {"type": "string", "description": "Optional job id filter"},
			"status": {"type": "string", "description": "Optional status filter, one of COMPLETE, FAIL, ABORT, RUNNING"},
			"user_name": {"type": "string", "description": "Optional user name filter"},
			"start_time": {"type": "string", "description": "Optional creation-time lower bound, format MM/DD/YY HH:MM:SS, UTC"},
			"end_time": {"type": "string", "description": "Optional finish-time upper bound, format MM/DD/YY HH:MM:SS, UTC"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": []}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				JobID     string `json:"job_id"`
				Status    string `json:"status"`
				UserName  string `json:"user_name"`
				StartTime string `json:"start_time"`
				EndTime   string `json:"end_time"`
				APIKey    string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("list jobs", err)
			}

			status := strings.ToUpper(strings.TrimSpace(args.Status))
			switch status {
			case "", bauplan.JobStatusComplete, bauplan.JobStatusFail, bauplan.JobStatusAbort, bauplan.JobStatusRunning:
			default:
				return nil, failf("list jobs", fmt.Errorf(
					"status must be one of COMPLETE, FAIL, ABORT, RUNNING, got %q", args.Status))
			}

			startTime, err := parseJobsTime("start_time", args.StartTime)
			if err != nil {
				return nil, failf("list jobs", err)
			}
			endTime, err := parseJobsTime("end_time", args.EndTime)
			if err != nil {
				return nil, failf("list jobs", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("list jobs", err)
			}

			jobs, err := client.GetJobs(ctx, bauplan.JobsFilter{
				ID:         args.JobID,
				Status:     status,
				StartTime:  startTime,
				FinishTime: endTime,
			})
			if err != nil {
				return nil, failf("list jobs", err)
			}

			out := JobsList{Jobs: make([]JobInfo, 0, len(jobs))}
			for i := range jobs {
				j := &jobs[i]
				if j.Kind != bauplan.SnapshotJobKind {
					continue
				}
				if args.UserName != "" && j.User != args.UserName {
					continue
				}
				out.Jobs = append(out.Jobs, jobToInfo(j))
			}
			out.TotalCount = len(out.Jobs)
			return out, nil
		},
	}
}

func getJobTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "get_job",
		Description: "Get the metadata of a Bauplan job by id, including the code snapshot it was submitted with when available.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"job_id": {"type": "string", "description": "Id of the job to fetch"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["job_id"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				JobID  string `json:"job_id"`
				APIKey string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("get job", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("get job", err)
			}

			job, err := client.GetJob(ctx, args.JobID)
			if err != nil {
				return nil, failf(fmt.Sprintf("get job %s", args.JobID), jobNotFound(args.JobID, err))
			}

			out := JobOut{Job: jobToInfo(job)}

			snapshot, err := client.GetJobSnapshot(ctx, args.JobID)
			if err != nil {
				call.Info("No code snapshot for job %s: %v", args.JobID, err)
				return out, nil
			}
			if len(snapshot) > 0 {
				names := make([]string, 0, len(snapshot))
				for name := range snapshot {
					names = append(names, name)
				}
				if err := validateProjectFiles(names); err != nil {
					return nil, failf(fmt.Sprintf("get job %s", args.JobID),
						fmt.Errorf("invalid code snapshot: %w", err))
				}
				out.ProjectFiles = make(map[string]string, len(snapshot))
				for name, content := range snapshot {
					if name == bauplan.ProjectConfigFile {
						out.ProjectConfig = content
						continue
					}
					out.ProjectFiles[name] = content
				}
			}
			return out, nil
		},
	}
}

func getJobLogsTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "get_job_logs",
		Description: "Get the log lines emitted by a Bauplan job. Accepts a job id or an unambiguous id prefix.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"job_id": {"type": "string", "description": "Id or id prefix of the job"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["job_id"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				JobID  string `json:"job_id"`
				APIKey string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("get job logs", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("get job logs", err)
			}

			logs, err := client.GetJobLogs(ctx, args.JobID)
			if err != nil {
				return nil, failf(fmt.Sprintf("get logs for job %s", args.JobID), jobNotFound(args.JobID, err))
			}

			out := JobLogsList{JobID: args.JobID, Logs: make([]JobLogInfo, 0, len(logs))}
			for _, l := range logs {
				out.Logs = append(out.Logs, JobLogInfo{Message: l.Message, Stream: l.Stream})
			}
			out.TotalCount = len(out.Logs)
			return out, nil
		},
	}
}

func cancelJobTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "cancel_job",
		Description: "Cancel a running Bauplan job by id. Returns the job metadata after the cancellation request; the status may still be transitional.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"job_id": {"type": "string", "description": "Id of the job to cancel"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["job_id"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				JobID  string `json:"job_id"`
				APIKey string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("cancel job", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("cancel job", err)
			}

			call.Info("Cancelling job %s", args.JobID)

			job, err := client.CancelJob(ctx, args.JobID)
			if err != nil {
				return nil, failf(fmt.Sprintf("cancel job %s", args.JobID), jobNotFound(args.JobID, err))
			}
			return JobCancelled{
				Job:     jobToInfo(job),
				Message: fmt.Sprintf("Cancellation requested for job %s, status %s", job.ID, job.Status),
			}, nil
		},
	}
}
