package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/bauplan"
	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// RunOut is the project_run and code_run response.
type RunOut struct {
	Success   bool   `json:"success"`
	JobID     string `json:"job_id,omitempty"`
	JobStatus string `json:"job_status,omitempty"`
	Message   string `json:"message"`
}

// jobSucceeded maps the remote status string to the success flag. The
// status vocabulary belongs to the remote system; we only recognize its
// happy word.
func jobSucceeded(status string) bool {
	return strings.EqualFold(status, "success")
}

// validateRunParameters rejects any parameter that is not a JSON
// scalar. Arrays, objects and nulls cannot be forwarded to a run.
func validateRunParameters(params map[string]any) error {
	for name, v := range params {
		switch v.(type) {
		case string, bool, float64:
		default:
			return fmt.Errorf("parameter %q is not a scalar (string, number or boolean)", name)
		}
	}
	return nil
}

// validateProjectFiles checks the file-set invariant shared by code_run
// and the job snapshot path: the project config must be present and
// every other file must be SQL or Python.
func validateProjectFiles(names []string) error {
	hasConfig := false
	for _, name := range names {
		base := filepath.Base(name)
		if base == bauplan.ProjectConfigFile {
			hasConfig = true
			continue
		}
		ext := strings.ToLower(filepath.Ext(base))
		if ext != ".sql" && ext != ".py" {
			return fmt.Errorf("file %q is neither a .sql nor a .py model", name)
		}
	}
	if !hasConfig {
		return fmt.Errorf("project is missing %s", bauplan.ProjectConfigFile)
	}
	return nil
}

// listProjectFiles collects the relative file names under a project
// directory, the same set a run submission uploads.
func listProjectFiles(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
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
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read project directory %s: %w", dir, err)
	}
	return names, nil
}

// submitRun enforces the shared run guards and submits a detached run.
// The project directory is validated locally before anything is sent.
func submitRun(ctx context.Context, client Client, call *mcp.CallContext, opts bauplan.RunOptions) (RunOut, error) {
	if opts.Ref == "" {
		return RunOut{}, fmt.Errorf("a ref is required")
	}
	if opts.Ref == bauplan.MainBranch && !opts.DryRun {
		return RunOut{}, fmt.Errorf("runs against %q must be dry runs, use a development branch to write", bauplan.MainBranch)
	}
	if err := validateRunParameters(opts.Parameters); err != nil {
		return RunOut{}, err
	}
	names, err := listProjectFiles(opts.ProjectDir)
	if err != nil {
		return RunOut{}, err
	}
	if err := validateProjectFiles(names); err != nil {
		return RunOut{}, err
	}

	call.Info("Submitting run against %q (dry_run=%v)", opts.Ref, opts.DryRun)

	state, err := client.Run(ctx, opts)
	if err != nil {
		return RunOut{}, err
	}

	ok := jobSucceeded(state.JobStatus)
	msg := fmt.Sprintf("Run submitted, job %s finished submission with status %s", state.JobID, state.JobStatus)
	if !ok {
		msg = fmt.Sprintf("Run submission for job %s reported status %s", state.JobID, state.JobStatus)
	}
	return RunOut{
		Success:   ok,
		JobID:     state.JobID,
		JobStatus: state.JobStatus,
		Message:   msg,
	}, nil
}

func projectRunTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "project_run",
		Description: "Run a Bauplan pipeline project from a local directory against a ref, detached. Returns the job id to track with get_job and get_job_logs.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"project_dir": {"type": "string", "description": "Local directory containing bauplan_project.yml and the model files"},
			"ref": {"type": "string", "description": "Branch, tag or commit hash to run against; main requires dry_run"},
			"namespace": {"type": "string", "description": "Optional namespace the run writes to"},
			"parameters": {"type": "object", "description": "Optional scalar run parameters"},
			"dry_run": {"type": "boolean", "description": "Execute the pipeline without writing results"},
			"client_timeout": {"type": "integer", "description": "Timeout in seconds for the submission, default 120"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["project_dir", "ref"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				ProjectDir    string         `json:"project_dir"`
				Ref           string         `json:"ref"`
				Namespace     string         `json:"namespace"`
				Parameters    map[string]any `json:"parameters"`
				DryRun        bool           `json:"dry_run"`
				ClientTimeout int            `json:"client_timeout"`
				APIKey        string         `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("run project", err)
			}
			if args.ClientTimeout <= 0 {
				args.ClientTimeout = 120
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("run project", err)
			}

			out, err := submitRun(ctx, client, call, bauplan.RunOptions{
				ProjectDir:    args.ProjectDir,
				Ref:           args.Ref,
				Namespace:     args.Namespace,
				Parameters:    args.Parameters,
				DryRun:        args.DryRun,
				ClientTimeout: args.ClientTimeout,
			})
			if err != nil {
				return nil, failf("run project", err)
			}
			return out, nil
		},
	}
}

func codeRunTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "code_run",
		Description: "Run a Bauplan pipeline supplied inline as a set of files (bauplan_project.yml plus .sql/.py models) against a ref, detached.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"project_files": {"type": "object", "description": "Map of file name to file content; must include bauplan_project.yml, all other files must end in .sql or .py", "additionalProperties": {"type": "string"}},
			"ref": {"type": "string", "description": "Branch, tag or commit hash to run against; main requires dry_run"},
			"namespace": {"type": "string", "description": "Optional namespace the run writes to"},
			"parameters": {"type": "object", "description": "Optional scalar run parameters"},
			"dry_run": {"type": "boolean", "description": "Execute the pipeline without writing results"},
			"client_timeout": {"type": "integer", "description": "Timeout in seconds for the submission, default 120"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["project_files", "ref"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				ProjectFiles  map[string]string `json:"project_files"`
				Ref           string            `json:"ref"`
				Namespace     string            `json:"namespace"`
				Parameters    map[string]any    `json:"parameters"`
				DryRun        bool              `json:"dry_run"`
				ClientTimeout int               `json:"client_timeout"`
				APIKey        string            `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("run code", err)
			}
			if len(args.ProjectFiles) == 0 {
				return nil, failf("run code", fmt.Errorf("project_files is empty"))
			}
			if args.ClientTimeout <= 0 {
				args.ClientTimeout = 120
			}

			names := make([]string, 0, len(args.ProjectFiles))
			for name := range args.ProjectFiles {
				names = append(names, name)
			}
			if err := validateProjectFiles(names); err != nil {
				return nil, failf("run code", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("run code", err)
			}

			dir, err := materializeProject(args.ProjectFiles, call)
			if err != nil {
				return nil, failf("run code", err)
			}
			defer func() {
				if rmErr := os.RemoveAll(dir); rmErr != nil {
					call.Info("Could not remove temporary project directory %s: %v", dir, rmErr)
				}
			}()

			out, err := submitRun(ctx, client, call, bauplan.RunOptions{
				ProjectDir:    dir,
				Ref:           args.Ref,
				Namespace:     args.Namespace,
				Parameters:    args.Parameters,
				DryRun:        args.DryRun,
				ClientTimeout: args.ClientTimeout,
			})
			if err != nil {
				return nil, failf("run code", err)
			}
			return out, nil
		},
	}
}

// materializeProject writes the inline file set into a fresh temporary
// directory, creating nested subdirectories as needed. The caller owns
// the directory and must remove it.
func materializeProject(files map[string]string, call *mcp.CallContext) (string, error) {
	dir, err := os.MkdirTemp("", "bauplan_code_run_"+uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("create temporary project directory: %w", err)
	}

	for name, content := range files {
		rel := filepath.FromSlash(name)
		if filepath.IsAbs(rel) || strings.Contains(rel, "..") {
			os.RemoveAll(dir)
			return "", fmt.Errorf("file name %q escapes the project directory", name)
		}
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("create directory for %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}

	call.Info("Materialized %d project files into %s", len(files), dir)
	return dir, nil
}
