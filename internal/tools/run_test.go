package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/bauplan"
)

func TestValidateRunParameters(t *testing.T) {
	ok := map[string]any{
		"name":    "orders",
		"limit":   float64(10),
		"dry":     true,
		"percent": 0.5,
	}
	if err := validateRunParameters(ok); err != nil {
		t.Errorf("scalar parameters rejected: %v", err)
	}
	if err := validateRunParameters(nil); err != nil {
		t.Errorf("nil parameters rejected: %v", err)
	}

	bad := []map[string]any{
		{"rows": []any{1, 2}},
		{"config": map[string]any{"a": 1}},
		{"none": nil},
	}
	for _, params := range bad {
		err := validateRunParameters(params)
		if err == nil {
			t.Errorf("parameters %v accepted", params)
			continue
		}
		for name := range params {
			if !strings.Contains(err.Error(), name) {
				t.Errorf("error %q does not name the bad parameter %q", err, name)
			}
		}
	}
}

func TestValidateProjectFiles(t *testing.T) {
	if err := validateProjectFiles([]string{
		"bauplan_project.yml", "models.py", "staging/orders.sql",
	}); err != nil {
		t.Errorf("valid project rejected: %v", err)
	}

	if err := validateProjectFiles([]string{"models.py"}); err == nil {
		t.Error("missing config file accepted")
	}
	if err := validateProjectFiles([]string{"bauplan_project.yml", "notes.txt"}); err == nil {
		t.Error("stray .txt file accepted")
	}
	if err := validateProjectFiles([]string{"bauplan_project.yml", "models.PY"}); err != nil {
		t.Errorf("extension check should be case-insensitive: %v", err)
	}
}

// writeProjectDir lays out a minimal valid pipeline project on disk.
func writeProjectDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"bauplan_project.yml": "project:\n  id: demo\n",
		"models.py":           "import bauplan\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestProjectRunRejectsMainWithoutDryRun(t *testing.T) {
	called := false
	client := &fakeClient{
		run: func(ctx context.Context, opts bauplan.RunOptions) (*bauplan.RunState, error) {
			called = true
			return &bauplan.RunState{JobID: "j1", JobStatus: "success"}, nil
		},
	}
	deps := fakeDeps(client)
	dir := writeProjectDir(t)

	_, err := invoke(t, projectRunTool(deps), `{"project_dir": "`+dir+`", "ref": "main"}`)
	if err == nil {
		t.Fatal("non-dry-run against main accepted")
	}
	if called {
		t.Error("guarded run reached the client")
	}

	out, err := invoke(t, projectRunTool(deps), `{"project_dir": "`+dir+`", "ref": "main", "dry_run": true}`)
	if err != nil {
		t.Fatalf("dry run against main rejected: %v", err)
	}
	res := out.(RunOut)
	if !res.Success || res.JobID != "j1" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestProjectRunRejectsBadDirectoryBeforeRemoteCall(t *testing.T) {
	called := false
	client := &fakeClient{
		run: func(ctx context.Context, opts bauplan.RunOptions) (*bauplan.RunState, error) {
			called = true
			return &bauplan.RunState{JobID: "j1", JobStatus: "success"}, nil
		},
	}
	deps := fakeDeps(client)

	noConfig := t.TempDir()
	if err := os.WriteFile(filepath.Join(noConfig, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	strayFile := writeProjectDir(t)
	if err := os.WriteFile(filepath.Join(strayFile, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{noConfig, strayFile, filepath.Join(noConfig, "missing")} {
		if _, err := invoke(t, projectRunTool(deps), `{"project_dir": "`+dir+`", "ref": "jdoe.dev"}`); err == nil {
			t.Errorf("directory %s accepted", dir)
		}
	}
	if called {
		t.Error("invalid project directory reached the client")
	}
}

func TestProjectRunSuccessFlagFollowsJobStatus(t *testing.T) {
	dir := writeProjectDir(t)
	for status, want := range map[string]bool{
		"success": true,
		"SUCCESS": true,
		"failed":  false,
		"":        false,
	} {
		client := &fakeClient{
			run: func(ctx context.Context, opts bauplan.RunOptions) (*bauplan.RunState, error) {
				return &bauplan.RunState{JobID: "j1", JobStatus: status}, nil
			},
		}
		out, err := invoke(t, projectRunTool(fakeDeps(client)),
			`{"project_dir": "`+dir+`", "ref": "jdoe.dev"}`)
		if err != nil {
			t.Fatalf("status %q: %v", status, err)
		}
		if got := out.(RunOut).Success; got != want {
			t.Errorf("status %q: success=%v, want %v", status, got, want)
		}
	}
}

func TestCodeRunMaterializesAndCleansUp(t *testing.T) {
	var runDir string
	client := &fakeClient{
		run: func(ctx context.Context, opts bauplan.RunOptions) (*bauplan.RunState, error) {
			runDir = opts.ProjectDir

			// The file set must be on disk while the run submits.
			data, err := os.ReadFile(filepath.Join(runDir, "bauplan_project.yml"))
			if err != nil {
				t.Errorf("config not materialized: %v", err)
			} else if !strings.Contains(string(data), "project:") {
				t.Errorf("config content mangled: %q", data)
			}
			if _, err := os.Stat(filepath.Join(runDir, "staging", "orders.sql")); err != nil {
				t.Errorf("nested model not materialized: %v", err)
			}
			return &bauplan.RunState{JobID: "j9", JobStatus: "success"}, nil
		},
	}

	args, _ := json.Marshal(map[string]any{
		"project_files": map[string]string{
			"bauplan_project.yml": "project:\n  id: demo\n",
			"models.py":           "import bauplan\n",
			"staging/orders.sql":  "SELECT 1\n",
		},
		"ref": "jdoe.dev",
	})
	out, err := invoke(t, codeRunTool(fakeDeps(client)), string(args))
	if err != nil {
		t.Fatalf("code_run: %v", err)
	}
	if !out.(RunOut).Success {
		t.Errorf("unexpected result: %+v", out)
	}

	if runDir == "" {
		t.Fatal("client never saw a project dir")
	}
	if _, err := os.Stat(runDir); !os.IsNotExist(err) {
		t.Errorf("temporary directory %s not removed", runDir)
	}
}

func TestCodeRunCleansUpOnSubmitFailure(t *testing.T) {
	var runDir string
	client := &fakeClient{
		run: func(ctx context.Context, opts bauplan.RunOptions) (*bauplan.RunState, error) {
			runDir = opts.ProjectDir
			return nil, &bauplan.APIError{StatusCode: 500, Message: "submission exploded"}
		},
	}

	args, _ := json.Marshal(map[string]any{
		"project_files": map[string]string{
			"bauplan_project.yml": "project:\n  id: demo\n",
			"model.sql":           "SELECT 1\n",
		},
		"ref": "jdoe.dev",
	})
	_, err := invoke(t, codeRunTool(fakeDeps(client)), string(args))
	if err == nil {
		t.Fatal("expected submit failure to surface")
	}
	if runDir == "" {
		t.Fatal("client never saw a project dir")
	}
	if _, statErr := os.Stat(runDir); !os.IsNotExist(statErr) {
		t.Errorf("temporary directory %s not removed after failure", runDir)
	}
}

func TestCodeRunRejectsBadFileSetBeforeRemoteCall(t *testing.T) {
	called := false
	client := &fakeClient{
		run: func(ctx context.Context, opts bauplan.RunOptions) (*bauplan.RunState, error) {
			called = true
			return &bauplan.RunState{}, nil
		},
	}

	cases := []map[string]string{
		{"models.py": "x"},                                // no config
		{"bauplan_project.yml": "x", "readme.md": "docs"}, // bad extension
	}
	for _, files := range cases {
		args, _ := json.Marshal(map[string]any{"project_files": files, "ref": "jdoe.dev"})
		if _, err := invoke(t, codeRunTool(fakeDeps(client)), string(args)); err == nil {
			t.Errorf("file set %v accepted", files)
		}
	}
	if called {
		t.Error("invalid file set reached the client")
	}
}

func TestMaterializeProjectRejectsEscapingNames(t *testing.T) {
	for _, name := range []string{"../evil.py", "/abs/path.py"} {
		files := map[string]string{name: "x"}
		dir, err := materializeProject(files, testCallContext())
		if err == nil {
			os.RemoveAll(dir)
			t.Errorf("file name %q accepted", name)
		}
	}
}
