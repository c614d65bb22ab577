package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// BranchCreated is the create_branch response.
type BranchCreated struct {
	Name    string `json:"name"`
	Hash    string `json:"hash,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BranchExists is the has_branch response.
type BranchExists struct {
	Branch string `json:"branch"`
	Exists bool   `json:"exists"`
}

// BranchDeleted is the delete_branch response.
type BranchDeleted struct {
	Branch  string `json:"branch"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MergeResult is the merge_branch response.
type MergeResult struct {
	SourceRef  string `json:"source_ref"`
	IntoBranch string `json:"into_branch"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
}

func createBranchTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "create_branch",
		Description: "Create a new branch in the user's Bauplan data catalog from a specified ref.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"branch": {"type": "string", "description": "Name of the branch to create, format <username.name>"},
			"from_ref": {"type": "string", "description": "Ref or branch name to branch from"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["branch", "from_ref"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Branch  string `json:"branch"`
				FromRef string `json:"from_ref"`
				APIKey  string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("create branch", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("create branch", err)
			}

			call.Info("Creating branch %q from %q", args.Branch, args.FromRef)

			branch, err := client.CreateBranch(ctx, args.Branch, args.FromRef)
			if err != nil {
				return nil, failf(fmt.Sprintf("create branch %s", args.Branch), err)
			}

			return BranchCreated{
				Name:    branch.Name,
				Hash:    branch.Hash,
				Success: true,
				Message: fmt.Sprintf("Branch %s created from %s", branch.Name, args.FromRef),
			}, nil
		},
	}
}

func hasBranchTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "has_branch",
		Description: "Check if a branch exists in the user's Bauplan data catalog.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"branch": {"type": "string", "description": "Name of the branch to check"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["branch"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Branch string `json:"branch"`
				APIKey string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("check branch", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("check branch", err)
			}

			exists, err := client.HasBranch(ctx, args.Branch)
			if err != nil {
				return nil, failf(fmt.Sprintf("check branch %s", args.Branch), err)
			}
			return BranchExists{Branch: args.Branch, Exists: exists}, nil
		},
	}
}

func deleteBranchTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "delete_branch",
		Description: "Delete a branch from the user's Bauplan data catalog.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"branch": {"type": "string", "description": "Name of the branch to delete"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["branch"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Branch string `json:"branch"`
				APIKey string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("delete branch", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("delete branch", err)
			}

			call.Info("Deleting branch %q", args.Branch)

			if err := client.DeleteBranch(ctx, args.Branch); err != nil {
				return nil, failf(fmt.Sprintf("delete branch %s", args.Branch), err)
			}
			return BranchDeleted{
				Branch:  args.Branch,
				Success: true,
				Message: fmt.Sprintf("Branch %s deleted", args.Branch),
			}, nil
		},
	}
}

func mergeBranchTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "merge_branch",
		Description: "Merge a source ref into a target branch of the user's Bauplan data catalog, with optional commit message and body.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"source_ref": {"type": "string", "description": "Ref or branch name to merge from"},
			"into_branch": {"type": "string", "description": "Branch to merge into"},
			"commit_message": {"type": "string", "description": "Optional commit message"},
			"commit_body": {"type": "string", "description": "Optional commit body"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["source_ref", "into_branch"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				SourceRef     string `json:"source_ref"`
				IntoBranch    string `json:"into_branch"`
				CommitMessage string `json:"commit_message"`
				CommitBody    string `json:"commit_body"`
				APIKey        string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("merge branch", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("merge branch", err)
			}

			call.Info("Merging %q into %q", args.SourceRef, args.IntoBranch)

			if err := client.MergeBranch(ctx, args.SourceRef, args.IntoBranch, args.CommitMessage, args.CommitBody); err != nil {
				return nil, failf(fmt.Sprintf("merge %s into %s", args.SourceRef, args.IntoBranch), err)
			}
			return MergeResult{
				SourceRef:  args.SourceRef,
				IntoBranch: args.IntoBranch,
				Success:    true,
				Message:    fmt.Sprintf("Merged %s into %s", args.SourceRef, args.IntoBranch),
			}, nil
		},
	}
}
