package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// NamespaceCreated is the create_namespace response.
type NamespaceCreated struct {
	Namespace string `json:"namespace"`
	Branch    string `json:"branch"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// NamespaceExists is the has_namespace response.
type NamespaceExists struct {
	Namespace string `json:"namespace"`
	Branch    string `json:"branch"`
	Exists    bool   `json:"exists"`
}

// NamespaceDeleted is the delete_namespace response.
type NamespaceDeleted struct {
	Namespace string `json:"namespace"`
	Branch    string `json:"branch"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

func createNamespaceTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "create_namespace",
		Description: "Create a new namespace on a branch of the user's Bauplan data catalog.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"namespace": {"type": "string", "description": "Name of the namespace to create"},
			"branch": {"type": "string", "description": "Branch to create the namespace on"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["namespace", "branch"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Namespace string `json:"namespace"`
				Branch    string `json:"branch"`
				APIKey    string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("create namespace", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("create namespace", err)
			}

			call.Info("Creating namespace %q on branch %q", args.Namespace, args.Branch)

			if err := client.CreateNamespace(ctx, args.Namespace, args.Branch); err != nil {
				return nil, failf(fmt.Sprintf("create namespace %s", args.Namespace), err)
			}
			return NamespaceCreated{
				Namespace: args.Namespace,
				Branch:    args.Branch,
				Success:   true,
				Message:   fmt.Sprintf("Namespace %s created on %s", args.Namespace, args.Branch),
			}, nil
		},
	}
}

func hasNamespaceTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "has_namespace",
		Description: "Check if a namespace exists on a branch of the user's Bauplan data catalog.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"namespace": {"type": "string", "description": "Name of the namespace to check"},
			"branch": {"type": "string", "description": "Branch to check the namespace on"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["namespace", "branch"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Namespace string `json:"namespace"`
				Branch    string `json:"branch"`
				APIKey    string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("check namespace", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("check namespace", err)
			}

			exists, err := client.HasNamespace(ctx, args.Namespace, args.Branch)
			if err != nil {
				return nil, failf(fmt.Sprintf("check namespace %s", args.Namespace), err)
			}
			return NamespaceExists{Namespace: args.Namespace, Branch: args.Branch, Exists: exists}, nil
		},
	}
}

func deleteNamespaceTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "delete_namespace",
		Description: "Delete a namespace from a branch of the user's Bauplan data catalog.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"namespace": {"type": "string", "description": "Name of the namespace to delete"},
			"branch": {"type": "string", "description": "Branch to delete the namespace from"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["namespace", "branch"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Namespace string `json:"namespace"`
				Branch    string `json:"branch"`
				APIKey    string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("delete namespace", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("delete namespace", err)
			}

			call.Info("Deleting namespace %q from branch %q", args.Namespace, args.Branch)

			if err := client.DeleteNamespace(ctx, args.Namespace, args.Branch); err != nil {
				return nil, failf(fmt.Sprintf("delete namespace %s", args.Namespace), err)
			}
			return NamespaceDeleted{
				Namespace: args.Namespace,
				Branch:    args.Branch,
				Success:   true,
				Message:   fmt.Sprintf("Namespace %s deleted from %s", args.Namespace, args.Branch),
			}, nil
		},
	}
}
