package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// TagInfo is one tag entry in the get_tags listing.
type TagInfo struct {
	Name string `json:"name"`
	Hash string `json:"hash,omitempty"`
}

// TagsOut is the get_tags response.
type TagsOut struct {
	Tags       []TagInfo `json:"tags"`
	TotalCount int       `json:"total_count"`
}

// TagCreated is the create_tag response.
type TagCreated struct {
	Tag     string `json:"tag"`
	FromRef string `json:"from_ref"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TagExists is the has_tag response.
type TagExists struct {
	Tag    string `json:"tag"`
	Exists bool   `json:"exists"`
}

// TagDeleted is the delete_tag response.
type TagDeleted struct {
	Tag     string `json:"tag"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func getTagsTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "get_tags",
		Description: "List tags in the user's Bauplan data catalog, optionally filtered by name, up to a limit (default 10).",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"filter_by_name": {"type": "string", "description": "Optional substring filter on tag names"},
			"limit": {"type": "integer", "description": "Maximum number of tags to return, default 10"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": []}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				FilterByName string `json:"filter_by_name"`
				Limit        int    `json:"limit"`
				APIKey       string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("get tags", err)
			}
			if args.Limit <= 0 {
				args.Limit = 10
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("get tags", err)
			}

			tags, err := client.GetTags(ctx, args.FilterByName, args.Limit)
			if err != nil {
				return nil, failf("get tags", err)
			}

			out := TagsOut{Tags: make([]TagInfo, 0, len(tags))}
			for _, t := range tags {
				if len(out.Tags) >= args.Limit {
					break
				}
				out.Tags = append(out.Tags, TagInfo{Name: t.Name, Hash: t.Hash})
			}
			out.TotalCount = len(out.Tags)
			return out, nil
		},
	}
}

func createTagTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "create_tag",
		Description: "Create a tag pointing at a ref in the user's Bauplan data catalog.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"tag": {"type": "string", "description": "Name of the tag to create"},
			"from_ref": {"type": "string", "description": "Ref the tag should point at"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["tag", "from_ref"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Tag     string `json:"tag"`
				FromRef string `json:"from_ref"`
				APIKey  string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("create tag", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("create tag", err)
			}

			call.Info("Creating tag %q at %q", args.Tag, args.FromRef)

			if err := client.CreateTag(ctx, args.Tag, args.FromRef); err != nil {
				return nil, failf(fmt.Sprintf("create tag %s", args.Tag), err)
			}
			return TagCreated{
				Tag:     args.Tag,
				FromRef: args.FromRef,
				Success: true,
				Message: fmt.Sprintf("Tag %s created at %s", args.Tag, args.FromRef),
			}, nil
		},
	}
}

func hasTagTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "has_tag",
		Description: "Check if a tag exists in the user's Bauplan data catalog.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"tag": {"type": "string", "description": "Name of the tag to check"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["tag"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Tag    string `json:"tag"`
				APIKey string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("check tag", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("check tag", err)
			}

			exists, err := client.HasTag(ctx, args.Tag)
			if err != nil {
				return nil, failf(fmt.Sprintf("check tag %s", args.Tag), err)
			}
			return TagExists{Tag: args.Tag, Exists: exists}, nil
		},
	}
}

func deleteTagTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "delete_tag",
		Description: "Delete a tag from the user's Bauplan data catalog.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"tag": {"type": "string", "description": "Name of the tag to delete"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["tag"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Tag    string `json:"tag"`
				APIKey string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("delete tag", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("delete tag", err)
			}

			call.Info("Deleting tag %q", args.Tag)

			if err := client.DeleteTag(ctx, args.Tag); err != nil {
				return nil, failf(fmt.Sprintf("delete tag %s", args.Tag), err)
			}
			return TagDeleted{
				Tag:     args.Tag,
				Success: true,
				Message: fmt.Sprintf("Tag %s deleted", args.Tag),
			}, nil
		},
	}
}
