package tools

import (
	"context"
	"encoding/json"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// UserInfo is the get_user_info response.
type UserInfo struct {
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

func getUserInfoTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "get_user_info",
		Description: "Get the username and full name of the authenticated Bauplan user.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": []}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				APIKey string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("get user info", err)
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("get user info", err)
			}

			info, err := client.Info(ctx)
			if err != nil {
				return nil, failf("get user info", err)
			}
			return UserInfo{
				Username: info.User.Username,
				FullName: info.User.FullName,
			}, nil
		},
	}
}
