package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BauplanLabs/bauplan-mcp-server/internal/bauplan"
	"github.com/BauplanLabs/bauplan-mcp-server/internal/mcp"
)

// AuthorInfo identifies a commit author.
type AuthorInfo struct {
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// CommitInfo is one commit entry.
type CommitInfo struct {
	Hash         string     `json:"hash"`
	Message      string     `json:"message"`
	Author       AuthorInfo `json:"author"`
	AuthoredDate string     `json:"authored_date"`
	ParentHashes []string   `json:"parent_hashes"`
}

// CommitsOut is the get_commits response.
type CommitsOut struct {
	Commits    []CommitInfo `json:"commits"`
	TotalCount int          `json:"total_count"`
}

func getCommitsTool(deps Deps) mcp.Tool {
	return mcp.Tool{
		Name:        "get_commits",
		Description: "Retrieve commit history for a specified branch in the user's Bauplan data catalog as a list, with optional filters including date range (ISO format: YYYY-MM-DD) and limit.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {
			"ref": {"type": "string", "description": "Branch or commit hash to get commits from"},
			"message_filter": {"type": "string", "description": "Optional filter for commit messages (substring match)"},
			"author_username": {"type": "string", "description": "Optional filter by author's username"},
			"author_email": {"type": "string", "description": "Optional filter by author's email"},
			"date_start": {"type": "string", "description": "Optional start date (ISO format: YYYY-MM-DD)"},
			"date_end": {"type": "string", "description": "Optional end date (ISO format: YYYY-MM-DD)"},
			"limit": {"type": "integer", "description": "Maximum number of commits to return (default 10)"},
			"api_key": {"type": "string", "description": "Optional Bauplan API key for this call"}
		}, "required": ["ref"]}`),
		Handler: func(ctx context.Context, call *mcp.CallContext) (any, error) {
			var args struct {
				Ref            string `json:"ref"`
				MessageFilter  string `json:"message_filter"`
				AuthorUsername string `json:"author_username"`
				AuthorEmail    string `json:"author_email"`
				DateStart      string `json:"date_start"`
				DateEnd        string `json:"date_end"`
				Limit          int    `json:"limit"`
				APIKey         string `json:"api_key"`
			}
			if err := call.Bind(&args); err != nil {
				return nil, failf("get commits", err)
			}
			if args.Limit <= 0 {
				args.Limit = 10
			}

			filter := bauplan.CommitsFilter{
				MessageFilter:  args.MessageFilter,
				AuthorUsername: args.AuthorUsername,
				AuthorEmail:    args.AuthorEmail,
				Limit:          args.Limit,
			}
			if args.DateStart != "" {
				start, err := time.Parse("2006-01-02", args.DateStart)
				if err != nil {
					return nil, failf("get commits", fmt.Errorf("invalid date_start %q: %w", args.DateStart, err))
				}
				filter.DateStart = &start
			}
			if args.DateEnd != "" {
				end, err := time.Parse("2006-01-02", args.DateEnd)
				if err != nil {
					return nil, failf("get commits", fmt.Errorf("invalid date_end %q: %w", args.DateEnd, err))
				}
				filter.DateEnd = &end
			}

			client, err := deps.Resolve(args.APIKey)
			if err != nil {
				return nil, failf("get commits", err)
			}

			commits, err := client.GetCommits(ctx, args.Ref, filter)
			if err != nil {
				return nil, failf("get commits", err)
			}

			out := make([]CommitInfo, 0, len(commits))
			for _, c := range commits {
				out = append(out, CommitInfo{
					Hash:    c.Ref,
					Message: c.Message,
					Author: AuthorInfo{
						Username: c.Author.Username,
						Name:     c.Author.Name,
						Email:    c.Author.Email,
					},
					AuthoredDate: c.AuthoredDate,
					ParentHashes: c.ParentRefs,
				})
				if len(out) >= args.Limit {
					break
				}
			}
			return CommitsOut{Commits: out, TotalCount: len(out)}, nil
		},
	}
}
