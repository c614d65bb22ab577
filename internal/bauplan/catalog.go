package bauplan

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// MainBranch is the reserved production branch name.
const MainBranch = "main"

// GetTables lists the tables reachable from a ref, optionally restricted
// to one namespace.
func (c *Client) GetTables(ctx context.Context, ref, namespace string) ([]TableWithMetadata, error) {
	q := url.Values{}
	if namespace != "" {
		q.Set("namespace", namespace)
	}
	var out struct {
		Tables []TableWithMetadata `json:"tables"`
	}
	if err := c.get(ctx, "/v0/refs/"+url.PathEscape(ref)+"/tables", q, &out); err != nil {
		return nil, err
	}
	return out.Tables, nil
}

// GetTable returns one table with its schema.
func (c *Client) GetTable(ctx context.Context, ref, table, namespace string) (*TableWithMetadata, error) {
	q := url.Values{}
	if namespace != "" {
		q.Set("namespace", namespace)
	}
	var out TableWithMetadata
	if err := c.get(ctx, "/v0/refs/"+url.PathEscape(ref)+"/tables/"+url.PathEscape(table), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBranches lists branches, optionally filtered by name substring and user.
func (c *Client) GetBranches(ctx context.Context, name, user string, limit int) ([]Branch, error) {
	q := url.Values{}
	if name != "" {
		q.Set("name", name)
	}
	if user != "" {
		q.Set("user", user)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Branches []Branch `json:"branches"`
	}
	if err := c.get(ctx, "/v0/branches", q, &out); err != nil {
		return nil, err
	}
	return out.Branches, nil
}

// HasBranch reports whether a branch exists.
func (c *Client) HasBranch(ctx context.Context, branch string) (bool, error) {
	err := c.get(ctx, "/v0/branches/"+url.PathEscape(branch), nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateBranch creates a branch pointing at from_ref.
func (c *Client) CreateBranch(ctx context.Context, branch, fromRef string) (*Branch, error) {
	body := map[string]string{"branch": branch, "from_ref": fromRef}
	var out Branch
	if err := c.post(ctx, "/v0/branches", body, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBranch removes a branch pointer. The underlying commits survive.
func (c *Client) DeleteBranch(ctx context.Context, branch string) error {
	return c.delete(ctx, "/v0/branches/"+url.PathEscape(branch), nil)
}

// MergeBranch merges source_ref into into_branch.
func (c *Client) MergeBranch(ctx context.Context, sourceRef, intoBranch, commitMessage, commitBody string) error {
	body := map[string]string{
		"source_ref":  sourceRef,
		"into_branch": intoBranch,
	}
	if commitMessage != "" {
		body["commit_message"] = commitMessage
	}
	if commitBody != "" {
		body["commit_body"] = commitBody
	}
	return c.post(ctx, "/v0/merge", body, nil, 0)
}

// CommitsFilter narrows a GetCommits listing.
type CommitsFilter struct {
	MessageFilter  string
	AuthorUsername string
	AuthorEmail    string
	DateStart      *time.Time
	DateEnd        *time.Time
	Limit          int
}

// GetCommits returns the commit history reachable from a ref, newest first.
func (c *Client) GetCommits(ctx context.Context, ref string, filter CommitsFilter) ([]Commit, error) {
	q := url.Values{}
	if filter.MessageFilter != "" {
		q.Set("message", filter.MessageFilter)
	}
	if filter.AuthorUsername != "" {
		q.Set("author_username", filter.AuthorUsername)
	}
	if filter.AuthorEmail != "" {
		q.Set("author_email", filter.AuthorEmail)
	}
	if filter.DateStart != nil {
		q.Set("date_start", filter.DateStart.Format(time.RFC3339))
	}
	if filter.DateEnd != nil {
		q.Set("date_end", filter.DateEnd.Format(time.RFC3339))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	var out struct {
		Commits []Commit `json:"commits"`
	}
	if err := c.get(ctx, "/v0/refs/"+url.PathEscape(ref)+"/commits", q, &out); err != nil {
		return nil, err
	}
	return out.Commits, nil
}

// GetNamespaces lists namespaces reachable from a ref, optionally filtered
// by name substring.
func (c *Client) GetNamespaces(ctx context.Context, ref, filterByName string, limit int) ([]Namespace, error) {
	q := url.Values{}
	if filterByName != "" {
		q.Set("name", filterByName)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Namespaces []Namespace `json:"namespaces"`
	}
	if err := c.get(ctx, "/v0/refs/"+url.PathEscape(ref)+"/namespaces", q, &out); err != nil {
		return nil, err
	}
	return out.Namespaces, nil
}

// HasNamespace reports whether a namespace exists in a branch.
func (c *Client) HasNamespace(ctx context.Context, namespace, branch string) (bool, error) {
	err := c.get(ctx, "/v0/refs/"+url.PathEscape(branch)+"/namespaces/"+url.PathEscape(namespace), nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateNamespace creates a namespace in a branch.
func (c *Client) CreateNamespace(ctx context.Context, namespace, branch string) error {
	body := map[string]string{"namespace": namespace, "branch": branch}
	return c.post(ctx, "/v0/namespaces", body, nil, 0)
}

// DeleteNamespace removes a namespace from a branch.
func (c *Client) DeleteNamespace(ctx context.Context, namespace, branch string) error {
	q := url.Values{}
	q.Set("branch", branch)
	return c.delete(ctx, "/v0/namespaces/"+url.PathEscape(namespace), q)
}

// GetTags lists tags, optionally filtered by name substring.
func (c *Client) GetTags(ctx context.Context, filterByName string, limit int) ([]Tag, error) {
	q := url.Values{}
	if filterByName != "" {
		q.Set("name", filterByName)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Tags []Tag `json:"tags"`
	}
	if err := c.get(ctx, "/v0/tags", q, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

// HasTag reports whether a tag exists.
func (c *Client) HasTag(ctx context.Context, tag string) (bool, error) {
	err := c.get(ctx, "/v0/tags/"+url.PathEscape(tag), nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateTag labels from_ref with a tag.
func (c *Client) CreateTag(ctx context.Context, tag, fromRef string) error {
	body := map[string]string{"tag": tag, "from_ref": fromRef}
	return c.post(ctx, "/v0/tags", body, nil, 0)
}

// DeleteTag removes a tag.
func (c *Client) DeleteTag(ctx context.Context, tag string) error {
	return c.delete(ctx, "/v0/tags/"+url.PathEscape(tag), nil)
}

// DeleteTable drops a table from a branch.
func (c *Client) DeleteTable(ctx context.Context, table, branch string) error {
	q := url.Values{}
	q.Set("branch", branch)
	return c.delete(ctx, "/v0/tables/"+url.PathEscape(table), q)
}

// RevertTable restores a table in into_branch to its state at source_ref.
func (c *Client) RevertTable(ctx context.Context, table, sourceRef, intoBranch string, replace bool) error {
	body := map[string]any{
		"table":       table,
		"source_ref":  sourceRef,
		"into_branch": intoBranch,
		"replace":     replace,
	}
	return c.post(ctx, "/v0/tables/"+url.PathEscape(table)+"/revert", body, nil, 0)
}
