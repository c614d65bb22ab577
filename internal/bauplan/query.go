package bauplan

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// queryRequest is the wire form of an ad hoc query.
type queryRequest struct {
	Query     string `json:"query"`
	Ref       string `json:"ref,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// Query runs a SQL query and returns the decoded result set. The query
// string is forwarded verbatim; any read-only gating happens upstream.
func (c *Client) Query(ctx context.Context, query, ref, namespace string) (*QueryResult, error) {
	req := queryRequest{Query: query, Ref: ref, Namespace: namespace}
	var result QueryResult
	if err := c.post(ctx, "/v0/query", req, &result, 0); err != nil {
		return nil, err
	}
	return &result, nil
}

// QueryToCSVFile runs a SQL query and writes the result set to a local
// CSV file, header row first.
func (c *Client) QueryToCSVFile(ctx context.Context, path, query, ref, namespace string, timeoutSeconds int) error {
	req := queryRequest{Query: query, Ref: ref, Namespace: namespace}
	var result QueryResult
	if err := c.post(ctx, "/v0/query", req, &result, timeoutSeconds); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(result.ColumnNames); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(result.ColumnNames))
	for _, record := range result.Rows {
		for i, col := range result.ColumnNames {
			row[i] = formatCSVValue(record[col])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatCSVValue(v any) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprintf("%v", v)
	return strings.TrimSpace(s)
}
