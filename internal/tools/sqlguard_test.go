package tools

import (
	"strings"
	"testing"
)

func TestCheckReadOnlyQueryAccepts(t *testing.T) {
	queries := []string{
		"SELECT * FROM orders",
		"select id, total from orders where total > 10",
		"  \n\tSELECT 1",
		"WITH t AS (SELECT 1 AS x) SELECT x FROM t",
		"with recent as (select * from orders) select count(*) from recent",
		"-- preamble comment\nSELECT * FROM orders",
		"/* leading\nblock */ SELECT * FROM orders",
		"SELECT * FROM orders -- trailing note",
	}
	for _, q := range queries {
		if err := checkReadOnlyQuery(q); err != nil {
			t.Errorf("query %q rejected: %v", q, err)
		}
	}
}

func TestCheckReadOnlyQueryRejectsNonSelect(t *testing.T) {
	queries := []string{
		"",
		"   ",
		"SHOW TABLES",
		"EXPLAIN SELECT 1",
		"-- only a comment",
		"/* only a block comment */",
	}
	for _, q := range queries {
		if err := checkReadOnlyQuery(q); err == nil {
			t.Errorf("query %q accepted", q)
		}
	}
}

func TestCheckReadOnlyQueryRejectsEveryDeniedKeyword(t *testing.T) {
	for _, kw := range deniedKeywords {
		q := "SELECT * FROM t WHERE c = '" + kw + "'"
		err := checkReadOnlyQuery(q)
		if err == nil {
			t.Errorf("keyword %s not rejected", kw)
			continue
		}
		if !strings.Contains(err.Error(), "forbidden keyword") {
			t.Errorf("keyword %s: unexpected error %v", kw, err)
		}
	}
}

func TestCheckReadOnlyQueryKeywordInsideIdentifier(t *testing.T) {
	// Substring matching is deliberately over-inclusive.
	if err := checkReadOnlyQuery("SELECT * FROM updates"); err == nil {
		t.Error("identifier containing UPDATE should be rejected")
	}
	if err := checkReadOnlyQuery("SELECT last_execution FROM t"); err == nil {
		t.Error("column containing EXEC should be rejected")
	}
}

func TestCheckReadOnlyQueryCommentedKeywordStillRejected(t *testing.T) {
	// The SELECT prefix check runs on the comment-stripped text, but a
	// mutation smuggled after a comment is still caught.
	q := "SELECT 1; -- harmless\nDROP TABLE orders"
	if err := checkReadOnlyQuery(q); err == nil {
		t.Error("piggybacked DROP accepted")
	}
}

func TestCheckReadOnlyQueryStripsCommentsBeforeMatching(t *testing.T) {
	// Comments are stripped before the keyword scan, so a denied word
	// that only appears inside a comment does not block the query.
	q := "/* notes: never DELETE here */ SELECT 1"
	if err := checkReadOnlyQuery(q); err != nil {
		t.Errorf("keyword inside stripped comment rejected: %v", err)
	}
}
