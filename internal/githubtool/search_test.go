package githubtool

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestSearchCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/code", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if !strings.Contains(q, "repo:octo/demo") {
			t.Errorf("query %q should be scoped to the repository", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"total_count": 1,
			"incomplete_results": false,
			"items": [
				{"name": "server.go", "path": "internal/server.go", "sha": "s1",
				 "html_url": "h1", "repository": {"full_name": "octo/demo"}}
			]
		}`))
	})

	session, cleanup := newGitHubSession(t, mux)
	defer cleanup()

	res := callTool(t, session, "search_code", map[string]any{
		"query": "ListenAndServe", "owner": "octo", "repo": "demo",
	})
	if res.IsError {
		t.Fatalf("unexpected failure: %s", resultText(res))
	}
	var result struct {
		Total   int         `json:"total"`
		Count   int         `json:"count"`
		Matches []codeMatch `json:"matches"`
	}
	if err := json.Unmarshal([]byte(resultText(res)), &result); err != nil {
		t.Fatal(err)
	}
	if result.Total != 1 || result.Count != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Matches[0].Path != "internal/server.go" || result.Matches[0].Repository != "octo/demo" {
		t.Errorf("match = %+v", result.Matches[0])
	}
}

func TestSearchCodeEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/code", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total_count": 0, "incomplete_results": false, "items": []}`))
	})

	session, cleanup := newGitHubSession(t, mux)
	defer cleanup()

	res := callTool(t, session, "search_code", map[string]any{
		"query": "nothing matches this",
	})
	if res.IsError {
		t.Fatalf("an empty search result is a success, got failure: %s", resultText(res))
	}
	var result struct {
		Count   int         `json:"count"`
		Matches []codeMatch `json:"matches"`
	}
	if err := json.Unmarshal([]byte(resultText(res)), &result); err != nil {
		t.Fatal(err)
	}
	if result.Count != 0 || len(result.Matches) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestSearchCodeValidation(t *testing.T) {
	session, cleanup := newGitHubSession(t, http.NotFoundHandler())
	defer cleanup()

	res := callTool(t, session, "search_code", map[string]any{
		"query": "",
	})
	if !res.IsError {
		t.Fatal("expected a failure for an empty query")
	}

	res = callTool(t, session, "search_code", map[string]any{
		"query": "x", "repo": "demo",
	})
	if !res.IsError {
		t.Fatal("expected a failure for repo without owner")
	}
}
