package githubtool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/go-github/v62/github"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Harshh1705/GitHub-Obsidian-MCP/internal/registry"
)

const searchPageSize = 30

func searchCodeTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_code",
		Description: "Search code on GitHub. When owner and repo are given the search is scoped to that repository. An empty result is a successful result.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search terms, using GitHub code search syntax",
				},
				"owner": map[string]any{
					"type":        "string",
					"description": "Optional repository owner to scope the search",
				},
				"repo": map[string]any{
					"type":        "string",
					"description": "Optional repository name to scope the search (requires owner)",
				},
			},
			"required": []string{"query"},
		},
	}
}

type searchCodeArgs struct {
	Query string `json:"query"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

type codeMatch struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	SHA        string `json:"sha"`
	HTMLURL    string `json:"html_url,omitempty"`
	Repository string `json:"repository,omitempty"`
}

func (s *Server) searchCode(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchCodeArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if args.Query == "" {
		return registry.Failure("query is required"), nil
	}
	if args.Repo != "" && args.Owner == "" {
		return registry.Failure("owner is required when repo is given"), nil
	}

	query := args.Query
	if args.Owner != "" && args.Repo != "" {
		query = fmt.Sprintf("%s repo:%s/%s", query, args.Owner, args.Repo)
	}

	result, _, err := s.client.Search.Code(ctx, query, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: searchPageSize},
	})
	if err != nil {
		return apiFailure("search code", err), nil
	}

	matches := make([]codeMatch, 0, len(result.CodeResults))
	for _, item := range result.CodeResults {
		matches = append(matches, codeMatch{
			Name:       item.GetName(),
			Path:       item.GetPath(),
			SHA:        item.GetSHA(),
			HTMLURL:    item.GetHTMLURL(),
			Repository: item.GetRepository().GetFullName(),
		})
	}
	return registry.JSON(map[string]any{
		"query":   query,
		"total":   result.GetTotal(),
		"count":   len(matches),
		"matches": matches,
	}), nil
}
