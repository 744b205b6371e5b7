package githubtool

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Harshh1705/GitHub-Obsidian-MCP/internal/registry"
)

const issuePageSize = 30

type issueDetails struct {
	Number    int    `json:"number"`
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	State     string `json:"state"`
	URL       string `json:"html_url"`
	Author    string `json:"author,omitempty"`
	Body      string `json:"body,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func issuePayload(iss *github.Issue) issueDetails {
	details := issueDetails{
		Number: iss.GetNumber(),
		ID:     iss.GetID(),
		Title:  iss.GetTitle(),
		State:  iss.GetState(),
		URL:    iss.GetHTMLURL(),
		Author: iss.GetUser().GetLogin(),
		Body:   iss.GetBody(),
	}
	if iss.CreatedAt != nil {
		details.CreatedAt = iss.GetCreatedAt().Format(time.RFC3339)
	}
	if iss.UpdatedAt != nil {
		details.UpdatedAt = iss.GetUpdatedAt().Format(time.RFC3339)
	}
	return details
}

func createIssueTool() *mcp.Tool {
	props := repoSchema()
	props["title"] = map[string]any{
		"type":        "string",
		"description": "Issue title",
	}
	props["body"] = map[string]any{
		"type":        "string",
		"description": "Optional issue body in Markdown",
	}
	props["labels"] = map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": "Optional labels to apply",
	}
	return &mcp.Tool{
		Name:        "create_issue",
		Description: "Create a new issue on a repository.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   []string{"owner", "repo", "title"},
		},
	}
}

type createIssueArgs struct {
	repoArgs
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels"`
}

func (s *Server) createIssue(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createIssueArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if res := args.validate(); res != nil {
		return res, nil
	}
	if args.Title == "" {
		return registry.Failure("title is required"), nil
	}

	issueReq := &github.IssueRequest{Title: github.String(args.Title)}
	if args.Body != "" {
		issueReq.Body = github.String(args.Body)
	}
	if len(args.Labels) > 0 {
		issueReq.Labels = &args.Labels
	}

	iss, _, err := s.client.Issues.Create(ctx, args.Owner, args.Repo, issueReq)
	if err != nil {
		return apiFailure("create issue", err), nil
	}
	log.Printf("[github] created issue %s/%s#%d", args.Owner, args.Repo, iss.GetNumber())
	return registry.JSON(issuePayload(iss)), nil
}

func getIssueTool() *mcp.Tool {
	props := repoSchema()
	props["number"] = map[string]any{
		"type":        "integer",
		"description": "Issue number",
	}
	return &mcp.Tool{
		Name:        "get_issue",
		Description: "Retrieve a single issue by number.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   []string{"owner", "repo", "number"},
		},
	}
}

type issueNumberArgs struct {
	repoArgs
	Number int `json:"number"`
}

func (s *Server) getIssue(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args issueNumberArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if res := args.validate(); res != nil {
		return res, nil
	}
	if args.Number <= 0 {
		return registry.Failure("number must be a positive issue number"), nil
	}

	iss, _, err := s.client.Issues.Get(ctx, args.Owner, args.Repo, args.Number)
	if err != nil {
		return apiFailure("get issue", err), nil
	}
	return registry.JSON(issuePayload(iss)), nil
}

func updateIssueTool() *mcp.Tool {
	props := repoSchema()
	props["number"] = map[string]any{
		"type":        "integer",
		"description": "Issue number",
	}
	props["title"] = map[string]any{
		"type":        "string",
		"description": "New title (unchanged when omitted)",
	}
	props["body"] = map[string]any{
		"type":        "string",
		"description": "New body (unchanged when omitted)",
	}
	props["state"] = map[string]any{
		"type":        "string",
		"enum":        []string{"open", "closed"},
		"description": "New state (unchanged when omitted)",
	}
	return &mcp.Tool{
		Name:        "update_issue",
		Description: "Update an issue's title, body, or state.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   []string{"owner", "repo", "number"},
		},
	}
}

type updateIssueArgs struct {
	repoArgs
	Number int     `json:"number"`
	Title  *string `json:"title"`
	Body   *string `json:"body"`
	State  *string `json:"state"`
}

func (s *Server) updateIssue(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args updateIssueArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if res := args.validate(); res != nil {
		return res, nil
	}
	if args.Number <= 0 {
		return registry.Failure("number must be a positive issue number"), nil
	}
	if args.Title == nil && args.Body == nil && args.State == nil {
		return registry.Failure("nothing to update: provide title, body, or state"), nil
	}
	if args.State != nil && *args.State != "open" && *args.State != "closed" {
		return registry.Failure("state must be \"open\" or \"closed\""), nil
	}

	iss, _, err := s.client.Issues.Edit(ctx, args.Owner, args.Repo, args.Number, &github.IssueRequest{
		Title: args.Title,
		Body:  args.Body,
		State: args.State,
	})
	if err != nil {
		return apiFailure("update issue", err), nil
	}
	log.Printf("[github] updated issue %s/%s#%d", args.Owner, args.Repo, args.Number)
	return registry.JSON(issuePayload(iss)), nil
}

func listIssuesTool() *mcp.Tool {
	props := repoSchema()
	props["state"] = map[string]any{
		"type":        "string",
		"enum":        []string{"open", "closed", "all"},
		"description": "Filter by state, defaults to \"open\"",
	}
	return &mcp.Tool{
		Name:        "list_issues",
		Description: "List issues on a repository. An empty list is a successful result.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   []string{"owner", "repo"},
		},
	}
}

type listIssuesArgs struct {
	repoArgs
	State string `json:"state"`
}

func (s *Server) listIssues(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listIssuesArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if res := args.validate(); res != nil {
		return res, nil
	}
	state := args.State
	if state == "" {
		state = "open"
	}
	if state != "open" && state != "closed" && state != "all" {
		return registry.Failure("state must be \"open\", \"closed\", or \"all\""), nil
	}

	issues, _, err := s.client.Issues.ListByRepo(ctx, args.Owner, args.Repo, &github.IssueListByRepoOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: issuePageSize},
	})
	if err != nil {
		return apiFailure("list issues", err), nil
	}

	payload := make([]issueDetails, 0, len(issues))
	for _, iss := range issues {
		if iss.IsPullRequest() {
			continue
		}
		payload = append(payload, issuePayload(iss))
	}
	return registry.JSON(map[string]any{
		"state":  state,
		"count":  len(payload),
		"issues": payload,
	}), nil
}
