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

// recentClosedPRWindow bounds how many closed PRs are inspected when looking
// for the most recently merged one.
const recentClosedPRWindow = 10

const bodySummaryLimit = 200

func lastMergedPRTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_github_last_merged_pr",
		Description: "Retrieve details of the most recently merged pull request for a repository.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": repoSchema(),
			"required":   []string{"owner", "repo"},
		},
	}
}

type repoArgs struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func (a repoArgs) validate() *mcp.CallToolResult {
	if a.Owner == "" || a.Repo == "" {
		return registry.Failure("owner and repo are required")
	}
	return nil
}

type mergedPRDetails struct {
	Number        int    `json:"number"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	MergedAt      string `json:"merged_at"`
	MergedBy      string `json:"merged_by,omitempty"`
	Author        string `json:"author,omitempty"`
	BodySummary   string `json:"body_summary"`
	HeadCommitSHA string `json:"head_commit_sha"`
	BaseBranch    string `json:"base_branch"`
}

func (s *Server) getLastMergedPR(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args repoArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if res := args.validate(); res != nil {
		return res, nil
	}

	prs, _, err := s.client.PullRequests.List(ctx, args.Owner, args.Repo, &github.PullRequestListOptions{
		State:       "closed",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: recentClosedPRWindow},
	})
	if err != nil {
		return apiFailure("list pull requests", err), nil
	}

	for _, pr := range prs {
		if pr.MergedAt == nil {
			continue
		}
		return registry.JSON(mergedPRDetails{
			Number:        pr.GetNumber(),
			Title:         pr.GetTitle(),
			URL:           pr.GetHTMLURL(),
			MergedAt:      pr.GetMergedAt().Format(time.RFC3339),
			MergedBy:      pr.GetMergedBy().GetLogin(),
			Author:        pr.GetUser().GetLogin(),
			BodySummary:   summarize(pr.GetBody()),
			HeadCommitSHA: pr.GetHead().GetSHA(),
			BaseBranch:    pr.GetBase().GetRef(),
		}), nil
	}

	log.Printf("[github] no merged PR in the last %d closed for %s/%s", recentClosedPRWindow, args.Owner, args.Repo)
	return registry.JSON(map[string]string{
		"message": "No recently merged PRs found for " + args.Owner + "/" + args.Repo + ".",
	}), nil
}

// summarize truncates a PR body to bodySummaryLimit characters.
func summarize(body string) string {
	runes := []rune(body)
	if len(runes) <= bodySummaryLimit {
		return body
	}
	return string(runes[:bodySummaryLimit]) + "..."
}

func getPullRequestTool() *mcp.Tool {
	props := repoSchema()
	props["number"] = map[string]any{
		"type":        "integer",
		"description": "Pull request number",
	}
	return &mcp.Tool{
		Name:        "get_pull_request",
		Description: "Retrieve a single pull request by number.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   []string{"owner", "repo", "number"},
		},
	}
}

type pullRequestArgs struct {
	repoArgs
	Number int `json:"number"`
}

type pullRequestDetails struct {
	Number     int    `json:"number"`
	Title      string `json:"title"`
	State      string `json:"state"`
	URL        string `json:"html_url"`
	Author     string `json:"author,omitempty"`
	Body       string `json:"body,omitempty"`
	Merged     bool   `json:"merged"`
	MergedAt   string `json:"merged_at,omitempty"`
	HeadSHA    string `json:"head_commit_sha,omitempty"`
	BaseBranch string `json:"base_branch,omitempty"`
}

func pullRequestPayload(pr *github.PullRequest) pullRequestDetails {
	details := pullRequestDetails{
		Number:     pr.GetNumber(),
		Title:      pr.GetTitle(),
		State:      pr.GetState(),
		URL:        pr.GetHTMLURL(),
		Author:     pr.GetUser().GetLogin(),
		Body:       pr.GetBody(),
		Merged:     pr.GetMerged(),
		HeadSHA:    pr.GetHead().GetSHA(),
		BaseBranch: pr.GetBase().GetRef(),
	}
	if pr.MergedAt != nil {
		details.MergedAt = pr.GetMergedAt().Format(time.RFC3339)
	}
	return details
}

func (s *Server) getPullRequest(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args pullRequestArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if res := args.validate(); res != nil {
		return res, nil
	}
	if args.Number <= 0 {
		return registry.Failure("number must be a positive pull request number"), nil
	}

	pr, _, err := s.client.PullRequests.Get(ctx, args.Owner, args.Repo, args.Number)
	if err != nil {
		return apiFailure("get pull request", err), nil
	}
	return registry.JSON(pullRequestPayload(pr)), nil
}

func createPullRequestTool() *mcp.Tool {
	props := repoSchema()
	props["title"] = map[string]any{
		"type":        "string",
		"description": "Pull request title",
	}
	props["head"] = map[string]any{
		"type":        "string",
		"description": "Branch with the changes, e.g. \"feature/login\" or \"user:branch\"",
	}
	props["base"] = map[string]any{
		"type":        "string",
		"description": "Branch to merge into, e.g. \"main\"",
	}
	props["body"] = map[string]any{
		"type":        "string",
		"description": "Optional pull request description",
	}
	return &mcp.Tool{
		Name:        "create_pull_request",
		Description: "Open a new pull request on a repository.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   []string{"owner", "repo", "title", "head", "base"},
		},
	}
}

type createPullRequestArgs struct {
	repoArgs
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body"`
}

func (s *Server) createPullRequest(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createPullRequestArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if res := args.validate(); res != nil {
		return res, nil
	}
	if args.Title == "" || args.Head == "" || args.Base == "" {
		return registry.Failure("title, head and base are required"), nil
	}

	newPR := &github.NewPullRequest{
		Title: github.String(args.Title),
		Head:  github.String(args.Head),
		Base:  github.String(args.Base),
	}
	if args.Body != "" {
		newPR.Body = github.String(args.Body)
	}

	pr, _, err := s.client.PullRequests.Create(ctx, args.Owner, args.Repo, newPR)
	if err != nil {
		return apiFailure("create pull request", err), nil
	}
	log.Printf("[github] created PR %s/%s#%d", args.Owner, args.Repo, pr.GetNumber())
	return registry.JSON(pullRequestPayload(pr)), nil
}
