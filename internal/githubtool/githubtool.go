// Package githubtool exposes a fixed set of GitHub REST operations as MCP
// tools. Each handler performs exactly one API call and shapes the response;
// GitHub's own error payloads are passed through to the client.
package githubtool

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/oauth2"

	"github.com/Harshh1705/GitHub-Obsidian-MCP/internal/config"
	"github.com/Harshh1705/GitHub-Obsidian-MCP/internal/registry"
)

// Server holds the authenticated GitHub client shared by every handler.
type Server struct {
	client *github.Client

	// downloader fetches raw file content from download URLs when the
	// contents API returns no inline payload.
	downloader *http.Client
}

// New builds a Server from process configuration. The token is required; a
// missing token is a startup error, not a per-call one.
func New(cfg config.GitHubConfig) (*Server, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	if cfg.BaseURL != "" {
		enterprise, err := client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("configure github base url: %w", err)
		}
		client = enterprise
	}

	return &Server{
		client:     client,
		downloader: &http.Client{Timeout: time.Duration(cfg.DownloadTimeout) * time.Second},
	}, nil
}

// Attach registers every GitHub tool on the registry.
func (s *Server) Attach(reg *registry.Registry) error {
	tools := []struct {
		tool    *mcp.Tool
		handler mcp.ToolHandler
	}{
		{lastMergedPRTool(), s.getLastMergedPR},
		{repoContentsTool(), s.getRepoContents},
		{fileContentsTool(), s.getFileContents},
		{createIssueTool(), s.createIssue},
		{getIssueTool(), s.getIssue},
		{updateIssueTool(), s.updateIssue},
		{listIssuesTool(), s.listIssues},
		{createPullRequestTool(), s.createPullRequest},
		{getPullRequestTool(), s.getPullRequest},
		{searchCodeTool(), s.searchCode},
	}
	for _, entry := range tools {
		if err := reg.Register(entry.tool, entry.handler); err != nil {
			return fmt.Errorf("attach github tools: %w", err)
		}
	}
	return nil
}

// repoSchema is the shared owner/repo fragment of every tool schema.
func repoSchema() map[string]any {
	return map[string]any{
		"owner": map[string]any{
			"type":        "string",
			"description": "Owner (user or organization) of the repository",
		},
		"repo": map[string]any{
			"type":        "string",
			"description": "Name of the repository",
		},
	}
}
