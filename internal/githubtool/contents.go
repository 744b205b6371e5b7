package githubtool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/go-github/v62/github"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Harshh1705/GitHub-Obsidian-MCP/internal/registry"
)

// maxRawDownloadBytes bounds the raw download fallback for files the
// contents API returns without inline content.
const maxRawDownloadBytes = 1 << 20 // 1 MiB

type contentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	Size        int    `json:"size"`
	SHA         string `json:"sha"`
	HTMLURL     string `json:"html_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

func contentEntryPayload(item *github.RepositoryContent) contentEntry {
	return contentEntry{
		Name:        item.GetName(),
		Path:        item.GetPath(),
		Type:        item.GetType(),
		Size:        item.GetSize(),
		SHA:         item.GetSHA(),
		HTMLURL:     item.GetHTMLURL(),
		DownloadURL: item.GetDownloadURL(),
	}
}

func repoContentsTool() *mcp.Tool {
	props := repoSchema()
	props["path"] = map[string]any{
		"type":        "string",
		"description": "Path within the repository to list; defaults to the root",
	}
	return &mcp.Tool{
		Name:        "get_repo_contents",
		Description: "List files and directories at a path within a repository. A file path returns that file's entry.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   []string{"owner", "repo"},
		},
	}
}

type contentsArgs struct {
	repoArgs
	Path string `json:"path"`
}

func (s *Server) getRepoContents(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args contentsArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if res := args.validate(); res != nil {
		return res, nil
	}

	fileContent, dirContent, _, err := s.client.Repositories.GetContents(ctx, args.Owner, args.Repo, args.Path, nil)
	if err != nil {
		return apiFailure("get repository contents", err), nil
	}

	if fileContent != nil {
		return registry.JSON([]contentEntry{contentEntryPayload(fileContent)}), nil
	}

	entries := make([]contentEntry, 0, len(dirContent))
	for _, item := range dirContent {
		entries = append(entries, contentEntryPayload(item))
	}
	return registry.JSON(entries), nil
}

func fileContentsTool() *mcp.Tool {
	props := repoSchema()
	props["path"] = map[string]any{
		"type":        "string",
		"description": "Full path of the file within the repository, e.g. \"src/main.go\"",
	}
	return &mcp.Tool{
		Name:        "get_file_contents",
		Description: "Retrieve the decoded content and metadata of a single file from a repository.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   []string{"owner", "repo", "path"},
		},
	}
}

type fileContents struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int    `json:"size"`
	Encoding    string `json:"encoding,omitempty"`
	Content     string `json:"content"`
	HTMLURL     string `json:"html_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

func (s *Server) getFileContents(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args contentsArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if res := args.validate(); res != nil {
		return res, nil
	}
	if args.Path == "" {
		return registry.Failure("path is required"), nil
	}

	fileContent, _, _, err := s.client.Repositories.GetContents(ctx, args.Owner, args.Repo, args.Path, nil)
	if err != nil {
		return apiFailure("get file contents", err), nil
	}
	if fileContent == nil {
		return registry.Failure("%s is a directory; use get_repo_contents to list it", args.Path), nil
	}

	decoded, err := fileContent.GetContent()
	if err != nil {
		return registry.Failure("decode content of %s: %v", args.Path, err), nil
	}
	// The contents API omits inline content for large files; fetch the raw
	// download URL instead.
	if decoded == "" && fileContent.GetSize() > 0 && fileContent.GetDownloadURL() != "" {
		decoded, err = s.downloadRaw(ctx, fileContent.GetDownloadURL())
		if err != nil {
			return registry.Failure("download content of %s: %v", args.Path, err), nil
		}
	}

	return registry.JSON(fileContents{
		Name:        fileContent.GetName(),
		Path:        fileContent.GetPath(),
		SHA:         fileContent.GetSHA(),
		Size:        fileContent.GetSize(),
		Encoding:    fileContent.GetEncoding(),
		Content:     decoded,
		HTMLURL:     fileContent.GetHTMLURL(),
		DownloadURL: fileContent.GetDownloadURL(),
	}), nil
}

func (s *Server) downloadRaw(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := s.downloader.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRawDownloadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read download: %w", err)
	}
	if len(data) > maxRawDownloadBytes {
		return "", fmt.Errorf("file exceeds %d bytes limit", maxRawDownloadBytes)
	}
	return string(data), nil
}
