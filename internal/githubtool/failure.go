package githubtool

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Harshh1705/GitHub-Obsidian-MCP/internal/registry"
)

// apiFailure converts an error from the GitHub client into a Failure result.
// GitHub's status and message are carried verbatim; auth rejections are
// called out so clients can tell a bad token from a missing resource.
func apiFailure(op string, err error) *mcp.CallToolResult {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return registry.Failure("github: %s: rate limit exceeded, resets at %s: %s",
			op, rateErr.Rate.Reset.Format(time.RFC3339), rateErr.Message)
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		status := 0
		if ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
		switch status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return registry.Failure("github: %s: authentication rejected (HTTP %d): %s", op, status, ghErr.Message)
		default:
			return registry.Failure("github: %s: HTTP %d: %s", op, status, ghErr.Message)
		}
	}

	return registry.Failure("github: %s: %v", op, err)
}
