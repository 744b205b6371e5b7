package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Harshh1705/GitHub-Obsidian-MCP/internal/registry"
)

// Server exposes a Vault as MCP tools.
type Server struct {
	vault *Vault
}

// NewServer wraps an opened vault.
func NewServer(v *Vault) *Server {
	return &Server{vault: v}
}

// Attach registers every vault tool on the registry.
func (s *Server) Attach(reg *registry.Registry) error {
	tools := []struct {
		tool    *mcp.Tool
		handler mcp.ToolHandler
	}{
		{
			tool: &mcp.Tool{
				Name:        "get_obsidian_note",
				Description: "Retrieve the content of a markdown note from the Obsidian vault by its relative path.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"note_path": map[string]any{
							"type":        "string",
							"description": "Relative path of the note within the vault, e.g. \"Meetings/Project Sync.md\"",
						},
					},
					"required": []string{"note_path"},
				},
			},
			handler: s.getNote,
		},
		{
			tool: &mcp.Tool{
				Name:        "create_obsidian_note",
				Description: "Create a new note (or overwrite an existing one) in the Obsidian vault. Missing folders are created and the .md extension is added when absent.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"relative_path": map[string]any{
							"type":        "string",
							"description": "Desired relative path for the note, e.g. \"Daily/2025-06-07\"",
						},
						"content": map[string]any{
							"type":        "string",
							"description": "Markdown content for the note",
						},
					},
					"required": []string{"relative_path", "content"},
				},
			},
			handler: s.createNote,
		},
		{
			tool: &mcp.Tool{
				Name:        "append_obsidian_note",
				Description: "Append content to an existing note in the Obsidian vault. Fails if the note does not exist. A newline separator is inserted when needed.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"note_path": map[string]any{
							"type":        "string",
							"description": "Relative path of the existing note",
						},
						"content_to_append": map[string]any{
							"type":        "string",
							"description": "Markdown content to append at the end of the note",
						},
					},
					"required": []string{"note_path", "content_to_append"},
				},
			},
			handler: s.appendNote,
		},
		{
			tool: &mcp.Tool{
				Name:        "list_obsidian_notes",
				Description: "List the relative paths of all markdown notes in the vault, optionally under a single folder.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"folder": map[string]any{
							"type":        "string",
							"description": "Optional folder (relative to the vault root) to list; defaults to the whole vault",
						},
					},
				},
			},
			handler: s.listNotes,
		},
		{
			tool: &mcp.Tool{
				Name:        "search_obsidian_notes",
				Description: "Search every markdown note for a case-insensitive substring and return matching lines.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "Text to search for",
						},
					},
					"required": []string{"query"},
				},
			},
			handler: s.searchNotes,
		},
	}

	for _, entry := range tools {
		if err := reg.Register(entry.tool, entry.handler); err != nil {
			return fmt.Errorf("attach vault tools: %w", err)
		}
	}
	return nil
}

type getNoteArgs struct {
	NotePath string `json:"note_path"`
}

func (s *Server) getNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args getNoteArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if args.NotePath == "" {
		return registry.Failure("note_path is required"), nil
	}

	content, err := s.vault.ReadNote(args.NotePath)
	if err != nil {
		return failure(err), nil
	}
	return registry.JSON(map[string]string{
		"path":    args.NotePath,
		"content": content,
	}), nil
}

type createNoteArgs struct {
	RelativePath string `json:"relative_path"`
	Content      string `json:"content"`
}

func (s *Server) createNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createNoteArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if args.RelativePath == "" {
		return registry.Failure("relative_path is required"), nil
	}

	written, err := s.vault.WriteNote(args.RelativePath, args.Content)
	if err != nil {
		return failure(err), nil
	}
	log.Printf("[vault] wrote note %s (%d bytes)", written, len(args.Content))
	return registry.JSON(map[string]string{
		"message": "Note created/updated successfully.",
		"path":    written,
	}), nil
}

type appendNoteArgs struct {
	NotePath string `json:"note_path"`
	Content  string `json:"content_to_append"`
}

func (s *Server) appendNote(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args appendNoteArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}
	if args.NotePath == "" {
		return registry.Failure("note_path is required"), nil
	}

	if err := s.vault.AppendNote(args.NotePath, args.Content); err != nil {
		return failure(err), nil
	}
	log.Printf("[vault] appended %d bytes to %s", len(args.Content), args.NotePath)
	return registry.JSON(map[string]string{
		"message": fmt.Sprintf("Content appended to %q successfully.", args.NotePath),
	}), nil
}

type listNotesArgs struct {
	Folder string `json:"folder"`
}

func (s *Server) listNotes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listNotesArgs
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return registry.Failure("invalid arguments: %v", err), nil
		}
	}

	notes, err := s.vault.ListNotes(args.Folder)
	if err != nil {
		return failure(err), nil
	}
	return registry.JSON(map[string]any{
		"folder": args.Folder,
		"count":  len(notes),
		"notes":  notes,
	}), nil
}

type searchNotesArgs struct {
	Query string `json:"query"`
}

func (s *Server) searchNotes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchNotesArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return registry.Failure("invalid arguments: %v", err), nil
	}

	matches, err := s.vault.SearchNotes(args.Query)
	if err != nil {
		return failure(err), nil
	}
	return registry.JSON(map[string]any{
		"query":   args.Query,
		"count":   len(matches),
		"matches": matches,
	}), nil
}

func failure(err error) *mcp.CallToolResult {
	if errors.Is(err, ErrOutsideVault) {
		return registry.Failure("access denied: %v", err)
	}
	return registry.Failure("%v", err)
}
