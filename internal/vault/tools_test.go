package vault

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Harshh1705/GitHub-Obsidian-MCP/internal/registry"
)

func newToolSession(t *testing.T) (*Vault, *mcp.ClientSession, func()) {
	t.Helper()

	v := newVault(t)
	reg := registry.New("obsidian-mcp", "test")
	if err := NewServer(v).Attach(reg); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverCtx, serverCancel := context.WithCancel(context.Background())
	serverSession, err := reg.Server().Connect(serverCtx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect failed: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	clientSession, err := client.Connect(context.Background(), clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect failed: %v", err)
	}

	cleanup := func() {
		_ = clientSession.Close()
		_ = serverSession.Close()
		serverCancel()
	}
	return v, clientSession, cleanup
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool %s: %v", name, err)
	}
	return res
}

func resultText(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if txt, ok := c.(*mcp.TextContent); ok {
			return txt.Text
		}
	}
	return ""
}

func TestToolListing(t *testing.T) {
	_, session, cleanup := newToolSession(t)
	defer cleanup()

	want := map[string]bool{
		"get_obsidian_note":     false,
		"create_obsidian_note":  false,
		"append_obsidian_note":  false,
		"list_obsidian_notes":   false,
		"search_obsidian_notes": false,
	}
	for tool, err := range session.Tools(context.Background(), nil) {
		if err != nil {
			t.Fatalf("list tools: %v", err)
		}
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %s not listed", name)
		}
	}
}

func TestCreateThenGetNoteTool(t *testing.T) {
	_, session, cleanup := newToolSession(t)
	defer cleanup()

	content := "# Sync notes\n日本語テキスト\n"
	res := callTool(t, session, "create_obsidian_note", map[string]any{
		"relative_path": "Meetings/Project Sync",
		"content":       content,
	})
	if res.IsError {
		t.Fatalf("create failed: %s", resultText(res))
	}
	var created struct {
		Message string `json:"message"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal([]byte(resultText(res)), &created); err != nil {
		t.Fatalf("decode create result: %v", err)
	}
	if created.Path != "Meetings/Project Sync.md" {
		t.Errorf("created path = %q", created.Path)
	}

	res = callTool(t, session, "get_obsidian_note", map[string]any{
		"note_path": created.Path,
	})
	if res.IsError {
		t.Fatalf("get failed: %s", resultText(res))
	}
	var note struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(resultText(res)), &note); err != nil {
		t.Fatalf("decode get result: %v", err)
	}
	if note.Content != content {
		t.Errorf("content round trip mismatch: %q", note.Content)
	}
}

func TestGetNoteToolFailures(t *testing.T) {
	_, session, cleanup := newToolSession(t)
	defer cleanup()

	res := callTool(t, session, "get_obsidian_note", map[string]any{
		"note_path": "missing.md",
	})
	if !res.IsError {
		t.Fatal("expected a failure for a missing note")
	}

	res = callTool(t, session, "get_obsidian_note", map[string]any{
		"note_path": "../../etc/passwd",
	})
	if !res.IsError {
		t.Fatal("expected a failure for an escaping path")
	}
	if !strings.Contains(resultText(res), "access denied") {
		t.Errorf("failure text = %q", resultText(res))
	}

	res = callTool(t, session, "get_obsidian_note", map[string]any{
		"note_path": "",
	})
	if !res.IsError {
		t.Fatal("expected a failure for an empty path")
	}
}

func TestAppendNoteTool(t *testing.T) {
	_, session, cleanup := newToolSession(t)
	defer cleanup()

	callTool(t, session, "create_obsidian_note", map[string]any{
		"relative_path": "journal",
		"content":       "day one",
	})

	res := callTool(t, session, "append_obsidian_note", map[string]any{
		"note_path":         "journal.md",
		"content_to_append": "day two",
	})
	if res.IsError {
		t.Fatalf("append failed: %s", resultText(res))
	}

	res = callTool(t, session, "get_obsidian_note", map[string]any{
		"note_path": "journal.md",
	})
	var note struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(resultText(res)), &note); err != nil {
		t.Fatal(err)
	}
	if note.Content != "day one\nday two" {
		t.Errorf("content = %q", note.Content)
	}

	res = callTool(t, session, "append_obsidian_note", map[string]any{
		"note_path":         "never-created.md",
		"content_to_append": "x",
	})
	if !res.IsError {
		t.Fatal("expected a failure appending to a missing note")
	}
}

func TestListNotesTool(t *testing.T) {
	_, session, cleanup := newToolSession(t)
	defer cleanup()

	res := callTool(t, session, "list_obsidian_notes", map[string]any{})
	if res.IsError {
		t.Fatalf("list failed on empty vault: %s", resultText(res))
	}
	var listing struct {
		Count int      `json:"count"`
		Notes []string `json:"notes"`
	}
	if err := json.Unmarshal([]byte(resultText(res)), &listing); err != nil {
		t.Fatal(err)
	}
	if listing.Count != 0 || len(listing.Notes) != 0 {
		t.Errorf("empty vault listing = %+v", listing)
	}

	callTool(t, session, "create_obsidian_note", map[string]any{
		"relative_path": "a", "content": "x",
	})
	callTool(t, session, "create_obsidian_note", map[string]any{
		"relative_path": "sub/b", "content": "x",
	})

	res = callTool(t, session, "list_obsidian_notes", map[string]any{})
	if err := json.Unmarshal([]byte(resultText(res)), &listing); err != nil {
		t.Fatal(err)
	}
	if listing.Count != 2 {
		t.Errorf("listing = %+v, want 2 notes", listing)
	}

	res = callTool(t, session, "list_obsidian_notes", map[string]any{
		"folder": "../..",
	})
	if !res.IsError {
		t.Fatal("expected a failure for an escaping folder")
	}
}

func TestSearchNotesTool(t *testing.T) {
	_, session, cleanup := newToolSession(t)
	defer cleanup()

	callTool(t, session, "create_obsidian_note", map[string]any{
		"relative_path": "ideas",
		"content":       "build a birdhouse\npaint the fence\n",
	})

	res := callTool(t, session, "search_obsidian_notes", map[string]any{
		"query": "BIRDHOUSE",
	})
	if res.IsError {
		t.Fatalf("search failed: %s", resultText(res))
	}
	var result struct {
		Count   int     `json:"count"`
		Matches []Match `json:"matches"`
	}
	if err := json.Unmarshal([]byte(resultText(res)), &result); err != nil {
		t.Fatal(err)
	}
	if result.Count != 1 || len(result.Matches) != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Matches[0].Path != "ideas.md" || result.Matches[0].Line != 1 {
		t.Errorf("match = %+v", result.Matches[0])
	}

	res = callTool(t, session, "search_obsidian_notes", map[string]any{
		"query": " ",
	})
	if !res.IsError {
		t.Fatal("expected a failure for an empty query")
	}
}
