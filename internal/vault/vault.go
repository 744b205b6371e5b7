// Package vault exposes an Obsidian-style note directory over MCP tools.
// Every path a client supplies is relative to the vault root and is checked
// to stay inside it before any read or write.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	noteExt          = ".md"
	maxNoteBytes     = 1 << 20 // 1 MiB
	maxSearchResults = 100
)

// ErrOutsideVault is returned when a requested path escapes the vault root.
var ErrOutsideVault = errors.New("path escapes the vault root")

// Vault is a note directory rooted at a single absolute path.
type Vault struct {
	root string
}

// Open validates the vault root and returns a Vault. The root must exist and
// be a directory at startup; a missing root is a configuration error, not
// something to discover one call at a time.
func Open(root string) (*Vault, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, fmt.Errorf("vault root is empty")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("vault root %s: %w", abs, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", resolved)
	}
	return &Vault{root: resolved}, nil
}

// Root returns the resolved absolute vault root.
func (v *Vault) Root() string {
	return v.root
}

// resolve joins a client-supplied relative path to the root and enforces the
// containment check: the cleaned result must be a descendant of the root, and
// no component along the relative path may be a symlink (a link could point
// anywhere on the host).
func (v *Vault) resolve(rel string) (string, error) {
	trimmed := strings.TrimSpace(rel)
	if trimmed == "" {
		return "", fmt.Errorf("note path is empty")
	}
	if filepath.IsAbs(trimmed) {
		return "", fmt.Errorf("%w: %s (paths must be relative to the vault)", ErrOutsideVault, rel)
	}
	abs := filepath.Clean(filepath.Join(v.root, filepath.FromSlash(trimmed)))
	if !within(abs, v.root) {
		return "", fmt.Errorf("%w: %s", ErrOutsideVault, rel)
	}
	if err := v.ensureNoSymlink(abs); err != nil {
		return "", err
	}
	return abs, nil
}

func within(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}

// ensureNoSymlink lstats every component between the root and abs and rejects
// symlinks. Missing components are fine; they only occur on writes that will
// create them.
func (v *Vault) ensureNoSymlink(abs string) error {
	rel, err := filepath.Rel(v.root, abs)
	if err != nil {
		return fmt.Errorf("relativize %s: %w", abs, err)
	}
	current := v.root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "" || part == "." {
			continue
		}
		current = filepath.Join(current, part)
		info, err := os.Lstat(current)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("lstat %s: %w", current, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s is a symlink", ErrOutsideVault, filepath.ToSlash(filepath.Join(filepath.Dir(rel), part)))
		}
	}
	return nil
}

// relPath converts an absolute in-vault path back to the slash-form relative
// path clients use.
func (v *Vault) relPath(abs string) string {
	rel, err := filepath.Rel(v.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

func isNote(path string) bool {
	return strings.EqualFold(filepath.Ext(path), noteExt)
}

// ReadNote returns the content of an existing markdown note.
func (v *Vault) ReadNote(rel string) (string, error) {
	abs, err := v.resolve(rel)
	if err != nil {
		return "", err
	}
	if !isNote(abs) {
		return "", fmt.Errorf("not a markdown note: %s", rel)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("note not found or could not be read: %s", rel)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("not a regular file: %s", rel)
	}
	if info.Size() > maxNoteBytes {
		return "", fmt.Errorf("note exceeds %d bytes limit: %s", maxNoteBytes, rel)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read note: %w", err)
	}
	return string(data), nil
}

// WriteNote creates or overwrites a note, adding the .md extension when the
// caller left it off and creating parent directories as needed. It returns
// the relative path actually written.
func (v *Vault) WriteNote(rel, content string) (string, error) {
	trimmed := strings.TrimSpace(rel)
	if trimmed != "" && !isNote(trimmed) {
		trimmed += noteExt
	}
	abs, err := v.resolve(trimmed)
	if err != nil {
		return "", err
	}
	if int64(len(content)) > maxNoteBytes {
		return "", fmt.Errorf("content exceeds %d bytes limit", maxNoteBytes)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("ensure directory: %w", err)
	}
	if err := writeAtomic(abs, []byte(content)); err != nil {
		return "", err
	}
	return v.relPath(abs), nil
}

// AppendNote appends content to an existing note, inserting a newline
// separator when the current content does not end with one. The rewrite is
// atomic, so a failure leaves the note in its prior state.
func (v *Vault) AppendNote(rel, content string) error {
	abs, err := v.resolve(rel)
	if err != nil {
		return err
	}
	if !isNote(abs) {
		return fmt.Errorf("not a markdown note: %s", rel)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("note not found or is not a file (cannot append): %s", rel)
	}
	existing, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read note: %w", err)
	}
	combined := make([]byte, 0, len(existing)+len(content)+1)
	combined = append(combined, existing...)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		combined = append(combined, '\n')
	}
	combined = append(combined, content...)
	if int64(len(combined)) > maxNoteBytes {
		return fmt.Errorf("note would exceed %d bytes limit: %s", maxNoteBytes, rel)
	}
	return writeAtomic(abs, combined)
}

// writeAtomic writes data to a temp file in the destination directory and
// renames it over the target, so a crash mid-write cannot leave a truncated
// note behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".note-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write note: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace note: %w", err)
	}
	return nil
}

// ListNotes returns the relative paths of all markdown notes under folder
// (the whole vault when folder is empty), sorted. Symlinked entries are
// skipped so traversal cannot wander outside the root.
func (v *Vault) ListNotes(folder string) ([]string, error) {
	start := v.root
	if strings.TrimSpace(folder) != "" {
		abs, err := v.resolve(folder)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("folder not found: %s", folder)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("not a folder: %s", folder)
		}
		start = abs
	}

	notes := []string{}
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != start {
				return filepath.SkipDir
			}
			return nil
		}
		if isNote(path) {
			notes = append(notes, v.relPath(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	sort.Strings(notes)
	return notes, nil
}

// Match is a single search hit: a note path, a 1-based line number, and the
// matching line.
type Match struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// SearchNotes scans every note for a case-insensitive substring match and
// returns up to maxSearchResults hits.
func (v *Vault) SearchNotes(query string) ([]Match, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, fmt.Errorf("query is empty")
	}
	notes, err := v.ListNotes("")
	if err != nil {
		return nil, err
	}

	matches := []Match{}
	for _, rel := range notes {
		if len(matches) >= maxSearchResults {
			break
		}
		content, err := v.ReadNote(rel)
		if err != nil {
			continue
		}
		for i, line := range strings.Split(content, "\n") {
			if strings.Contains(strings.ToLower(line), needle) {
				matches = append(matches, Match{Path: rel, Line: i + 1, Text: line})
				if len(matches) >= maxSearchResults {
					break
				}
			}
		}
	}
	return matches, nil
}
