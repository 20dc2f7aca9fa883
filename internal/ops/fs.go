package ops

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const maxReadBytes = 256 * 1024

// resolveScoped joins rel onto the workspace root and rejects any result
// that escapes it. Symlinks are resolved before the containment check so
// a link inside the root cannot reach outside it.
func resolveScoped(root, rel string) (string, error) {
	if root == "" {
		return "", invalidParams("no workspace root configured")
	}
	if rel == "" {
		return "", invalidParams("empty path")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	absRoot, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	joined := filepath.Clean(filepath.Join(absRoot, rel))
	resolved, err := resolveSymlinks(joined)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", rel, err)
	}
	relCheck, err := filepath.Rel(absRoot, resolved)
	if err != nil || relCheck == ".." || strings.HasPrefix(relCheck, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes workspace root", ErrPermissionScope, rel)
	}
	return resolved, nil
}

// resolveSymlinks follows links in the longest existing prefix of path
// and rejoins the missing remainder, so targets that do not exist yet
// still resolve.
func resolveSymlinks(path string) (string, error) {
	suffix := ""
	for p := path; ; p = filepath.Dir(p) {
		r, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(r, suffix), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		if filepath.Dir(p) == p {
			return "", err
		}
		suffix = filepath.Join(filepath.Base(p), suffix)
	}
}

// CreateFileOperation writes a new file inside the workspace root. An
// existing target fails with ErrAlreadyExists unless overwrite=true.
func CreateFileOperation() *Operation {
	return &Operation{
		Name:        "create_file",
		Description: "Create a file with the given content inside the workspace",
		Category:    CategoryFilesystem,
		Required:    []string{"path"},
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			path, err := resolveScoped(env.Agent.WorkspaceRoot, params["path"])
			if err != nil {
				return "", err
			}
			if params["overwrite"] != "true" {
				if _, err := os.Stat(path); err == nil {
					return "", fmt.Errorf("%w: %s", ErrAlreadyExists, params["path"])
				}
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return "", fmt.Errorf("failed to create parent directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(params["content"]), 0o644); err != nil {
				return "", fmt.Errorf("failed to write file: %w", err)
			}
			return fmt.Sprintf("created %s (%d bytes)", params["path"], len(params["content"])), nil
		},
	}
}

// ReadFileOperation returns a file's content, truncated past maxReadBytes.
func ReadFileOperation() *Operation {
	return &Operation{
		Name:        "read_file",
		Description: "Read a file inside the workspace",
		Category:    CategoryFilesystem,
		Required:    []string{"path"},
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			path, err := resolveScoped(env.Agent.WorkspaceRoot, params["path"])
			if err != nil {
				return "", err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					return "", fmt.Errorf("%w: %s", ErrNotFound, params["path"])
				}
				return "", fmt.Errorf("failed to read file: %w", err)
			}
			if len(data) > maxReadBytes {
				return string(data[:maxReadBytes]) + "\n...[truncated]", nil
			}
			return string(data), nil
		},
	}
}

// ListDirOperation lists one directory level. Path defaults to the
// workspace root itself.
func ListDirOperation() *Operation {
	return &Operation{
		Name:        "list_dir",
		Description: "List the entries of a workspace directory",
		Category:    CategoryFilesystem,
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			rel := params["path"]
			if rel == "" {
				rel = "."
			}
			path, err := resolveScoped(env.Agent.WorkspaceRoot, rel)
			if err != nil {
				return "", err
			}
			entries, err := os.ReadDir(path)
			if err != nil {
				if os.IsNotExist(err) {
					return "", fmt.Errorf("%w: %s", ErrNotFound, rel)
				}
				return "", fmt.Errorf("failed to list directory: %w", err)
			}
			var b strings.Builder
			for _, e := range entries {
				if e.IsDir() {
					fmt.Fprintf(&b, "%s/\n", e.Name())
				} else {
					fmt.Fprintf(&b, "%s\n", e.Name())
				}
			}
			if b.Len() == 0 {
				return "(empty)", nil
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

// FindFilesOperation walks the workspace and matches file base names
// against a glob pattern.
func FindFilesOperation() *Operation {
	return &Operation{
		Name:        "find_files",
		Description: "Find files under the workspace by name pattern",
		Category:    CategoryFilesystem,
		Required:    []string{"pattern"},
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			root, err := resolveScoped(env.Agent.WorkspaceRoot, ".")
			if err != nil {
				return "", err
			}
			pattern := params["pattern"]
			if _, err := filepath.Match(pattern, ""); err != nil {
				return "", invalidParams("bad pattern %q: %v", pattern, err)
			}
			var matches []string
			walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil // skip unreadable entries
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if d.IsDir() {
					return nil
				}
				ok, _ := filepath.Match(pattern, d.Name())
				if ok {
					rel, _ := filepath.Rel(root, path)
					matches = append(matches, rel)
				}
				return nil
			})
			if walkErr != nil {
				return "", fmt.Errorf("failed to walk workspace: %w", walkErr)
			}
			if len(matches) == 0 {
				return fmt.Sprintf("no files matching %q", pattern), nil
			}
			sort.Strings(matches)
			return strings.Join(matches, "\n"), nil
		},
	}
}
