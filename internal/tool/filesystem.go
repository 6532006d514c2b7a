package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const maxFileReadBytes = 512 * 1024

// FilesystemTool provides file operations sandboxed to a workspace directory.
type FilesystemTool struct {
	workspaceDir string
}

func NewFilesystemTool(workspaceDir string) *FilesystemTool {
	return &FilesystemTool{workspaceDir: workspaceDir}
}

func (t *FilesystemTool) Name() string { return "filesystem" }

func (t *FilesystemTool) Description() string {
	return "Work with files in the workspace directory. Actions: 'read' a file, 'write' (create/overwrite) a file, 'append' to a file, 'list' a directory, 'delete' a file."
}

func (t *FilesystemTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"enum": ["read", "write", "append", "list", "delete"],
				"description": "The file operation to perform"
			},
			"path": {
				"type": "string",
				"description": "Relative path within the workspace"
			},
			"content": {
				"type": "string",
				"description": "Content for 'write' and 'append'"
			}
		},
		"required": ["action", "path"]
	}`)
}

func (t *FilesystemTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Action  string `json:"action"`
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return Errorf("invalid arguments: %v", err), nil
	}

	fullPath, err := t.resolve(params.Path)
	if err != nil {
		return Errorf("%v", err), nil
	}

	switch params.Action {
	case "read":
		data, err := os.ReadFile(fullPath)
		if err != nil {
			return Errorf("read %s: %v", params.Path, err), nil
		}
		if len(data) > maxFileReadBytes {
			data = data[:maxFileReadBytes]
		}
		return Text(string(data)), nil
	case "write", "append":
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return Errorf("create parent dirs: %v", err), nil
		}
		flags := os.O_CREATE | os.O_WRONLY
		if params.Action == "append" {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(fullPath, flags, 0644)
		if err != nil {
			return Errorf("open %s: %v", params.Path, err), nil
		}
		defer f.Close()
		if _, err := f.WriteString(params.Content); err != nil {
			return Errorf("write %s: %v", params.Path, err), nil
		}
		return Text(fmt.Sprintf("%s: %d bytes written", params.Path, len(params.Content))), nil
	case "list":
		entries, err := os.ReadDir(fullPath)
		if err != nil {
			return Errorf("list %s: %v", params.Path, err), nil
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		sort.Strings(names)
		return Text(strings.Join(names, "\n")), nil
	case "delete":
		if err := os.Remove(fullPath); err != nil {
			return Errorf("delete %s: %v", params.Path, err), nil
		}
		return Text(params.Path + ": deleted"), nil
	default:
		return Errorf("unknown action: %s", params.Action), nil
	}
}

// resolve joins the relative path onto the workspace and rejects escapes.
func (t *FilesystemTool) resolve(relPath string) (string, error) {
	if t.workspaceDir == "" {
		return "", fmt.Errorf("workspace directory not configured")
	}

	fullPath := filepath.Join(t.workspaceDir, filepath.Clean("/"+relPath))

	absWorkspace, err := filepath.Abs(t.workspaceDir)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", err
	}
	if absPath != absWorkspace && !strings.HasPrefix(absPath, absWorkspace+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", relPath)
	}
	return fullPath, nil
}
