package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// gitSubcommands is the allowlist of git subcommands the LLM may run.
// Anything touching remotes destructively (push --force, remote set-url)
// stays out.
var gitSubcommands = map[string]bool{
	"status":   true,
	"log":      true,
	"diff":     true,
	"show":     true,
	"branch":   true,
	"checkout": true,
	"switch":   true,
	"add":      true,
	"commit":   true,
	"stash":    true,
	"pull":     true,
	"fetch":    true,
	"blame":    true,
}

const maxGitOutputChars = 16000

// GitTool runs a restricted set of git subcommands in the workspace.
type GitTool struct {
	workspaceDir string
	timeout      time.Duration
}

func NewGitTool(workspaceDir string, timeoutSecs int) *GitTool {
	if timeoutSecs <= 0 {
		timeoutSecs = 60
	}
	return &GitTool{
		workspaceDir: workspaceDir,
		timeout:      time.Duration(timeoutSecs) * time.Second,
	}
}

func (t *GitTool) Name() string { return "git" }

func (t *GitTool) Description() string {
	return "Run git in the workspace repository. Allowed subcommands: status, log, diff, show, branch, checkout, switch, add, commit, stash, pull, fetch, blame."
}

func (t *GitTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"subcommand": {
				"type": "string",
				"description": "The git subcommand, e.g. 'status' or 'log'"
			},
			"args": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Additional arguments, e.g. [\"--oneline\", \"-n\", \"10\"]"
			}
		},
		"required": ["subcommand"]
	}`)
}

func (t *GitTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Subcommand string   `json:"subcommand"`
		Args       []string `json:"args"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return Errorf("invalid arguments: %v", err), nil
	}

	sub := strings.TrimSpace(params.Subcommand)
	if !gitSubcommands[sub] {
		return Errorf("git subcommand not allowed: %s", sub), nil
	}
	for _, a := range params.Args {
		if strings.HasPrefix(a, "--force") || a == "-f" || strings.HasPrefix(a, "--upload-pack") || strings.HasPrefix(a, "--exec") {
			return Errorf("git argument not allowed: %s", a), nil
		}
	}
	if t.workspaceDir == "" {
		return Errorf("workspace directory not configured"), nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmdArgs := append([]string{"--no-pager", sub}, params.Args...)
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	cmd.Dir = t.workspaceDir
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Errorf("git %s: %s", sub, msg), nil
	}

	out := stdout.String()
	if out == "" {
		out = fmt.Sprintf("git %s completed with no output", sub)
	}
	if len(out) > maxGitOutputChars {
		out = out[:maxGitOutputChars] + "\n... (truncated)"
	}
	return Text(out), nil
}
