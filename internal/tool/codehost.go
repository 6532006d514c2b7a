package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"taskforge/internal/config"
)

// CodeHostTool is the code-host wrapper: pull requests and repository
// file reads.
type CodeHostTool struct {
	svc *serviceClient
}

func NewCodeHostTool(cfg config.ServiceConfig, tokens TokenSource) *CodeHostTool {
	return &CodeHostTool{svc: newServiceClient(cfg, tokens)}
}

func (t *CodeHostTool) Name() string { return "code_host" }

func (t *CodeHostTool) Description() string {
	return "Interact with the code host. Actions: 'list_prs' for a repo, 'create_pr' (repo, title, body, head, base), 'get_file' from a repo at an optional ref."
}

func (t *CodeHostTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"enum": ["list_prs", "create_pr", "get_file"],
				"description": "The code host operation"
			},
			"repo": {"type": "string", "description": "Repository slug, e.g. 'team/service'"},
			"title": {"type": "string", "description": "PR title, for 'create_pr'"},
			"body": {"type": "string", "description": "PR description, for 'create_pr'"},
			"head": {"type": "string", "description": "Source branch, for 'create_pr'"},
			"base": {"type": "string", "description": "Target branch, for 'create_pr'"},
			"path": {"type": "string", "description": "File path, for 'get_file'"},
			"ref": {"type": "string", "description": "Branch or commit, for 'get_file'"}
		},
		"required": ["action", "repo"]
	}`)
}

func (t *CodeHostTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Action string `json:"action"`
		Repo   string `json:"repo"`
		Title  string `json:"title"`
		Body   string `json:"body"`
		Head   string `json:"head"`
		Base   string `json:"base"`
		Path   string `json:"path"`
		Ref    string `json:"ref"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return Errorf("invalid arguments: %v", err), nil
	}
	if params.Repo == "" {
		return Errorf("repo is required"), nil
	}

	repoPath := "/repos/" + params.Repo

	switch params.Action {
	case "list_prs":
		out, err := t.svc.doJSON(ctx, http.MethodGet, repoPath+"/pulls", nil, nil)
		if err != nil {
			return Errorf("list PRs: %v", err), nil
		}
		return Text(out), nil
	case "create_pr":
		if params.Title == "" || params.Head == "" || params.Base == "" {
			return Errorf("title, head and base are required"), nil
		}
		out, err := t.svc.doJSON(ctx, http.MethodPost, repoPath+"/pulls", nil, map[string]string{
			"title": params.Title,
			"body":  params.Body,
			"head":  params.Head,
			"base":  params.Base,
		})
		if err != nil {
			return Errorf("create PR: %v", err), nil
		}
		return Text(out), nil
	case "get_file":
		if params.Path == "" {
			return Errorf("path is required"), nil
		}
		q := url.Values{}
		if params.Ref != "" {
			q.Set("ref", params.Ref)
		}
		out, err := t.svc.doJSON(ctx, http.MethodGet, repoPath+"/contents/"+params.Path, q, nil)
		if err != nil {
			return Errorf("get file: %v", err), nil
		}
		return Text(out), nil
	default:
		return Errorf("unknown action: %s", params.Action), nil
	}
}
