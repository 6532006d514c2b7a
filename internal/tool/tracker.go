package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"taskforge/internal/config"
)

// TrackerTool is the issue-tracker wrapper: create, fetch, search and
// comment on issues through the tracker's REST API.
type TrackerTool struct {
	svc *serviceClient
}

func NewTrackerTool(cfg config.ServiceConfig, tokens TokenSource) *TrackerTool {
	return &TrackerTool{svc: newServiceClient(cfg, tokens)}
}

func (t *TrackerTool) Name() string { return "tracker" }

func (t *TrackerTool) Description() string {
	return "Interact with the issue tracker. Actions: 'create' an issue (title, description, project), 'get' an issue by key, 'search' issues by query, 'comment' on an issue."
}

func (t *TrackerTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"enum": ["create", "get", "search", "comment"],
				"description": "The tracker operation"
			},
			"key": {"type": "string", "description": "Issue key, for 'get' and 'comment'"},
			"title": {"type": "string", "description": "Issue title, for 'create'"},
			"description": {"type": "string", "description": "Issue body, for 'create'"},
			"project": {"type": "string", "description": "Project key, for 'create'"},
			"query": {"type": "string", "description": "Search text, for 'search'"},
			"body": {"type": "string", "description": "Comment text, for 'comment'"}
		},
		"required": ["action"]
	}`)
}

func (t *TrackerTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Action      string `json:"action"`
		Key         string `json:"key"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Project     string `json:"project"`
		Query       string `json:"query"`
		Body        string `json:"body"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return Errorf("invalid arguments: %v", err), nil
	}

	switch params.Action {
	case "create":
		if params.Title == "" {
			return Errorf("title is required"), nil
		}
		out, err := t.svc.doJSON(ctx, http.MethodPost, "/issues", nil, map[string]string{
			"title":       params.Title,
			"description": params.Description,
			"project":     params.Project,
		})
		if err != nil {
			return Errorf("create issue: %v", err), nil
		}
		return Text(out), nil
	case "get":
		if params.Key == "" {
			return Errorf("key is required"), nil
		}
		out, err := t.svc.doJSON(ctx, http.MethodGet, "/issues/"+url.PathEscape(params.Key), nil, nil)
		if err != nil {
			return Errorf("get issue: %v", err), nil
		}
		return Text(out), nil
	case "search":
		if params.Query == "" {
			return Errorf("query is required"), nil
		}
		q := url.Values{"query": {params.Query}}
		out, err := t.svc.doJSON(ctx, http.MethodGet, "/issues", q, nil)
		if err != nil {
			return Errorf("search issues: %v", err), nil
		}
		return Text(out), nil
	case "comment":
		if params.Key == "" || params.Body == "" {
			return Errorf("key and body are required"), nil
		}
		out, err := t.svc.doJSON(ctx, http.MethodPost, "/issues/"+url.PathEscape(params.Key)+"/comments", nil, map[string]string{
			"body": params.Body,
		})
		if err != nil {
			return Errorf("comment: %v", err), nil
		}
		return Text(out), nil
	default:
		return Errorf("unknown action: %s", params.Action), nil
	}
}
