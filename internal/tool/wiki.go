package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"taskforge/internal/config"
)

// WikiTool is the wiki wrapper: create, fetch and search pages.
type WikiTool struct {
	svc *serviceClient
}

func NewWikiTool(cfg config.ServiceConfig, tokens TokenSource) *WikiTool {
	return &WikiTool{svc: newServiceClient(cfg, tokens)}
}

func (t *WikiTool) Name() string { return "wiki" }

func (t *WikiTool) Description() string {
	return "Interact with the team wiki. Actions: 'create' a page (title, content, space), 'get' a page by id, 'search' pages by query."
}

func (t *WikiTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"enum": ["create", "get", "search"],
				"description": "The wiki operation"
			},
			"id": {"type": "string", "description": "Page id, for 'get'"},
			"title": {"type": "string", "description": "Page title, for 'create'"},
			"content": {"type": "string", "description": "Page body, for 'create'"},
			"space": {"type": "string", "description": "Space key, for 'create'"},
			"query": {"type": "string", "description": "Search text, for 'search'"}
		},
		"required": ["action"]
	}`)
}

func (t *WikiTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var params struct {
		Action  string `json:"action"`
		ID      string `json:"id"`
		Title   string `json:"title"`
		Content string `json:"content"`
		Space   string `json:"space"`
		Query   string `json:"query"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return Errorf("invalid arguments: %v", err), nil
	}

	switch params.Action {
	case "create":
		if params.Title == "" {
			return Errorf("title is required"), nil
		}
		out, err := t.svc.doJSON(ctx, http.MethodPost, "/pages", nil, map[string]string{
			"title":   params.Title,
			"content": params.Content,
			"space":   params.Space,
		})
		if err != nil {
			return Errorf("create page: %v", err), nil
		}
		return Text(out), nil
	case "get":
		if params.ID == "" {
			return Errorf("id is required"), nil
		}
		out, err := t.svc.doJSON(ctx, http.MethodGet, "/pages/"+url.PathEscape(params.ID), nil, nil)
		if err != nil {
			return Errorf("get page: %v", err), nil
		}
		return Text(out), nil
	case "search":
		if params.Query == "" {
			return Errorf("query is required"), nil
		}
		q := url.Values{"query": {params.Query}}
		out, err := t.svc.doJSON(ctx, http.MethodGet, "/pages", q, nil)
		if err != nil {
			return Errorf("search pages: %v", err), nil
		}
		return Text(out), nil
	default:
		return Errorf("unknown action: %s", params.Action), nil
	}
}
