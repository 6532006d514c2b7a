package skill

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"taskforge/internal/tool"
)

// Tools exposes the store to agents as skill_save, skill_read and
// skill_list registry entries.
func Tools(store *Store) []tool.Tool {
	saveSchema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Skill name, e.g. 'release-checklist'"},
			"content": {"type": "string", "description": "The document to remember"}
		},
		"required": ["name", "content"]
	}`)
	readSchema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Skill name to read"}
		},
		"required": ["name"]
	}`)

	save := tool.NewFunc("skill_save", "Save a named text document for later runs. Overwrites an existing document with the same name.", saveSchema,
		func(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
			var in struct {
				Name    string `json:"name"`
				Content string `json:"content"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			if err := store.Save(ctx, in.Name, in.Content); err != nil {
				return nil, err
			}
			return tool.Text(fmt.Sprintf("saved skill %q (%d bytes)", in.Name, len(in.Content))), nil
		})

	read := tool.NewFunc("skill_read", "Read a previously saved document by name.", readSchema,
		func(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
			var in struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, err
			}
			content, err := store.Read(ctx, in.Name)
			if err != nil {
				return tool.Errorf("%v", err), nil
			}
			return tool.Text(content), nil
		})

	list := tool.NewFunc("skill_list", "List the names of all saved documents.", nil,
		func(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
			infos, err := store.List(ctx)
			if err != nil {
				return nil, err
			}
			if len(infos) == 0 {
				return tool.Text("no skills saved yet"), nil
			}
			var sb strings.Builder
			for _, info := range infos {
				fmt.Fprintf(&sb, "%s (updated %s)\n", info.Name, info.UpdatedAt.Format("2006-01-02"))
			}
			return tool.Text(sb.String()), nil
		})

	return []tool.Tool{save, read, list}
}
