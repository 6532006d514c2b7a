package skill

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"taskforge/internal/tool"
)

func newTestStore(t *testing.T) *Store {
	dbPath := filepath.Join(t.TempDir(), "skills.db")
	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveReadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "deploy-runbook", "1. build\n2. ship"); err != nil {
		t.Fatal(err)
	}
	content, err := store.Read(ctx, "deploy-runbook")
	if err != nil {
		t.Fatal(err)
	}
	if content != "1. build\n2. ship" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Save(ctx, "notes", "v1")
	store.Save(ctx, "notes", "v2")

	content, err := store.Read(ctx, "notes")
	if err != nil {
		t.Fatal(err)
	}
	if content != "v2" {
		t.Fatalf("expected latest content, got %q", content)
	}

	infos, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Fatalf("overwrite must not duplicate entries, got %d", len(infos))
	}
}

func TestReadMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Read(context.Background(), "ghost"); err == nil {
		t.Fatal("expected an error for a missing skill")
	}
}

func TestListSortedByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Save(ctx, "zeta", "z")
	store.Save(ctx, "alpha", "a")

	infos, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 || infos[0].Name != "alpha" || infos[1].Name != "zeta" {
		t.Fatalf("expected sorted catalog, got %+v", infos)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Save(ctx, "temp", "x")
	if err := store.Delete(ctx, "temp"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read(ctx, "temp"); err == nil {
		t.Fatal("expected the skill to be gone")
	}
	if err := store.Delete(ctx, "temp"); err != nil {
		t.Fatalf("deleting a missing skill must be a no-op, got %v", err)
	}
}

func TestToolsRegisterAndExecute(t *testing.T) {
	store := newTestStore(t)
	reg := tool.NewRegistry()
	for _, tl := range Tools(store) {
		reg.Register(tl)
	}
	ctx := context.Background()

	for _, name := range []string{"skill_save", "skill_read", "skill_list"} {
		if !reg.Has(name) {
			t.Fatalf("missing tool %s", name)
		}
	}

	if _, err := reg.Execute(ctx, "skill_save", json.RawMessage(`{"name":"greeting","content":"say hi"}`)); err != nil {
		t.Fatal(err)
	}

	res, err := reg.Execute(ctx, "skill_read", json.RawMessage(`{"name":"greeting"}`))
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "say hi" {
		t.Fatalf("unexpected read output %q", res.Output)
	}

	res, err = reg.Execute(ctx, "skill_list", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Output, "greeting") {
		t.Fatalf("list output missing skill: %q", res.Output)
	}

	// Reading a missing skill is a soft failure the agent can react to.
	res, err = reg.Execute(ctx, "skill_read", json.RawMessage(`{"name":"ghost"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatalf("expected an error-flagged result, got %+v", res)
	}

	// Schema validation rejects a save without content.
	if _, err := reg.Execute(ctx, "skill_save", json.RawMessage(`{"name":"incomplete"}`)); err == nil {
		t.Fatal("expected a validation error")
	}
}
