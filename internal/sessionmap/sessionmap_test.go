package sessionmap

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gridd/pkg/types"
)

func TestMemory_RoundTrip(t *testing.T) {
	m := NewMemory(zerolog.Nop())
	ctx := context.Background()
	sess := types.Session{
		ID:        "sess-1",
		NodeURI:   "http://n1:5555",
		StartedAt: time.Now(),
	}
	if err := m.Add(ctx, sess); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := m.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.NodeURI != sess.NodeURI {
		t.Fatalf("got %+v", got)
	}
	if err := m.Remove(ctx, sess.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := m.Get(ctx, sess.ID); !IsNotFound(err) {
		t.Fatalf("expected not-found after remove, got %v", err)
	}
}

func TestMemory_GetMissIsNotFound(t *testing.T) {
	m := NewMemory(zerolog.Nop())
	_, err := m.Get(context.Background(), "nope")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if IsNotFound(nil) {
		t.Fatalf("nil is not a miss")
	}
}

func TestMemory_RemoveIdempotent(t *testing.T) {
	m := NewMemory(zerolog.Nop())
	ctx := context.Background()
	if err := m.Remove(ctx, "never-added"); err != nil {
		t.Fatalf("remove of unknown id: %v", err)
	}
	if err := m.Remove(ctx, "never-added"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestMemory_AddOverwrites(t *testing.T) {
	m := NewMemory(zerolog.Nop())
	ctx := context.Background()
	if err := m.Add(ctx, types.Session{ID: "sess-1", NodeURI: "http://old"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.Add(ctx, types.Session{ID: "sess-1", NodeURI: "http://new"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := m.Get(ctx, "sess-1")
	if err != nil || got.NodeURI != "http://new" {
		t.Fatalf("last write should win: %+v %v", got, err)
	}
}

func TestMemory_List(t *testing.T) {
	m := NewMemory(zerolog.Nop())
	ctx := context.Background()
	for _, id := range []types.SessionID{"a", "b", "c"} {
		if err := m.Add(ctx, types.Session{ID: id}); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	all, err := m.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	seen := make(map[types.SessionID]bool)
	for _, s := range all {
		seen[s.ID] = true
	}
	if !seen["a"] || !seen["b"] || !seen["c"] {
		t.Fatalf("missing sessions: %v", all)
	}
}
