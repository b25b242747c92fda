package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSessionRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	// Fresh store: empty session, no error.
	sess, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession on fresh store: %v", err)
	}
	if sess.ServerURL != "" || sess.Token != "" || sess.CurrentProjectID != 0 {
		t.Fatalf("fresh session not empty: %+v", sess)
	}

	in := Session{ServerURL: "http://localhost:8000", Token: "abc123", CurrentProjectID: 7}
	if err := s.SaveSession(ctx, in); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	out, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if out != in {
		t.Fatalf("session round trip: got %+v want %+v", out, in)
	}

	if err := s.ClearToken(ctx); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	out, err = s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession after clear: %v", err)
	}
	if out.Token != "" {
		t.Fatalf("token survived clear: %q", out.Token)
	}
	if out.ServerURL != in.ServerURL || out.CurrentProjectID != in.CurrentProjectID {
		t.Fatalf("clear lost unrelated fields: %+v", out)
	}
}

func TestFilterPerProject(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	if v, err := s.LoadFilter(ctx, 1); err != nil || v != "" {
		t.Fatalf("missing filter should be empty: %q, %v", v, err)
	}

	if err := s.SaveFilter(ctx, 1, `{"search":"alpha"}`); err != nil {
		t.Fatalf("SaveFilter: %v", err)
	}
	if err := s.SaveFilter(ctx, 2, `{"search":"beta"}`); err != nil {
		t.Fatalf("SaveFilter: %v", err)
	}

	v, err := s.LoadFilter(ctx, 1)
	if err != nil || v != `{"search":"alpha"}` {
		t.Fatalf("project 1 filter: %q, %v", v, err)
	}
	v, err = s.LoadFilter(ctx, 2)
	if err != nil || v != `{"search":"beta"}` {
		t.Fatalf("project 2 filter: %q, %v", v, err)
	}

	// Overwrite replaces.
	if err := s.SaveFilter(ctx, 1, `{"search":"gamma"}`); err != nil {
		t.Fatalf("SaveFilter overwrite: %v", err)
	}
	v, _ = s.LoadFilter(ctx, 1)
	if v != `{"search":"gamma"}` {
		t.Fatalf("overwrite lost: %q", v)
	}

	if err := s.DeleteFilter(ctx, 1); err != nil {
		t.Fatalf("DeleteFilter: %v", err)
	}
	v, _ = s.LoadFilter(ctx, 1)
	if v != "" {
		t.Fatalf("filter survived delete: %q", v)
	}
	// Other project untouched.
	v, _ = s.LoadFilter(ctx, 2)
	if v != `{"search":"beta"}` {
		t.Fatalf("delete leaked across projects: %q", v)
	}
}

func TestEnsureCreatesLocalDir(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.SaveSession(context.Background(), Session{ServerURL: "http://x"}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".storymap", "state.sqlite")); err != nil {
		t.Fatalf("db file missing: %v", err)
	}
}

func TestEmptyDirDefaultsToCwd(t *testing.T) {
	s := New("  ")
	if s.Dir != "." {
		t.Fatalf("blank dir should default to .: %q", s.Dir)
	}
}
