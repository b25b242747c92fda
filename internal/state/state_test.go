package state

import "testing"

func TestLoadingScopesAreIndependent(t *testing.T) {
	l := NewLoading()
	l.Set(ScopeStoryMove, 7)

	if !l.IsBusy(ScopeStoryMove, 7) {
		t.Fatalf("expected busy in story.move")
	}
	if l.IsBusy(ScopeStorySave, 7) {
		t.Fatalf("scopes must be independent")
	}
	if l.IsBusy(ScopeStoryMove, 8) {
		t.Fatalf("ids must be independent")
	}
	if !l.BusyAnywhere(7) {
		t.Fatalf("expected BusyAnywhere=true")
	}

	l.Clear(ScopeStoryMove, 7)
	if l.IsBusy(ScopeStoryMove, 7) || l.BusyAnywhere(7) {
		t.Fatalf("expected cleared")
	}

	// Clearing an unknown scope/id is fine.
	l.Clear(ScopeTaskMove, 99)
}

func TestDrafts(t *testing.T) {
	d := NewDrafts[string]()
	if _, ok := d.Get(1); ok {
		t.Fatalf("expected empty store")
	}
	d.Set(1, "retitle")
	if v, ok := d.Get(1); !ok || v != "retitle" {
		t.Fatalf("expected draft back; got %q ok=%v", v, ok)
	}
	if d.Len() != 1 {
		t.Fatalf("expected len 1; got %d", d.Len())
	}
	d.Clear(1)
	if _, ok := d.Get(1); ok {
		t.Fatalf("expected cleared draft")
	}
}
