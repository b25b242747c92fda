// Package state holds the small shared stores the orchestrators and the
// view layer both touch: per-operation busy flags and in-progress edit
// drafts. Both are keyed by entity id so one slow request never blocks
// interaction with unrelated rows.
package state

import "sync"

// Scope names one operation kind (e.g. "story.move"). Flags in different
// scopes are independent.
type Scope string

const (
	ScopeActivitySave   Scope = "activity.save"
	ScopeActivityDelete Scope = "activity.delete"
	ScopeTaskSave       Scope = "task.save"
	ScopeTaskDelete     Scope = "task.delete"
	ScopeTaskMove       Scope = "task.move"
	ScopeStorySave      Scope = "story.save"
	ScopeStoryDelete    Scope = "story.delete"
	ScopeStoryMove      Scope = "story.move"
	ScopeStoryStatus    Scope = "story.status"
)

// Loading is a keyed-boolean store: which ids have an outstanding mutation,
// per operation kind.
type Loading struct {
	mu   sync.Mutex
	busy map[Scope]map[int64]bool
}

func NewLoading() *Loading {
	return &Loading{busy: map[Scope]map[int64]bool{}}
}

func (l *Loading) Set(scope Scope, id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.busy[scope]
	if m == nil {
		m = map[int64]bool{}
		l.busy[scope] = m
	}
	m[id] = true
}

func (l *Loading) Clear(scope Scope, id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m := l.busy[scope]; m != nil {
		delete(m, id)
	}
}

func (l *Loading) IsBusy(scope Scope, id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy[scope][id]
}

// BusyAnywhere reports whether any scope has id marked busy. The view layer
// uses this to dim a row regardless of which operation is in flight.
func (l *Loading) BusyAnywhere(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.busy {
		if m[id] {
			return true
		}
	}
	return false
}

// Drafts is a keyed store of unconfirmed edit buffers (e.g. an inline title
// edit that has not been submitted yet).
type Drafts[T any] struct {
	mu sync.Mutex
	m  map[int64]T
}

func NewDrafts[T any]() *Drafts[T] {
	return &Drafts[T]{m: map[int64]T{}}
}

func (d *Drafts[T]) Set(id int64, v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[id] = v
}

func (d *Drafts[T]) Get(id int64) (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.m[id]
	return v, ok
}

func (d *Drafts[T]) Clear(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.m, id)
}

func (d *Drafts[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.m)
}
