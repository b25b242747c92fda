package engine

import (
	"context"

	"storymap-cli/internal/model"
	"storymap-cli/internal/state"
	"storymap-cli/internal/transform"
)

// Each pending story delete is an explicit state machine rather than a bare
// timer callback:
//
//	active --undo--> cancelled   (timer stopped, pre-delete tree restored)
//	active --timer--> committed  (delete sent; may still end in failed)
//
// At most one machine exists per story id; DeleteStory rejects a second
// request while one is active.
type deleteState int

const (
	deleteActive deleteState = iota
	deleteCancelled
	deleteCommitted
)

type pendingDelete struct {
	storyID int64
	prev    model.Project
	timer   stoppable
	st      deleteState
}

type stoppable interface{ Stop() bool }

// DeleteStory removes the story optimistically and arms the undo grace
// timer. The remote delete is only issued if the timer expires without an
// undo. Returns ErrDeletePending if the story already has one in flight.
func (e *Engine) DeleteStory(id int64) error {
	e.mu.Lock()
	if _, exists := e.pending[id]; exists {
		e.mu.Unlock()
		e.notify.Info("A delete for this story is already pending")
		return ErrDeletePending
	}
	prev := e.project
	s, taskID, ok := prev.FindStory(id)
	if !ok {
		e.mu.Unlock()
		return nil
	}

	next := transform.RemoveStory(prev, id)
	next = transform.RenumberBucket(next, taskID, s.ReleaseID)
	e.project = next

	pd := &pendingDelete{storyID: id, prev: prev, st: deleteActive}
	e.pending[id] = pd
	pd.timer = e.afterFunc(e.undoGrace, func() { e.commitDelete(id) })
	e.publishLocked()
	e.mu.Unlock()

	e.Loading.Set(state.ScopeStoryDelete, id)
	e.notify.ShowWithUndo("Story deleted", func() { e.UndoDelete(id) })
	return nil
}

// UndoDelete cancels a pending delete and restores the exact pre-delete
// tree (same story, same bucket, same sibling order). Returns false when
// the grace window has already elapsed.
func (e *Engine) UndoDelete(id int64) bool {
	e.mu.Lock()
	pd := e.pending[id]
	if pd == nil || pd.st != deleteActive {
		e.mu.Unlock()
		return false
	}
	pd.st = deleteCancelled
	if pd.timer != nil {
		pd.timer.Stop()
	}
	delete(e.pending, id)
	e.project = pd.prev
	e.publishLocked()
	e.mu.Unlock()

	e.Loading.Clear(state.ScopeStoryDelete, id)
	e.notify.Info("Story restored")
	return true
}

// HasPendingDelete lets the view layer offer the undo affordance.
func (e *Engine) HasPendingDelete(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	pd := e.pending[id]
	return pd != nil && pd.st == deleteActive
}

func (e *Engine) commitDelete(id int64) {
	e.mu.Lock()
	pd := e.pending[id]
	if pd == nil || pd.st != deleteActive {
		e.mu.Unlock()
		return
	}
	pd.st = deleteCommitted
	delete(e.pending, id)
	e.mu.Unlock()

	// The grace window already elapsed; there is no caller context to
	// inherit, the commit runs in the background.
	ctx := context.Background()
	err := e.svc.DeleteStory(ctx, id)
	e.Loading.Clear(state.ScopeStoryDelete, id)
	if err != nil {
		e.fail(ctx, pd.prev, "Delete story", err)
		return
	}
	e.notify.Success("Story deleted")
	e.Reconcile(ctx)
}
