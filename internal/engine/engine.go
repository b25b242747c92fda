// Package engine orchestrates every mutation of the story map: validate,
// snapshot, apply the pure transform optimistically, confirm against the
// remote service, roll back or resynchronize on failure. The project tree
// is the single shared cell; only this package writes it. The view layer
// observes it through the publish callback and the scoped loading store.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"storymap-cli/internal/dnd"
	"storymap-cli/internal/model"
	"storymap-cli/internal/remote"
	"storymap-cli/internal/state"
	"storymap-cli/internal/transform"
)

var (
	// ErrTitleRequired is a local validation failure: nothing was applied
	// and the remote was not called.
	ErrTitleRequired = errors.New("title required")

	// ErrDeletePending rejects a second delete for a story whose earlier
	// delete is still inside its undo grace window.
	ErrDeletePending = errors.New("delete already pending")

	ErrInvalidStatus = errors.New("invalid status")

	// ErrCannotUnschedule: the service reads a move without a release as
	// "keep the story's current release", so a scheduled story can never
	// land in the unscheduled bucket through a move.
	ErrCannotUnschedule = errors.New("scheduled stories cannot be moved to unscheduled")

	// ErrStatusNotPatchable keeps status changes on their dedicated
	// operation; UpdateStory rejects a patch that carries one.
	ErrStatusNotPatchable = errors.New("status does not change through a field patch")
)

// Notifier is the injected notification sink. The engine never renders.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
	ShowWithUndo(msg string, undo func())
}

// Service is the remote side of every mutation. *remote.Client implements it.
type Service interface {
	GetProject(ctx context.Context, id int64) (model.Project, error)
	CreateActivity(ctx context.Context, projectID int64, title string) (model.Activity, error)
	UpdateActivity(ctx context.Context, id int64, title string) (model.Activity, error)
	DeleteActivity(ctx context.Context, id int64) error
	CreateTask(ctx context.Context, activityID int64, title string) (model.Task, error)
	UpdateTask(ctx context.Context, id int64, title string) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	MoveTask(ctx context.Context, id int64, position int) (model.Task, error)
	CreateStory(ctx context.Context, req remote.CreateStoryRequest) (model.Story, error)
	UpdateStory(ctx context.Context, id int64, req remote.UpdateStoryRequest) (model.Story, error)
	DeleteStory(ctx context.Context, id int64) error
	MoveStory(ctx context.Context, id, taskID int64, releaseID *int64, position int) (model.Story, error)
	UpdateStoryStatus(ctx context.Context, id int64, status model.StoryStatus) (model.Story, error)
}

// UndoGraceDefault is how long a deleted story can be brought back before
// the delete is sent to the service.
const UndoGraceDefault = 5 * time.Second

type Options struct {
	Notifier       Notifier
	Publish        func(model.Project)
	OnUnauthorized func()
	UndoGrace      time.Duration

	// AfterFunc lets tests drive the undo timer by hand. Defaults to
	// time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) *time.Timer
}

type Engine struct {
	Loading *state.Loading

	mu      sync.Mutex
	project model.Project

	svc            Service
	notify         Notifier
	publish        func(model.Project)
	onUnauthorized func()

	undoGrace time.Duration
	afterFunc func(time.Duration, func()) *time.Timer
	pending   map[int64]*pendingDelete

	nextTemp int64
}

func New(svc Service, opts Options) *Engine {
	e := &Engine{
		Loading:        state.NewLoading(),
		svc:            svc,
		notify:         opts.Notifier,
		publish:        opts.Publish,
		onUnauthorized: opts.OnUnauthorized,
		undoGrace:      opts.UndoGrace,
		afterFunc:      opts.AfterFunc,
		pending:        map[int64]*pendingDelete{},
	}
	if e.notify == nil {
		e.notify = noopNotifier{}
	}
	if e.undoGrace <= 0 {
		e.undoGrace = UndoGraceDefault
	}
	if e.afterFunc == nil {
		e.afterFunc = time.AfterFunc
	}
	return e
}

type noopNotifier struct{}

func (noopNotifier) Success(string)              {}
func (noopNotifier) Error(string)                {}
func (noopNotifier) Info(string)                 {}
func (noopNotifier) ShowWithUndo(string, func()) {}

// SetProject seeds (or replaces) the tree, e.g. after the initial load.
func (e *Engine) SetProject(p model.Project) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.project = p
	e.publishLocked()
}

func (e *Engine) Project() model.Project {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.project
}

func (e *Engine) publishLocked() {
	if e.publish != nil {
		e.publish(e.project)
	}
}

// apply snapshots the current tree, replaces it with f's result and
// publishes. The returned snapshot is the rollback point; transforms never
// mutate their input, so it stays valid by reference.
func (e *Engine) apply(f func(model.Project) model.Project) model.Project {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.project
	e.project = f(prev)
	e.publishLocked()
	return prev
}

func (e *Engine) restore(prev model.Project) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.project = prev
	e.publishLocked()
}

func (e *Engine) tempID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextTemp--
	return e.nextTemp
}

// Reconcile re-fetches the project and swaps it in without any loading
// indicator. Fetch errors are dropped: reconciliation is a best-effort
// repair pass, and every caller has already surfaced its own outcome.
func (e *Engine) Reconcile(ctx context.Context) {
	id := e.Project().ID
	if id == 0 {
		return
	}
	p, err := e.svc.GetProject(ctx, id)
	if err != nil {
		return
	}
	e.mu.Lock()
	e.project = p
	e.publishLocked()
	e.mu.Unlock()
}

// fail is the shared failure path. Unauthorized rolls back and hands off to
// the session handler; not-found means the snapshot is stale too, so we
// resynchronize instead of rolling back; anything else rolls back.
func (e *Engine) fail(ctx context.Context, prev model.Project, what string, err error) {
	switch {
	case remote.IsUnauthorized(err):
		e.restore(prev)
		e.notify.Error("Session expired")
		if e.onUnauthorized != nil {
			e.onUnauthorized()
		}
	case remote.IsNotFound(err):
		e.Reconcile(ctx)
		e.notify.Error(what + " failed: " + err.Error())
	default:
		e.restore(prev)
		e.notify.Error(what + " failed: " + err.Error())
	}
}

func (e *Engine) CreateActivity(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	tmp := e.tempID()
	prev := e.apply(func(p model.Project) model.Project {
		return transform.AddActivity(p, model.Activity{ID: tmp, Title: title})
	})
	e.Loading.Set(state.ScopeActivitySave, tmp)
	defer e.Loading.Clear(state.ScopeActivitySave, tmp)

	act, err := e.svc.CreateActivity(ctx, prev.ID, title)
	if err != nil {
		e.fail(ctx, prev, "Create activity", err)
		return err
	}
	e.apply(func(p model.Project) model.Project {
		return transform.SetActivityID(p, tmp, act.ID)
	})
	e.notify.Success("Activity created")
	e.Reconcile(ctx)
	return nil
}

func (e *Engine) RenameActivity(ctx context.Context, id int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	prev := e.apply(func(p model.Project) model.Project {
		return transform.UpdateActivity(p, id, transform.ActivityPatch{Title: &title})
	})
	e.Loading.Set(state.ScopeActivitySave, id)
	defer e.Loading.Clear(state.ScopeActivitySave, id)

	if _, err := e.svc.UpdateActivity(ctx, id, title); err != nil {
		e.fail(ctx, prev, "Rename activity", err)
		return err
	}
	e.notify.Success("Activity updated")
	e.Reconcile(ctx)
	return nil
}

func (e *Engine) DeleteActivity(ctx context.Context, id int64) error {
	prev := e.apply(func(p model.Project) model.Project {
		return transform.RemoveActivity(p, id)
	})
	e.Loading.Set(state.ScopeActivityDelete, id)
	defer e.Loading.Clear(state.ScopeActivityDelete, id)

	if err := e.svc.DeleteActivity(ctx, id); err != nil {
		e.fail(ctx, prev, "Delete activity", err)
		return err
	}
	e.notify.Success("Activity deleted")
	e.Reconcile(ctx)
	return nil
}

func (e *Engine) CreateTask(ctx context.Context, activityID int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	tmp := e.tempID()
	prev := e.apply(func(p model.Project) model.Project {
		return transform.AddTask(p, activityID, model.Task{ID: tmp, Title: title})
	})
	e.Loading.Set(state.ScopeTaskSave, tmp)
	defer e.Loading.Clear(state.ScopeTaskSave, tmp)

	task, err := e.svc.CreateTask(ctx, activityID, title)
	if err != nil {
		e.fail(ctx, prev, "Create task", err)
		return err
	}
	e.apply(func(p model.Project) model.Project {
		return transform.SetTaskID(p, tmp, task.ID)
	})
	e.notify.Success("Task created")
	e.Reconcile(ctx)
	return nil
}

func (e *Engine) RenameTask(ctx context.Context, id int64, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	prev := e.apply(func(p model.Project) model.Project {
		return transform.UpdateTask(p, id, transform.TaskPatch{Title: &title})
	})
	e.Loading.Set(state.ScopeTaskSave, id)
	defer e.Loading.Clear(state.ScopeTaskSave, id)

	if _, err := e.svc.UpdateTask(ctx, id, title); err != nil {
		e.fail(ctx, prev, "Rename task", err)
		return err
	}
	e.notify.Success("Task updated")
	e.Reconcile(ctx)
	return nil
}

func (e *Engine) DeleteTask(ctx context.Context, id int64) error {
	prev := e.apply(func(p model.Project) model.Project {
		return transform.RemoveTask(p, id)
	})
	e.Loading.Set(state.ScopeTaskDelete, id)
	defer e.Loading.Clear(state.ScopeTaskDelete, id)

	if err := e.svc.DeleteTask(ctx, id); err != nil {
		e.fail(ctx, prev, "Delete task", err)
		return err
	}
	e.notify.Success("Task deleted")
	e.Reconcile(ctx)
	return nil
}

// MoveTask reorders a task inside its activity. A failed move cannot be
// retried from local state with any confidence, so the failure path also
// reconciles against the server regardless of error kind.
func (e *Engine) MoveTask(ctx context.Context, activityID, taskID int64, position int) error {
	prev := e.apply(func(p model.Project) model.Project {
		return transform.MoveTask(p, activityID, taskID, position)
	})
	e.Loading.Set(state.ScopeTaskMove, taskID)
	defer e.Loading.Clear(state.ScopeTaskMove, taskID)

	if _, err := e.svc.MoveTask(ctx, taskID, position); err != nil {
		e.fail(ctx, prev, "Move task", err)
		if !remote.IsNotFound(err) {
			e.Reconcile(ctx)
		}
		return err
	}
	e.Reconcile(ctx)
	return nil
}

func (e *Engine) CreateStory(ctx context.Context, taskID int64, releaseID *int64, title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	tmp := e.tempID()
	prev := e.apply(func(p model.Project) model.Project {
		return transform.AddStory(p, taskID, releaseID, model.Story{
			ID:          tmp,
			Title:       title,
			Description: description,
			Status:      model.StatusTodo,
		})
	})
	e.Loading.Set(state.ScopeStorySave, tmp)
	defer e.Loading.Clear(state.ScopeStorySave, tmp)

	created, err := e.svc.CreateStory(ctx, remote.CreateStoryRequest{
		TaskID:      taskID,
		ReleaseID:   releaseID,
		Title:       title,
		Description: description,
	})
	if err != nil {
		e.fail(ctx, prev, "Create story", err)
		return err
	}
	// Server is authoritative for the generated fields.
	e.apply(func(p model.Project) model.Project {
		return transform.ReplaceStory(p, tmp, created)
	})
	e.notify.Success("Story created")
	e.Reconcile(ctx)
	return nil
}

// UpdateStory patches story fields. Status changes go through
// SetStoryStatus (separate endpoint) and a patch carrying one is rejected;
// release changes go through MoveStory so both buckets stay dense.
func (e *Engine) UpdateStory(ctx context.Context, id int64, patch transform.StoryPatch) error {
	if patch.Empty() {
		return nil
	}
	if patch.Status != nil {
		return ErrStatusNotPatchable
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return ErrTitleRequired
	}
	prev := e.apply(func(p model.Project) model.Project {
		return transform.UpdateStory(p, id, patch)
	})
	e.Loading.Set(state.ScopeStorySave, id)
	defer e.Loading.Clear(state.ScopeStorySave, id)

	req := remote.UpdateStoryRequest{
		Title:              patch.Title,
		Description:        patch.Description,
		Priority:           patch.Priority,
		AcceptanceCriteria: patch.AcceptanceCriteria,
	}
	if _, err := e.svc.UpdateStory(ctx, id, req); err != nil {
		e.fail(ctx, prev, "Update story", err)
		return err
	}
	e.notify.Success("Story updated")
	e.Reconcile(ctx)
	return nil
}

func (e *Engine) MoveStory(ctx context.Context, storyID, taskID int64, releaseID *int64, position int) error {
	// A move with no release keeps the story's current release on the
	// server, so an optimistic nil-bucket placement would only bounce back
	// on the reconcile fetch. Refuse it up front.
	if releaseID == nil {
		if s, _, ok := e.Project().FindStory(storyID); ok && s.ReleaseID != nil {
			e.notify.Info("Scheduled stories cannot be moved to Unscheduled")
			return ErrCannotUnschedule
		}
	}
	prev := e.apply(func(p model.Project) model.Project {
		return transform.MoveStory(p, storyID, taskID, releaseID, position)
	})
	e.Loading.Set(state.ScopeStoryMove, storyID)
	defer e.Loading.Clear(state.ScopeStoryMove, storyID)

	if _, err := e.svc.MoveStory(ctx, storyID, taskID, releaseID, position); err != nil {
		e.fail(ctx, prev, "Move story", err)
		return err
	}
	e.Reconcile(ctx)
	return nil
}

func (e *Engine) SetStoryStatus(ctx context.Context, id int64, status model.StoryStatus) error {
	if !model.ValidStatus(status) {
		return ErrInvalidStatus
	}
	prev := e.apply(func(p model.Project) model.Project {
		return transform.UpdateStory(p, id, transform.StoryPatch{Status: &status})
	})
	e.Loading.Set(state.ScopeStoryStatus, id)
	defer e.Loading.Clear(state.ScopeStoryStatus, id)

	if _, err := e.svc.UpdateStoryStatus(ctx, id, status); err != nil {
		e.fail(ctx, prev, "Update status", err)
		return err
	}
	e.Reconcile(ctx)
	return nil
}

// CycleStoryStatus advances todo -> in_progress -> done -> todo.
func (e *Engine) CycleStoryStatus(ctx context.Context, id int64) error {
	s, _, ok := e.Project().FindStory(id)
	if !ok {
		return nil
	}
	cur := s.Status
	if cur == "" {
		cur = model.StatusTodo
	}
	return e.SetStoryStatus(ctx, id, cur.Next())
}

// Apply dispatches a resolved drag instruction.
func (e *Engine) Apply(ctx context.Context, instr dnd.Instruction) error {
	switch in := instr.(type) {
	case dnd.MoveTask:
		return e.MoveTask(ctx, in.ActivityID, in.TaskID, in.Position)
	case dnd.MoveStory:
		return e.MoveStory(ctx, in.StoryID, in.TaskID, in.ReleaseID, in.Position)
	}
	return nil
}

// DeleteStoryNow is the non-interactive delete: no grace window, straight
// to the service. Scriptable commands use it; the TUI uses DeleteStory.
func (e *Engine) DeleteStoryNow(ctx context.Context, id int64) error {
	s, taskID, ok := e.Project().FindStory(id)
	if !ok {
		return nil
	}
	prev := e.apply(func(p model.Project) model.Project {
		p = transform.RemoveStory(p, id)
		return transform.RenumberBucket(p, taskID, s.ReleaseID)
	})
	e.Loading.Set(state.ScopeStoryDelete, id)
	defer e.Loading.Clear(state.ScopeStoryDelete, id)

	if err := e.svc.DeleteStory(ctx, id); err != nil {
		e.fail(ctx, prev, "Delete story", err)
		return err
	}
	e.notify.Success("Story deleted")
	e.Reconcile(ctx)
	return nil
}
