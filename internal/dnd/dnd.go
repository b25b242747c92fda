// Package dnd turns a drag session's (active, over) pair into a domain move
// instruction. Identifiers are tagged variants rather than encoded strings,
// so resolution is a total match with no parsing to go wrong. Resolution is
// pure: the caller dispatches the returned instruction to the engine.
package dnd

import "storymap-cli/internal/model"

// Active is the element being dragged.
type Active interface{ isActive() }

type ActiveTask struct {
	TaskID     int64
	ActivityID int64
}

type ActiveStory struct {
	StoryID   int64
	TaskID    int64
	ReleaseID *int64
}

func (ActiveTask) isActive()  {}
func (ActiveStory) isActive() {}

// Over is the element currently under the drag.
type Over interface{ isOver() }

// OverTask: another task card within some activity column group.
type OverTask struct {
	TaskID     int64
	ActivityID int64
}

// OverActivityZone: the drop zone at the tail of an activity's task row.
type OverActivityZone struct {
	ActivityID int64
}

// OverStory: a story card, addressed with its bucket context.
type OverStory struct {
	StoryID   int64
	TaskID    int64
	ReleaseID *int64
}

// OverCell: a (task, release) grid cell, typically an empty one.
type OverCell struct {
	TaskID    int64
	ReleaseID *int64
}

func (OverTask) isOver()         {}
func (OverActivityZone) isOver() {}
func (OverStory) isOver()        {}
func (OverCell) isOver()         {}

// Instruction is what a completed drop asks the engine to do.
type Instruction interface{ isInstruction() }

type MoveTask struct {
	ActivityID int64
	TaskID     int64
	Position   int
}

type MoveStory struct {
	StoryID   int64
	TaskID    int64
	ReleaseID *int64
	Position  int
}

func (MoveTask) isInstruction()  {}
func (MoveStory) isInstruction() {}

// Resolve decodes a drop. It returns false for every combination that is
// not a supported move: dropping onto yourself, task drops outside the
// task's own activity (cross-activity task moves are a deliberate no-op),
// and kind mismatches (task onto story, story onto task zone).
func Resolve(p model.Project, active Active, over Over) (Instruction, bool) {
	switch a := active.(type) {
	case ActiveTask:
		return resolveTask(p, a, over)
	case ActiveStory:
		return resolveStory(p, a, over)
	}
	return nil, false
}

func resolveTask(p model.Project, a ActiveTask, over Over) (Instruction, bool) {
	switch o := over.(type) {
	case OverTask:
		if o.TaskID == a.TaskID {
			return nil, false
		}
		if o.ActivityID != a.ActivityID {
			return nil, false
		}
		_, activityID, idx, ok := p.FindTask(o.TaskID)
		if !ok || activityID != a.ActivityID {
			return nil, false
		}
		return MoveTask{ActivityID: a.ActivityID, TaskID: a.TaskID, Position: idx}, true

	case OverActivityZone:
		if o.ActivityID != a.ActivityID {
			return nil, false
		}
		act, ok := p.FindActivity(o.ActivityID)
		if !ok {
			return nil, false
		}
		return MoveTask{ActivityID: a.ActivityID, TaskID: a.TaskID, Position: len(act.Tasks)}, true
	}
	return nil, false
}

func resolveStory(p model.Project, a ActiveStory, over Over) (Instruction, bool) {
	switch o := over.(type) {
	case OverStory:
		if o.StoryID == a.StoryID {
			return nil, false
		}
		target, taskID, ok := p.FindStory(o.StoryID)
		if !ok || taskID != o.TaskID {
			return nil, false
		}
		return MoveStory{
			StoryID:   a.StoryID,
			TaskID:    o.TaskID,
			ReleaseID: target.ReleaseID,
			Position:  target.Position,
		}, true

	case OverCell:
		if _, _, _, ok := p.FindTask(o.TaskID); !ok {
			return nil, false
		}
		// Dropping on a cell lands at the head of that bucket.
		return MoveStory{
			StoryID:   a.StoryID,
			TaskID:    o.TaskID,
			ReleaseID: o.ReleaseID,
			Position:  0,
		}, true
	}
	return nil, false
}
