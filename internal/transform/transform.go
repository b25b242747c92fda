// Package transform holds the pure tree edits behind every optimistic
// mutation. Every function takes a Project by value and returns a new one;
// the input is never written to, because the engine keeps the pre-mutation
// value as its rollback snapshot. A transform whose target id does not
// exist returns the input unchanged, so callers may apply before the
// remote has confirmed the target still exists.
package transform

import (
	"sort"

	"storymap-cli/internal/model"
)

type ActivityPatch struct {
	Title *string
}

type TaskPatch struct {
	Title *string
}

// StoryPatch is a partial field update. Release membership is not patchable
// here; bucket changes go through MoveStory so both buckets get renumbered.
type StoryPatch struct {
	Title              *string
	Description        *string
	Priority           *string
	AcceptanceCriteria []string
	Status             *model.StoryStatus
}

func (p StoryPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.AcceptanceCriteria == nil && p.Status == nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func AddActivity(p model.Project, a model.Activity) model.Project {
	acts := make([]model.Activity, 0, len(p.Activities)+1)
	acts = append(acts, p.Activities...)
	a.Position = len(acts)
	acts = append(acts, a)
	p.Activities = acts
	return p
}

func UpdateActivity(p model.Project, id int64, patch ActivityPatch) model.Project {
	idx := -1
	for i := range p.Activities {
		if p.Activities[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return p
	}
	acts := append([]model.Activity{}, p.Activities...)
	if patch.Title != nil {
		acts[idx].Title = *patch.Title
	}
	p.Activities = acts
	return p
}

func RemoveActivity(p model.Project, id int64) model.Project {
	found := false
	acts := make([]model.Activity, 0, len(p.Activities))
	for _, a := range p.Activities {
		if a.ID == id {
			found = true
			continue
		}
		acts = append(acts, a)
	}
	if !found {
		return p
	}
	p.Activities = acts
	return p
}

// SetActivityID swaps a placeholder id for the confirmed one.
func SetActivityID(p model.Project, oldID, newID int64) model.Project {
	return mapActivity(p, oldID, func(a model.Activity) model.Activity {
		a.ID = newID
		return a
	})
}

func AddTask(p model.Project, activityID int64, t model.Task) model.Project {
	return mapActivity(p, activityID, func(a model.Activity) model.Activity {
		tasks := make([]model.Task, 0, len(a.Tasks)+1)
		tasks = append(tasks, a.Tasks...)
		t.Position = len(tasks)
		tasks = append(tasks, t)
		a.Tasks = tasks
		return a
	})
}

func UpdateTask(p model.Project, taskID int64, patch TaskPatch) model.Project {
	return mapTask(p, taskID, func(t model.Task) model.Task {
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		return t
	})
}

func RemoveTask(p model.Project, taskID int64) model.Project {
	_, activityID, _, ok := p.FindTask(taskID)
	if !ok {
		return p
	}
	return mapActivity(p, activityID, func(a model.Activity) model.Activity {
		tasks := make([]model.Task, 0, len(a.Tasks))
		for _, t := range a.Tasks {
			if t.ID == taskID {
				continue
			}
			tasks = append(tasks, t)
		}
		a.Tasks = tasks
		return a
	})
}

func SetTaskID(p model.Project, oldID, newID int64) model.Project {
	return mapTask(p, oldID, func(t model.Task) model.Task {
		t.ID = newID
		return t
	})
}

// MoveTask splices the task to newPos within its activity. Task order is
// the slice order, so there is no renumber pass; Position fields are
// refreshed to match the slice for wire fidelity.
func MoveTask(p model.Project, activityID, taskID int64, newPos int) model.Project {
	return mapActivity(p, activityID, func(a model.Activity) model.Activity {
		idx := -1
		for i := range a.Tasks {
			if a.Tasks[i].ID == taskID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return a
		}
		moved := a.Tasks[idx]
		rest := make([]model.Task, 0, len(a.Tasks)-1)
		rest = append(rest, a.Tasks[:idx]...)
		rest = append(rest, a.Tasks[idx+1:]...)
		at := clamp(newPos, 0, len(rest))
		tasks := make([]model.Task, 0, len(a.Tasks))
		tasks = append(tasks, rest[:at]...)
		tasks = append(tasks, moved)
		tasks = append(tasks, rest[at:]...)
		for i := range tasks {
			tasks[i].Position = i
		}
		a.Tasks = tasks
		return a
	})
}

// AddStory appends to the (task, releaseID) bucket, stamping release and a
// dense end-of-bucket position on the inserted value.
func AddStory(p model.Project, taskID int64, releaseID *int64, s model.Story) model.Project {
	return mapTask(p, taskID, func(t model.Task) model.Task {
		s.ReleaseID = releaseID
		s.Position = t.BucketLen(releaseID)
		stories := make([]model.Story, 0, len(t.Stories)+1)
		stories = append(stories, t.Stories...)
		stories = append(stories, s)
		t.Stories = stories
		return t
	})
}

func UpdateStory(p model.Project, storyID int64, patch StoryPatch) model.Project {
	return mapStory(p, storyID, func(s model.Story) model.Story {
		if patch.Title != nil {
			s.Title = *patch.Title
		}
		if patch.Description != nil {
			s.Description = *patch.Description
		}
		if patch.Priority != nil {
			s.Priority = *patch.Priority
		}
		if patch.AcceptanceCriteria != nil {
			s.AcceptanceCriteria = patch.AcceptanceCriteria
		}
		if patch.Status != nil {
			s.Status = *patch.Status
		}
		return s
	})
}

// ReplaceStory swaps the node wholesale (server-authoritative merge after a
// confirmed create/update). The story keeps its slot in the task's list.
func ReplaceStory(p model.Project, storyID int64, s model.Story) model.Project {
	return mapStory(p, storyID, func(model.Story) model.Story { return s })
}

// RemoveStory filters the story out of its task. The vacated bucket is NOT
// renumbered here; callers that need dense positions afterwards compose
// with RenumberBucket. (Move does its own renumbering of both buckets.)
func RemoveStory(p model.Project, storyID int64) model.Project {
	_, taskID, ok := p.FindStory(storyID)
	if !ok {
		return p
	}
	return mapTask(p, taskID, func(t model.Task) model.Task {
		stories := make([]model.Story, 0, len(t.Stories))
		for _, s := range t.Stories {
			if s.ID == storyID {
				continue
			}
			stories = append(stories, s)
		}
		t.Stories = stories
		return t
	})
}

// RenumberBucket rewrites positions in one (task, release) bucket to
// 0..n-1, preserving the current relative order.
func RenumberBucket(p model.Project, taskID int64, releaseID *int64) model.Project {
	return mapTask(p, taskID, func(t model.Task) model.Task {
		t.Stories = renumbered(t.Stories, releaseID)
		return t
	})
}

// MoveStory relocates a story to (targetTaskID, targetReleaseID) at the
// clamped target position and renumbers both the vacated and the target
// bucket. A same-bucket move is a plain reorder.
func MoveStory(p model.Project, storyID, targetTaskID int64, targetReleaseID *int64, targetPos int) model.Project {
	story, srcTaskID, ok := p.FindStory(storyID)
	if !ok {
		return p
	}
	if _, _, _, ok := p.FindTask(targetTaskID); !ok {
		return p
	}
	srcReleaseID := story.ReleaseID

	// Pull the story out of its current task.
	p = mapTask(p, srcTaskID, func(t model.Task) model.Task {
		stories := make([]model.Story, 0, len(t.Stories))
		for _, s := range t.Stories {
			if s.ID == storyID {
				continue
			}
			stories = append(stories, s)
		}
		t.Stories = renumbered(stories, srcReleaseID)
		return t
	})

	// Insert into the target bucket and renumber it.
	return mapTask(p, targetTaskID, func(t model.Task) model.Task {
		bucket := t.Bucket(targetReleaseID)
		at := clamp(targetPos, 0, len(bucket))

		story.ReleaseID = targetReleaseID
		inserted := make([]model.Story, 0, len(bucket)+1)
		inserted = append(inserted, bucket[:at]...)
		inserted = append(inserted, story)
		inserted = append(inserted, bucket[at:]...)
		for i := range inserted {
			inserted[i].Position = i
		}

		stories := make([]model.Story, 0, len(t.Stories)+1)
		for _, s := range t.Stories {
			if !model.SameRelease(s.ReleaseID, targetReleaseID) {
				stories = append(stories, s)
			}
		}
		stories = append(stories, inserted...)
		t.Stories = stories
		return t
	})
}

// renumbered returns a copy of stories where the releaseID bucket members
// carry positions 0..n-1 in their current bucket order. Other stories pass
// through unchanged.
func renumbered(stories []model.Story, releaseID *int64) []model.Story {
	type slot struct {
		idx int
		pos int
	}
	var members []slot
	for i, s := range stories {
		if model.SameRelease(s.ReleaseID, releaseID) {
			members = append(members, slot{idx: i, pos: s.Position})
		}
	}
	if len(members) == 0 {
		return stories
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].pos < members[j].pos })

	out := append([]model.Story{}, stories...)
	for rank, m := range members {
		out[m.idx].Position = rank
	}
	return out
}

// mapActivity rewrites one activity through f, copying only the activity
// list spine. Untouched activities keep their task slices as-is so the view
// layer can skip re-rendering them.
func mapActivity(p model.Project, activityID int64, f func(model.Activity) model.Activity) model.Project {
	idx := -1
	for i := range p.Activities {
		if p.Activities[i].ID == activityID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return p
	}
	acts := append([]model.Activity{}, p.Activities...)
	acts[idx] = f(acts[idx])
	p.Activities = acts
	return p
}

func mapTask(p model.Project, taskID int64, f func(model.Task) model.Task) model.Project {
	_, activityID, taskIdx, ok := p.FindTask(taskID)
	if !ok {
		return p
	}
	return mapActivity(p, activityID, func(a model.Activity) model.Activity {
		tasks := append([]model.Task{}, a.Tasks...)
		tasks[taskIdx] = f(tasks[taskIdx])
		a.Tasks = tasks
		return a
	})
}

func mapStory(p model.Project, storyID int64, f func(model.Story) model.Story) model.Project {
	_, taskID, ok := p.FindStory(storyID)
	if !ok {
		return p
	}
	return mapTask(p, taskID, func(t model.Task) model.Task {
		stories := append([]model.Story{}, t.Stories...)
		for i := range stories {
			if stories[i].ID == storyID {
				stories[i] = f(stories[i])
				break
			}
		}
		t.Stories = stories
		return t
	})
}
