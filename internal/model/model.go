package model

import "sort"

// StoryStatus is the workflow state of a story. The remote service stores it
// as a plain string; the set is fixed.
type StoryStatus string

const (
	StatusTodo       StoryStatus = "todo"
	StatusInProgress StoryStatus = "in_progress"
	StatusDone       StoryStatus = "done"
	StatusBlocked    StoryStatus = "blocked"
)

func AllStatuses() []StoryStatus {
	return []StoryStatus{StatusTodo, StatusInProgress, StatusDone, StatusBlocked}
}

func ValidStatus(s StoryStatus) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusBlocked:
		return true
	}
	return false
}

// Next returns the quick-cycle successor: todo -> in_progress -> done -> todo.
// Blocked is not part of the cycle; cycling a blocked story restarts it.
func (s StoryStatus) Next() StoryStatus {
	switch s {
	case StatusTodo:
		return StatusInProgress
	case StatusInProgress:
		return StatusDone
	default:
		return StatusTodo
	}
}

// Project is the full nested tree as served by GET /project/{id}.
// Activities and Releases arrive ordered by position.
type Project struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	RawRequirements string     `json:"raw_requirements,omitempty"`
	Activities      []Activity `json:"activities"`
	Releases        []Release  `json:"releases"`
}

type Activity struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Tasks    []Task `json:"tasks"`
}

// Task order within an Activity is the slice order; Position mirrors it on
// the wire but is not the local source of truth.
type Task struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Position int     `json:"position"`
	Stories  []Story `json:"stories"`
}

// Story positions are scoped to the (task, release) bucket, not to the
// Stories slice as a whole.
type Story struct {
	ID                 int64       `json:"id"`
	Title              string      `json:"title"`
	Description        string      `json:"description,omitempty"`
	Priority           string      `json:"priority,omitempty"`
	AcceptanceCriteria []string    `json:"acceptance_criteria,omitempty"`
	ReleaseID          *int64      `json:"release_id"`
	Position           int         `json:"position"`
	Status             StoryStatus `json:"status,omitempty"`
}

type Release struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// ProjectSummary is a row of GET /projects.
type ProjectSummary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// IsTemp reports whether id is a locally minted optimistic placeholder.
// The service only hands out positive ids.
func IsTemp(id int64) bool { return id < 0 }

// SameRelease compares two nullable release references.
func SameRelease(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (p Project) FindActivity(id int64) (Activity, bool) {
	for _, a := range p.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return Activity{}, false
}

func (p Project) FindRelease(id int64) (Release, bool) {
	for _, r := range p.Releases {
		if r.ID == id {
			return r, true
		}
	}
	return Release{}, false
}

// FindTask returns the task together with its owning activity id and its
// index in the activity's task list.
func (p Project) FindTask(id int64) (Task, int64, int, bool) {
	for _, a := range p.Activities {
		for i, t := range a.Tasks {
			if t.ID == id {
				return t, a.ID, i, true
			}
		}
	}
	return Task{}, 0, 0, false
}

// FindStory scans the whole tree. Map sizes are bounded by what the UI can
// render, so the linear scan is fine.
func (p Project) FindStory(id int64) (Story, int64, bool) {
	for _, a := range p.Activities {
		for _, t := range a.Tasks {
			for _, s := range t.Stories {
				if s.ID == id {
					return s, t.ID, true
				}
			}
		}
	}
	return Story{}, 0, false
}

// Bucket returns the task's stories for one release, sorted by position.
func (t Task) Bucket(releaseID *int64) []Story {
	var out []Story
	for _, s := range t.Stories {
		if SameRelease(s.ReleaseID, releaseID) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (t Task) BucketLen(releaseID *int64) int {
	n := 0
	for _, s := range t.Stories {
		if SameRelease(s.ReleaseID, releaseID) {
			n++
		}
	}
	return n
}
