// Package filter derives the visible view of a story map from status,
// release and free-text predicates. Filtering only ever hides stories;
// activities and tasks always survive so the grid keeps its column and row
// structure. The filter state is never allowed to become empty — a toggle
// that would empty a set resets it to "all" instead.
package filter

import (
	"sort"
	"strings"

	"storymap-cli/internal/model"
)

// State is the explicit filter state. Statuses and Releases are always
// non-empty sets; Search is a case-insensitive substring query.
type State struct {
	Statuses map[model.StoryStatus]bool
	Releases map[int64]bool
	Search   string
}

// Default shows everything: all statuses, all of the project's releases,
// empty query.
func Default(p model.Project) State {
	return State{
		Statuses: allStatuses(),
		Releases: allReleases(p),
		Search:   "",
	}
}

func allStatuses() map[model.StoryStatus]bool {
	m := map[model.StoryStatus]bool{}
	for _, s := range model.AllStatuses() {
		m[s] = true
	}
	return m
}

func allReleases(p model.Project) map[int64]bool {
	m := map[int64]bool{}
	for _, r := range p.Releases {
		m[r.ID] = true
	}
	return m
}

func (s State) AllStatusesOn() bool {
	for _, st := range model.AllStatuses() {
		if !s.Statuses[st] {
			return false
		}
	}
	return true
}

func (s State) AllReleasesOn(p model.Project) bool {
	for _, r := range p.Releases {
		if !s.Releases[r.ID] {
			return false
		}
	}
	return true
}

func (s State) IsDefault(p model.Project) bool {
	return s.AllStatusesOn() && s.AllReleasesOn(p) && strings.TrimSpace(s.Search) == ""
}

// Matches applies the story predicate. An unset status counts as todo.
// Stories without a release are not addressable by the release filter and
// stay visible.
func (s State) Matches(story model.Story) bool {
	status := story.Status
	if status == "" {
		status = model.StatusTodo
	}
	if !s.Statuses[status] {
		return false
	}
	if story.ReleaseID != nil && !s.Releases[*story.ReleaseID] {
		return false
	}
	q := strings.TrimSpace(strings.ToLower(s.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(story.Title), q) ||
		strings.Contains(strings.ToLower(story.Description), q)
}

// Apply computes the filtered tree. Every activity and task is kept; only
// story lists shrink. The result is a fresh tree; the input is untouched.
func Apply(p model.Project, s State) model.Project {
	acts := make([]model.Activity, len(p.Activities))
	for i, a := range p.Activities {
		tasks := make([]model.Task, len(a.Tasks))
		for j, t := range a.Tasks {
			var stories []model.Story
			for _, story := range t.Stories {
				if s.Matches(story) {
					stories = append(stories, story)
				}
			}
			t.Stories = stories
			tasks[j] = t
		}
		a.Tasks = tasks
		acts[i] = a
	}
	p.Activities = acts
	return p
}

// ToggleStatus flips one status. Removing the last remaining status resets
// the set to all — "show nothing" is unreachable through toggles.
func (s *State) ToggleStatus(st model.StoryStatus) {
	if !model.ValidStatus(st) {
		return
	}
	if s.Statuses[st] {
		delete(s.Statuses, st)
		if len(s.Statuses) == 0 {
			s.Statuses = allStatuses()
		}
		return
	}
	s.Statuses[st] = true
}

func (s *State) ToggleRelease(p model.Project, id int64) {
	if _, ok := p.FindRelease(id); !ok {
		return
	}
	if s.Releases[id] {
		delete(s.Releases, id)
		if len(s.Releases) == 0 {
			s.Releases = allReleases(p)
		}
		return
	}
	s.Releases[id] = true
}

// Reset restores the all-shown defaults in one step.
func (s *State) Reset(p model.Project) {
	*s = Default(p)
}

// Progress is the per-release completion summary over the *filtered* story
// set, so the bar reflects what is actually visible.
type Progress struct {
	Total   int
	Done    int
	Percent int
}

// ReleaseProgress walks a (typically filtered) tree once and summarizes
// every release row. Keys are release ids.
func ReleaseProgress(p model.Project) map[int64]Progress {
	out := map[int64]Progress{}
	for _, r := range p.Releases {
		out[r.ID] = Progress{}
	}
	for _, a := range p.Activities {
		for _, t := range a.Tasks {
			for _, s := range t.Stories {
				if s.ReleaseID == nil {
					continue
				}
				pr := out[*s.ReleaseID]
				pr.Total++
				if s.Status == model.StatusDone {
					pr.Done++
				}
				out[*s.ReleaseID] = pr
			}
		}
	}
	for id, pr := range out {
		if pr.Total > 0 {
			pr.Percent = pr.Done * 100 / pr.Total
			out[id] = pr
		}
	}
	return out
}

// Grid column geometry. Header and body rows must agree on activity widths,
// so both derive them from the same task count.
const (
	TaskColWidth = 26
	ColGap       = 1
)

// ActivityWidth is the rendered width of one activity group: one column
// per task (at least one, so an empty activity still shows), plus gaps.
func ActivityWidth(a model.Activity) int {
	n := len(a.Tasks)
	if n < 1 {
		n = 1
	}
	return n*TaskColWidth + (n-1)*ColGap
}

// SortedStatuses returns the enabled statuses in canonical order, for
// stable serialization and display.
func (s State) SortedStatuses() []model.StoryStatus {
	var out []model.StoryStatus
	for _, st := range model.AllStatuses() {
		if s.Statuses[st] {
			out = append(out, st)
		}
	}
	return out
}

// SortedReleases returns the enabled release ids ascending.
func (s State) SortedReleases() []int64 {
	out := make([]int64, 0, len(s.Releases))
	for id := range s.Releases {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
