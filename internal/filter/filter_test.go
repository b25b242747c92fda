package filter

import (
	"net/url"
	"reflect"
	"testing"

	"storymap-cli/internal/model"
)

func i64(v int64) *int64 { return &v }

func mapProject() model.Project {
	return model.Project{
		ID: 1,
		Activities: []model.Activity{
			{
				ID: 10, Title: "Browse",
				Tasks: []model.Task{
					{ID: 100, Title: "Search", Stories: []model.Story{
						{ID: 1000, Title: "Find by name", ReleaseID: i64(500), Position: 0, Status: model.StatusDone},
						{ID: 1001, Title: "Filter by price", Description: "slider widget", ReleaseID: i64(500), Position: 1, Status: model.StatusTodo},
						{ID: 1002, Title: "Saved searches", ReleaseID: i64(501), Position: 0, Status: model.StatusInProgress},
					}},
					{ID: 101, Title: "Checkout"},
				},
			},
			{ID: 11, Title: "Admin", Tasks: []model.Task{{ID: 102, Title: "Moderate"}}},
		},
		Releases: []model.Release{{ID: 500, Title: "MVP"}, {ID: 501, Title: "Later"}},
	}
}

func TestDefaultShowsEverything(t *testing.T) {
	p := mapProject()
	s := Default(p)
	if !s.IsDefault(p) {
		t.Fatalf("default state must report IsDefault")
	}
	q := Apply(p, s)
	task, _, _, _ := q.FindTask(100)
	if len(task.Stories) != 3 {
		t.Fatalf("default filter hid stories: %d", len(task.Stories))
	}
}

func TestApplyKeepsGridStructure(t *testing.T) {
	p := mapProject()
	s := Default(p)
	s.Statuses = map[model.StoryStatus]bool{model.StatusBlocked: true}
	q := Apply(p, s)

	if len(q.Activities) != 2 {
		t.Fatalf("activities must never be filtered out")
	}
	if len(q.Activities[0].Tasks) != 2 {
		t.Fatalf("tasks must never be filtered out")
	}
	task, _, _, _ := q.FindTask(100)
	if len(task.Stories) != 0 {
		t.Fatalf("expected all stories hidden; got %d", len(task.Stories))
	}
	// Input untouched.
	orig, _, _, _ := p.FindTask(100)
	if len(orig.Stories) != 3 {
		t.Fatalf("input project mutated")
	}
}

func TestMatchesPredicates(t *testing.T) {
	p := mapProject()
	s := Default(p)

	s.Search = "SLIDER"
	q := Apply(p, s)
	task, _, _, _ := q.FindTask(100)
	if len(task.Stories) != 1 || task.Stories[0].ID != 1001 {
		t.Fatalf("search must match description case-insensitively; got %+v", task.Stories)
	}

	s = Default(p)
	s.Releases = map[int64]bool{501: true}
	q = Apply(p, s)
	task, _, _, _ = q.FindTask(100)
	if len(task.Stories) != 1 || task.Stories[0].ID != 1002 {
		t.Fatalf("release filter wrong: %+v", task.Stories)
	}

	// Unset status counts as todo.
	s = Default(p)
	s.Statuses = map[model.StoryStatus]bool{model.StatusTodo: true}
	if !s.Matches(model.Story{Title: "x"}) {
		t.Fatalf("statusless story must count as todo")
	}
}

func TestToggleNeverEmpties(t *testing.T) {
	p := mapProject()
	s := Default(p)

	for _, st := range model.AllStatuses() {
		s.ToggleStatus(st)
		if len(s.Statuses) == 0 {
			t.Fatalf("status set emptied after toggling %s", st)
		}
	}
	// All four toggled off one by one: the last toggle must have reset to all.
	if !s.AllStatusesOn() {
		t.Fatalf("expected reset to all statuses; got %v", s.Statuses)
	}

	s.ToggleRelease(p, 500)
	s.ToggleRelease(p, 501)
	if len(s.Releases) == 0 {
		t.Fatalf("release set emptied")
	}
	if !s.AllReleasesOn(p) {
		t.Fatalf("expected reset to all releases; got %v", s.Releases)
	}

	// Unknown release id is ignored.
	s.ToggleRelease(p, 9999)
	if s.Releases[9999] {
		t.Fatalf("unknown release must not enter the set")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	p := mapProject()
	s := Default(p)
	s.ToggleStatus(model.StatusDone)
	s.ToggleRelease(p, 500)
	s.Search = "x"
	s.Reset(p)
	if !s.IsDefault(p) {
		t.Fatalf("reset must restore the default state")
	}
}

func TestQueryRoundTripOmitsDefaults(t *testing.T) {
	p := mapProject()
	s := Default(p)
	if enc := EncodeQuery(s, p).Encode(); enc != "" {
		t.Fatalf("default state must encode to empty query; got %q", enc)
	}

	s.Statuses = map[model.StoryStatus]bool{model.StatusTodo: true, model.StatusDone: true}
	s.Releases = map[int64]bool{500: true}
	s.Search = "price"
	v := EncodeQuery(s, p)
	if v.Get("status") != "todo,done" {
		t.Fatalf("status encoding wrong: %q", v.Get("status"))
	}
	if v.Get("releases") != "500" {
		t.Fatalf("releases encoding wrong: %q", v.Get("releases"))
	}
	if v.Get("search") != "price" {
		t.Fatalf("search encoding wrong: %q", v.Get("search"))
	}

	back := Restore(p, v, "")
	if !reflect.DeepEqual(back.SortedStatuses(), s.SortedStatuses()) {
		t.Fatalf("status round trip: %v vs %v", back.SortedStatuses(), s.SortedStatuses())
	}
	if !reflect.DeepEqual(back.SortedReleases(), s.SortedReleases()) {
		t.Fatalf("release round trip: %v vs %v", back.SortedReleases(), s.SortedReleases())
	}
	if back.Search != "price" {
		t.Fatalf("search round trip: %q", back.Search)
	}
}

func TestRestorePrecedenceURLOverStore(t *testing.T) {
	p := mapProject()
	stored, err := EncodeStored(State{
		Statuses: map[model.StoryStatus]bool{model.StatusDone: true},
		Releases: map[int64]bool{501: true},
		Search:   "from-store",
	})
	if err != nil {
		t.Fatalf("EncodeStored error: %v", err)
	}

	// Store only.
	s := Restore(p, url.Values{}, stored)
	if !reflect.DeepEqual(s.SortedStatuses(), []model.StoryStatus{model.StatusDone}) {
		t.Fatalf("store restore wrong: %v", s.SortedStatuses())
	}
	if s.Search != "from-store" {
		t.Fatalf("store search wrong: %q", s.Search)
	}

	// URL overrides store field-by-field.
	q := url.Values{}
	q.Set("status", "todo")
	q.Set("search", "from-url")
	s = Restore(p, q, stored)
	if !reflect.DeepEqual(s.SortedStatuses(), []model.StoryStatus{model.StatusTodo}) {
		t.Fatalf("URL must override store: %v", s.SortedStatuses())
	}
	if s.Search != "from-url" {
		t.Fatalf("URL search must override store: %q", s.Search)
	}
	// Release untouched by URL: store value stands.
	if !reflect.DeepEqual(s.SortedReleases(), []int64{501}) {
		t.Fatalf("store releases must stand: %v", s.SortedReleases())
	}
}

func TestRestoreSanitizesStaleReleases(t *testing.T) {
	p := mapProject()
	q := url.Values{}
	q.Set("releases", "500,888")
	s := Restore(p, q, "")
	if !reflect.DeepEqual(s.SortedReleases(), []int64{500}) {
		t.Fatalf("stale id must be dropped: %v", s.SortedReleases())
	}

	// All ids stale: fall back to all rather than none.
	q.Set("releases", "888,999")
	s = Restore(p, q, "")
	if !s.AllReleasesOn(p) {
		t.Fatalf("expected fallback to all releases; got %v", s.SortedReleases())
	}

	// Garbage input.
	q.Set("releases", "not-a-number")
	s = Restore(p, q, "")
	if !s.AllReleasesOn(p) {
		t.Fatalf("expected fallback on garbage; got %v", s.SortedReleases())
	}

	// Corrupt stored JSON falls back to defaults.
	s = Restore(p, url.Values{}, "{nope")
	if !s.IsDefault(p) {
		t.Fatalf("corrupt store must restore defaults")
	}
}

func TestReleaseProgressCountsFilteredView(t *testing.T) {
	p := mapProject()
	pr := ReleaseProgress(p)
	if pr[500].Total != 2 || pr[500].Done != 1 || pr[500].Percent != 50 {
		t.Fatalf("release 500 progress wrong: %+v", pr[500])
	}
	if pr[501].Total != 1 || pr[501].Done != 0 || pr[501].Percent != 0 {
		t.Fatalf("release 501 progress wrong: %+v", pr[501])
	}

	// Progress over a filtered tree reflects only what is visible.
	s := Default(p)
	s.Statuses = map[model.StoryStatus]bool{model.StatusDone: true}
	pr = ReleaseProgress(Apply(p, s))
	if pr[500].Total != 1 || pr[500].Percent != 100 {
		t.Fatalf("filtered progress wrong: %+v", pr[500])
	}
}

func TestActivityWidthTracksTaskCount(t *testing.T) {
	p := mapProject()
	twoTasks := ActivityWidth(p.Activities[0])
	oneTask := ActivityWidth(p.Activities[1])
	if twoTasks != 2*TaskColWidth+ColGap {
		t.Fatalf("two-task width wrong: %d", twoTasks)
	}
	if oneTask != TaskColWidth {
		t.Fatalf("one-task width wrong: %d", oneTask)
	}
	if ActivityWidth(model.Activity{}) != TaskColWidth {
		t.Fatalf("empty activity must still occupy one column")
	}
}
