package model

import "testing"

func i64(v int64) *int64 { return &v }

func TestSameRelease(t *testing.T) {
	if !SameRelease(nil, nil) {
		t.Fatalf("nil == nil")
	}
	if SameRelease(i64(1), nil) || SameRelease(nil, i64(1)) {
		t.Fatalf("nil != value")
	}
	if !SameRelease(i64(5), i64(5)) {
		t.Fatalf("equal values")
	}
	if SameRelease(i64(5), i64(6)) {
		t.Fatalf("different values")
	}
}

func TestBucketSortsByPosition(t *testing.T) {
	task := Task{Stories: []Story{
		{ID: 3, ReleaseID: i64(1), Position: 2},
		{ID: 1, ReleaseID: i64(1), Position: 0},
		{ID: 9, ReleaseID: nil, Position: 0},
		{ID: 2, ReleaseID: i64(1), Position: 1},
	}}

	b := task.Bucket(i64(1))
	if len(b) != 3 || b[0].ID != 1 || b[1].ID != 2 || b[2].ID != 3 {
		t.Fatalf("bucket order wrong: %+v", b)
	}
	if n := task.BucketLen(nil); n != 1 {
		t.Fatalf("nil bucket len: %d", n)
	}
}

func TestStatusCycleSkipsBlocked(t *testing.T) {
	cases := map[StoryStatus]StoryStatus{
		StatusTodo:       StatusInProgress,
		StatusInProgress: StatusDone,
		StatusDone:       StatusTodo,
		StatusBlocked:    StatusTodo,
	}
	for from, want := range cases {
		if got := from.Next(); got != want {
			t.Fatalf("%s.Next() = %s, want %s", from, got, want)
		}
	}
}

func TestFindersReportOwnership(t *testing.T) {
	p := Project{Activities: []Activity{
		{ID: 1, Tasks: []Task{
			{ID: 10, Stories: []Story{{ID: 100}}},
			{ID: 11},
		}},
	}}

	if _, activityID, idx, ok := p.FindTask(11); !ok || activityID != 1 || idx != 1 {
		t.Fatalf("FindTask: activity=%d idx=%d ok=%v", activityID, idx, ok)
	}
	if _, taskID, ok := p.FindStory(100); !ok || taskID != 10 {
		t.Fatalf("FindStory: task=%d ok=%v", taskID, ok)
	}
	if _, _, ok := p.FindStory(999); ok {
		t.Fatalf("missing story found")
	}
	if !IsTemp(-1) || IsTemp(1) {
		t.Fatalf("IsTemp")
	}
}
