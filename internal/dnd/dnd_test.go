package dnd

import (
	"reflect"
	"testing"

	"storymap-cli/internal/model"
)

func i64(v int64) *int64 { return &v }

func board() model.Project {
	return model.Project{
		ID: 1,
		Activities: []model.Activity{
			{
				ID: 10,
				Tasks: []model.Task{
					{ID: 100, Stories: []model.Story{
						{ID: 1000, ReleaseID: i64(500), Position: 0},
						{ID: 1001, ReleaseID: i64(500), Position: 1},
					}},
					{ID: 101},
				},
			},
			{
				ID:    11,
				Tasks: []model.Task{{ID: 102}},
			},
		},
		Releases: []model.Release{{ID: 500}, {ID: 501}},
	}
}

func TestResolveTable(t *testing.T) {
	p := board()
	cases := []struct {
		name   string
		active Active
		over   Over
		want   Instruction
		ok     bool
	}{
		{
			name:   "task over sibling task",
			active: ActiveTask{TaskID: 101, ActivityID: 10},
			over:   OverTask{TaskID: 100, ActivityID: 10},
			want:   MoveTask{ActivityID: 10, TaskID: 101, Position: 0},
			ok:     true,
		},
		{
			name:   "task over own activity zone lands at end",
			active: ActiveTask{TaskID: 100, ActivityID: 10},
			over:   OverActivityZone{ActivityID: 10},
			want:   MoveTask{ActivityID: 10, TaskID: 100, Position: 2},
			ok:     true,
		},
		{
			name:   "task over itself",
			active: ActiveTask{TaskID: 100, ActivityID: 10},
			over:   OverTask{TaskID: 100, ActivityID: 10},
		},
		{
			name:   "cross-activity task move unsupported",
			active: ActiveTask{TaskID: 100, ActivityID: 10},
			over:   OverTask{TaskID: 102, ActivityID: 11},
		},
		{
			name:   "task over foreign activity zone",
			active: ActiveTask{TaskID: 100, ActivityID: 10},
			over:   OverActivityZone{ActivityID: 11},
		},
		{
			name:   "task over story",
			active: ActiveTask{TaskID: 100, ActivityID: 10},
			over:   OverStory{StoryID: 1000, TaskID: 100, ReleaseID: i64(500)},
		},
		{
			name:   "story over story targets its bucket and position",
			active: ActiveStory{StoryID: 1001, TaskID: 100, ReleaseID: i64(500)},
			over:   OverStory{StoryID: 1000, TaskID: 100, ReleaseID: i64(500)},
			want:   MoveStory{StoryID: 1001, TaskID: 100, ReleaseID: i64(500), Position: 0},
			ok:     true,
		},
		{
			name:   "story over itself",
			active: ActiveStory{StoryID: 1000, TaskID: 100, ReleaseID: i64(500)},
			over:   OverStory{StoryID: 1000, TaskID: 100, ReleaseID: i64(500)},
		},
		{
			name:   "story over empty cell lands at head",
			active: ActiveStory{StoryID: 1000, TaskID: 100, ReleaseID: i64(500)},
			over:   OverCell{TaskID: 102, ReleaseID: i64(501)},
			want:   MoveStory{StoryID: 1000, TaskID: 102, ReleaseID: i64(501), Position: 0},
			ok:     true,
		},
		{
			name:   "story over nil-release cell",
			active: ActiveStory{StoryID: 1000, TaskID: 100, ReleaseID: i64(500)},
			over:   OverCell{TaskID: 101, ReleaseID: nil},
			want:   MoveStory{StoryID: 1000, TaskID: 101, ReleaseID: nil, Position: 0},
			ok:     true,
		},
		{
			name:   "story over task",
			active: ActiveStory{StoryID: 1000, TaskID: 100, ReleaseID: i64(500)},
			over:   OverTask{TaskID: 101, ActivityID: 10},
		},
		{
			name:   "story over cell of missing task",
			active: ActiveStory{StoryID: 1000, TaskID: 100, ReleaseID: i64(500)},
			over:   OverCell{TaskID: 999, ReleaseID: i64(500)},
		},
		{
			name:   "story over stale story id",
			active: ActiveStory{StoryID: 1000, TaskID: 100, ReleaseID: i64(500)},
			over:   OverStory{StoryID: 9999, TaskID: 100, ReleaseID: i64(500)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Resolve(p, tc.active, tc.over)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v; got ok=%v (instr=%v)", tc.ok, ok, got)
			}
			if !ok {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %#v; got %#v", tc.want, got)
			}
		})
	}
}
