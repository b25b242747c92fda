package tui

import (
	"context"
	"strings"
	"time"

	"storymap-cli/internal/dnd"
	"storymap-cli/internal/engine"
	"storymap-cli/internal/filter"
	"storymap-cli/internal/model"
	"storymap-cli/internal/state"
	"storymap-cli/internal/transform"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type mode int

const (
	modeBoard mode = iota
	modeMoveStory
	modeMoveTask
	modeDetail
	modeInput
	modeSearch
	modeReleases
)

type inputKind int

const (
	inputAddActivity inputKind = iota
	inputAddTask
	inputAddStory
	inputRenameActivity
	inputRenameTask
	inputRenameStory
)

type flashLevel int

const (
	flashInfo flashLevel = iota
	flashSuccess
	flashError
)

type projectMsg struct{ project model.Project }

type flashMsg struct {
	level flashLevel
	text  string
}

type undoFlashMsg struct {
	text string
	undo func()
}

type flashClearMsg struct{ seq int }

type opDoneMsg struct{ err error }

type sessionExpiredMsg struct{}

// column addresses one task column in the visible tree.
type column struct {
	act  int
	task int
}

// cursor is a cell-and-slot address: column, release row (0 = unscheduled,
// then releases in project order), story index within the bucket.
type cursor struct {
	col int
	row int
	idx int
}

type appModel struct {
	eng *engine.Engine

	project model.Project // last published tree
	visible model.Project // filtered view of project
	filter  filter.State

	// persist writes the filter state to the client store; called on every
	// filter change so a crash loses nothing.
	persist func(filter.State)

	width  int
	height int

	mode mode
	cur  cursor

	// Move session state.
	movingStory int64
	movingTask  int64
	target      cursor
	taskTarget  int

	input       textinput.Model
	inputKind   inputKind
	inputTarget int64
	drafts      *state.Drafts[string]

	detailStory int64

	flash      string
	flashLevel flashLevel
	flashSeq   int

	pendingUndo func()

	quitting bool
}

func newAppModel(eng *engine.Engine, p model.Project, fs filter.State) appModel {
	m := appModel{
		eng:     eng,
		project: p,
		filter:  fs,
		drafts:  state.NewDrafts[string](),
	}
	m.visible = filter.Apply(p, fs)
	return m
}

func (m appModel) Init() tea.Cmd { return nil }

// columns flattens the visible tree into the board's task columns.
func (m appModel) columns() []column {
	var cols []column
	for ai, a := range m.visible.Activities {
		for ti := range a.Tasks {
			cols = append(cols, column{act: ai, task: ti})
		}
	}
	return cols
}

// rows returns the release rows: unscheduled first, then the project's
// releases in order.
func (m appModel) rows() []*int64 {
	out := []*int64{nil}
	for i := range m.visible.Releases {
		out = append(out, &m.visible.Releases[i].ID)
	}
	return out
}

func (m appModel) taskAt(c cursor) (model.Task, model.Activity, bool) {
	cols := m.columns()
	if c.col < 0 || c.col >= len(cols) {
		return model.Task{}, model.Activity{}, false
	}
	a := m.visible.Activities[cols[c.col].act]
	return a.Tasks[cols[c.col].task], a, true
}

func (m appModel) bucketAt(c cursor) []model.Story {
	t, _, ok := m.taskAt(c)
	if !ok {
		return nil
	}
	rows := m.rows()
	if c.row < 0 || c.row >= len(rows) {
		return nil
	}
	return t.Bucket(rows[c.row])
}

func (m appModel) selectedStory() (model.Story, bool) {
	b := m.bucketAt(m.cur)
	if m.cur.idx < 0 || m.cur.idx >= len(b) {
		return model.Story{}, false
	}
	return b[m.cur.idx], true
}

func clampCursor(m appModel, c cursor) cursor {
	cols := m.columns()
	if len(cols) == 0 {
		return cursor{}
	}
	if c.col < 0 {
		c.col = 0
	}
	if c.col >= len(cols) {
		c.col = len(cols) - 1
	}
	rows := m.rows()
	if c.row < 0 {
		c.row = 0
	}
	if c.row >= len(rows) {
		c.row = len(rows) - 1
	}
	b := m.bucketAt(cursor{col: c.col, row: c.row})
	if c.idx >= len(b) {
		c.idx = len(b) - 1
	}
	if c.idx < 0 {
		c.idx = 0
	}
	return c
}

// navigate applies one arrow step to a cursor. Vertical movement walks
// through the bucket and spills into the adjacent release row.
func navigate(m appModel, c cursor, key string) cursor {
	switch key {
	case "left", "h":
		c.col--
		c.idx = 0
	case "right", "l":
		c.col++
		c.idx = 0
	case "up", "k":
		if c.idx > 0 {
			c.idx--
		} else if c.row > 0 {
			c.row--
			c.idx = len(m.bucketAt(cursor{col: c.col, row: c.row})) - 1
		}
	case "down", "j":
		b := m.bucketAt(c)
		if c.idx < len(b)-1 {
			c.idx++
		} else if c.row < len(m.rows())-1 {
			c.row++
			c.idx = 0
		}
	}
	return clampCursor(m, c)
}

// runOp wraps a blocking engine call in a command. Tree updates arrive
// separately through publish; the returned error only matters for local
// validation failures that never hit the notifier.
func runOp(op func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: op(context.Background())}
	}
}

func (m appModel) flashCmd() tea.Cmd {
	seq := m.flashSeq
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg { return flashClearMsg{seq: seq} })
}

func (m *appModel) setFlash(level flashLevel, text string) tea.Cmd {
	m.flashSeq++
	m.flash = text
	m.flashLevel = level
	return m.flashCmd()
}

func (m *appModel) refilter() {
	m.visible = filter.Apply(m.project, m.filter)
	m.cur = clampCursor(*m, m.cur)
	if m.persist != nil {
		m.persist(m.filter)
	}
	if m.mode == modeMoveStory || m.mode == modeMoveTask {
		// The tree changed under the session; drop it rather than aim at
		// stale coordinates.
		m.mode = modeBoard
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case projectMsg:
		m.project = msg.project
		// A new tree can add or drop releases; re-sanitize the filter
		// through its own codec rather than poking at the sets here.
		if enc, err := filter.EncodeStored(m.filter); err == nil {
			m.filter = filter.Restore(m.project, nil, enc)
		}
		m.refilter()
		return m, nil

	case flashMsg:
		m.pendingUndo = nil
		return m, m.setFlash(msg.level, msg.text)

	case undoFlashMsg:
		m.pendingUndo = msg.undo
		return m, m.setFlash(flashInfo, msg.text+"  (u: undo)")

	case flashClearMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
			m.pendingUndo = nil
		}
		return m, nil

	case opDoneMsg:
		if msg.err == engine.ErrTitleRequired {
			return m, m.setFlash(flashError, "Title required")
		}
		return m, nil

	case sessionExpiredMsg:
		// No way to re-authenticate from inside the board.
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeInput:
		return m.updateInput(msg)
	case modeSearch:
		return m.updateSearch(msg)
	case modeDetail:
		switch msg.String() {
		case "esc", "enter", "q":
			m.mode = modeBoard
		}
		return m, nil
	case modeReleases:
		return m.updateReleases(msg)
	case modeMoveStory:
		return m.updateMoveStory(msg)
	case modeMoveTask:
		return m.updateMoveTask(msg)
	}
	return m.updateBoard(msg)
}

func (m appModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "left", "h", "right", "l", "up", "k", "down", "j":
		m.cur = navigate(m, m.cur, key)
		return m, nil

	case "enter":
		if s, ok := m.selectedStory(); ok {
			m.detailStory = s.ID
			m.mode = modeDetail
		}
		return m, nil

	case "s":
		if s, ok := m.selectedStory(); ok {
			id := s.ID
			return m, runOp(func(ctx context.Context) error {
				return m.eng.CycleStoryStatus(ctx, id)
			})
		}
		return m, nil

	case "d":
		if s, ok := m.selectedStory(); ok {
			_ = m.eng.DeleteStory(s.ID)
		}
		return m, nil

	case "u":
		if m.pendingUndo != nil {
			m.pendingUndo()
			m.pendingUndo = nil
		}
		return m, nil

	case "m":
		if s, ok := m.selectedStory(); ok {
			m.movingStory = s.ID
			m.target = m.cur
			m.mode = modeMoveStory
		}
		return m, nil

	case "t":
		if t, _, ok := m.taskAt(m.cur); ok {
			m.movingTask = t.ID
			m.taskTarget = m.columns()[m.cur.col].task
			m.mode = modeMoveTask
		}
		return m, nil

	case "a":
		if t, _, ok := m.taskAt(m.cur); ok {
			return m.openInput(inputAddStory, t.ID, "New story title"), nil
		}
		return m, nil

	case "A":
		if _, a, ok := m.taskAt(m.cur); ok {
			return m.openInput(inputAddTask, a.ID, "New task title"), nil
		}
		return m, nil

	case "ctrl+a":
		return m.openInput(inputAddActivity, 0, "New activity title"), nil

	case "e":
		if s, ok := m.selectedStory(); ok {
			mm := m.openInput(inputRenameStory, s.ID, "Story title")
			if mm.input.Value() == "" {
				mm.input.SetValue(s.Title)
			}
			return mm, nil
		}
		return m, nil

	case "E":
		if t, _, ok := m.taskAt(m.cur); ok {
			mm := m.openInput(inputRenameTask, t.ID, "Task title")
			if mm.input.Value() == "" {
				mm.input.SetValue(t.Title)
			}
			return mm, nil
		}
		return m, nil

	case "ctrl+e":
		if _, a, ok := m.taskAt(m.cur); ok {
			mm := m.openInput(inputRenameActivity, a.ID, "Activity title")
			if mm.input.Value() == "" {
				mm.input.SetValue(a.Title)
			}
			return mm, nil
		}
		return m, nil

	case "/":
		m.input = textinput.New()
		m.input.Placeholder = "Search stories"
		m.input.SetValue(m.filter.Search)
		m.input.Focus()
		m.mode = modeSearch
		return m, nil

	case "r":
		m.mode = modeReleases
		return m, nil

	case "1", "2", "3", "4":
		statuses := model.AllStatuses()
		i := int(key[0] - '1')
		if i < len(statuses) {
			m.filter.ToggleStatus(statuses[i])
			m.refilter()
		}
		return m, nil

	case "z":
		m.filter.Reset(m.project)
		m.refilter()
		return m, nil
	}
	return m, nil
}

// draftKey folds the input kind into the entity id so drafts for different
// operations on the same entity stay separate.
func draftKey(kind inputKind, target int64) int64 {
	return target*16 + int64(kind)
}

func (m appModel) openInput(kind inputKind, target int64, placeholder string) appModel {
	m.input = textinput.New()
	m.input.Placeholder = placeholder
	m.input.CharLimit = 200
	m.input.Focus()
	if v, ok := m.drafts.Get(draftKey(kind, target)); ok {
		m.input.SetValue(v)
	}
	m.inputKind = kind
	m.inputTarget = target
	m.mode = modeInput
	return m
}

func (m appModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		// Keep the unsent text; reopening the editor restores it.
		if v := m.input.Value(); strings.TrimSpace(v) != "" {
			m.drafts.Set(draftKey(m.inputKind, m.inputTarget), v)
		}
		m.mode = modeBoard
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.input.Value())
		m.mode = modeBoard
		if title == "" {
			return m, m.setFlash(flashError, "Title required")
		}
		m.drafts.Clear(draftKey(m.inputKind, m.inputTarget))
		kind, target := m.inputKind, m.inputTarget
		rows := m.rows()
		var rel *int64
		if m.cur.row > 0 && m.cur.row < len(rows) {
			rel = rows[m.cur.row]
		}
		return m, runOp(func(ctx context.Context) error {
			switch kind {
			case inputAddActivity:
				return m.eng.CreateActivity(ctx, title)
			case inputAddTask:
				return m.eng.CreateTask(ctx, target, title)
			case inputAddStory:
				return m.eng.CreateStory(ctx, target, rel, title, "")
			case inputRenameActivity:
				return m.eng.RenameActivity(ctx, target, title)
			case inputRenameTask:
				return m.eng.RenameTask(ctx, target, title)
			case inputRenameStory:
				return m.eng.UpdateStory(ctx, target, transform.StoryPatch{Title: &title})
			}
			return nil
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m appModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeBoard
		return m, nil
	case "enter":
		m.filter.Search = m.input.Value()
		m.refilter()
		m.mode = modeBoard
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	// Live filtering while typing.
	m.filter.Search = m.input.Value()
	m.refilter()
	m.mode = modeSearch
	return m, cmd
}

func (m appModel) updateReleases(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc", "r", "q", "enter":
		m.mode = modeBoard
		return m, nil
	case "a":
		for _, r := range m.project.Releases {
			if !m.filter.Releases[r.ID] {
				m.filter.ToggleRelease(m.project, r.ID)
			}
		}
		m.refilter()
		m.mode = modeReleases
		return m, nil
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		i := int(key[0] - '1')
		if i < len(m.project.Releases) {
			m.filter.ToggleRelease(m.project, m.project.Releases[i].ID)
			m.refilter()
			m.mode = modeReleases
		}
	}
	return m, nil
}

func (m appModel) updateMoveStory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc":
		m.mode = modeBoard
		return m, nil

	case "left", "h", "right", "l", "up", "k", "down", "j":
		m.target = navigate(m, m.target, key)
		return m, nil

	case "enter":
		m.mode = modeBoard
		s, taskID, ok := m.project.FindStory(m.movingStory)
		if !ok {
			return m, nil
		}
		active := dnd.ActiveStory{StoryID: s.ID, TaskID: taskID, ReleaseID: s.ReleaseID}

		t, _, ok := m.taskAt(m.target)
		if !ok {
			return m, nil
		}
		rows := m.rows()
		rel := rows[m.target.row]
		bucket := t.Bucket(rel)

		var over dnd.Over
		if len(bucket) == 0 {
			over = dnd.OverCell{TaskID: t.ID, ReleaseID: rel}
		} else {
			idx := m.target.idx
			if idx >= len(bucket) {
				idx = len(bucket) - 1
			}
			over = dnd.OverStory{StoryID: bucket[idx].ID, TaskID: t.ID, ReleaseID: rel}
		}

		instr, ok := dnd.Resolve(m.project, active, over)
		if !ok {
			return m, nil
		}
		return m, runOp(func(ctx context.Context) error {
			return m.eng.Apply(ctx, instr)
		})
	}
	return m, nil
}

func (m appModel) updateMoveTask(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	_, activityID, _, ok := m.project.FindTask(m.movingTask)
	if !ok {
		m.mode = modeBoard
		return m, nil
	}
	act, _ := m.project.FindActivity(activityID)

	switch key {
	case "esc":
		m.mode = modeBoard
		return m, nil

	case "left", "h":
		if m.taskTarget > 0 {
			m.taskTarget--
		}
		return m, nil

	case "right", "l":
		// len(act.Tasks) is the tail drop zone.
		if m.taskTarget < len(act.Tasks) {
			m.taskTarget++
		}
		return m, nil

	case "enter":
		m.mode = modeBoard
		active := dnd.ActiveTask{TaskID: m.movingTask, ActivityID: activityID}
		var over dnd.Over
		if m.taskTarget >= len(act.Tasks) {
			over = dnd.OverActivityZone{ActivityID: activityID}
		} else {
			over = dnd.OverTask{TaskID: act.Tasks[m.taskTarget].ID, ActivityID: activityID}
		}
		instr, ok := dnd.Resolve(m.project, active, over)
		if !ok {
			return m, nil
		}
		return m, runOp(func(ctx context.Context) error {
			return m.eng.Apply(ctx, instr)
		})
	}
	return m, nil
}
