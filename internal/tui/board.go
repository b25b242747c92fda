package tui

import (
	"fmt"
	"strings"

	"storymap-cli/internal/filter"
	"storymap-cli/internal/model"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

func (m appModel) View() string {
	if m.quitting {
		return ""
	}
	if m.mode == modeDetail {
		return m.viewDetail()
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n\n")
	b.WriteString(m.viewBoard())
	b.WriteString("\n")
	b.WriteString(m.viewFooter())
	return b.String()
}

func (m appModel) viewHeader() string {
	title := headerStyle.Render(m.project.Name)
	var badges []string
	if !m.filter.AllStatusesOn() {
		var on []string
		for _, s := range m.filter.SortedStatuses() {
			on = append(on, string(s))
		}
		badges = append(badges, "status:"+strings.Join(on, ","))
	}
	if !m.filter.AllReleasesOn(m.project) {
		badges = append(badges, fmt.Sprintf("releases:%d/%d", len(m.filter.SortedReleases()), len(m.project.Releases)))
	}
	if q := strings.TrimSpace(m.filter.Search); q != "" {
		badges = append(badges, "search:"+q)
	}
	if len(badges) == 0 {
		return title
	}
	return title + "  " + filterBadgeStyle.Render(strings.Join(badges, "  "))
}

// viewBoard renders the grid: activity headers over task columns, then one
// row per release bucket (unscheduled first).
func (m appModel) viewBoard() string {
	if len(m.visible.Activities) == 0 {
		return emptyCellStyle.Render("No activities yet. ctrl+a adds one.")
	}

	var parts []string
	parts = append(parts, m.viewActivityRow())
	parts = append(parts, m.viewTaskRow())

	rows := m.rows()
	for ri, rel := range rows {
		parts = append(parts, m.viewReleaseLabel(rel))
		parts = append(parts, m.viewStoryRow(ri, rel))
	}
	return strings.Join(parts, "\n")
}

func (m appModel) viewActivityRow() string {
	var cells []string
	for _, a := range m.visible.Activities {
		w := filter.ActivityWidth(a)
		cells = append(cells, activityStyle.Render(pad(truncate(a.Title, w), w)))
	}
	return strings.Join(cells, strings.Repeat(" ", filter.ColGap))
}

func (m appModel) viewTaskRow() string {
	cols := m.columns()
	var cells []string
	for ci, c := range cols {
		t := m.visible.Activities[c.act].Tasks[c.task]
		label := truncate(t.Title, filter.TaskColWidth)
		st := taskStyle
		if ci == m.cur.col && m.mode != modeMoveTask {
			st = st.Foreground(colorAccent)
		}
		if m.mode == modeMoveTask && t.ID == m.movingTask {
			st = moveTargetStyle
		}
		cells = append(cells, st.Render(pad(label, filter.TaskColWidth)))
	}
	row := strings.Join(cells, strings.Repeat(" ", filter.ColGap))
	if m.mode == modeMoveTask {
		row += "  " + moveTargetStyle.Render(fmt.Sprintf("→ slot %d (enter: drop, esc: cancel)", m.taskTarget))
	}
	return row
}

func (m appModel) viewReleaseLabel(rel *int64) string {
	if rel == nil {
		return releaseLabelStyle.Render("Unscheduled")
	}
	r, _ := m.visible.FindRelease(*rel)
	pr := filter.ReleaseProgress(m.visible)[*rel]
	meta := fmt.Sprintf("%d/%d done (%d%%)", pr.Done, pr.Total, pr.Percent)
	return releaseLabelStyle.Render(r.Title) + " " + releaseMetaStyle.Render(meta)
}

func (m appModel) viewStoryRow(rowIdx int, rel *int64) string {
	cols := m.columns()
	var cells []string
	for ci, c := range cols {
		t := m.visible.Activities[c.act].Tasks[c.task]
		cells = append(cells, m.viewCell(ci, rowIdx, t, rel))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, joinWithGap(cells)...)
}

func (m appModel) viewCell(colIdx, rowIdx int, t model.Task, rel *int64) string {
	bucket := t.Bucket(rel)
	if len(bucket) == 0 {
		line := emptyCellStyle.Render(pad("·", filter.TaskColWidth))
		if m.mode == modeMoveStory && m.target.col == colIdx && m.target.row == rowIdx {
			line = moveTargetStyle.Render(pad("▸ here", filter.TaskColWidth))
		}
		return line
	}

	var lines []string
	for i, s := range bucket {
		glyph, gcolor := statusGlyph(string(s.Status))
		label := glyph + " " + s.Title
		if m.eng.Loading.BusyAnywhere(s.ID) {
			label += " …"
		}
		label = truncate(label, filter.TaskColWidth)

		st := lipgloss.NewStyle().Foreground(gcolor)
		switch {
		case m.mode == modeMoveStory && s.ID == m.movingStory:
			st = busyMarkerStyle
		case m.mode == modeMoveStory && m.target.col == colIdx && m.target.row == rowIdx && m.target.idx == i:
			st = moveTargetStyle
		case m.mode != modeMoveStory && m.cur.col == colIdx && m.cur.row == rowIdx && m.cur.idx == i:
			st = selectedCardStyle
		}
		lines = append(lines, st.Render(pad(label, filter.TaskColWidth)))
	}
	return strings.Join(lines, "\n")
}

func (m appModel) viewFooter() string {
	if m.mode == modeInput || m.mode == modeSearch {
		return m.input.View()
	}
	if m.mode == modeReleases {
		return m.viewReleasePicker()
	}
	if m.flash != "" {
		switch m.flashLevel {
		case flashError:
			return flashErrorStyle.Render(m.flash)
		case flashSuccess:
			return flashSuccessStyle.Render(m.flash)
		default:
			return flashInfoStyle.Render(m.flash)
		}
	}
	switch m.mode {
	case modeMoveStory:
		return footerStyle.Render("arrows: aim  enter: drop  esc: cancel")
	case modeMoveTask:
		return footerStyle.Render("←/→: aim  enter: drop  esc: cancel")
	}
	return footerStyle.Render("arrows: move  enter: detail  s: status  m/t: move  a/A: add  e/E: edit  d: delete  /: search  1-4: status filter  r: releases  z: reset  q: quit")
}

func (m appModel) viewReleasePicker() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render("Releases") + "  ")
	for i, r := range m.project.Releases {
		label := fmt.Sprintf("%d:%s", i+1, r.Title)
		if m.filter.Releases[r.ID] {
			b.WriteString(pickerEnabledStyle.Render(label))
		} else {
			b.WriteString(footerStyle.Render(label))
		}
		b.WriteString("  ")
	}
	b.WriteString(footerStyle.Render("(digits toggle, a: all, esc: close)"))
	return b.String()
}

// joinWithGap interleaves single-space spacers so JoinHorizontal keeps the
// same column geometry as the header rows.
func joinWithGap(cells []string) []string {
	gap := strings.Repeat(" ", filter.ColGap)
	out := make([]string, 0, len(cells)*2)
	for i, c := range cells {
		if i > 0 {
			out = append(out, gap)
		}
		out = append(out, c)
	}
	return out
}

func truncate(s string, w int) string {
	if xansi.StringWidth(s) <= w {
		return s
	}
	if w <= 1 {
		return xansi.Cut(s, 0, w)
	}
	return xansi.Cut(s, 0, w-1) + "…"
}

func pad(s string, w int) string {
	if d := w - xansi.StringWidth(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}
