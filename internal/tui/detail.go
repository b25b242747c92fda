package tui

import (
	"fmt"
	"strings"
	"sync"

	"storymap-cli/internal/model"

	"github.com/charmbracelet/glamour"
)

var (
	mdRendererMu sync.Mutex
	// Cache renderers by wrap width. WithAutoStyle can block on terminal
	// queries in some setups, so a fixed style + cache keeps the detail
	// view snappy.
	mdRenderers = map[int]*glamour.TermRenderer{}
)

func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	mdRendererMu.Lock()
	r := mdRenderers[width]
	mdRendererMu.Unlock()

	if r == nil {
		style := "dark"
		if !hasDarkBackground() {
			style = "light"
		}
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRendererMu.Lock()
		if existing := mdRenderers[width]; existing != nil {
			r = existing
		} else {
			mdRenderers[width] = rr
			r = rr
		}
		mdRendererMu.Unlock()
	}

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// viewDetail renders the selected story as a markdown document.
func (m appModel) viewDetail() string {
	s, taskID, ok := m.project.FindStory(m.detailStory)
	if !ok {
		return footerStyle.Render("Story no longer exists.  esc: back")
	}
	task, _, _, _ := m.project.FindTask(taskID)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	fmt.Fprintf(&b, "**Task:** %s  \n", task.Title)
	fmt.Fprintf(&b, "**Status:** %s  \n", statusLabel(s.Status))
	if s.ReleaseID != nil {
		if r, ok := m.project.FindRelease(*s.ReleaseID); ok {
			fmt.Fprintf(&b, "**Release:** %s  \n", r.Title)
		}
	} else {
		b.WriteString("**Release:** unscheduled  \n")
	}
	if s.Priority != "" {
		fmt.Fprintf(&b, "**Priority:** %s  \n", s.Priority)
	}
	if strings.TrimSpace(s.Description) != "" {
		b.WriteString("\n" + s.Description + "\n")
	}
	if len(s.AcceptanceCriteria) > 0 {
		b.WriteString("\n## Acceptance criteria\n\n")
		for _, c := range s.AcceptanceCriteria {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	width := m.width - 4
	if width < 40 {
		width = 40
	}
	return renderMarkdown(b.String(), width) + "\n\n" + footerStyle.Render("esc: back")
}

func statusLabel(s model.StoryStatus) string {
	if s == "" {
		return string(model.StatusTodo)
	}
	return string(s)
}
