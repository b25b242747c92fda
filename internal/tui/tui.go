// Package tui is the interactive story-map board: a release-by-task grid
// with keyboard move sessions, inline editing, filtering and the delete
// undo window. All mutations go through the engine; the board only renders
// the trees the engine publishes.
package tui

import (
	"context"
	"net/url"

	"storymap-cli/internal/engine"
	"storymap-cli/internal/filter"
	"storymap-cli/internal/model"
	"storymap-cli/internal/remote"
	"storymap-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the board for one project. The filter state is restored from
// the query (--filter) and the client store, query winning field by field,
// and every subsequent change is written back to the store.
func Run(s store.Store, c *remote.Client, p model.Project, query url.Values) error {
	applyColorProfilePreference()
	applyThemePreference()

	ctx := context.Background()
	stored, _ := s.LoadFilter(ctx, p.ID)
	fs := filter.Restore(p, query, stored)

	// The engine publishes into the program's mailbox; the program does not
	// exist until after the engine, so sends go through an indirection that
	// is nil-safe until Run.
	var prog *tea.Program
	send := func(msg tea.Msg) {
		if prog != nil {
			prog.Send(msg)
		}
	}

	eng := engine.New(c, engine.Options{
		Publish:        func(p model.Project) { send(projectMsg{project: p}) },
		Notifier:       programNotifier{send: send},
		OnUnauthorized: func() { send(sessionExpiredMsg{}) },
	})
	eng.SetProject(p)

	m := newAppModel(eng, p, fs)
	m.persist = func(st filter.State) {
		if enc, err := filter.EncodeStored(st); err == nil {
			_ = s.SaveFilter(ctx, p.ID, enc)
		}
	}
	prog = tea.NewProgram(m, tea.WithAltScreen())
	_, err := prog.Run()
	return err
}

// programNotifier forwards engine notifications into the update loop.
type programNotifier struct {
	send func(tea.Msg)
}

func (n programNotifier) Success(msg string) { n.send(flashMsg{level: flashSuccess, text: msg}) }
func (n programNotifier) Error(msg string)   { n.send(flashMsg{level: flashError, text: msg}) }
func (n programNotifier) Info(msg string)    { n.send(flashMsg{level: flashInfo, text: msg}) }

func (n programNotifier) ShowWithUndo(msg string, undo func()) {
	n.send(undoFlashMsg{text: msg, undo: undo})
}
