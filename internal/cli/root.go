// Package cli is the scriptable surface: thin cobra commands over the same
// mutation engine the TUI uses. Every mutating command fetches the project,
// runs one engine operation and prints the outcome as JSON.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"storymap-cli/internal/engine"
	"storymap-cli/internal/remote"
	"storymap-cli/internal/store"
	"storymap-cli/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	Server     string
	Project    int64
	Filter     string
	PrettyJSON bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "storymap",
		Short:        "Story map editor (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive board
  storymap

  # Scriptable commands
  storymap login --server http://localhost:8000 --email me@example.com
  storymap projects list
  storymap use 7
  storymap story add --task 12 --title "Search by name"
  storymap story mv 1000 --task 13 --release 5 --position 0
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive board.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("STORYMAP_DIR", ""), "Path to the local state dir (default: current directory)")
	cmd.PersistentFlags().StringVar(&app.Server, "server", envOr("STORYMAP_SERVER", ""), "Server base URL (overrides the saved session)")
	cmd.PersistentFlags().Int64Var(&app.Project, "project", 0, "Project id (overrides the saved current project)")
	cmd.PersistentFlags().StringVar(&app.Filter, "filter", "", "Filter query, e.g. 'status=done&search=pay' (overrides the saved filter field by field)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newUseCmd(app))
	cmd.AddCommand(newGenerateCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newActivityCmd(app))
	cmd.AddCommand(newTaskCmd(app))
	cmd.AddCommand(newStoryCmd(app))

	return cmd
}

func runTUI(app *App) error {
	ctx := context.Background()
	s, sess, err := loadSession(app)
	if err != nil {
		return err
	}
	c, err := client(app, sess)
	if err != nil {
		return err
	}
	projectID := app.Project
	if projectID == 0 {
		projectID = sess.CurrentProjectID
	}
	if projectID == 0 {
		return errors.New("no current project; run `storymap use <project-id>` (or pass --project)")
	}
	p, err := c.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	q, err := filterQuery(app)
	if err != nil {
		return err
	}
	return tui.Run(s, c, p, q)
}

func filterQuery(app *App) (url.Values, error) {
	q, err := url.ParseQuery(strings.TrimSpace(app.Filter))
	if err != nil {
		return nil, fmt.Errorf("invalid --filter %q: %v", app.Filter, err)
	}
	return q, nil
}

func loadSession(app *App) (store.Store, store.Session, error) {
	s := store.New(app.Dir)
	sess, err := s.LoadSession(context.Background())
	if err != nil {
		return s, store.Session{}, err
	}
	return s, sess, nil
}

// client builds the remote client from the saved session, with the --server
// flag taking precedence over the stored URL.
func client(app *App, sess store.Session) (*remote.Client, error) {
	base := strings.TrimSpace(app.Server)
	if base == "" {
		base = sess.ServerURL
	}
	if base == "" {
		return nil, errors.New("no server configured; run `storymap login --server <url> ...` (or pass --server)")
	}
	return remote.NewClient(base, sess.Token), nil
}

// newEngine fetches the project tree and wraps it in a mutation engine with
// a stderr notifier. Scriptable commands share the engine's optimistic
// apply/rollback path with the TUI, so behavior matches exactly.
func newEngine(cmd *cobra.Command, app *App) (*engine.Engine, *remote.Client, error) {
	ctx := cmd.Context()
	_, sess, err := loadSession(app)
	if err != nil {
		return nil, nil, err
	}
	c, err := client(app, sess)
	if err != nil {
		return nil, nil, err
	}
	projectID := app.Project
	if projectID == 0 {
		projectID = sess.CurrentProjectID
	}
	if projectID == 0 {
		return nil, nil, errors.New("no current project; run `storymap use <project-id>` (or pass --project)")
	}
	p, err := c.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	e := engine.New(c, engine.Options{
		Notifier: stderrNotifier{w: cmd.ErrOrStderr()},
	})
	e.SetProject(p)
	return e, c, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
