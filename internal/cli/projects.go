package cli

import (
	"errors"
	"os"
	"strings"

	"storymap-cli/internal/filter"
	"storymap-cli/internal/store"

	"github.com/spf13/cobra"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	var skip, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sess, err := loadSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := client(app, sess)
			if err != nil {
				return writeErr(cmd, err)
			}
			list, err := c.ListProjects(cmd.Context(), skip, limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": list})
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "Offset into the project list")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max projects to return")
	return cmd
}

func newGenerateCmd(app *App) *cobra.Command {
	var text, file string
	var skipEnhancement bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new story map from requirements text",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return writeErr(cmd, err)
				}
				text = string(b)
			}
			if strings.TrimSpace(text) == "" {
				return writeErr(cmd, errors.New("requirements text required; pass --text or --file"))
			}

			s, sess, err := loadSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := client(app, sess)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := c.GenerateMap(cmd.Context(), text, skipEnhancement)
			if err != nil {
				return writeErr(cmd, err)
			}
			// Generation lands you in the new project.
			sess.CurrentProjectID = res.ProjectID
			if err := s.SaveSession(cmd.Context(), sess); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Requirements text")
	cmd.Flags().StringVar(&file, "file", "", "Read requirements from a file")
	cmd.Flags().BoolVar(&skipEnhancement, "skip-enhancement", false, "Skip the requirements enhancement pass")
	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current project tree (respecting --filter and the saved filter)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := newEngine(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			q, err := filterQuery(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			p := e.Project()
			stored, _ := store.New(app.Dir).LoadFilter(cmd.Context(), p.ID)
			fs := filter.Restore(p, q, stored)
			// Echo the effective filter in its canonical query form so the
			// output is reproducible with --filter alone.
			return writeOut(cmd, app, map[string]any{
				"data":   filter.Apply(p, fs),
				"filter": filter.EncodeQuery(fs, p).Encode(),
			})
		},
	}
}
