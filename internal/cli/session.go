package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"storymap-cli/internal/remote"
	"storymap-cli/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(app *App) *cobra.Command {
	var server, email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, sess, err := loadSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			base := strings.TrimSpace(server)
			if base == "" {
				base = strings.TrimSpace(app.Server)
			}
			if base == "" {
				base = sess.ServerURL
			}
			if base == "" {
				return writeErr(cmd, errors.New("no server; pass --server <url>"))
			}
			if strings.TrimSpace(email) == "" {
				return writeErr(cmd, errors.New("--email is required"))
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				b, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Fprintln(cmd.ErrOrStderr())
				if err != nil {
					return writeErr(cmd, err)
				}
				password = string(b)
			}

			c := remote.NewClient(base, "")
			token, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return writeErr(cmd, err)
			}

			sess.ServerURL = base
			sess.Token = token
			if err := s.SaveSession(cmd.Context(), sess); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"server": base, "status": "logged in"}})
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server base URL")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (omit to be prompted)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the saved token",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := store.New(app.Dir)
			if err := s.ClearToken(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]string{"status": "logged out"}})
		},
	}
}

func newUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <project-id>",
		Short: "Set the current project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("invalid project id %q", args[0]))
			}
			s, sess, err := loadSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			// Verify it exists before saving; a typo should not wedge the TUI.
			c, err := client(app, sess)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := c.GetProject(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			sess.CurrentProjectID = id
			if err := s.SaveSession(cmd.Context(), sess); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"project_id": p.ID, "name": p.Name}})
		},
	}
}
