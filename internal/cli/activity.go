package cli

import (
	"github.com/spf13/cobra"
)

func newActivityCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Activity commands",
	}
	cmd.AddCommand(newActivityAddCmd(app))
	cmd.AddCommand(newActivityRenameCmd(app))
	cmd.AddCommand(newActivityRmCmd(app))
	return cmd
}

func newActivityAddCmd(app *App) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := newEngine(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := e.CreateActivity(cmd.Context(), title); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": e.Project().Activities})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Activity title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newActivityRenameCmd(app *App) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "rename <activity-id>",
		Short: "Rename an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			e, _, err := newEngine(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := e.RenameActivity(cmd.Context(), id, title); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": e.Project().Activities})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newActivityRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <activity-id>",
		Short: "Delete an activity (and everything under it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			e, _, err := newEngine(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := e.DeleteActivity(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": e.Project().Activities})
		},
	}
}
