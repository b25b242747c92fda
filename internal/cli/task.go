package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newTaskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Task commands",
	}
	cmd.AddCommand(newTaskAddCmd(app))
	cmd.AddCommand(newTaskRenameCmd(app))
	cmd.AddCommand(newTaskRmCmd(app))
	cmd.AddCommand(newTaskMvCmd(app))
	return cmd
}

func newTaskAddCmd(app *App) *cobra.Command {
	var activityID int64
	var title string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task to an activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := newEngine(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := e.CreateTask(cmd.Context(), activityID, title); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": e.Project().Activities})
		},
	}

	cmd.Flags().Int64Var(&activityID, "activity", 0, "Parent activity id")
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	_ = cmd.MarkFlagRequired("activity")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTaskRenameCmd(app *App) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "rename <task-id>",
		Short: "Rename a task",
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
			if err := e.RenameTask(cmd.Context(), id, title); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": e.Project().Activities})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTaskRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <task-id>",
		Short: "Delete a task (and its stories)",
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
			if err := e.DeleteTask(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": e.Project().Activities})
		},
	}
}

func newTaskMvCmd(app *App) *cobra.Command {
	var position int

	cmd := &cobra.Command{
		Use:   "mv <task-id>",
		Short: "Reorder a task within its activity",
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
			_, activityID, _, ok := e.Project().FindTask(id)
			if !ok {
				return writeErr(cmd, fmt.Errorf("task %d not found", id))
			}
			if err := e.MoveTask(cmd.Context(), activityID, id, position); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": e.Project().Activities})
		},
	}

	cmd.Flags().IntVar(&position, "position", 0, "New slot within the activity")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}
