package cli

import (
	"strings"

	"storymap-cli/internal/model"
	"storymap-cli/internal/transform"

	"github.com/spf13/cobra"
)

func newStoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Story commands",
	}
	cmd.AddCommand(newStoryAddCmd(app))
	cmd.AddCommand(newStoryEditCmd(app))
	cmd.AddCommand(newStoryRmCmd(app))
	cmd.AddCommand(newStoryMvCmd(app))
	cmd.AddCommand(newStoryStatusCmd(app))
	return cmd
}

// releaseArg turns the --release flag into the nullable release id: the flag
// untouched or 0 means "unscheduled".
func releaseArg(cmd *cobra.Command, name string, v int64) *int64 {
	if !cmd.Flags().Changed(name) || v == 0 {
		return nil
	}
	return &v
}

func newStoryAddCmd(app *App) *cobra.Command {
	var taskID, releaseID int64
	var title, description string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a story to a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := newEngine(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			rel := releaseArg(cmd, "release", releaseID)
			if err := e.CreateStory(cmd.Context(), taskID, rel, title, description); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": e.Project().Activities})
		},
	}

	cmd.Flags().Int64Var(&taskID, "task", 0, "Parent task id")
	cmd.Flags().Int64Var(&releaseID, "release", 0, "Release id (0 = unscheduled)")
	cmd.Flags().StringVar(&title, "title", "", "Story title")
	cmd.Flags().StringVar(&description, "description", "", "Story description")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newStoryEditCmd(app *App) *cobra.Command {
	var title, description, priority, criteria string

	cmd := &cobra.Command{
		Use:   "edit <story-id>",
		Short: "Edit story fields (only the flags you pass change)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var patch transform.StoryPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("priority") {
				patch.Priority = &priority
			}
			if cmd.Flags().Changed("criteria") {
				var list []string
				for _, c := range strings.Split(criteria, ";") {
					if c = strings.TrimSpace(c); c != "" {
						list = append(list, c)
					}
				}
				patch.AcceptanceCriteria = list
			}

			e, _, err := newEngine(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := e.UpdateStory(cmd.Context(), id, patch); err != nil {
				return writeErr(cmd, err)
			}
			s, _, _ := e.Project().FindStory(id)
			return writeOut(cmd, app, map[string]any{"data": s})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority label")
	cmd.Flags().StringVar(&criteria, "criteria", "", "Acceptance criteria, ';'-separated")
	return cmd
}

func newStoryRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <story-id>",
		Short: "Delete a story",
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
			// One-shot command: no undo window, delete immediately.
			if err := e.DeleteStoryNow(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": e.Project().Activities})
		},
	}
}

func newStoryMvCmd(app *App) *cobra.Command {
	var taskID, releaseID int64
	var position int

	cmd := &cobra.Command{
		Use:   "mv <story-id>",
		Short: "Move a story to a task/release cell",
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
			rel := releaseArg(cmd, "release", releaseID)
			if err := e.MoveStory(cmd.Context(), id, taskID, rel, position); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": e.Project().Activities})
		},
	}

	cmd.Flags().Int64Var(&taskID, "task", 0, "Target task id")
	cmd.Flags().Int64Var(&releaseID, "release", 0, "Target release id (0 = unscheduled)")
	cmd.Flags().IntVar(&position, "position", 0, "Slot within the target cell")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func newStoryStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <story-id> <todo|in_progress|done|blocked>",
		Short: "Set a story's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			e, _, err := newEngine(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			status := model.StoryStatus(strings.TrimSpace(args[1]))
			if err := e.SetStoryStatus(cmd.Context(), id, status); err != nil {
				return writeErr(cmd, err)
			}
			s, _, _ := e.Project().FindStory(id)
			return writeOut(cmd, app, map[string]any{"data": s})
		},
	}
}
