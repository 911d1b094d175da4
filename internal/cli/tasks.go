package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fastygo/questlog/domain"
	"github.com/fastygo/questlog/usecase"
	"github.com/fastygo/questlog/usecase/tracker"
)

func newAddCommand(app *App) *cobra.Command {
	var (
		description   string
		difficulty    int
		importance    int
		due           string
		collaborative bool
		xp            int
	)
	cmd := &cobra.Command{
		Use:   "add [task name]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deadline, err := parseDeadline(due, app.location())
			if err != nil {
				return err
			}
			draft := domain.TaskDraft{
				Name:          strings.Join(args, " "),
				Description:   description,
				Difficulty:    difficulty,
				Importance:    importance,
				Deadline:      deadline,
				Collaborative: collaborative,
			}
			if cmd.Flags().Changed("xp") {
				draft.Experience = &xp
			}
			return app.addTask(cmd, draft)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&description, "description", "d", "", "Task description")
	flags.IntVar(&difficulty, "difficulty", domain.DefaultDifficulty, "Difficulty from 1 to 10")
	flags.IntVar(&importance, "importance", domain.DefaultImportance, "Importance from 1 to 10")
	flags.StringVar(&due, "due", "", "Due date (YYYY-MM-DD or RFC 3339)")
	flags.BoolVar(&collaborative, "collaborative", false, "Mark the task as collaborative")
	flags.IntVar(&xp, "xp", domain.DefaultExperience, "Experience granted on completion")
	return cmd
}

func newQuickCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quick [task name]",
		Short: "Add a task with default ratings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.addTask(cmd, domain.QuickDraft(strings.Join(args, " ")))
		},
	}
}

func (a *App) addTask(cmd *cobra.Command, draft domain.TaskDraft) error {
	out, err := a.Dispatcher.ExecuteCommand(cmd.Context(), usecase.IntentAddTask, draft)
	if err != nil {
		return err
	}
	task := out.(domain.Task)
	p := newPalette(cmd.OutOrStdout(), a.theme(cmd.Context()))
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s %s\n",
		p.id.Render(shortID(task.ID)),
		task.Name,
		p.muted.Render(fmt.Sprintf("(+%d XP)", task.Experience)))
	return nil
}

func newCompleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "complete [task id]",
		Short: "Complete an active task and collect its experience",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task, err := app.resolveTask(ctx, args[0], false)
			if err != nil {
				return err
			}
			out, err := app.Dispatcher.ExecuteCommand(ctx, usecase.IntentCompleteTask, task.ID)
			if err != nil {
				return err
			}
			res := out.(tracker.CompleteResult)

			w := cmd.OutOrStdout()
			p := newPalette(w, app.theme(ctx))
			fmt.Fprintf(w, "Completed %s %s\n", res.Task.Name, p.accent.Render(fmt.Sprintf("+%d XP", res.Task.Experience)))
			if res.LeveledUp {
				fmt.Fprintln(w, p.title.Render(fmt.Sprintf("Level up! You reached level %d", res.NewLevel)))
			}
			fmt.Fprintf(w, "Level %d %s\n", res.Progress.Level,
				p.muted.Render(fmt.Sprintf("(%d/%d XP)", res.Progress.IntoLevel, res.Progress.ForNextLevel)))
			return nil
		},
	}
}

func newRemoveCommand(app *App) *cobra.Command {
	var fromCompleted bool
	cmd := &cobra.Command{
		Use:   "remove [task id]",
		Short: "Remove a task; removing a completed task takes back its experience",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task, err := app.resolveTask(ctx, args[0], fromCompleted)
			if err != nil {
				return err
			}
			out, err := app.Dispatcher.ExecuteCommand(ctx, usecase.IntentRemoveTask, tracker.RemoveRequest{
				ID:            task.ID,
				FromCompleted: fromCompleted,
			})
			if err != nil {
				return err
			}
			res := out.(tracker.RemoveResult)

			w := cmd.OutOrStdout()
			p := newPalette(w, app.theme(ctx))
			if res.XPDelta != 0 {
				fmt.Fprintf(w, "Removed %s %s\n", res.Task.Name, p.warn.Render(fmt.Sprintf("(%d XP)", res.XPDelta)))
				return nil
			}
			fmt.Fprintf(w, "Removed %s\n", res.Task.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromCompleted, "completed", false, "Remove from the completed list")
	return cmd
}

func newClearCommand(app *App) *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all tasks and reset progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return domain.NewValidationError("clear", "pass --yes to delete all tasks and progress")
			}
			if _, err := app.Dispatcher.ExecuteCommand(cmd.Context(), usecase.IntentClearAll, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All tasks and progress cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm clearing all data")
	return cmd
}

func newListCommand(app *App) *cobra.Command {
	var completed bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active tasks grouped by due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			p := newPalette(w, app.theme(ctx))

			if completed {
				snap, err := app.snapshot(ctx)
				if err != nil {
					return err
				}
				if len(snap.Completed) == 0 {
					fmt.Fprintln(w, "No completed tasks")
					return nil
				}
				for _, task := range snap.Completed {
					when := ""
					if task.CompletedAt != nil {
						when = task.CompletedAt.In(app.location()).Format("Jan 2 15:04")
					}
					fmt.Fprintf(w, "%s  %s  %s\n", p.id.Render(shortID(task.ID)), task.Name, p.muted.Render(when))
				}
				return nil
			}

			groups, err := app.groups(ctx)
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				fmt.Fprintln(w, "No active tasks")
				return nil
			}
			for i, group := range groups {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintln(w, p.header.Render(group.Label))
				for _, task := range group.Tasks {
					fmt.Fprintf(w, "  %s  %s  %s\n",
						p.id.Render(shortID(task.ID)),
						task.Name,
						p.muted.Render(taskDetails(task)))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "List completed tasks instead")
	return cmd
}

func taskDetails(task domain.Task) string {
	parts := []string{
		fmt.Sprintf("D%d I%d", task.Difficulty, task.Importance),
		humanize.Comma(int64(task.Experience)) + " XP",
	}
	if task.Collaborative {
		parts = append(parts, "collab")
	}
	return strings.Join(parts, " · ")
}
