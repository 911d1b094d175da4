package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the questlog command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "questlog",
		Short: "A gamified task tracker",
		Long: `questlog keeps a local task list and rewards completed tasks with experience.

Tasks live on this device and work offline. After "questlog login" every change
is also pushed to the remote store so progress follows you across devices.

EXAMPLES:
  questlog quick "Water the plants"          # Add a task with default ratings (150 XP)
  questlog add "Ship release" --due 2026-11-02 --difficulty 8 --xp 400
  questlog list                              # Active tasks grouped by due date
  questlog complete 3f2a                     # Complete by id prefix
  questlog stats                             # Level, XP and streak

CONFIGURATION:
  QUESTLOG_API_URL            Remote store base URL (default: http://localhost:8080)
  QUESTLOG_DATA_PATH          Device cache file
  QUESTLOG_PUSH_DEBOUNCE      Coalesce pushes within this window (default: 0)
  QUESTLOG_LOG_LEVEL          Log level on stderr (default: warn)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.finishSync(cmd.ErrOrStderr())
		},
	}

	root.AddCommand(
		newAddCommand(app),
		newQuickCommand(app),
		newCompleteCommand(app),
		newRemoveCommand(app),
		newClearCommand(app),
		newListCommand(app),
		newStatsCommand(app),
		newLoginCommand(app),
		newLogoutCommand(app),
		newStatusCommand(app),
		newLeaderboardCommand(app),
		newThemeCommand(app),
	)
	return root
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, app *App, args []string) error {
	root := NewRootCommand(app)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *App) theme(ctx context.Context) string {
	if a.Cache == nil {
		return ThemeLight
	}
	theme, err := a.Cache.Theme(ctx)
	if err != nil {
		return ThemeLight
	}
	return theme
}
