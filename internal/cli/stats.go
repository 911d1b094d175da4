package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fastygo/questlog/domain"
)

func newStatsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show level, experience and streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap, err := app.snapshot(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			p := newPalette(w, app.theme(ctx))

			progress := snap.Progress
			fmt.Fprintln(w, p.title.Render(fmt.Sprintf("Level %d", progress.Level)))
			fmt.Fprintf(w, "Experience: %s XP (%d/%d to next level)\n",
				humanize.Comma(int64(progress.TotalExperience)), progress.IntoLevel, progress.ForNextLevel)
			fmt.Fprintf(w, "Streak:     %s (longest %s)\n",
				days(snap.Streak.Current), days(snap.Streak.Longest))
			fmt.Fprintf(w, "Tasks:      %d active, %d completed\n", len(snap.Active), len(snap.Completed))
			return nil
		},
	}
}

func newThemeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark]",
		Short:     "Show or set the color theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{ThemeLight, ThemeDark},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(w, app.theme(ctx))
				return nil
			}
			theme := strings.ToLower(args[0])
			if theme != ThemeLight && theme != ThemeDark {
				return domain.NewValidationError("theme", "must be light or dark")
			}
			if err := app.Cache.SetTheme(ctx, theme); err != nil {
				return err
			}
			fmt.Fprintf(w, "Theme set to %s\n", theme)
			return nil
		},
	}
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
