package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fastygo/questlog/domain"
)

func newLoginCommand(app *App) *cobra.Command {
	var subject, token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Link this device to a remote account",
		Long: `Link this device to a remote account using an identity issued by your
sign-in provider. The account is created on first use; an existing account's
progress replaces local progress.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := app.Sync.SignIn(cmd.Context(), domain.Session{Identifier: subject, Token: token})
			if err != nil && reg == nil {
				return err
			}
			w := cmd.OutOrStdout()
			if reg.Exists {
				fmt.Fprintf(w, "Signed in as %s, progress restored from account %s\n", subject, shortID(reg.UserID))
			} else {
				fmt.Fprintf(w, "Signed in as %s, new account %s created\n", subject, shortID(reg.UserID))
			}
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Session identifier issued by the sign-in provider")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token issued by the sign-in provider")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Unlink this device; tasks stay, experience resets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Sync.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "State:   %s\n", app.Sync.State())
			if session := app.Sync.Session(); session != nil {
				fmt.Fprintf(w, "Account: %s (%s)\n", session.Identifier, session.UserID)
			}
			if err := app.Sync.LastError(); err != nil {
				fmt.Fprintf(w, "Error:   %v\n", err)
			}
			return nil
		},
	}
}

func newLeaderboardCommand(app *App) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top players by experience",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := app.Remote.Leaderboard(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(w, "No players yet")
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tPLAYER\tLEVEL\tXP\tDONE")
			for i, user := range users {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\n",
					offset+i+1,
					user.SessionIdentifier,
					user.Level,
					humanize.Comma(int64(user.XP)),
					user.TasksCompleted)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of players to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of players to skip")
	return cmd
}
