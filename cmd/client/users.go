package main

import (
	"github.com/spf13/cobra"

	portalv1 "github.com/gurkanbulca/teamportal/api/portal/v1"
)

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Per user statistics and completion history",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats <user-id>",
		Short: "Show a user's points and completion rate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.callContext(cmd.Context())
			defer cancel()

			resp, err := client.GetUserStatistics(ctx, &portalv1.GetUserStatisticsRequest{UserID: args[0]})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, resp.Statistics)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "history <user-id>",
		Short: "List the completions credited to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.callContext(cmd.Context())
			defer cancel()

			resp, err := client.ListCompletions(ctx, &portalv1.ListCompletionsRequest{UserID: args[0]})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, resp.Completions)
		},
	})

	return cmd
}

func newLeaderboardCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank users by total points",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.callContext(cmd.Context())
			defer cancel()

			resp, err := client.GetLeaderboard(ctx, &portalv1.GetLeaderboardRequest{Limit: limit})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, resp.Entries)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of entries")
	return cmd
}

func newNotificationsCmd(app *App) *cobra.Command {
	var unread bool

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List the caller's notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.callContext(cmd.Context())
			defer cancel()

			resp, err := client.ListNotifications(ctx, &portalv1.ListNotificationsRequest{UnreadOnly: unread})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, resp.Notifications)
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "Only unread notifications")

	cmd.AddCommand(&cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.callContext(cmd.Context())
			defer cancel()

			if _, err := client.MarkNotificationRead(ctx, &portalv1.MarkNotificationReadRequest{ID: args[0]}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, map[string]any{"read": args[0]})
		},
	})

	return cmd
}
