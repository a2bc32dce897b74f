package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	portalv1 "github.com/gurkanbulca/teamportal/api/portal/v1"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Create, inspect and move tasks",
	}
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksGetCmd(app))
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksStatusCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	cmd.AddCommand(newTasksHistoryCmd(app))
	cmd.AddCommand(newTasksWatchCmd(app))
	return cmd
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var (
		req      portalv1.CreateTaskRequest
		due, end string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task (recurring when --cadence is set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dueDate, err := parseTime(due)
			if err != nil {
				return writeErr(cmd, err)
			}
			if dueDate != nil {
				req.DueDate = *dueDate
			}
			if req.RecurringEndDate, err = parseTime(end); err != nil {
				return writeErr(cmd, err)
			}
			req.IsRecurring = req.Cadence != ""

			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.callContext(cmd.Context())
			defer cancel()

			resp, err := client.CreateTask(ctx, &req)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&req.Title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	cmd.Flags().StringVar(&req.Priority, "priority", "", "low|medium|high|urgent")
	cmd.Flags().StringVar(&req.AssigneeID, "assignee", "", "Assignee user id (required)")
	cmd.Flags().StringVar(&req.AssigneeName, "assignee-name", "", "Assignee display name")
	cmd.Flags().StringVar(&req.ClientID, "client", "", "Client id")
	cmd.Flags().StringVar(&due, "due", "", "Due date, RFC3339 (required)")
	cmd.Flags().StringVar(&req.Cadence, "cadence", "", "daily|weekly|monthly")
	cmd.Flags().StringVar(&end, "until", "", "Recurrence end date, RFC3339")
	cmd.Flags().BoolVar(&req.Materialize, "materialize", false, "Create one task per occurrence")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("assignee")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func newTasksGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.callContext(cmd.Context())
			defer cancel()

			resp, err := client.GetTask(ctx, &portalv1.GetTaskRequest{ID: args[0]})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, resp.Task)
		},
	}
}

func newTasksListCmd(app *App) *cobra.Command {
	var req portalv1.ListTasksRequest

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.callContext(cmd.Context())
			defer cancel()

			resp, err := client.ListTasks(ctx, &req)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, resp.Tasks)
		},
	}

	cmd.Flags().StringVar(&req.AssigneeID, "assignee", "", "Filter by assignee")
	cmd.Flags().StringVar(&req.CreatorID, "creator", "", "Filter by creator")
	cmd.Flags().StringVar(&req.ClientID, "client", "", "Filter by client")
	cmd.Flags().StringVar(&req.Status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&req.Priority, "priority", "", "Filter by priority")
	cmd.Flags().StringVar(&req.SeriesID, "series", "", "Filter by materialized series")
	cmd.Flags().IntVar(&req.PageSize, "limit", 0, "Maximum number of tasks")
	return cmd
}

func newTasksStatusCmd(app *App) *cobra.Command {
	var expected int

	cmd := &cobra.Command{
		Use:   "status <task-id> <status>",
		Short: "Move a task to pending, in_progress or completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.callContext(cmd.Context())
			defer cancel()

			resp, err := client.TransitionTask(ctx, &portalv1.TransitionTaskRequest{
				ID:                 args[0],
				Status:             args[1],
				ExpectedOccurrence: expected,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, resp)
		},
	}

	cmd.Flags().IntVar(&expected, "occurrence", 0, "Fail unless the task is on this occurrence (safe retries)")
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task; its completion history is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.callContext(cmd.Context())
			defer cancel()

			if _, err := client.DeleteTask(ctx, &portalv1.DeleteTaskRequest{ID: args[0]}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, map[string]any{"deleted": args[0]})
		},
	}
}

func newTasksHistoryCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <task-id>",
		Short: "List the recorded completions of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, cancel := app.callContext(cmd.Context())
			defer cancel()

			resp, err := client.ListCompletions(ctx, &portalv1.ListCompletionsRequest{TaskID: args[0], PageSize: limit})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, resp.Completions)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of completions")
	return cmd
}

func newTasksWatchCmd(app *App) *cobra.Command {
	var req portalv1.WatchTasksRequest

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream task snapshots until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}

			stream, err := client.WatchTasks(app.streamContext(cmd), &req)
			if err != nil {
				return writeErr(cmd, err)
			}
			for {
				resp, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return writeErr(cmd, err)
				}
				if err := writeOut(cmd, map[string]any{
					"count": len(resp.Tasks),
					"tasks": resp.Tasks,
				}); err != nil {
					return err
				}
			}
		},
	}

	cmd.Flags().StringVar(&req.AssigneeID, "assignee", "", "Filter by assignee")
	cmd.Flags().StringVar(&req.Status, "status", "", "Filter by status")
	return cmd
}
