package service

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	portalv1 "github.com/gurkanbulca/teamportal/api/portal/v1"
	"github.com/gurkanbulca/teamportal/internal/middleware"
	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/pkg/auth"
)

type grpcHarness struct {
	*TestHelpers
	client portalv1.TaskServiceClient
	tokens *auth.TokenManager
}

func newGRPCHarness(t *testing.T) *grpcHarness {
	t.Helper()
	h := NewTestHelpers(t)

	tokens, err := auth.NewTokenManager("test-secret", "teamportal", time.Hour)
	require.NoError(t, err)

	authInterceptor := middleware.NewAuthInterceptor(tokens)
	validation := middleware.NewValidationInterceptor(nil)
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(validation.Unary(), authInterceptor.Unary()),
		grpc.ChainStreamInterceptor(validation.Stream(), authInterceptor.Stream()),
	)
	portalv1.RegisterTaskServiceServer(server, NewTaskService(h.Services))

	listener := bufconn.Listen(1 << 20)
	go func() { _ = server.Serve(listener) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})

	return &grpcHarness{TestHelpers: h, client: portalv1.NewTaskServiceClient(conn), tokens: tokens}
}

func (g *grpcHarness) as(t *testing.T, actor models.Actor) context.Context {
	t.Helper()
	token, _, err := g.tokens.GenerateToken(actor.ID, actor.Name, actor.Email, actor.Role)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestTaskService_RecurringLifecycleOverGRPC(t *testing.T) {
	g := newGRPCHarness(t)
	admin := g.as(t, testAdmin)
	assignee := g.as(t, testAssignee)

	created, err := g.client.CreateTask(admin, &portalv1.CreateTaskRequest{
		Title:       "Weekly check",
		AssigneeID:  testAssignee.ID,
		DueDate:     date(2024, 3, 10, 0),
		IsRecurring: true,
		Cadence:     "weekly",
	})
	require.NoError(t, err)
	require.Len(t, created.Tasks, 1)
	id := created.Tasks[0].ID

	g.Clock.Set(date(2024, 3, 9, 0))
	res, err := g.client.TransitionTask(assignee, &portalv1.TransitionTaskRequest{ID: id, Status: "completed", ExpectedOccurrence: 1})
	require.NoError(t, err)
	assert.Equal(t, "rescheduled", res.Outcome)
	assert.Equal(t, models.TaskStatusPending, res.Task.Status)
	require.NotNil(t, res.NextDueDate)
	assert.True(t, res.NextDueDate.Equal(date(2024, 3, 17, 0)))
	require.NotNil(t, res.Completion)
	assert.Equal(t, 100, res.Completion.Points)
	assert.True(t, res.StatisticsUpdated)

	// A stale retry of the same occurrence is rejected.
	_, err = g.client.TransitionTask(assignee, &portalv1.TransitionTaskRequest{ID: id, Status: "completed", ExpectedOccurrence: 1})
	assert.Equal(t, codes.Aborted, status.Code(err))

	history, err := g.client.ListCompletions(assignee, &portalv1.ListCompletionsRequest{TaskID: id})
	require.NoError(t, err)
	require.Len(t, history.Completions, 1)

	stats, err := g.client.GetUserStatistics(admin, &portalv1.GetUserStatisticsRequest{UserID: testAssignee.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Statistics.TasksCompleted)
	assert.Equal(t, 2, stats.Statistics.TotalTasksAssigned)

	board, err := g.client.GetLeaderboard(admin, &portalv1.GetLeaderboardRequest{})
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, testAssignee.ID, board.Entries[0].UserID)
}

func TestTaskService_ErrorCodes(t *testing.T) {
	g := newGRPCHarness(t)
	admin := g.as(t, testAdmin)

	created, err := g.client.CreateTask(admin, &portalv1.CreateTaskRequest{
		Title: "Report", AssigneeID: testAssignee.ID, DueDate: date(2024, 3, 5, 12),
	})
	require.NoError(t, err)
	id := created.Tasks[0].ID

	_, err = g.client.GetTask(context.Background(), &portalv1.GetTaskRequest{ID: id})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = g.client.GetTask(admin, &portalv1.GetTaskRequest{ID: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = g.client.GetTask(admin, &portalv1.GetTaskRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = g.client.TransitionTask(admin, &portalv1.TransitionTaskRequest{ID: id, Status: "archived"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = g.client.TransitionTask(admin, &portalv1.TransitionTaskRequest{ID: id, Status: "pending"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = g.client.CreateTask(admin, &portalv1.CreateTaskRequest{Title: "x", AssigneeID: "u1"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestTaskService_CRUD(t *testing.T) {
	g := newGRPCHarness(t)
	admin := g.as(t, testAdmin)

	created, err := g.client.CreateTask(admin, &portalv1.CreateTaskRequest{
		Title: "Report", AssigneeID: testAssignee.ID, DueDate: date(2024, 3, 5, 12), Priority: "low",
	})
	require.NoError(t, err)
	id := created.Tasks[0].ID

	title := "Final report"
	updated, err := g.client.UpdateTask(admin, &portalv1.UpdateTaskRequest{ID: id, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Final report", updated.Task.Title)

	got, err := g.client.GetTask(admin, &portalv1.GetTaskRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityLow, got.Task.Priority)
	assert.True(t, got.Task.DueDate.Equal(date(2024, 3, 5, 12)))

	listed, err := g.client.ListTasks(admin, &portalv1.ListTasksRequest{AssigneeID: testAssignee.ID})
	require.NoError(t, err)
	assert.Len(t, listed.Tasks, 1)

	_, err = g.client.DeleteTask(admin, &portalv1.DeleteTaskRequest{ID: id})
	require.NoError(t, err)
	_, err = g.client.GetTask(admin, &portalv1.GetTaskRequest{ID: id})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestTaskService_WatchTasks(t *testing.T) {
	g := newGRPCHarness(t)
	admin := g.as(t, testAdmin)

	ctx, cancel := context.WithCancel(g.as(t, testAssignee))
	defer cancel()

	stream, err := g.client.WatchTasks(ctx, &portalv1.WatchTasksRequest{AssigneeID: testAssignee.ID})
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Empty(t, first.Tasks)

	_, err = g.client.CreateTask(admin, &portalv1.CreateTaskRequest{
		Title: "Watched", AssigneeID: testAssignee.ID, DueDate: date(2024, 3, 5, 12),
	})
	require.NoError(t, err)

	next, err := stream.Recv()
	require.NoError(t, err)
	require.Len(t, next.Tasks, 1)
	assert.Equal(t, "Watched", next.Tasks[0].Title)
}
