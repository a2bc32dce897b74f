// internal/service/task_service.go
package service

import (
	"context"
	"errors"
	"log"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	portalv1 "github.com/gurkanbulca/teamportal/api/portal/v1"
	"github.com/gurkanbulca/teamportal/internal/middleware"
	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/internal/repository"
)

// TaskService is the gRPC face of the domain services.
type TaskService struct {
	portalv1.UnimplementedTaskServiceServer
	services *Services
}

func NewTaskService(services *Services) *TaskService {
	return &TaskService{
		services: services,
	}
}

// CreateTask creates a new task, or every occurrence of a materialized series
func (s *TaskService) CreateTask(ctx context.Context, req *portalv1.CreateTaskRequest) (*portalv1.CreateTaskResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	tasks, err := s.services.Tasks.Create(ctx, CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		Priority:         req.Priority,
		AssigneeID:       req.AssigneeID,
		AssigneeName:     req.AssigneeName,
		ClientID:         req.ClientID,
		DueDate:          req.DueDate,
		IsRecurring:      req.IsRecurring,
		Cadence:          req.Cadence,
		RecurringEndDate: req.RecurringEndDate,
		Materialize:      req.Materialize,
	}, actor)
	if err != nil {
		return nil, toStatus(err)
	}

	return &portalv1.CreateTaskResponse{Tasks: tasks}, nil
}

// GetTask retrieves a task by ID
func (s *TaskService) GetTask(ctx context.Context, req *portalv1.GetTaskRequest) (*portalv1.GetTaskResponse, error) {
	task, err := s.services.Tasks.Get(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &portalv1.GetTaskResponse{Task: task}, nil
}

// ListTasks lists tasks with filters
func (s *TaskService) ListTasks(ctx context.Context, req *portalv1.ListTasksRequest) (*portalv1.ListTasksResponse, error) {
	tasks, err := s.services.Tasks.List(ctx, repository.ListFilter{
		AssigneeID: optional(req.AssigneeID),
		CreatorID:  optional(req.CreatorID),
		ClientID:   optional(req.ClientID),
		Status:     optional(req.Status),
		Priority:   optional(req.Priority),
		Recurring:  req.Recurring,
		SeriesID:   optional(req.SeriesID),
		DueAfter:   req.DueAfter,
		DueBefore:  req.DueBefore,
		Limit:      req.PageSize,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &portalv1.ListTasksResponse{Tasks: tasks}, nil
}

// UpdateTask updates the fields present in the request
func (s *TaskService) UpdateTask(ctx context.Context, req *portalv1.UpdateTaskRequest) (*portalv1.UpdateTaskResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	task, err := s.services.Tasks.Update(ctx, req.ID, UpdateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		Priority:         req.Priority,
		AssigneeID:       req.AssigneeID,
		AssigneeName:     req.AssigneeName,
		ClientID:         req.ClientID,
		DueDate:          req.DueDate,
		IsRecurring:      req.IsRecurring,
		Cadence:          req.Cadence,
		RecurringEndDate: req.RecurringEndDate,
	}, actor)
	if err != nil {
		return nil, toStatus(err)
	}
	return &portalv1.UpdateTaskResponse{Task: task}, nil
}

// DeleteTask deletes a task; its completion history is kept
func (s *TaskService) DeleteTask(ctx context.Context, req *portalv1.DeleteTaskRequest) (*portalv1.DeleteTaskResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Tasks.Delete(ctx, req.ID, actor); err != nil {
		return nil, toStatus(err)
	}
	return &portalv1.DeleteTaskResponse{}, nil
}

// TransitionTask changes the status of a task on behalf of the caller
func (s *TaskService) TransitionTask(ctx context.Context, req *portalv1.TransitionTaskRequest) (*portalv1.TransitionTaskResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Engine.Transition(ctx, TransitionRequest{
		TaskID:             req.ID,
		Status:             req.Status,
		Actor:              actor,
		ExpectedOccurrence: req.ExpectedOccurrence,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &portalv1.TransitionTaskResponse{
		Task:              res.Task,
		Outcome:           res.Kind.String(),
		Completion:        res.Completion,
		SeriesEnded:       res.SeriesEnded,
		Replayed:          res.Replayed,
		StatisticsUpdated: res.StatisticsUpdated,
	}
	if res.Next != nil {
		due := res.Next.DueDate
		resp.NextDueDate = &due
	}
	return resp, nil
}

// ListCompletions returns the completion history of a task or a user
func (s *TaskService) ListCompletions(ctx context.Context, req *portalv1.ListCompletionsRequest) (*portalv1.ListCompletionsResponse, error) {
	recs, err := s.services.Tasks.Completions(ctx, req.TaskID, req.UserID, req.PageSize)
	if err != nil {
		return nil, toStatus(err)
	}
	return &portalv1.ListCompletionsResponse{Completions: recs}, nil
}

func (s *TaskService) GetUserStatistics(ctx context.Context, req *portalv1.GetUserStatisticsRequest) (*portalv1.GetUserStatisticsResponse, error) {
	stats, err := s.services.Statistics.Get(ctx, req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &portalv1.GetUserStatisticsResponse{Statistics: stats}, nil
}

func (s *TaskService) GetLeaderboard(ctx context.Context, req *portalv1.GetLeaderboardRequest) (*portalv1.GetLeaderboardResponse, error) {
	board, err := s.services.Statistics.Leaderboard(ctx, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &portalv1.GetLeaderboardResponse{Entries: board}, nil
}

// ListNotifications returns the caller's notifications
func (s *TaskService) ListNotifications(ctx context.Context, req *portalv1.ListNotificationsRequest) (*portalv1.ListNotificationsResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.services.Notifications.List(ctx, actor.ID, req.UnreadOnly, req.PageSize)
	if err != nil {
		return nil, toStatus(err)
	}
	return &portalv1.ListNotificationsResponse{Notifications: list}, nil
}

func (s *TaskService) MarkNotificationRead(ctx context.Context, req *portalv1.MarkNotificationReadRequest) (*portalv1.MarkNotificationReadResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Notifications.MarkRead(ctx, req.ID, actor); err != nil {
		return nil, toStatus(err)
	}
	return &portalv1.MarkNotificationReadResponse{}, nil
}

// WatchTasks streams task snapshots until the client goes away
func (s *TaskService) WatchTasks(req *portalv1.WatchTasksRequest, stream portalv1.TaskService_WatchTasksServer) error {
	ctx := stream.Context()

	ch, err := s.services.Tasks.Watch(ctx, repository.ListFilter{
		AssigneeID: optional(req.AssigneeID),
		Status:     optional(req.Status),
		Limit:      req.PageSize,
	})
	if err != nil {
		return toStatus(err)
	}

	for tasks := range ch {
		if err := stream.Send(&portalv1.WatchTasksResponse{Tasks: tasks}); err != nil {
			return err
		}
	}
	return nil
}

func actorFrom(ctx context.Context) (models.Actor, error) {
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		return models.Actor{}, status.Error(codes.Unauthenticated, "user not authenticated")
	}
	return actor, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// toStatus maps a domain error onto a gRPC status.
func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		log.Printf("[ERROR] internal error: %v", err)
		return status.Error(codes.Internal, "internal error")
	}
}
