package service

import (
	"context"
	"fmt"

	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/internal/repository"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// StatisticsService owns every change to UserStatistics. All changes are
// atomic increments keyed for idempotency, so a retried operation never
// counts twice.
type StatisticsService struct {
	repo *repository.StatisticsRepository
}

func NewStatisticsService(repo *repository.StatisticsRepository) *StatisticsService {
	return &StatisticsService{repo: repo}
}

// RecordCompletion credits the assignee of rec with one completed task.
func (s *StatisticsService) RecordCompletion(ctx context.Context, rec *models.TaskCompletion) (bool, error) {
	applied, err := s.repo.Apply(ctx, rec.AssigneeID, repository.StatDelta{
		TasksCompleted:       1,
		TotalPoints:          rec.Points,
		TotalCompletionHours: rec.CompletionHours,
	}, completionKey(rec.ID))
	if err != nil {
		return false, storeError("record completion statistics", err)
	}
	return applied, nil
}

// RecordAssignment counts occurrence n of a task as assigned to userID.
func (s *StatisticsService) RecordAssignment(ctx context.Context, userID, taskID string, occurrence int) (bool, error) {
	applied, err := s.repo.Apply(ctx, userID, repository.StatDelta{TotalTasksAssigned: 1}, assignmentKey(taskID, occurrence, userID))
	if err != nil {
		return false, storeError("record assignment statistics", err)
	}
	return applied, nil
}

// Get returns a user's statistics with the derived fields filled in.
func (s *StatisticsService) Get(ctx context.Context, userID string) (*models.UserStatistics, error) {
	if userID == "" {
		return nil, validationError("user id is required")
	}
	stats, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, storeError("get statistics", err)
	}
	stats.Derive()
	return stats, nil
}

// Leaderboard returns users ordered by total points.
func (s *StatisticsService) Leaderboard(ctx context.Context, limit int) ([]*models.UserStatistics, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}
	board, err := s.repo.Top(ctx, limit)
	if err != nil {
		return nil, storeError("leaderboard", err)
	}
	for _, st := range board {
		st.Derive()
	}
	return board, nil
}

func completionKey(completionID string) string {
	return "completion:" + completionID
}

func assignmentKey(taskID string, occurrence int, userID string) string {
	return fmt.Sprintf("assign:%s:%d:%s", taskID, occurrence, userID)
}
