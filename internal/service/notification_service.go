package service

import (
	"context"

	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/internal/repository"
)

// NotificationService exposes a user's notifications.
type NotificationService struct {
	repo *repository.NotificationRepository
}

func NewNotificationService(repo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if userID == "" {
		return nil, validationError("user id is required")
	}
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly, pageSize(limit))
	if err != nil {
		return nil, storeError("list notifications", err)
	}
	return list, nil
}

// MarkRead marks a notification of actor as read. Notifications of other
// users are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, id string, actor models.Actor) error {
	if id == "" {
		return validationError("notification id is required")
	}
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return storeError("get notification", err)
	}
	if n.UserID != actor.ID {
		return storeError("get notification", errNotOwned)
	}
	if n.Read {
		return nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return storeError("mark notification read", err)
	}
	return nil
}
