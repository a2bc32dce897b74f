package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/models"
)

type NotificationRepository struct {
	store docstore.Backend
	now   func() time.Time
}

func NewNotificationRepository(store docstore.Backend) *NotificationRepository {
	return &NotificationRepository{store: store, now: time.Now}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	rec := *n
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	rec.CreatedAt = models.NormalizeTime(rec.CreatedAt)

	data, err := docstore.Encode(rec)
	if err != nil {
		return nil, err
	}
	if _, err := r.store.Create(ctx, models.CollectionNotifications, rec.ID, data); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return &rec, nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	doc, err := r.store.Get(ctx, models.CollectionNotifications, id)
	if err != nil {
		return nil, err
	}
	return decodeNotification(doc)
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	q := docstore.Query{
		Collection: models.CollectionNotifications,
		Where:      []docstore.Predicate{docstore.Where("userId", docstore.OpEQ, userID)},
		OrderBy:    []docstore.Order{{Field: "createdAt", Desc: true}},
		Limit:      limit,
	}
	if unreadOnly {
		q.Where = append(q.Where, docstore.Where("read", docstore.OpEQ, false))
	}

	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	out := make([]*models.Notification, 0, len(docs))
	for i := range docs {
		n, err := decodeNotification(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	if _, err := r.store.Update(ctx, models.CollectionNotifications, id, map[string]any{"read": true}); err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return nil
}

func decodeNotification(doc *docstore.Document) (*models.Notification, error) {
	var n models.Notification
	if err := doc.Decode(&n); err != nil {
		return nil, err
	}
	n.ID = doc.ID
	return &n, nil
}
