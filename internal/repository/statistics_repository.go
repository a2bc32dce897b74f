package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/models"
)

// StatDelta is a change to a user's statistics.
type StatDelta struct {
	TasksCompleted       int
	TotalPoints          int
	TotalCompletionHours float64
	TotalTasksAssigned   int
}

func (d StatDelta) fields() map[string]float64 {
	out := make(map[string]float64, 4)
	if d.TasksCompleted != 0 {
		out[models.StatTasksCompleted] = float64(d.TasksCompleted)
	}
	if d.TotalPoints != 0 {
		out[models.StatTotalPoints] = float64(d.TotalPoints)
	}
	if d.TotalCompletionHours != 0 {
		out[models.StatTotalCompletionHours] = d.TotalCompletionHours
	}
	if d.TotalTasksAssigned != 0 {
		out[models.StatTotalTasksAssigned] = float64(d.TotalTasksAssigned)
	}
	return out
}

type StatisticsRepository struct {
	store docstore.Backend
}

func NewStatisticsRepository(store docstore.Backend) *StatisticsRepository {
	return &StatisticsRepository{store: store}
}

// Get returns a user's statistics. A user without a document has all zero
// statistics.
func (r *StatisticsRepository) Get(ctx context.Context, userID string) (*models.UserStatistics, error) {
	doc, err := r.store.Get(ctx, models.CollectionStatistics, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return &models.UserStatistics{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStatistics(doc)
}

// Apply adds delta atomically, creating the document on first use. With a
// non-empty key the delta is applied at most once; applied is false for a
// repeated key.
func (r *StatisticsRepository) Apply(ctx context.Context, userID string, delta StatDelta, key string) (applied bool, err error) {
	fields := delta.fields()
	if len(fields) == 0 {
		return false, nil
	}

	opts := []docstore.IncrementOption{
		docstore.WithDefaults(map[string]any{
			"userId":                        userID,
			models.StatTasksCompleted:       0,
			models.StatTotalPoints:          0,
			models.StatTotalCompletionHours: 0,
			models.StatTotalTasksAssigned:   0,
		}),
	}
	if key != "" {
		opts = append(opts, docstore.WithIdempotencyKey(key))
	}

	applied, err = r.store.Increment(ctx, models.CollectionStatistics, userID, fields, opts...)
	if err != nil {
		return false, fmt.Errorf("update statistics of %s: %w", userID, err)
	}
	return applied, nil
}

// Top returns the users with the most points.
func (r *StatisticsRepository) Top(ctx context.Context, limit int) ([]*models.UserStatistics, error) {
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: models.CollectionStatistics,
		OrderBy: []docstore.Order{
			{Field: models.StatTotalPoints, Desc: true},
			{Field: models.StatTasksCompleted, Desc: true},
		},
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query statistics: %w", err)
	}

	out := make([]*models.UserStatistics, 0, len(docs))
	for i := range docs {
		s, err := decodeStatistics(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeStatistics(doc *docstore.Document) (*models.UserStatistics, error) {
	var s models.UserStatistics
	if err := doc.Decode(&s); err != nil {
		return nil, err
	}
	s.UserID = doc.ID
	return &s, nil
}
