package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/models"
)

// CompletionRepository is the append-only archive of completed occurrences.
type CompletionRepository struct {
	store docstore.Backend
	now   func() time.Time
}

func NewCompletionRepository(store docstore.Backend) *CompletionRepository {
	return &CompletionRepository{store: store, now: time.Now}
}

// Append stores c under its deterministic id. When a record with that id
// exists it returns docstore.ErrAlreadyExists and leaves the record as is.
func (r *CompletionRepository) Append(ctx context.Context, c *models.TaskCompletion) (*models.TaskCompletion, error) {
	rec := *c
	rec.ID = models.CompletionID(rec.TaskID, rec.Occurrence)
	rec.AssignedAt = models.NormalizeTime(rec.AssignedAt)
	rec.DueDate = models.NormalizeTime(rec.DueDate)
	rec.CompletedAt = models.NormalizeTime(rec.CompletedAt)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	rec.CreatedAt = models.NormalizeTime(rec.CreatedAt)

	data, err := docstore.Encode(rec)
	if err != nil {
		return nil, err
	}
	if _, err := r.store.Create(ctx, models.CollectionCompletions, rec.ID, data); err != nil {
		return nil, fmt.Errorf("append completion %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func (r *CompletionRepository) GetByID(ctx context.Context, id string) (*models.TaskCompletion, error) {
	doc, err := r.store.Get(ctx, models.CollectionCompletions, id)
	if err != nil {
		return nil, err
	}
	return decodeCompletion(doc)
}

// ListByTask returns the completions of one task, oldest occurrence first.
func (r *CompletionRepository) ListByTask(ctx context.Context, taskID string, limit int) ([]*models.TaskCompletion, error) {
	return r.list(ctx, docstore.Query{
		Collection: models.CollectionCompletions,
		Where:      []docstore.Predicate{docstore.Where("taskId", docstore.OpEQ, taskID)},
		OrderBy:    []docstore.Order{{Field: "occurrence"}},
		Limit:      limit,
	})
}

// ListByUser returns the completions of one assignee, newest first.
func (r *CompletionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.TaskCompletion, error) {
	return r.list(ctx, docstore.Query{
		Collection: models.CollectionCompletions,
		Where:      []docstore.Predicate{docstore.Where("assigneeId", docstore.OpEQ, userID)},
		OrderBy:    []docstore.Order{{Field: "completedAt", Desc: true}},
		Limit:      limit,
	})
}

func (r *CompletionRepository) list(ctx context.Context, q docstore.Query) ([]*models.TaskCompletion, error) {
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	out := make([]*models.TaskCompletion, 0, len(docs))
	for i := range docs {
		c, err := decodeCompletion(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeCompletion(doc *docstore.Document) (*models.TaskCompletion, error) {
	var c models.TaskCompletion
	if err := doc.Decode(&c); err != nil {
		return nil, err
	}
	c.ID = doc.ID
	return &c, nil
}
