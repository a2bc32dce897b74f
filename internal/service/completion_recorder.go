package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/internal/repository"
)

// CompletionRecorder appends completion records to the history.
type CompletionRecorder struct {
	repo *repository.CompletionRepository
}

func NewCompletionRecorder(repo *repository.CompletionRepository) *CompletionRecorder {
	return &CompletionRecorder{repo: repo}
}

// Record persists rec. When the same occurrence was already recorded, by an
// earlier attempt of the same completion, the stored record is returned and
// replayed is true.
func (r *CompletionRecorder) Record(ctx context.Context, rec models.TaskCompletion) (stored *models.TaskCompletion, replayed bool, err error) {
	if rec.TaskID == "" || rec.Occurrence < 1 {
		return nil, false, validationError("completion needs a task id and an occurrence number")
	}

	stored, err = r.repo.Append(ctx, &rec)
	if err == nil {
		return stored, false, nil
	}
	if !errors.Is(err, docstore.ErrAlreadyExists) {
		return nil, false, storeError("record completion", err)
	}

	existing, err := r.repo.GetByID(ctx, models.CompletionID(rec.TaskID, rec.Occurrence))
	if err != nil {
		return nil, false, storeError("load recorded completion", err)
	}
	if existing.TaskID != rec.TaskID || existing.Occurrence != rec.Occurrence {
		return nil, false, fmt.Errorf("%w: completion id %s belongs to task %s occurrence %d",
			ErrConflict, existing.ID, existing.TaskID, existing.Occurrence)
	}
	return existing, true, nil
}

// History returns the completions of a task, oldest first.
func (r *CompletionRecorder) History(ctx context.Context, taskID string, limit int) ([]*models.TaskCompletion, error) {
	recs, err := r.repo.ListByTask(ctx, taskID, limit)
	if err != nil {
		return nil, storeError("task history", err)
	}
	return recs, nil
}

// UserHistory returns the completions of an assignee, newest first.
func (r *CompletionRecorder) UserHistory(ctx context.Context, userID string, limit int) ([]*models.TaskCompletion, error) {
	recs, err := r.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, storeError("user history", err)
	}
	return recs, nil
}
