package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/models"
)

func TestCompletionRepository_AppendIsKeyedByOccurrence(t *testing.T) {
	ctx := context.Background()
	repo := NewCompletionRepository(docstore.NewMemory())
	at := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	rec, err := repo.Append(ctx, &models.TaskCompletion{TaskID: "t1", Occurrence: 1, AssigneeID: "u1", CompletedAt: at, Points: 100})
	require.NoError(t, err)
	assert.Equal(t, "t1-1", rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	_, err = repo.Append(ctx, &models.TaskCompletion{TaskID: "t1", Occurrence: 1, AssigneeID: "u1", CompletedAt: at, Points: 0})
	assert.ErrorIs(t, err, docstore.ErrAlreadyExists)

	stored, err := repo.GetByID(ctx, "t1-1")
	require.NoError(t, err)
	assert.Equal(t, 100, stored.Points)
}

func TestCompletionRepository_Lists(t *testing.T) {
	ctx := context.Background()
	repo := NewCompletionRepository(docstore.NewMemory())
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, c := range []models.TaskCompletion{
		{TaskID: "t1", Occurrence: 2, AssigneeID: "u1", CompletedAt: base.AddDate(0, 0, 7)},
		{TaskID: "t1", Occurrence: 1, AssigneeID: "u1", CompletedAt: base},
		{TaskID: "t2", Occurrence: 1, AssigneeID: "u1", CompletedAt: base.AddDate(0, 0, 3)},
		{TaskID: "t3", Occurrence: 1, AssigneeID: "u2", CompletedAt: base.AddDate(0, 0, 1)},
	} {
		c := c
		_, err := repo.Append(ctx, &c)
		require.NoError(t, err, "record %d", i)
	}

	byTask, err := repo.ListByTask(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, byTask, 2)
	assert.Equal(t, 1, byTask[0].Occurrence)
	assert.Equal(t, 2, byTask[1].Occurrence)

	byUser, err := repo.ListByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, "t1-2", byUser[0].ID)
	assert.Equal(t, "t2-1", byUser[1].ID)
}
