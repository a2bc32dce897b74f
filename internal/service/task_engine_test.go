package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/lifecycle"
	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/pkg/recurrence"
)

func date(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func ptrTo[T any](v T) *T { return &v }

func TestTaskEngine_CompleteNonRecurring(t *testing.T) {
	backends := map[string]func(t *testing.T) *TestHelpers{
		"memory": NewTestHelpers,
		"sqlite": func(t *testing.T) *TestHelpers { return NewTestHelpersWithStore(t, setupTestDB(t)) },
	}

	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			h := setup(t)
			task := h.CreateTask(CreateTaskInput{Title: "Quarterly report", DueDate: date(2024, 3, 5, 12)})

			res := h.Complete(task.ID, testAssignee, date(2024, 3, 4, 10))

			assert.Equal(t, lifecycle.Finalized, res.Kind)
			assert.False(t, res.Replayed)
			assert.True(t, res.StatisticsUpdated)

			got, err := h.Services.Tasks.Get(context.Background(), task.ID)
			require.NoError(t, err)
			assert.Equal(t, models.TaskStatusCompleted, got.Status)
			require.True(t, got.HasCompletionFields())
			assert.Equal(t, 150, *got.Points)
			assert.True(t, *got.IsEarly)
			assert.Equal(t, date(2024, 3, 4, 10), *got.CompletedAt)
			assert.InDelta(t, 73.0, *got.CompletionHours, 1e-9)
			assert.Equal(t, 1, got.CompletionCount)
			assert.Len(t, got.StatusHistory, 2)

			history := h.History(task.ID)
			require.Len(t, history, 1)
			assert.Equal(t, 1, history[0].Occurrence)
			assert.Equal(t, task.ID+"-1", history[0].ID)
			assert.Equal(t, 150, history[0].Points)

			stats := h.Stats(testAssignee.ID)
			assert.Equal(t, 1, stats.TasksCompleted)
			assert.Equal(t, 150, stats.TotalPoints)
			assert.Equal(t, 1, stats.TotalTasksAssigned)
			assert.InDelta(t, 73.0, stats.AverageCompletionHours, 1e-9)
			assert.InDelta(t, 100.0, stats.CompletionRate, 1e-9)

			notes := h.Sink.For(testAdmin.ID)
			require.NotEmpty(t, notes)
			assert.Equal(t, models.CategoryTaskCompleted, notes[len(notes)-1].Category)
			assert.Contains(t, notes[len(notes)-1].Body, "150 points")
		})
	}
}

func TestTaskEngine_CompletionByOtherUserIsNotCredited(t *testing.T) {
	h := NewTestHelpers(t)
	task := h.CreateTask(CreateTaskInput{Title: "Report", DueDate: date(2024, 3, 5, 12)})

	res := h.Complete(task.ID, testAdmin, date(2024, 3, 5, 12))
	assert.False(t, res.StatisticsUpdated)
	assert.Equal(t, testAdmin.ID, res.Completion.CompletedBy)

	assert.Zero(t, h.Stats(testAssignee.ID).TasksCompleted)
	assert.Zero(t, h.Stats(testAdmin.ID).TasksCompleted)
	assert.Len(t, h.History(task.ID), 1)
}

func TestTaskEngine_RecurringReset(t *testing.T) {
	h := NewTestHelpers(t)
	task := h.CreateTask(CreateTaskInput{
		Title:       "Team sync notes",
		DueDate:     date(2024, 3, 4, 9),
		IsRecurring: true,
		Cadence:     "weekly",
	})

	res := h.Complete(task.ID, testAssignee, date(2024, 3, 4, 8))

	assert.Equal(t, lifecycle.Rescheduled, res.Kind)
	require.NotNil(t, res.Next)
	assert.Equal(t, 1, res.Closed.Number)
	assert.Equal(t, 2, res.Next.Number)
	assert.Equal(t, date(2024, 3, 11, 9), res.Next.DueDate)

	got, err := h.Services.Tasks.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, models.TaskStatusPending, got.Status)
	assert.Equal(t, date(2024, 3, 11, 9), got.DueDate)
	assert.Equal(t, date(2024, 3, 4, 8), got.AssignedAt)
	assert.Equal(t, 1, got.CompletionCount)
	assert.False(t, got.HasCompletionFields())
	assert.True(t, got.IsRecurring)
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, models.TaskStatusPending, got.StatusHistory[0].Status)

	history := h.History(task.ID)
	require.Len(t, history, 1)
	assert.Equal(t, 75, history[0].Points)

	stats := h.Stats(testAssignee.ID)
	assert.Equal(t, 1, stats.TasksCompleted)
	assert.Equal(t, 2, stats.TotalTasksAssigned)

	notes := h.Sink.For(testAssignee.ID)
	require.NotEmpty(t, notes)
	assert.Equal(t, models.CategoryTaskRecurring, notes[len(notes)-1].Category)
}

func TestTaskEngine_WeeklySeriesRunsToItsEnd(t *testing.T) {
	h := NewTestHelpers(t)
	end := date(2024, 3, 20, 0)
	task := h.CreateTask(CreateTaskInput{
		Title:            "Weekly check",
		DueDate:          date(2024, 3, 10, 0),
		IsRecurring:      true,
		Cadence:          "weekly",
		RecurringEndDate: &end,
	})

	first := h.Complete(task.ID, testAssignee, date(2024, 3, 10, 0))
	assert.Equal(t, lifecycle.Rescheduled, first.Kind)
	assert.Equal(t, date(2024, 3, 17, 0), first.Task.DueDate)

	second := h.Complete(task.ID, testAssignee, date(2024, 3, 17, 0))
	assert.Equal(t, lifecycle.Finalized, second.Kind)
	assert.True(t, second.SeriesEnded)
	assert.Equal(t, models.TaskStatusCompleted, second.Task.Status)
	assert.False(t, second.Task.IsRecurring)
	assert.Equal(t, 2, second.Task.CompletionCount)

	history := h.History(task.ID)
	require.Len(t, history, 2)
	assert.Equal(t, []int{1, 2}, []int{history[0].Occurrence, history[1].Occurrence})

	stats := h.Stats(testAssignee.ID)
	assert.Equal(t, 2, stats.TasksCompleted)
	assert.Equal(t, 2, stats.TotalTasksAssigned)
	assert.Equal(t, 100, stats.TotalPoints)

	var finished int
	for _, n := range h.Sink.For(testAssignee.ID) {
		if n.Category == models.CategorySeriesFinished {
			finished++
		}
	}
	assert.Equal(t, 1, finished)
	assert.NotEmpty(t, h.Sink.For(testAdmin.ID))

	_, err := h.Services.Engine.Transition(context.Background(), TransitionRequest{
		TaskID: task.ID, Status: models.TaskStatusPending, Actor: testAssignee,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTaskEngine_MoveBetweenOpenStates(t *testing.T) {
	h := NewTestHelpers(t)
	task := h.CreateTask(CreateTaskInput{Title: "Report", DueDate: date(2024, 3, 5, 12)})
	ctx := context.Background()

	res, err := h.Services.Engine.Transition(ctx, TransitionRequest{TaskID: task.ID, Status: "in-progress", Actor: testAssignee})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Moved, res.Kind)
	assert.Equal(t, models.TaskStatusInProgress, res.Task.Status)
	assert.Nil(t, res.Completion)

	_, err = h.Services.Engine.Transition(ctx, TransitionRequest{TaskID: task.ID, Status: models.TaskStatusInProgress, Actor: testAssignee})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	res, err = h.Services.Engine.Transition(ctx, TransitionRequest{TaskID: task.ID, Status: models.TaskStatusPending, Actor: testAssignee})
	require.NoError(t, err)
	assert.Len(t, res.Task.StatusHistory, 3)

	assert.Empty(t, h.History(task.ID))
	assert.Zero(t, h.Stats(testAssignee.ID).TasksCompleted)

	var changed int
	for _, n := range h.Sink.For(testAdmin.ID) {
		if n.Category == models.CategoryStatusChanged {
			changed++
		}
	}
	assert.Equal(t, 2, changed)
}

func TestTaskEngine_Validation(t *testing.T) {
	h := NewTestHelpers(t)
	task := h.CreateTask(CreateTaskInput{Title: "Report", DueDate: date(2024, 3, 5, 12)})
	ctx := context.Background()

	tests := []struct {
		name    string
		req     TransitionRequest
		wantErr error
	}{
		{"missing task id", TransitionRequest{Status: "completed", Actor: testAssignee}, ErrValidation},
		{"missing actor", TransitionRequest{TaskID: task.ID, Status: "completed"}, ErrValidation},
		{"unknown status", TransitionRequest{TaskID: task.ID, Status: "archived", Actor: testAssignee}, ErrValidation},
		{"unknown task", TransitionRequest{TaskID: "nope", Status: "completed", Actor: testAssignee}, ErrNotFound},
		{"same status", TransitionRequest{TaskID: task.ID, Status: "pending", Actor: testAssignee}, ErrInvalidTransition},
		{"stale occurrence", TransitionRequest{TaskID: task.ID, Status: "completed", Actor: testAssignee, ExpectedOccurrence: 2}, ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Services.Engine.Transition(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, h.History(task.ID))
}

func TestTaskEngine_DeleteKeepsHistory(t *testing.T) {
	h := NewTestHelpers(t)
	ctx := context.Background()
	task := h.CreateTask(CreateTaskInput{Title: "Daily", DueDate: date(2024, 3, 2, 9), IsRecurring: true, Cadence: "daily"})

	h.Complete(task.ID, testAssignee, date(2024, 3, 2, 8))
	h.Complete(task.ID, testAssignee, date(2024, 3, 3, 8))
	require.Len(t, h.History(task.ID), 2)

	require.NoError(t, h.Services.Tasks.Delete(ctx, task.ID, testAdmin))

	_, err := h.Services.Tasks.Get(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, h.History(task.ID), 2)
	assert.Equal(t, 2, h.Stats(testAssignee.ID).TasksCompleted)
}

func TestTaskEngine_ReplayAfterInterruptedCompletion(t *testing.T) {
	h := NewTestHelpers(t)
	ctx := context.Background()
	task := h.CreateTask(CreateTaskInput{Title: "Report", DueDate: date(2024, 3, 5, 12)})

	// An earlier attempt recorded the completion and credited the assignee,
	// then failed before writing the task.
	machine := lifecycle.NewMachine(nil, recurrence.Calendar{})
	rec := machine.BuildCompletion(task, date(2024, 3, 3, 12), testAssignee)
	stored, replayed, err := h.Services.Completions.Record(ctx, rec)
	require.NoError(t, err)
	require.False(t, replayed)
	_, err = h.Services.Statistics.RecordCompletion(ctx, stored)
	require.NoError(t, err)

	// The retry happens a day later, but keeps the recorded outcome.
	res := h.Complete(task.ID, testAssignee, date(2024, 3, 6, 12))
	assert.True(t, res.Replayed)
	assert.False(t, res.StatisticsUpdated)
	assert.Equal(t, 150, *res.Task.Points)
	assert.Equal(t, date(2024, 3, 3, 12), *res.Task.CompletedAt)

	assert.Len(t, h.History(task.ID), 1)
	stats := h.Stats(testAssignee.ID)
	assert.Equal(t, 1, stats.TasksCompleted)
	assert.Equal(t, 150, stats.TotalPoints)
}

func TestTaskEngine_ReplayByAnotherActorCreditsRecordedAssignee(t *testing.T) {
	h := NewTestHelpers(t)
	ctx := context.Background()
	task := h.CreateTask(CreateTaskInput{Title: "Report", DueDate: date(2024, 3, 5, 12)})

	// The assignee's attempt recorded the completion and failed before
	// statistics were written.
	machine := lifecycle.NewMachine(nil, recurrence.Calendar{})
	_, replayed, err := h.Services.Completions.Record(ctx, machine.BuildCompletion(task, date(2024, 3, 3, 12), testAssignee))
	require.NoError(t, err)
	require.False(t, replayed)

	res := h.Complete(task.ID, testAdmin, date(2024, 3, 6, 12))
	assert.True(t, res.Replayed)
	assert.True(t, res.StatisticsUpdated)
	assert.Equal(t, testAssignee.ID, res.Completion.CompletedBy)

	stats := h.Stats(testAssignee.ID)
	assert.Equal(t, 1, stats.TasksCompleted)
	assert.Equal(t, 150, stats.TotalPoints)
	assert.Equal(t, 0, h.Stats(testAdmin.ID).TasksCompleted)
}

func TestTaskEngine_ConcurrentCompletionsOfOneTask(t *testing.T) {
	h := NewTestHelpers(t)
	h.Clock.Set(date(2024, 3, 5, 11))
	task := h.CreateTask(CreateTaskInput{Title: "Report", DueDate: date(2024, 3, 5, 12)})

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Services.Engine.Transition(context.Background(), TransitionRequest{
				TaskID: task.ID, Status: models.TaskStatusCompleted, Actor: testAssignee,
			})
			if err == nil {
				succeeded.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Len(t, h.History(task.ID), 1)
	assert.Equal(t, 1, h.Stats(testAssignee.ID).TasksCompleted)
}

func TestTaskEngine_ConcurrentCompletionsPinnedToOccurrence(t *testing.T) {
	h := NewTestHelpers(t)
	task := h.CreateTask(CreateTaskInput{Title: "Daily", DueDate: date(2024, 3, 2, 9), IsRecurring: true, Cadence: "daily"})
	h.Clock.Set(date(2024, 3, 2, 8))

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Services.Engine.Transition(context.Background(), TransitionRequest{
				TaskID: task.ID, Status: models.TaskStatusCompleted, Actor: testAssignee, ExpectedOccurrence: 1,
			})
			if err == nil {
				succeeded.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrConflict)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Len(t, h.History(task.ID), 1)
}

// racingStore lets another writer update a task right before the next task
// write goes through.
type racingStore struct {
	docstore.Store
	armed atomic.Bool
}

func (s *racingStore) Update(ctx context.Context, collection, id string, patch map[string]any, opts ...docstore.UpdateOption) (*docstore.Document, error) {
	if collection == models.CollectionTasks && s.armed.CompareAndSwap(true, false) {
		if _, err := s.Store.Update(ctx, collection, id, map[string]any{"description": "edited elsewhere"}); err != nil {
			return nil, err
		}
	}
	return s.Store.Update(ctx, collection, id, patch, opts...)
}

func TestTaskEngine_LostRaceIsAConflictAndRetrySucceeds(t *testing.T) {
	store := &racingStore{Store: docstore.NewMemoryStore()}
	h := NewTestHelpersWithStore(t, store)
	ctx := context.Background()
	task := h.CreateTask(CreateTaskInput{Title: "Report", DueDate: date(2024, 3, 5, 12)})

	store.armed.Store(true)
	h.Clock.Set(date(2024, 3, 5, 12))
	_, err := h.Services.Engine.Transition(ctx, TransitionRequest{TaskID: task.ID, Status: "completed", Actor: testAssignee})
	require.ErrorIs(t, err, ErrConflict)

	got, err := h.Services.Tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, got.Status)
	assert.Equal(t, "edited elsewhere", got.Description)

	res := h.Complete(task.ID, testAssignee, date(2024, 3, 5, 13))
	assert.True(t, res.Replayed)
	assert.Equal(t, 50, *res.Task.Points)
	assert.Len(t, h.History(task.ID), 1)
	assert.Equal(t, 1, h.Stats(testAssignee.ID).TasksCompleted)
}

func TestTaskEngine_NotificationFailureDoesNotFailTransition(t *testing.T) {
	h := NewTestHelpers(t)
	task := h.CreateTask(CreateTaskInput{Title: "Report", DueDate: date(2024, 3, 5, 12)})

	h.Sink.SetFail(true)
	res := h.Complete(task.ID, testAssignee, date(2024, 3, 5, 12))
	assert.Equal(t, models.TaskStatusCompleted, res.Task.Status)
}
