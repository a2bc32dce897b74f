package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/pkg/recurrence"
	"github.com/gurkanbulca/teamportal/pkg/scoring"
)

var (
	assignee = models.Actor{ID: "u1", Name: "Ada"}
	manager  = models.Actor{ID: "m1", Name: "Grace", Role: "admin"}
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func pendingTask(due time.Time) *models.Task {
	return &models.Task{
		ID:         "task-1",
		Title:      "Weekly report",
		Priority:   models.PriorityHigh,
		Status:     models.TaskStatusPending,
		AssigneeID: assignee.ID,
		CreatorID:  manager.ID,
		DueDate:    due,
		AssignedAt: due.Add(-72 * time.Hour),
		StatusHistory: []models.StatusChange{
			{Status: models.TaskStatusPending, Timestamp: due.Add(-72 * time.Hour), ActorID: manager.ID, ActorName: manager.Name},
		},
	}
}

func weekly(due, end time.Time) *models.Task {
	t := pendingTask(due)
	t.IsRecurring = true
	t.Cadence = recurrence.Weekly
	t.RecurringEndDate = &end
	return t
}

func newMachine() *Machine {
	return NewMachine(scoring.NewScorer(scoring.DefaultGraceWindow), recurrence.Calendar{})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		wantErr  error
	}{
		{models.TaskStatusPending, models.TaskStatusInProgress, nil},
		{models.TaskStatusInProgress, models.TaskStatusPending, nil},
		{models.TaskStatusPending, models.TaskStatusCompleted, nil},
		{models.TaskStatusInProgress, models.TaskStatusCompleted, nil},
		{models.TaskStatusPending, models.TaskStatusPending, ErrInvalidTransition},
		{models.TaskStatusCompleted, models.TaskStatusPending, ErrInvalidTransition},
		{models.TaskStatusCompleted, models.TaskStatusCompleted, ErrInvalidTransition},
		{models.TaskStatusPending, "archived", ErrUnknownStatus},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMachine_MoveAppendsHistory(t *testing.T) {
	task := pendingTask(day(2024, 3, 10))
	now := day(2024, 3, 8)

	out, err := newMachine().Apply(task, models.TaskStatusInProgress, assignee, now)
	require.NoError(t, err)

	assert.Equal(t, Moved, out.Kind)
	assert.Nil(t, out.Completion)
	assert.Equal(t, models.TaskStatusInProgress, out.Task.Status)
	require.Len(t, out.Task.StatusHistory, 2)
	assert.Equal(t, models.StatusChange{Status: models.TaskStatusInProgress, Timestamp: now, ActorID: "u1", ActorName: "Ada"}, out.Task.StatusHistory[1])
	assert.False(t, out.Task.HasCompletionFields())

	// input untouched
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Len(t, task.StatusHistory, 1)
}

func TestMachine_CompleteNonRecurring(t *testing.T) {
	due := day(2024, 3, 10)
	task := pendingTask(due)
	completedAt := due.Add(-26 * time.Hour)

	out, err := newMachine().Apply(task, models.TaskStatusCompleted, assignee, completedAt)
	require.NoError(t, err)

	assert.Equal(t, Finalized, out.Kind)
	assert.False(t, out.SeriesEnded)
	assert.Equal(t, models.TaskStatusCompleted, out.Task.Status)
	require.True(t, out.Task.HasCompletionFields())
	assert.Equal(t, 150, *out.Task.Points)
	assert.True(t, *out.Task.IsEarly)
	assert.Equal(t, completedAt, *out.Task.CompletedAt)
	assert.InDelta(t, 46.0, *out.Task.CompletionHours, 1e-9)
	assert.Equal(t, 1, out.Task.CompletionCount)
	assert.Len(t, out.Task.StatusHistory, 2)

	require.NotNil(t, out.Completion)
	assert.Equal(t, "task-1-1", out.Completion.ID)
	assert.Equal(t, 1, out.Completion.Occurrence)
	assert.Equal(t, 150, out.Completion.Points)
	assert.Equal(t, "Weekly report", out.Completion.Title)
	assert.Equal(t, recurrence.Cadence(""), out.Completion.Cadence)
	assert.Equal(t, 1, out.Closed.Number)
	assert.Nil(t, out.Next)
}

func TestMachine_CompleteRecurringReschedules(t *testing.T) {
	task := weekly(day(2024, 3, 10), day(2024, 3, 20))
	task.CompletionCount = 3
	completedAt := day(2024, 3, 10)

	out, err := newMachine().Apply(task, models.TaskStatusCompleted, assignee, completedAt)
	require.NoError(t, err)

	assert.Equal(t, Rescheduled, out.Kind)
	next := out.Task
	assert.Equal(t, "task-1", next.ID)
	assert.Equal(t, models.TaskStatusPending, next.Status)
	assert.Equal(t, day(2024, 3, 17), next.DueDate)
	assert.Equal(t, completedAt, next.AssignedAt)
	assert.Equal(t, 4, next.CompletionCount)
	assert.False(t, next.HasCompletionFields())
	assert.True(t, next.IsRecurring)
	require.NotNil(t, next.LastCompletedAt)
	assert.Equal(t, completedAt, *next.LastCompletedAt)
	require.Len(t, next.StatusHistory, 1)
	assert.Equal(t, models.TaskStatusPending, next.StatusHistory[0].Status)

	assert.Equal(t, "task-1-4", out.Completion.ID)
	assert.Equal(t, 4, out.Completion.Occurrence)
	assert.Equal(t, 50, out.Completion.Points)
	assert.Equal(t, recurrence.Weekly, out.Completion.Cadence)

	assert.Equal(t, Occurrence{TaskID: "task-1", Number: 4, AssignedAt: task.AssignedAt, DueDate: day(2024, 3, 10)}, *out.Closed)
	assert.Equal(t, Occurrence{TaskID: "task-1", Number: 5, AssignedAt: completedAt, DueDate: day(2024, 3, 17)}, *out.Next)
}

func TestMachine_WeeklySeriesScenario(t *testing.T) {
	m := newMachine()
	task := weekly(day(2024, 3, 10), day(2024, 3, 20))

	first, err := m.Apply(task, models.TaskStatusCompleted, assignee, day(2024, 3, 10))
	require.NoError(t, err)
	require.Equal(t, Rescheduled, first.Kind)
	assert.Equal(t, day(2024, 3, 17), first.Task.DueDate)

	second, err := m.Apply(first.Task, models.TaskStatusCompleted, assignee, day(2024, 3, 17))
	require.NoError(t, err)
	assert.Equal(t, Finalized, second.Kind)
	assert.True(t, second.SeriesEnded)
	assert.Equal(t, models.TaskStatusCompleted, second.Task.Status)
	assert.False(t, second.Task.IsRecurring)
	assert.Equal(t, 2, second.Task.CompletionCount)
	assert.Equal(t, 2, second.Completion.Occurrence)
	// full trail is kept: fresh pending entry plus the completion
	require.Len(t, second.Task.StatusHistory, 2)
	assert.Equal(t, models.TaskStatusCompleted, second.Task.StatusHistory[1].Status)

	_, err = m.Apply(second.Task, models.TaskStatusPending, assignee, day(2024, 3, 18))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMachine_EndBoundaryPolicy(t *testing.T) {
	// next occurrence lands exactly on the end date
	task := weekly(day(2024, 3, 10), day(2024, 3, 17))

	exclusive, err := newMachine().Apply(task, models.TaskStatusCompleted, assignee, day(2024, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, Finalized, exclusive.Kind)

	inclusive := NewMachine(nil, recurrence.Calendar{Boundary: recurrence.Inclusive})
	out, err := inclusive.Apply(task, models.TaskStatusCompleted, assignee, day(2024, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, Rescheduled, out.Kind)
}

func TestMachine_RecurringWithoutEndNeverStops(t *testing.T) {
	task := pendingTask(day(2024, 1, 31))
	task.IsRecurring = true
	task.Cadence = recurrence.Monthly

	out, err := newMachine().Apply(task, models.TaskStatusCompleted, assignee, day(2024, 1, 30))
	require.NoError(t, err)
	assert.Equal(t, Rescheduled, out.Kind)
	assert.Equal(t, day(2024, 3, 2), out.Task.DueDate)
}

func TestMachine_CompleteUsesGivenRecord(t *testing.T) {
	m := newMachine()
	task := pendingTask(day(2024, 3, 10))

	stored := m.BuildCompletion(task, day(2024, 3, 8), assignee)
	out, err := m.Complete(task, stored, assignee, day(2024, 3, 12))
	require.NoError(t, err)
	assert.Equal(t, 150, *out.Task.Points)
	assert.Equal(t, day(2024, 3, 8), *out.Task.CompletedAt)

	stale := stored
	stale.Occurrence = 7
	_, err = m.Complete(task, stale, assignee, day(2024, 3, 12))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMachine_MoveRejectsCompletion(t *testing.T) {
	_, err := newMachine().Move(pendingTask(day(2024, 3, 10)), models.TaskStatusCompleted, assignee, day(2024, 3, 9))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMachine_Materialize(t *testing.T) {
	task := weekly(day(2024, 3, 10), day(2024, 3, 31))
	task.AssignedAt = day(2024, 3, 8)

	tasks, err := newMachine().Materialize(task, "series-1", 10)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	for i, want := range []time.Time{day(2024, 3, 10), day(2024, 3, 17), day(2024, 3, 24)} {
		assert.Equal(t, want, tasks[i].DueDate)
		assert.Equal(t, want.Add(-48*time.Hour), tasks[i].AssignedAt)
		assert.Equal(t, "series-1", tasks[i].SeriesID)
		assert.Equal(t, i+1, tasks[i].SeriesIndex)
		assert.False(t, tasks[i].IsRecurring)
		assert.Empty(t, tasks[i].ID)
	}

	_, err = newMachine().Materialize(pendingTask(day(2024, 3, 10)), "s", 10)
	assert.Error(t, err)
}
