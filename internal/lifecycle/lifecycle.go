// Package lifecycle holds the task state machine. It is free of I/O: it
// decides what a transition does to a task and which completion record it
// produces, and leaves persistence to the caller.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/pkg/recurrence"
	"github.com/gurkanbulca/teamportal/pkg/scoring"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown task status")
)

// Kind tags what a transition did to the task.
type Kind int

const (
	// Moved is a transition between pending and in_progress.
	Moved Kind = iota
	// Finalized is a completion that leaves the task completed for good.
	Finalized
	// Rescheduled is a completion of a recurring task whose series goes on;
	// the same task record now stands for the next occurrence.
	Rescheduled
)

func (k Kind) String() string {
	switch k {
	case Moved:
		return "moved"
	case Finalized:
		return "finalized"
	case Rescheduled:
		return "rescheduled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Occurrence is one cycle of a task, independent of the storage id the
// task is kept under.
type Occurrence struct {
	TaskID     string
	Number     int
	AssignedAt time.Time
	DueDate    time.Time
}

// Outcome is the result of applying a transition.
type Outcome struct {
	Kind Kind
	// Task is the task as it must be written back.
	Task *models.Task
	// Completion is the record of the closed occurrence; nil for Moved.
	Completion *models.TaskCompletion
	// Closed is the occurrence the completion finished; nil for Moved.
	Closed *Occurrence
	// Next is the occurrence the task now represents; set for Rescheduled.
	Next *Occurrence
	// SeriesEnded is set when a recurring series reached its end date.
	SeriesEnded bool
}

// Machine applies status transitions.
type Machine struct {
	scorer   *scoring.Scorer
	calendar recurrence.Calendar
}

func NewMachine(scorer *scoring.Scorer, calendar recurrence.Calendar) *Machine {
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.DefaultGraceWindow)
	}
	return &Machine{scorer: scorer, calendar: calendar}
}

// CanTransition checks whether a task in status from may move to status to.
// A completed task accepts no further transitions, and moving to the status
// a task already has is rejected.
func CanTransition(from, to string) error {
	if !models.ValidStatus(to) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if from == models.TaskStatusCompleted {
		return fmt.Errorf("%w: task is already completed", ErrInvalidTransition)
	}
	if from == to {
		return fmt.Errorf("%w: task is already %s", ErrInvalidTransition, to)
	}
	return nil
}

// BuildCompletion assembles the record of completing the task's current
// occurrence at completedAt.
func (m *Machine) BuildCompletion(task *models.Task, completedAt time.Time, actor models.Actor) models.TaskCompletion {
	points, early := m.scorer.Compute(task.DueDate, completedAt)
	occurrence := task.CompletionCount + 1

	var cadence recurrence.Cadence
	if task.IsRecurring {
		cadence = task.Cadence
	}

	return models.TaskCompletion{
		ID:              models.CompletionID(task.ID, occurrence),
		TaskID:          task.ID,
		Title:           task.Title,
		Description:     task.Description,
		Priority:        task.Priority,
		AssigneeID:      task.AssigneeID,
		ClientID:        task.ClientID,
		CreatorID:       task.CreatorID,
		AssignedAt:      task.AssignedAt,
		DueDate:         task.DueDate,
		CompletedAt:     completedAt,
		CompletionHours: scoring.HoursBetween(task.AssignedAt, completedAt),
		Points:          points,
		IsEarly:         early,
		Cadence:         cadence,
		Occurrence:      occurrence,
		CompletedBy:     actor.ID,
		CompletedByName: actor.Name,
	}
}

// Move applies a transition that does not complete the task.
func (m *Machine) Move(task *models.Task, to string, actor models.Actor, now time.Time) (*Outcome, error) {
	if err := CanTransition(task.Status, to); err != nil {
		return nil, err
	}
	if to == models.TaskStatusCompleted {
		return nil, fmt.Errorf("%w: completion needs a completion record", ErrInvalidTransition)
	}

	next := task.Clone()
	next.Status = to
	next.StatusHistory = append(next.StatusHistory, historyEntry(to, actor, now))
	return &Outcome{Kind: Moved, Task: next}, nil
}

// Complete applies the completion described by rec, normally the value
// returned by BuildCompletion or the stored copy of it.
func (m *Machine) Complete(task *models.Task, rec models.TaskCompletion, actor models.Actor, now time.Time) (*Outcome, error) {
	if err := CanTransition(task.Status, models.TaskStatusCompleted); err != nil {
		return nil, err
	}
	if rec.TaskID != task.ID || rec.Occurrence != task.CompletionCount+1 {
		return nil, fmt.Errorf("%w: completion %s does not close occurrence %d of task %s",
			ErrInvalidTransition, rec.ID, task.CompletionCount+1, task.ID)
	}

	closed := &Occurrence{
		TaskID:     task.ID,
		Number:     rec.Occurrence,
		AssignedAt: task.AssignedAt,
		DueDate:    task.DueDate,
	}
	out := &Outcome{Completion: &rec, Closed: closed}

	if task.IsRecurring && task.Cadence.Valid() {
		nextDue, err := recurrence.Next(task.DueDate, task.Cadence)
		if err != nil {
			return nil, err
		}
		if m.calendar.SeriesContinues(nextDue, task.RecurringEndDate) {
			next := task.Clone()
			next.Status = models.TaskStatusPending
			next.DueDate = nextDue
			next.AssignedAt = now
			next.ClearCompletion()
			next.CompletionCount = rec.Occurrence
			completedAt := rec.CompletedAt
			next.LastCompletedAt = &completedAt
			next.StatusHistory = []models.StatusChange{historyEntry(models.TaskStatusPending, actor, now)}

			out.Kind = Rescheduled
			out.Task = next
			out.Next = &Occurrence{
				TaskID:     task.ID,
				Number:     rec.Occurrence + 1,
				AssignedAt: now,
				DueDate:    nextDue,
			}
			return out, nil
		}
		out.SeriesEnded = true
	}

	next := task.Clone()
	next.Status = models.TaskStatusCompleted
	completedAt := rec.CompletedAt
	hours := rec.CompletionHours
	points := rec.Points
	early := rec.IsEarly
	next.CompletedAt = &completedAt
	next.CompletionHours = &hours
	next.Points = &points
	next.IsEarly = &early
	next.CompletionCount = rec.Occurrence
	next.LastCompletedAt = &completedAt
	if out.SeriesEnded {
		next.IsRecurring = false
	}
	next.StatusHistory = append(next.StatusHistory, historyEntry(models.TaskStatusCompleted, actor, now))

	out.Kind = Finalized
	out.Task = next
	return out, nil
}

// Apply runs a full transition, scoring a completion at now.
func (m *Machine) Apply(task *models.Task, to string, actor models.Actor, now time.Time) (*Outcome, error) {
	if to != models.TaskStatusCompleted {
		return m.Move(task, to, actor, now)
	}
	if err := CanTransition(task.Status, to); err != nil {
		return nil, err
	}
	return m.Complete(task, m.BuildCompletion(task, now, actor), actor, now)
}

func historyEntry(status string, actor models.Actor, now time.Time) models.StatusChange {
	return models.StatusChange{
		Status:    status,
		Timestamp: now,
		ActorID:   actor.ID,
		ActorName: actor.Name,
	}
}
