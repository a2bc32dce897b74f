package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gurkanbulca/teamportal/internal/lifecycle"
	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/internal/repository"
)

// TransitionRequest asks for a status change of one task.
type TransitionRequest struct {
	TaskID string
	Status string
	Actor  models.Actor
	// ExpectedOccurrence, when positive, makes the transition fail with
	// ErrConflict unless the task still stands for that occurrence. Clients
	// set it to avoid completing the next cycle of a recurring task twice.
	ExpectedOccurrence int
}

// TransitionResult describes an applied transition.
type TransitionResult struct {
	Task        *models.Task
	Kind        lifecycle.Kind
	Completion  *models.TaskCompletion
	Closed      *lifecycle.Occurrence
	Next        *lifecycle.Occurrence
	SeriesEnded bool
	// Replayed is set when the completion had already been recorded by an
	// earlier, interrupted attempt.
	Replayed bool
	// StatisticsUpdated is set when this call credited the assignee.
	StatisticsUpdated bool
}

// TaskEngine runs status transitions: it reads the task, lets the state
// machine decide, then writes the completion record, the statistics and the
// task, in that order.
type TaskEngine struct {
	tasks    *repository.TaskRepository
	recorder *CompletionRecorder
	stats    *StatisticsService
	machine  *lifecycle.Machine
	notify   notifier
	dir      directory
	locks    *keyedMutex
	now      func() time.Time
}

// Transition applies req. Transitions of one task are serialized; a write
// that loses a race with another process fails with ErrConflict.
func (e *TaskEngine) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if req.TaskID == "" {
		return nil, validationError("task id is required")
	}
	if req.Actor.ID == "" {
		return nil, validationError("actor is required")
	}
	to, ok := models.ParseStatus(req.Status)
	if !ok {
		return nil, validationError("unknown status %q", req.Status)
	}

	unlock := e.locks.Lock(req.TaskID)
	defer unlock()

	task, err := e.tasks.GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, storeError("get task", err)
	}
	if req.ExpectedOccurrence > 0 && req.ExpectedOccurrence != task.CompletionCount+1 {
		return nil, fmt.Errorf("%w: task %s is at occurrence %d, not %d",
			ErrConflict, task.ID, task.CompletionCount+1, req.ExpectedOccurrence)
	}
	if err := lifecycle.CanTransition(task.Status, to); err != nil {
		return nil, err
	}

	e.dir.remember(ctx, req.Actor)
	now := models.NormalizeTime(e.now())

	if to != models.TaskStatusCompleted {
		return e.move(ctx, task, to, req.Actor, now)
	}
	return e.complete(ctx, task, req.Actor, now)
}

func (e *TaskEngine) move(ctx context.Context, task *models.Task, to string, actor models.Actor, now time.Time) (*TransitionResult, error) {
	out, err := e.machine.Move(task, to, actor, now)
	if err != nil {
		return nil, err
	}
	saved, err := e.save(ctx, out.Task)
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] task %s: %s -> %s by %s", task.ID, task.Status, to, actor.ID)
	if task.CreatorID != actor.ID {
		e.notify.send(ctx, task.CreatorID, "Task status changed",
			fmt.Sprintf("%s moved %q to %s", displayName(actor), task.Title, to),
			models.CategoryStatusChanged)
	}
	return &TransitionResult{Task: saved, Kind: out.Kind}, nil
}

func (e *TaskEngine) complete(ctx context.Context, task *models.Task, actor models.Actor, now time.Time) (*TransitionResult, error) {
	// 1-2: score and record the closed occurrence before touching the task.
	rec, replayed, err := e.recorder.Record(ctx, e.machine.BuildCompletion(task, now, actor))
	if err != nil {
		return nil, err
	}
	if replayed {
		log.Printf("[INFO] task %s: completion %s already recorded, resuming", task.ID, rec.ID)
	}

	out, err := e.machine.Complete(task, *rec, actor, now)
	if err != nil {
		return nil, err
	}

	// 3: only the assignee completing their own task is credited. The
	// record decides, so a replay by another actor still credits it.
	var credited bool
	if rec.CompletedBy == rec.AssigneeID {
		credited, err = e.stats.RecordCompletion(ctx, rec)
		if err != nil {
			return nil, err
		}
	}
	if out.Kind == lifecycle.Rescheduled {
		if _, err := e.stats.RecordAssignment(ctx, task.AssigneeID, task.ID, out.Next.Number); err != nil {
			return nil, err
		}
	}

	// 4-5: write the reset or finalized task.
	saved, err := e.save(ctx, out.Task)
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] task %s: occurrence %d completed by %s (%s, %d points)",
		task.ID, rec.Occurrence, actor.ID, out.Kind, rec.Points)
	e.announceCompletion(ctx, task, saved, rec, out, actor)

	return &TransitionResult{
		Task:              saved,
		Kind:              out.Kind,
		Completion:        rec,
		Closed:            out.Closed,
		Next:              out.Next,
		SeriesEnded:       out.SeriesEnded,
		Replayed:          replayed,
		StatisticsUpdated: credited,
	}, nil
}

func (e *TaskEngine) save(ctx context.Context, task *models.Task) (*models.Task, error) {
	saved, err := e.tasks.Save(ctx, task)
	if err != nil {
		return nil, storeError("save task", err)
	}
	return saved, nil
}

func (e *TaskEngine) announceCompletion(ctx context.Context, before, after *models.Task, rec *models.TaskCompletion, out *lifecycle.Outcome, actor models.Actor) {
	e.notify.send(ctx, before.CreatorID, "Task completed",
		fmt.Sprintf("%s completed %q and earned %d points", displayName(actor), before.Title, rec.Points),
		models.CategoryTaskCompleted)

	switch {
	case out.Kind == lifecycle.Rescheduled:
		e.notify.send(ctx, after.AssigneeID, "Next occurrence due",
			fmt.Sprintf("%q is due again on %s", after.Title, after.DueDate.Format(time.RFC1123)),
			models.CategoryTaskRecurring)
	case out.SeriesEnded:
		body := fmt.Sprintf("The recurring series %q has finished after %d occurrences", before.Title, rec.Occurrence)
		e.notify.send(ctx, before.AssigneeID, "Recurring series finished", body, models.CategorySeriesFinished)
		if before.CreatorID != before.AssigneeID {
			e.notify.send(ctx, before.CreatorID, "Recurring series finished", body, models.CategorySeriesFinished)
		}
	}
}

func displayName(actor models.Actor) string {
	if actor.Name != "" {
		return actor.Name
	}
	return actor.ID
}
