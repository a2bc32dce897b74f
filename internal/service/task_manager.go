package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/teamportal/internal/lifecycle"
	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/internal/repository"
	"github.com/gurkanbulca/teamportal/pkg/recurrence"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	defaultPageSize      = 50
	maxPageSize          = 500
)

// CreateTaskInput holds the fields of a new task.
type CreateTaskInput struct {
	Title        string
	Description  string
	Priority     string
	AssigneeID   string
	AssigneeName string
	ClientID     string
	DueDate      time.Time

	IsRecurring      bool
	Cadence          string
	RecurringEndDate *time.Time
	// Materialize creates one plain task per occurrence instead of a single
	// rolling task.
	Materialize bool
}

// UpdateTaskInput holds the fields to change; nil means unchanged.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Priority     *string
	AssigneeID   *string
	AssigneeName *string
	// ClientID set to "" removes the client.
	ClientID    *string
	DueDate     *time.Time
	IsRecurring *bool
	Cadence     *string
	// RecurringEndDate set to the zero time removes the end date.
	RecurringEndDate *time.Time
}

// TaskManager creates, edits, reads and deletes tasks.
type TaskManager struct {
	tasks          *repository.TaskRepository
	recorder       *CompletionRecorder
	stats          *StatisticsService
	machine        *lifecycle.Machine
	notify         notifier
	dir            directory
	locks          *keyedMutex
	maxOccurrences int
	now            func() time.Time
}

// Create validates and stores a task. A recurring input with Materialize set
// yields one task per occurrence; otherwise a single task is returned.
func (m *TaskManager) Create(ctx context.Context, in CreateTaskInput, actor models.Actor) ([]*models.Task, error) {
	if actor.ID == "" {
		return nil, validationError("actor is required")
	}
	task, err := m.buildTask(in, actor)
	if err != nil {
		return nil, err
	}

	m.dir.remember(ctx, actor)

	batch := []*models.Task{task}
	if in.Materialize && task.IsRecurring {
		batch, err = m.machine.Materialize(task, uuid.NewString(), m.maxOccurrences)
		if err != nil {
			return nil, validationError("%v", err)
		}
	}

	created, err := m.tasks.CreateBatch(ctx, batch)
	if err != nil {
		return nil, storeError("create task", err)
	}

	for _, t := range created {
		if _, err := m.stats.RecordAssignment(ctx, t.AssigneeID, t.ID, 1); err != nil {
			return created, err
		}
	}

	first := created[0]
	log.Printf("[INFO] %d task(s) created by %s for %s: %q", len(created), actor.ID, first.AssigneeID, first.Title)

	body := fmt.Sprintf("%s assigned you %q, due %s", displayName(actor), first.Title, first.DueDate.Format(time.RFC1123))
	if len(created) > 1 {
		body = fmt.Sprintf("%s assigned you %d occurrences of %q, first due %s",
			displayName(actor), len(created), first.Title, first.DueDate.Format(time.RFC1123))
	}
	m.notify.send(ctx, first.AssigneeID, "New task assigned", body, models.CategoryTaskAssigned)

	return created, nil
}

func (m *TaskManager) buildTask(in CreateTaskInput, actor models.Actor) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationError("title is required")
	}
	if len(title) > maxTitleLength {
		return nil, validationError("title must be at most %d characters", maxTitleLength)
	}
	if len(in.Description) > maxDescriptionLength {
		return nil, validationError("description must be at most %d characters", maxDescriptionLength)
	}
	if strings.TrimSpace(in.AssigneeID) == "" {
		return nil, validationError("assignee is required")
	}
	if in.DueDate.IsZero() {
		return nil, validationError("due date is required")
	}

	priority := strings.ToLower(strings.TrimSpace(in.Priority))
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, validationError("unknown priority %q", in.Priority)
	}

	now := models.NormalizeTime(m.now())
	task := &models.Task{
		Title:        title,
		Description:  in.Description,
		Priority:     priority,
		Status:       models.TaskStatusPending,
		AssigneeID:   strings.TrimSpace(in.AssigneeID),
		AssigneeName: in.AssigneeName,
		CreatorID:    actor.ID,
		CreatorName:  actor.Name,
		DueDate:      models.NormalizeTime(in.DueDate),
		AssignedAt:   now,
		StatusHistory: []models.StatusChange{
			{Status: models.TaskStatusPending, Timestamp: now, ActorID: actor.ID, ActorName: actor.Name},
		},
	}
	if in.ClientID != "" {
		client := in.ClientID
		task.ClientID = &client
	}

	if in.IsRecurring {
		if err := applyRecurrence(task, in.Cadence, in.RecurringEndDate); err != nil {
			return nil, err
		}
	} else if in.Materialize {
		return nil, validationError("only recurring tasks can be materialized")
	}
	return task, nil
}

func applyRecurrence(task *models.Task, cadence string, end *time.Time) error {
	c, err := recurrence.ParseCadence(cadence)
	if err != nil {
		return validationError("%v", err)
	}
	task.IsRecurring = true
	task.Cadence = c
	task.RecurringEndDate = nil
	if end != nil && !end.IsZero() {
		e := models.NormalizeTime(*end)
		if e.Before(task.DueDate) {
			return validationError("recurring end date must not be before the due date")
		}
		task.RecurringEndDate = &e
	}
	return nil
}

// Update edits a task. Reassignment counts the current occurrence as
// assigned to the new assignee and notifies them.
func (m *TaskManager) Update(ctx context.Context, id string, in UpdateTaskInput, actor models.Actor) (*models.Task, error) {
	if id == "" {
		return nil, validationError("task id is required")
	}
	if actor.ID == "" {
		return nil, validationError("actor is required")
	}

	unlock := m.locks.Lock(id)
	defer unlock()

	task, err := m.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get task", err)
	}
	previousAssignee := task.AssigneeID

	next := task.Clone()
	if err := applyUpdate(next, in); err != nil {
		return nil, err
	}

	saved, err := m.tasks.Save(ctx, next)
	if err != nil {
		return nil, storeError("update task", err)
	}

	if saved.AssigneeID != previousAssignee {
		if _, err := m.stats.RecordAssignment(ctx, saved.AssigneeID, saved.ID, saved.CompletionCount+1); err != nil {
			return saved, err
		}
		m.notify.send(ctx, saved.AssigneeID, "Task assigned to you",
			fmt.Sprintf("%s assigned you %q, due %s", displayName(actor), saved.Title, saved.DueDate.Format(time.RFC1123)),
			models.CategoryTaskAssigned)
	} else if actor.ID != saved.AssigneeID {
		m.notify.send(ctx, saved.AssigneeID, "Task updated",
			fmt.Sprintf("%s updated %q", displayName(actor), saved.Title),
			models.CategoryTaskUpdated)
	}
	return saved, nil
}

func applyUpdate(task *models.Task, in UpdateTaskInput) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return validationError("title is required")
		}
		if len(title) > maxTitleLength {
			return validationError("title must be at most %d characters", maxTitleLength)
		}
		task.Title = title
	}
	if in.Description != nil {
		if len(*in.Description) > maxDescriptionLength {
			return validationError("description must be at most %d characters", maxDescriptionLength)
		}
		task.Description = *in.Description
	}
	if in.Priority != nil {
		p := strings.ToLower(strings.TrimSpace(*in.Priority))
		if !models.ValidPriority(p) {
			return validationError("unknown priority %q", *in.Priority)
		}
		task.Priority = p
	}
	if in.AssigneeID != nil {
		a := strings.TrimSpace(*in.AssigneeID)
		if a == "" {
			return validationError("assignee is required")
		}
		if a != task.AssigneeID {
			if task.IsCompleted() {
				return fmt.Errorf("%w: a completed task cannot be reassigned", ErrInvalidTransition)
			}
			task.AssigneeName = ""
		}
		task.AssigneeID = a
	}
	if in.AssigneeName != nil {
		task.AssigneeName = *in.AssigneeName
	}
	if in.ClientID != nil {
		if *in.ClientID == "" {
			task.ClientID = nil
		} else {
			c := *in.ClientID
			task.ClientID = &c
		}
	}

	schedule := in.DueDate != nil || in.IsRecurring != nil || in.Cadence != nil || in.RecurringEndDate != nil
	if schedule && task.IsCompleted() {
		return fmt.Errorf("%w: the schedule of a completed task cannot change", ErrInvalidTransition)
	}
	if in.DueDate != nil {
		if in.DueDate.IsZero() {
			return validationError("due date is required")
		}
		task.DueDate = models.NormalizeTime(*in.DueDate)
	}

	recurring := task.IsRecurring
	if in.IsRecurring != nil {
		recurring = *in.IsRecurring
	}
	if !recurring {
		task.IsRecurring = false
		task.Cadence = ""
		task.RecurringEndDate = nil
		return nil
	}

	cadence := string(task.Cadence)
	if in.Cadence != nil {
		cadence = *in.Cadence
	}
	end := task.RecurringEndDate
	if in.RecurringEndDate != nil {
		end = in.RecurringEndDate
	}
	return applyRecurrence(task, cadence, end)
}

// Delete removes a task. Its completion history is kept.
func (m *TaskManager) Delete(ctx context.Context, id string, actor models.Actor) error {
	if id == "" {
		return validationError("task id is required")
	}

	unlock := m.locks.Lock(id)
	defer unlock()

	if err := m.tasks.Delete(ctx, id); err != nil {
		return storeError("delete task", err)
	}
	log.Printf("[INFO] task %s deleted by %s", id, actor.ID)
	return nil
}

func (m *TaskManager) Get(ctx context.Context, id string) (*models.Task, error) {
	if id == "" {
		return nil, validationError("task id is required")
	}
	task, err := m.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get task", err)
	}
	return task, nil
}

// List returns tasks ordered by due date.
func (m *TaskManager) List(ctx context.Context, filter repository.ListFilter) ([]*models.Task, error) {
	if filter.Status != nil {
		s, ok := models.ParseStatus(*filter.Status)
		if !ok {
			return nil, validationError("unknown status %q", *filter.Status)
		}
		filter.Status = &s
	}
	if filter.Priority != nil && !models.ValidPriority(*filter.Priority) {
		return nil, validationError("unknown priority %q", *filter.Priority)
	}
	filter.Limit = pageSize(filter.Limit)

	tasks, err := m.tasks.List(ctx, filter)
	if err != nil {
		return nil, storeError("list tasks", err)
	}
	return tasks, nil
}

// Watch streams the tasks matching filter until ctx is done.
func (m *TaskManager) Watch(ctx context.Context, filter repository.ListFilter) (<-chan []*models.Task, error) {
	filter.Limit = pageSize(filter.Limit)
	ch, err := m.tasks.Watch(ctx, filter)
	if err != nil {
		return nil, storeError("watch tasks", err)
	}
	return ch, nil
}

// Completions returns the history of a task, or of a user when taskID is
// empty.
func (m *TaskManager) Completions(ctx context.Context, taskID, userID string, limit int) ([]*models.TaskCompletion, error) {
	limit = pageSize(limit)
	switch {
	case taskID != "":
		return m.recorder.History(ctx, taskID, limit)
	case userID != "":
		return m.recorder.UserHistory(ctx, userID, limit)
	default:
		return nil, validationError("task id or user id is required")
	}
}

func pageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
