package models

import (
	"strings"
	"time"

	"github.com/gurkanbulca/teamportal/pkg/recurrence"
)

// Task status constants
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// Priority constants
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Collection names in the document store
const (
	CollectionTasks         = "tasks"
	CollectionCompletions   = "task_completions"
	CollectionStatistics    = "user_statistics"
	CollectionNotifications = "notifications"
)

// Actor identifies who performs an operation.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// StatusChange is one entry of a task's status audit trail.
type StatusChange struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actorId"`
	ActorName string    `json:"actorName"`
}

type Task struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Priority     string  `json:"priority"`
	Status       string  `json:"status"`
	AssigneeID   string  `json:"assigneeId"`
	AssigneeName string  `json:"assigneeName,omitempty"`
	CreatorID    string  `json:"creatorId"`
	CreatorName  string  `json:"creatorName,omitempty"`
	ClientID     *string `json:"clientId,omitempty"`

	DueDate         time.Time  `json:"dueDate"`
	AssignedAt      time.Time  `json:"assignedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	CompletionHours *float64   `json:"completionHours,omitempty"`
	Points          *int       `json:"points,omitempty"`
	IsEarly         *bool      `json:"isEarly,omitempty"`

	IsRecurring      bool               `json:"isRecurring"`
	Cadence          recurrence.Cadence `json:"cadence,omitempty"`
	RecurringEndDate *time.Time         `json:"recurringEndDate,omitempty"`
	CompletionCount  int                `json:"completionCount"`
	LastCompletedAt  *time.Time         `json:"lastCompletedAt,omitempty"`

	// Set on tasks created as one occurrence of a materialized series.
	SeriesID    string `json:"seriesId,omitempty"`
	SeriesIndex int    `json:"seriesIndex,omitempty"`

	StatusHistory []StatusChange `json:"statusHistory"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Version is the storage concurrency token; it is not part of the document body.
	Version int64 `json:"-"`
}

// IsCompleted reports whether the task is in its terminal state.
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// HasCompletionFields reports whether any derived completion field is set.
func (t *Task) HasCompletionFields() bool {
	return t.CompletedAt != nil || t.CompletionHours != nil || t.Points != nil || t.IsEarly != nil
}

// ClearCompletion drops the derived completion fields.
func (t *Task) ClearCompletion() {
	t.CompletedAt = nil
	t.CompletionHours = nil
	t.Points = nil
	t.IsEarly = nil
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	c.ClientID = clonePtr(t.ClientID)
	c.CompletedAt = clonePtr(t.CompletedAt)
	c.CompletionHours = clonePtr(t.CompletionHours)
	c.Points = clonePtr(t.Points)
	c.IsEarly = clonePtr(t.IsEarly)
	c.RecurringEndDate = clonePtr(t.RecurringEndDate)
	c.LastCompletedAt = clonePtr(t.LastCompletedAt)
	c.StatusHistory = append([]StatusChange(nil), t.StatusHistory...)
	return &c
}

// Normalize brings every instant of the task to NormalizeTime precision.
func (t *Task) Normalize() {
	t.DueDate = NormalizeTime(t.DueDate)
	t.AssignedAt = NormalizeTime(t.AssignedAt)
	t.CompletedAt = NormalizeTimePtr(t.CompletedAt)
	t.RecurringEndDate = NormalizeTimePtr(t.RecurringEndDate)
	t.LastCompletedAt = NormalizeTimePtr(t.LastCompletedAt)
	t.CreatedAt = NormalizeTime(t.CreatedAt)
	t.UpdatedAt = NormalizeTime(t.UpdatedAt)
	for i := range t.StatusHistory {
		t.StatusHistory[i].Timestamp = NormalizeTime(t.StatusHistory[i].Timestamp)
	}
}

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// ParseStatus normalizes a status string. Both "in_progress" and the
// hyphenated "in-progress" spelling are accepted.
func ParseStatus(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	if !ValidStatus(s) {
		return "", false
	}
	return s, true
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// NormalizeTime converts t to UTC at whole-second precision. Every instant
// written to the document store goes through it so that stored timestamps
// share one textual width and compare correctly as strings.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// NormalizeTimePtr is NormalizeTime for optional instants.
func NormalizeTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := NormalizeTime(*t)
	return &n
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
