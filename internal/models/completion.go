package models

import (
	"fmt"
	"time"

	"github.com/gurkanbulca/teamportal/pkg/recurrence"
)

// TaskCompletion is the immutable record of one completed occurrence.
// Task fields are copied so the record outlives edits to, or deletion of,
// the originating task.
type TaskCompletion struct {
	ID          string  `json:"id"`
	TaskID      string  `json:"taskId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	AssigneeID  string  `json:"assigneeId"`
	ClientID    *string `json:"clientId,omitempty"`
	CreatorID   string  `json:"creatorId"`

	AssignedAt      time.Time `json:"assignedAt"`
	DueDate         time.Time `json:"dueDate"`
	CompletedAt     time.Time `json:"completedAt"`
	CompletionHours float64   `json:"completionHours"`
	Points          int       `json:"points"`
	IsEarly         bool      `json:"isEarly"`

	Cadence    recurrence.Cadence `json:"cadence,omitempty"`
	Occurrence int                `json:"occurrence"`

	CompletedBy     string    `json:"completedBy"`
	CompletedByName string    `json:"completedByName"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CompletionID is the storage id of occurrence n of a task. It is
// deterministic so that a retried completion maps onto the same record.
func CompletionID(taskID string, occurrence int) string {
	return fmt.Sprintf("%s-%d", taskID, occurrence)
}
