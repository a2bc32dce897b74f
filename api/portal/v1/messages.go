// Package portalv1 is the wire API of the portal task service. Messages
// travel as google.protobuf.Struct values whose fields follow the JSON names
// of the types below.
package portalv1

import (
	"time"

	"github.com/gurkanbulca/teamportal/internal/models"
)

type (
	Task           = models.Task
	TaskCompletion = models.TaskCompletion
	UserStatistics = models.UserStatistics
	Notification   = models.Notification
)

type CreateTaskRequest struct {
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Priority         string     `json:"priority,omitempty"`
	AssigneeID       string     `json:"assigneeId"`
	AssigneeName     string     `json:"assigneeName,omitempty"`
	ClientID         string     `json:"clientId,omitempty"`
	DueDate          time.Time  `json:"dueDate"`
	IsRecurring      bool       `json:"isRecurring,omitempty"`
	Cadence          string     `json:"cadence,omitempty"`
	RecurringEndDate *time.Time `json:"recurringEndDate,omitempty"`
	Materialize      bool       `json:"materialize,omitempty"`
}

type CreateTaskResponse struct {
	Tasks []*Task `json:"tasks"`
}

type GetTaskRequest struct {
	ID string `json:"id"`
}

type GetTaskResponse struct {
	Task *Task `json:"task"`
}

type ListTasksRequest struct {
	AssigneeID string     `json:"assigneeId,omitempty"`
	CreatorID  string     `json:"creatorId,omitempty"`
	ClientID   string     `json:"clientId,omitempty"`
	Status     string     `json:"status,omitempty"`
	Priority   string     `json:"priority,omitempty"`
	Recurring  *bool      `json:"recurring,omitempty"`
	SeriesID   string     `json:"seriesId,omitempty"`
	DueAfter   *time.Time `json:"dueAfter,omitempty"`
	DueBefore  *time.Time `json:"dueBefore,omitempty"`
	PageSize   int        `json:"pageSize,omitempty"`
}

type ListTasksResponse struct {
	Tasks []*Task `json:"tasks"`
}

// UpdateTaskRequest changes the fields that are present.
type UpdateTaskRequest struct {
	ID               string     `json:"id"`
	Title            *string    `json:"title,omitempty"`
	Description      *string    `json:"description,omitempty"`
	Priority         *string    `json:"priority,omitempty"`
	AssigneeID       *string    `json:"assigneeId,omitempty"`
	AssigneeName     *string    `json:"assigneeName,omitempty"`
	ClientID         *string    `json:"clientId,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	IsRecurring      *bool      `json:"isRecurring,omitempty"`
	Cadence          *string    `json:"cadence,omitempty"`
	RecurringEndDate *time.Time `json:"recurringEndDate,omitempty"`
}

type UpdateTaskResponse struct {
	Task *Task `json:"task"`
}

type DeleteTaskRequest struct {
	ID string `json:"id"`
}

type DeleteTaskResponse struct{}

type TransitionTaskRequest struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	ExpectedOccurrence int    `json:"expectedOccurrence,omitempty"`
}

type TransitionTaskResponse struct {
	Task              *Task           `json:"task"`
	Outcome           string          `json:"outcome"`
	Completion        *TaskCompletion `json:"completion,omitempty"`
	NextDueDate       *time.Time      `json:"nextDueDate,omitempty"`
	SeriesEnded       bool            `json:"seriesEnded"`
	Replayed          bool            `json:"replayed"`
	StatisticsUpdated bool            `json:"statisticsUpdated"`
}

type ListCompletionsRequest struct {
	TaskID   string `json:"taskId,omitempty"`
	UserID   string `json:"userId,omitempty"`
	PageSize int    `json:"pageSize,omitempty"`
}

type ListCompletionsResponse struct {
	Completions []*TaskCompletion `json:"completions"`
}

type GetUserStatisticsRequest struct {
	UserID string `json:"userId"`
}

type GetUserStatisticsResponse struct {
	Statistics *UserStatistics `json:"statistics"`
}

type GetLeaderboardRequest struct {
	Limit int `json:"limit,omitempty"`
}

type GetLeaderboardResponse struct {
	Entries []*UserStatistics `json:"entries"`
}

type ListNotificationsRequest struct {
	UnreadOnly bool `json:"unreadOnly,omitempty"`
	PageSize   int  `json:"pageSize,omitempty"`
}

type ListNotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
}

type MarkNotificationReadRequest struct {
	ID string `json:"id"`
}

type MarkNotificationReadResponse struct{}

type WatchTasksRequest struct {
	AssigneeID string `json:"assigneeId,omitempty"`
	Status     string `json:"status,omitempty"`
	PageSize   int    `json:"pageSize,omitempty"`
}

type WatchTasksResponse struct {
	Tasks []*Task `json:"tasks"`
}
