package models

import (
	"fmt"
	"time"
)

// Notification categories
const (
	CategoryTaskAssigned    = "task_assigned"
	CategoryTaskUpdated     = "task_updated"
	CategoryTaskCompleted   = "task_completed"
	CategoryTaskRecurring   = "task_recurring"
	CategorySeriesFinished  = "series_finished"
	CategoryStatusChanged   = "status_changed"
	CategoryMeetingReminder = "meeting_reminder"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Category  string    `json:"category"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// ParseCategory validates a notification category.
func ParseCategory(category string) (string, error) {
	for _, c := range ValidCategories() {
		if c == category {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown notification category: %s", category)
}

// ValidCategories returns all valid category strings
func ValidCategories() []string {
	return []string{
		CategoryTaskAssigned,
		CategoryTaskUpdated,
		CategoryTaskCompleted,
		CategoryTaskRecurring,
		CategorySeriesFinished,
		CategoryStatusChanged,
		CategoryMeetingReminder,
	}
}
