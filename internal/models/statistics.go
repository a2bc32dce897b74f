package models

// Field names of the user statistics document that are changed by increments.
const (
	StatTasksCompleted       = "tasksCompleted"
	StatTotalPoints          = "totalPoints"
	StatTotalCompletionHours = "totalCompletionHours"
	StatTotalTasksAssigned   = "totalTasksAssigned"
)

// UserStatistics is the rolling per-assignee aggregate.
type UserStatistics struct {
	UserID               string  `json:"userId"`
	TasksCompleted       int     `json:"tasksCompleted"`
	TotalPoints          int     `json:"totalPoints"`
	TotalCompletionHours float64 `json:"totalCompletionHours"`
	TotalTasksAssigned   int     `json:"totalTasksAssigned"`

	// Derived on read.
	AverageCompletionHours float64 `json:"averageCompletionHours"`
	CompletionRate         float64 `json:"completionRate"`
}

// Derive fills the average completion time and the completion rate (%).
func (s *UserStatistics) Derive() {
	s.AverageCompletionHours = 0
	if s.TasksCompleted > 0 {
		s.AverageCompletionHours = s.TotalCompletionHours / float64(s.TasksCompleted)
	}
	s.CompletionRate = 0
	if s.TotalTasksAssigned > 0 {
		s.CompletionRate = float64(s.TasksCompleted) / float64(s.TotalTasksAssigned) * 100
	}
}
