package lifecycle

import (
	"fmt"

	"github.com/gurkanbulca/teamportal/internal/models"
)

// Materialize expands a recurring task into one plain task per occurrence,
// all sharing seriesID. Occurrence i is due i cadence steps after the
// template's due date and is assigned the same span ahead of it.
func (m *Machine) Materialize(template *models.Task, seriesID string, max int) ([]*models.Task, error) {
	if !template.IsRecurring || !template.Cadence.Valid() {
		return nil, fmt.Errorf("materialize: task is not recurring")
	}

	dates, err := m.calendar.Occurrences(template.DueDate, template.Cadence, template.RecurringEndDate, max)
	if err != nil {
		return nil, fmt.Errorf("materialize: %w", err)
	}

	lead := template.DueDate.Sub(template.AssignedAt)
	tasks := make([]*models.Task, 0, len(dates))
	for i, due := range dates {
		t := template.Clone()
		t.ID = ""
		t.DueDate = due
		if i > 0 {
			t.AssignedAt = due.Add(-lead)
			if t.AssignedAt.Before(template.AssignedAt) {
				t.AssignedAt = template.AssignedAt
			}
		}
		t.IsRecurring = false
		t.Cadence = ""
		t.RecurringEndDate = nil
		t.SeriesID = seriesID
		t.SeriesIndex = i + 1
		tasks = append(tasks, t)
	}
	return tasks, nil
}
