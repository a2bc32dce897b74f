// pkg/scoring/scoring.go
package scoring

import "time"

// Point values awarded per completion band.
const (
	PointsVeryEarly = 150 // more than 24h before due
	PointsEarly     = 100 // more than 12h, up to 24h before due
	PointsAhead     = 75  // more than 0h, up to 12h before due
	PointsOnTime    = 50  // inside the grace window around the due instant
	PointsLate      = 0
)

// Band thresholds, measured as hours before the due instant.
const (
	VeryEarlyThreshold = 24 * time.Hour
	EarlyThreshold     = 12 * time.Hour
)

// DefaultGraceWindow is how late a completion may be and still earn
// PointsOnTime. The window is half-open: a completion exactly GraceWindow
// late earns nothing.
const DefaultGraceWindow = time.Hour

// Scorer awards points for completing a task relative to its due date.
type Scorer struct {
	GraceWindow time.Duration
}

// NewScorer creates a scorer. A non-positive grace window falls back to
// DefaultGraceWindow.
func NewScorer(graceWindow time.Duration) *Scorer {
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	return &Scorer{GraceWindow: graceWindow}
}

// Compute returns the points for a completion and whether it counts as early.
func (s *Scorer) Compute(due, completedAt time.Time) (points int, early bool) {
	grace := s.GraceWindow
	if grace <= 0 {
		grace = DefaultGraceWindow
	}

	before := due.Sub(completedAt)
	switch {
	case before > VeryEarlyThreshold:
		return PointsVeryEarly, true
	case before > EarlyThreshold:
		return PointsEarly, true
	case before > 0:
		return PointsAhead, true
	case before > -grace:
		return PointsOnTime, false
	default:
		return PointsLate, false
	}
}

// ComputePoints scores a completion with the default grace window.
func ComputePoints(due, completedAt time.Time) (int, bool) {
	return NewScorer(DefaultGraceWindow).Compute(due, completedAt)
}

// HoursBetween returns the elapsed hours from start to end.
func HoursBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours()
}
