// pkg/recurrence/recurrence.go
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Cadence is the interval between two occurrences of a recurring task.
type Cadence string

const (
	Daily   Cadence = "daily"
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
)

var ErrUnknownCadence = errors.New("unknown cadence")

// ParseCadence converts a string to a Cadence.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCadence, s)
	}
}

// Valid reports whether c is one of the supported cadences.
func (c Cadence) Valid() bool {
	_, err := ParseCadence(string(c))
	return err == nil
}

// Next returns the occurrence following anchor. Monthly steps use calendar
// arithmetic, so Jan 31 advances into early March.
func Next(anchor time.Time, c Cadence) (time.Time, error) {
	switch c {
	case Daily:
		return anchor.AddDate(0, 0, 1), nil
	case Weekly:
		return anchor.AddDate(0, 0, 7), nil
	case Monthly:
		return anchor.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownCadence, c)
	}
}

// EndBoundary decides whether an occurrence landing exactly on the series
// end date still belongs to the series.
type EndBoundary int

const (
	// Exclusive stops the series when next >= end.
	Exclusive EndBoundary = iota
	// Inclusive stops the series only when next > end.
	Inclusive
)

// Calendar bundles the end-boundary policy used to bound series.
type Calendar struct {
	Boundary EndBoundary
}

// SeriesContinues reports whether next still falls inside the series.
func (c Calendar) SeriesContinues(next time.Time, end *time.Time) bool {
	if end == nil {
		return true
	}
	if c.Boundary == Inclusive {
		return !next.After(*end)
	}
	return next.Before(*end)
}

// Occurrences lists the dates of a series starting at anchor. The anchor is
// always the first element. When end is nil the list is capped at max
// entries; max also caps bounded series.
func (c Calendar) Occurrences(anchor time.Time, cadence Cadence, end *time.Time, max int) ([]time.Time, error) {
	if max <= 0 {
		return nil, errors.New("max occurrences must be positive")
	}
	if !cadence.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCadence, cadence)
	}

	dates := []time.Time{anchor}
	current := anchor
	for len(dates) < max {
		next, err := Next(current, cadence)
		if err != nil {
			return nil, err
		}
		if !c.SeriesContinues(next, end) {
			break
		}
		dates = append(dates, next)
		current = next
	}
	return dates, nil
}

// SeriesContinues applies the default exclusive end boundary.
func SeriesContinues(next time.Time, end *time.Time) bool {
	return Calendar{Boundary: Exclusive}.SeriesContinues(next, end)
}
