package compliance

import (
	"log"
	"time"
)

// =============================================================================
// WINDOW - The evaluation period for a requirement
// =============================================================================

// Window is the [Start, End] date range over which progress is measured.
// Biannual and one-time requirements have no window: their evaluation is
// certification-validity-based or all-time, and ResolveWindow returns nil.
type Window struct {
	Start Date
	End   Date
}

func (w Window) Contains(d Date) bool {
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

func (w Window) String() string {
	return "[" + w.Start.String() + ", " + w.End.String() + "]"
}

// =============================================================================
// WINDOW RESOLUTION
// =============================================================================

// ResolveWindow computes the evaluation period for a requirement relative to
// the reference date. A malformed frequency degrades to the annual window
// with a logged warning; a single bad requirement never aborts a pass.
func ResolveWindow(req *Requirement, today Date) *Window {
	switch req.Frequency {
	case FrequencyBiannual, FrequencyOneTime:
		return nil
	}

	// Rolling windows override the calendar-period shapes.
	if req.DueDateType == DueRolling && req.RollingPeriodMonths > 0 {
		return &Window{
			Start: today.AddMonths(-req.RollingPeriodMonths).AddDays(1),
			End:   today,
		}
	}

	switch req.Frequency {
	case FrequencyAnnual:
		w := annualWindow(req, today)
		return &w

	case FrequencyQuarterly:
		quarterMonth := time.Month((int(today.Month())-1)/3*3 + 1)
		return &Window{
			Start: StartOfMonth(today.Year(), quarterMonth),
			End:   EndOfMonth(today.Year(), quarterMonth+2),
		}

	case FrequencyMonthly:
		return &Window{
			Start: StartOfMonth(today.Year(), today.Month()),
			End:   EndOfMonth(today.Year(), today.Month()),
		}

	default:
		log.Printf("compliance: requirement %s has unknown frequency %q, falling back to annual", req.ID, req.Frequency)
		w := annualWindow(req, today)
		return &w
	}
}

// annualWindow is the calendar year by default. A requirement may pin a year
// or start its year at a custom month/day (fiscal-style), in which case the
// window is the twelve months containing the reference date.
func annualWindow(req *Requirement, today Date) Window {
	year := req.PeriodYear
	if year == 0 {
		year = today.Year()
	}

	if req.PeriodStartMonth > time.January {
		day := req.PeriodStartDay
		if day == 0 {
			day = 1
		}
		start := NewDate(year, req.PeriodStartMonth, day)
		if req.PeriodYear == 0 && today.Before(start) {
			start = start.AddYears(-1)
		}
		return Window{Start: start, End: start.AddYears(1).AddDays(-1)}
	}

	return Window{Start: StartOfYear(year), End: EndOfYear(year)}
}
