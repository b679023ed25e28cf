/*
waiver.go - Waived-month counting and target proration

PURPOSE:
  Reduces a requirement's base target proportionally to the months a member
  was exempt (medical waiver, leave of absence) during the evaluation period.

ALGORITHM:
  1. Keep only waivers that apply to this requirement (blanket waivers
     always apply; targeted waivers must list the requirement).
  2. Clip each waiver to the evaluation period. A waiver extending beyond
     the period is silently clipped, not an error.
  3. Walk every calendar month the clipped overlap touches. A month counts
     as waived when the overlap covers at least 15 of its days. Months are
     collected in a set keyed on (year, month), so two waivers covering the
     same month can never double-count it.
  4. total_months comes from the ACTUAL period dates. A rolling window of
     N months can touch N+1 calendar months; using the configured N here
     would let waived months exceed the total and drive the active-month
     count negative.
  5. active_months is floored at 1, and the adjusted target is
     round(base * active/total, 2). Rounding happens before any comparison,
     never after.
*/
package compliance

import (
	"time"

	"github.com/shopspring/decimal"
)

// waivedMonthThreshold is the minimum covered days for a calendar month to
// count as waived. A waiver ending on day 14 of a month does not waive it;
// ending on day 15 does.
const waivedMonthThreshold = 15

// =============================================================================
// ADJUSTMENT - The prorated target for one requirement
// =============================================================================

type Adjustment struct {
	Base         decimal.Decimal
	Adjusted     decimal.Decimal
	TotalMonths  int
	WaivedMonths int
	ActiveMonths int
}

type monthKey struct {
	Year  int
	Month time.Month
}

// =============================================================================
// TARGET PRORATION
// =============================================================================

// AdjustTarget prorates a base target (hours, shifts, calls) for the waiver
// periods overlapping the evaluation window.
func AdjustTarget(base decimal.Decimal, window Window, reqID RequirementID, waivers []WaiverPeriod) Adjustment {
	totalMonths := MonthSpan(window.Start, window.End)
	if totalMonths == 0 {
		// Degenerate window: no adjustment, defined behavior rather than error.
		return Adjustment{Base: base, Adjusted: base.Round(2)}
	}

	waived := waivedMonthSet(window, reqID, waivers)

	activeMonths := totalMonths - len(waived)
	if activeMonths < 1 {
		activeMonths = 1
	}

	adjusted := base.
		Mul(decimal.NewFromInt(int64(activeMonths))).
		Div(decimal.NewFromInt(int64(totalMonths))).
		Round(2)

	return Adjustment{
		Base:         base,
		Adjusted:     adjusted,
		TotalMonths:  totalMonths,
		WaivedMonths: len(waived),
		ActiveMonths: activeMonths,
	}
}

// WaivedMonths counts the calendar months of the window waived for this
// requirement. Exposed for reporting; AdjustTarget uses the same set.
func WaivedMonths(window Window, reqID RequirementID, waivers []WaiverPeriod) int {
	return len(waivedMonthSet(window, reqID, waivers))
}

func waivedMonthSet(window Window, reqID RequirementID, waivers []WaiverPeriod) map[monthKey]struct{} {
	waived := make(map[monthKey]struct{})

	for _, waiver := range waivers {
		if !waiver.AppliesTo(reqID) {
			continue
		}

		// Clip to the evaluation period. Permanent waivers carry a far-future
		// end date and are clipped here like any other.
		overlapStart := waiver.Start.Max(window.Start)
		overlapEnd := waiver.End.Min(window.End)
		if overlapStart.After(overlapEnd) {
			continue
		}

		// Walk every calendar month the overlap touches.
		cursor := StartOfMonth(overlapStart.Year(), overlapStart.Month())
		for cursor.BeforeOrEqual(overlapEnd) {
			monthStart := StartOfMonth(cursor.Year(), cursor.Month())
			monthEnd := EndOfMonth(cursor.Year(), cursor.Month())

			coveredStart := overlapStart.Max(monthStart)
			coveredEnd := overlapEnd.Min(monthEnd)
			coveredDays := DaysBetween(coveredStart, coveredEnd) + 1

			if coveredDays >= waivedMonthThreshold {
				waived[monthKey{Year: cursor.Year(), Month: cursor.Month()}] = struct{}{}
			}
			cursor = cursor.AddMonths(1)
		}
	}

	return waived
}
