/*
evaluator.go - Per-type requirement evaluation strategies

PURPOSE:
  Computes progress for one (member, requirement) pair. Requirement types
  form a closed enum and dispatch through a lookup table - adding a type is
  a new variant plus a handler, not a growing conditional chain.

EVALUATION SHAPES:
  hours         sum of completed hours in window vs. waiver-adjusted target
  shifts/calls  count of matching records vs. waiver-adjusted target
  certification any valid matching certification (no window, no proration)
  courses       required-course intersection with completions in window
  other         fallback: any completed record in the current year

FILTER ORDER (hours/shifts/calls):
  status == completed -> completion date in window -> training type ->
  course list -> category (via the record's course)

CERTIFICATION MATCHING:
  Substring matching on course name or registry code, case-insensitive.
  This is deliberately imprecise: two unrelated courses sharing a code
  prefix will both match. That is a documented operational limitation of
  registry codes, preserved here rather than second-guessed.

BIANNUAL OVERRIDE:
  frequency == biannual ignores the windowed paths entirely. Completion is
  solely "latest matching record's expiration >= today"; an expired latest
  record yields the expired cell regardless of other progress. Certification
  filters still narrow which records are candidates for "latest".
*/
package compliance

import (
	"log"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// EVALUATION - The outcome for one (member, requirement) pair
// =============================================================================

type Evaluation struct {
	RequirementID RequirementID
	Type          RequirementType

	Completed  decimal.Decimal
	Required   decimal.Decimal // waiver-adjusted where proration applies
	Percentage decimal.Decimal
	Complete   bool
	Cell       CellStatus

	WaivedMonths int
	Window       *Window
}

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluator computes evaluations against a course catalog. It is stateless
// and safe for concurrent use.
type Evaluator struct {
	Catalog CourseCatalog
}

type evalFunc func(e *Evaluator, req *Requirement, window *Window, records []TrainingRecord, waivers []WaiverPeriod, today Date) Evaluation

// evaluators is the closed dispatch table: one strategy per requirement type.
var evaluators = map[RequirementType]evalFunc{
	RequirementHours:         (*Evaluator).evalHours,
	RequirementCertification: (*Evaluator).evalCertification,
	RequirementShifts:        (*Evaluator).evalShifts,
	RequirementCalls:         (*Evaluator).evalCalls,
	RequirementCourses:       (*Evaluator).evalCourses,
	RequirementOther:         (*Evaluator).evalOther,
}

// Evaluate computes the evaluation for one requirement against a member's
// records. Callers run the applicability gate (Requirement.AppliesTo) first;
// Evaluate assumes the requirement applies.
func (e *Evaluator) Evaluate(req *Requirement, records []TrainingRecord, waivers []WaiverPeriod, today Date) Evaluation {
	// Biannual requirements are validity-based regardless of type.
	if req.Frequency == FrequencyBiannual {
		ev := e.evalValidity(req, records, today)
		ev.RequirementID = req.ID
		ev.Type = req.Type
		return ev
	}

	window := ResolveWindow(req, today)

	fn, ok := evaluators[req.Type]
	if !ok {
		log.Printf("compliance: requirement %s has unknown type %q, falling back to %q", req.ID, req.Type, RequirementOther)
		fn = (*Evaluator).evalOther
	}

	ev := fn(e, req, window, records, waivers, today)
	ev.RequirementID = req.ID
	ev.Type = req.Type
	ev.Window = window
	return ev
}

// =============================================================================
// RECORD FILTERS
// =============================================================================

// matchingRecords applies the filter chain: completed status, window,
// training type, course list, categories (via the record's course).
func (e *Evaluator) matchingRecords(req *Requirement, window *Window, records []TrainingRecord) []TrainingRecord {
	var matched []TrainingRecord
	for _, rec := range records {
		if !rec.IsCompleted() {
			continue
		}
		if window != nil && !window.Contains(rec.CompletionDate) {
			continue
		}
		if req.TrainingType != "" && rec.TrainingType != req.TrainingType {
			continue
		}
		if len(req.RequiredCourses) > 0 && !containsCourse(req.RequiredCourses, rec.CourseID) {
			continue
		}
		if len(req.CategoryIDs) > 0 && !e.inAnyCategory(rec.CourseID, req.CategoryIDs) {
			continue
		}
		matched = append(matched, rec)
	}
	return matched
}

func containsCourse(courses []CourseID, id CourseID) bool {
	for _, c := range courses {
		if c == id {
			return true
		}
	}
	return false
}

func (e *Evaluator) inAnyCategory(courseID CourseID, categoryIDs []string) bool {
	course, ok := e.Catalog[courseID]
	if !ok {
		return false
	}
	for _, cat := range categoryIDs {
		if course.InCategory(cat) {
			return true
		}
	}
	return false
}

// matchesCertification implements the substring matching rule. A record
// matches when it carries a certification number and its course's name
// contains the certification-name filter or its registry code contains the
// registry-code filter. With no filters configured, any certified record
// matches.
func (e *Evaluator) matchesCertification(req *Requirement, rec TrainingRecord) bool {
	if !rec.HasCertification() {
		return false
	}
	if req.CertificationName == "" && req.RegistryCode == "" {
		return true
	}
	course, ok := e.Catalog[rec.CourseID]
	if !ok {
		return false
	}
	if req.CertificationName != "" &&
		strings.Contains(strings.ToLower(course.Name), strings.ToLower(req.CertificationName)) {
		return true
	}
	if req.RegistryCode != "" &&
		strings.Contains(strings.ToLower(course.RegistryCode), strings.ToLower(req.RegistryCode)) {
		return true
	}
	return false
}

// =============================================================================
// PROGRESS ARITHMETIC
// =============================================================================

// progress derives percentage, completion, and cell status from a completed
// amount and a (possibly adjusted) required amount. Both sides are rounded
// to 2 decimals before comparison; required <= 0 is auto-satisfied rather
// than a division error.
func progress(completed, required decimal.Decimal) (decimal.Decimal, bool, CellStatus) {
	completed = completed.Round(2)
	required = required.Round(2)

	if required.LessThanOrEqual(decimal.Zero) {
		return hundred, true, CellCompleted
	}

	pct := completed.Div(required).Mul(hundred).Round(1)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}

	switch {
	case completed.GreaterThanOrEqual(required):
		return pct, true, CellCompleted
	case completed.LessThanOrEqual(decimal.Zero):
		return pct, false, CellNotStarted
	default:
		return pct, false, CellInProgress
	}
}

// =============================================================================
// EVALUATION STRATEGIES
// =============================================================================

func (e *Evaluator) evalHours(req *Requirement, window *Window, records []TrainingRecord, waivers []WaiverPeriod, today Date) Evaluation {
	completed := decimal.Zero
	for _, rec := range e.matchingRecords(req, window, records) {
		completed = completed.Add(rec.HoursCompleted)
	}
	return e.targetEvaluation(req, window, completed, req.RequiredHours, waivers)
}

func (e *Evaluator) evalShifts(req *Requirement, window *Window, records []TrainingRecord, waivers []WaiverPeriod, today Date) Evaluation {
	count := len(e.matchingRecords(req, window, records))
	return e.targetEvaluation(req, window, decimal.NewFromInt(int64(count)), decimal.NewFromInt(int64(req.RequiredShifts)), waivers)
}

func (e *Evaluator) evalCalls(req *Requirement, window *Window, records []TrainingRecord, waivers []WaiverPeriod, today Date) Evaluation {
	count := len(e.matchingRecords(req, window, records))
	return e.targetEvaluation(req, window, decimal.NewFromInt(int64(count)), decimal.NewFromInt(int64(req.RequiredCalls)), waivers)
}

// targetEvaluation applies waiver proration and the shared progress math for
// the hours/shifts/calls shapes.
func (e *Evaluator) targetEvaluation(req *Requirement, window *Window, completed, base decimal.Decimal, waivers []WaiverPeriod) Evaluation {
	required := base
	waivedMonths := 0
	if window != nil {
		adj := AdjustTarget(base, *window, req.ID, waivers)
		required = adj.Adjusted
		waivedMonths = adj.WaivedMonths
	}

	pct, complete, cell := progress(completed, required)
	return Evaluation{
		Completed:    completed.Round(2),
		Required:     required.Round(2),
		Percentage:   pct,
		Complete:     complete,
		Cell:         cell,
		WaivedMonths: waivedMonths,
	}
}

// evalCertification checks for any valid matching certification. No window
// and no waiver adjustment apply to certification-type requirements.
func (e *Evaluator) evalCertification(req *Requirement, _ *Window, records []TrainingRecord, _ []WaiverPeriod, today Date) Evaluation {
	matched := 0
	valid := false
	for _, rec := range records {
		if !e.matchesCertification(req, rec) {
			continue
		}
		matched++
		exp := e.Catalog.ExpirationFor(rec)
		// A certification with no expiration defined never lapses.
		if exp.IsZero() || exp.AfterOrEqual(today) {
			valid = true
		}
	}

	one := decimal.NewFromInt(1)
	ev := Evaluation{Required: one, Percentage: decimal.Zero, Cell: CellNotStarted}
	switch {
	case valid:
		ev.Completed = one
		ev.Percentage = hundred
		ev.Complete = true
		ev.Cell = CellCompleted
	case matched > 0:
		// Held the certification once; it has lapsed.
		ev.Cell = CellExpired
	}
	return ev
}

func (e *Evaluator) evalCourses(req *Requirement, window *Window, records []TrainingRecord, _ []WaiverPeriod, today Date) Evaluation {
	completedCourses := make(map[CourseID]struct{})
	for _, rec := range records {
		if !rec.IsCompleted() {
			continue
		}
		if window != nil && !window.Contains(rec.CompletionDate) {
			continue
		}
		completedCourses[rec.CourseID] = struct{}{}
	}

	matched := 0
	for _, id := range req.RequiredCourses {
		if _, ok := completedCourses[id]; ok {
			matched++
		}
	}

	pct, complete, cell := progress(
		decimal.NewFromInt(int64(matched)),
		decimal.NewFromInt(int64(len(req.RequiredCourses))),
	)
	return Evaluation{
		Completed:  decimal.NewFromInt(int64(matched)),
		Required:   decimal.NewFromInt(int64(len(req.RequiredCourses))),
		Percentage: pct,
		Complete:   complete,
		Cell:       cell,
	}
}

// evalOther is the fallback: complete iff the member has any completed
// record in the current calendar year.
func (e *Evaluator) evalOther(_ *Requirement, _ *Window, records []TrainingRecord, _ []WaiverPeriod, today Date) Evaluation {
	year := Window{Start: StartOfYear(today.Year()), End: EndOfYear(today.Year())}
	one := decimal.NewFromInt(1)

	for _, rec := range records {
		if rec.IsCompleted() && year.Contains(rec.CompletionDate) {
			return Evaluation{Completed: one, Required: one, Percentage: hundred, Complete: true, Cell: CellCompleted}
		}
	}
	return Evaluation{Required: one, Percentage: decimal.Zero, Cell: CellNotStarted}
}

// evalValidity handles biannual requirements: the latest matching record's
// expiration decides everything. Certification requirements (and any
// requirement carrying certification filters) restrict the candidates with
// the same substring rule the windowed certification path uses.
func (e *Evaluator) evalValidity(req *Requirement, records []TrainingRecord, today Date) Evaluation {
	matched := e.matchingRecords(req, nil, records)
	if req.Type == RequirementCertification || req.CertificationName != "" || req.RegistryCode != "" {
		var certified []TrainingRecord
		for _, rec := range matched {
			if e.matchesCertification(req, rec) {
				certified = append(certified, rec)
			}
		}
		matched = certified
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CompletionDate.Before(matched[j].CompletionDate)
	})

	one := decimal.NewFromInt(1)
	if len(matched) == 0 {
		return Evaluation{Required: one, Percentage: decimal.Zero, Cell: CellNotStarted}
	}

	latest := matched[len(matched)-1]
	exp := e.Catalog.ExpirationFor(latest)
	if exp.IsZero() || exp.AfterOrEqual(today) {
		return Evaluation{Completed: one, Required: one, Percentage: hundred, Complete: true, Cell: CellCompleted}
	}
	return Evaluation{Required: one, Percentage: decimal.Zero, Cell: CellExpired}
}
