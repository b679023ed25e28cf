/*
Package compliance implements the training compliance calculation engine.

PURPOSE:
  This package contains the pure computation core for evaluating member
  training compliance: date window resolution, waiver proration, per-type
  requirement evaluation, aggregate status, and the member x requirement
  compliance matrix. It consumes read-only snapshots of members, requirements,
  training records, and waiver periods, and never mutates source data.

KEY CONCEPTS IN THIS FILE (types.go):
  - Member: Read-only member snapshot (id, organization, roles)
  - Requirement: A training requirement with targets, filters, applicability
  - TrainingRecord: A completed (or in-flight) training entry
  - Course/CourseCatalog: Course metadata backing category and cert matching
  - WaiverPeriod: Unified view of targeted waivers and leaves of absence
  - ComplianceResult: The derived per-member summary

DESIGN PRINCIPLES:
  1. Purity: Evaluation is a function of snapshots + a reference date
  2. Precision: Uses decimal.Decimal for hours/targets, rounded at every
     comparison boundary
  3. Isolation: A defect in one (member, requirement) pair degrades that
     cell only, never the pass
  4. Closed dispatch: Requirement types form a closed enum with one
     evaluation strategy per variant

SEE ALSO:
  - window.go: Evaluation window resolution per frequency
  - waiver.go: Waived-month counting and target proration
  - evaluator.go: Per-type evaluation strategies
  - status.go: Aggregate green/yellow/red precedence
  - matrix.go: Member x requirement grid
*/
package compliance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MemberID string
type RequirementID string
type CourseID string
type OrganizationID string

// =============================================================================
// MEMBER - Read-only snapshot from the membership system
// =============================================================================

type Member struct {
	ID             MemberID
	OrganizationID OrganizationID
	Roles          []string
}

func (m Member) HasRole(role string) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// =============================================================================
// REQUIREMENT - What a member must complete, and how it is measured
// =============================================================================

type RequirementType string

const (
	RequirementHours         RequirementType = "hours"
	RequirementCertification RequirementType = "certification"
	RequirementShifts        RequirementType = "shifts"
	RequirementCalls         RequirementType = "calls"
	RequirementCourses       RequirementType = "courses"
	RequirementOther         RequirementType = "other"
)

type Frequency string

const (
	FrequencyAnnual    Frequency = "annual"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyBiannual  Frequency = "biannual"
	FrequencyOneTime   Frequency = "one_time"
)

type DueDateType string

const (
	DueCalendarPeriod      DueDateType = "calendar_period"
	DueRolling             DueDateType = "rolling"
	DueCertificationPeriod DueDateType = "certification_period"
	DueFixedDate           DueDateType = "fixed_date"
)

// Requirement is immutable during one evaluation pass; it is owned by the
// requirement-management system and consumed here as a snapshot.
type Requirement struct {
	ID             RequirementID
	OrganizationID OrganizationID
	Name           string
	Type           RequirementType
	Frequency      Frequency
	DueDateType    DueDateType

	// Window configuration
	RollingPeriodMonths int
	PeriodYear          int        // 0 = reference date's year
	PeriodStartMonth    time.Month // 0 or January = calendar year
	PeriodStartDay      int

	// Targets (which one applies depends on Type)
	RequiredHours   decimal.Decimal
	RequiredShifts  int
	RequiredCalls   int
	RequiredCourses []CourseID

	// Record filters, applied in order: training type, course list, categories
	TrainingType string
	CategoryIDs  []string

	// Certification matching (substring, see evaluator.go)
	CertificationName string
	RegistryCode      string

	// Applicability
	AppliesToAll  bool
	RequiredRoles []string
	Active        bool
}

// AppliesTo is the applicability gate: a requirement is evaluated for a
// member only when it is active, in the member's organization, and either
// open to all or matched by role. Different members can therefore have
// different requirement totals.
func (r *Requirement) AppliesTo(m Member) bool {
	if !r.Active {
		return false
	}
	if r.OrganizationID != "" && r.OrganizationID != m.OrganizationID {
		return false
	}
	if r.AppliesToAll {
		return true
	}
	for _, role := range r.RequiredRoles {
		if m.HasRole(role) {
			return true
		}
	}
	return false
}

// =============================================================================
// TRAINING RECORD - Read-only input
// =============================================================================

type RecordStatus string

const (
	RecordCompleted RecordStatus = "completed"
	RecordPending   RecordStatus = "pending"
	RecordCanceled  RecordStatus = "canceled"
)

type TrainingRecord struct {
	ID                  string
	MemberID            MemberID
	Status              RecordStatus
	CompletionDate      Date
	HoursCompleted      decimal.Decimal
	CourseID            CourseID
	TrainingType        string
	CertificationNumber string
	ExpirationDate      Date // zero when the course's expiration_months applies
}

func (t TrainingRecord) IsCompleted() bool { return t.Status == RecordCompleted }

func (t TrainingRecord) HasCertification() bool { return t.CertificationNumber != "" }

// =============================================================================
// COURSE CATALOG - Backs category filters, cert matching, auto-expiration
// =============================================================================

type Course struct {
	ID               CourseID
	Name             string
	RegistryCode     string
	CategoryIDs      []string
	ExpirationMonths int // 0 = certifications from this course do not expire
}

func (c Course) InCategory(categoryID string) bool {
	for _, id := range c.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

type CourseCatalog map[CourseID]Course

// =============================================================================
// WAIVER PERIOD - Unified view of targeted waivers and leaves of absence
// =============================================================================

// WaiverPeriod is the merged form of the two external waiver sources.
// Permanent waivers carry the FarFuture sentinel end date; it is always
// clipped by the evaluation period before any month is counted.
type WaiverPeriod struct {
	Start Date
	End   Date

	// RequirementIDs restricts a targeted waiver. nil = blanket waiver,
	// applying to every requirement.
	RequirementIDs []RequirementID
}

func (w WaiverPeriod) IsBlanket() bool { return w.RequirementIDs == nil }

func (w WaiverPeriod) AppliesTo(id RequirementID) bool {
	if w.IsBlanket() {
		return true
	}
	for _, rid := range w.RequirementIDs {
		if rid == id {
			return true
		}
	}
	return false
}

// =============================================================================
// DERIVED RESULTS - Recomputed on demand, never source of truth
// =============================================================================

type ComplianceStatus string

const (
	StatusGreen  ComplianceStatus = "green"
	StatusYellow ComplianceStatus = "yellow"
	StatusRed    ComplianceStatus = "red"
)

type ComplianceResult struct {
	MemberID             MemberID
	RequirementsMet      int
	RequirementsTotal    int
	CertsExpiringSoon    int
	CertsExpired         int
	Status               ComplianceStatus
	HoursThisYear        decimal.Decimal
	ActiveCertifications int
}

// CellStatus is the four-state outcome for one (member, requirement) cell.
type CellStatus string

const (
	CellCompleted  CellStatus = "completed"
	CellInProgress CellStatus = "in_progress"
	CellNotStarted CellStatus = "not_started"
	CellExpired    CellStatus = "expired" // certification/biannual only
)
