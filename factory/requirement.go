/*
Package factory provides JSON to Go requirement conversion.

PURPOSE:
  Converts JSON requirement definitions into compliance.Requirement values.
  This enables requirement configuration without code changes - a training
  officer can define the department's requirement set in JSON, and the
  factory creates the proper Go structs with defaults and validation.

JSON SCHEMA:
  {
    "id": "annual-fire-training",
    "name": "Annual Fire Training Hours",
    "organization_id": "station-12",
    "type": "hours",
    "frequency": "annual",
    "due_date_type": "calendar_period",
    "required_hours": 36,
    "training_type": "fire",
    "applies_to_all": true
  }

VALIDATION:
  The factory is strict where the engine is lenient: an unknown type or
  frequency is rejected here at authoring time, while the engine degrades
  to safe defaults for whatever reaches it at evaluation time.

SEE ALSO:
  - compliance/types.go: Requirement definition
  - store/sqlite: persists requirements as this JSON form
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stationops/compliance-engine/compliance"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RequirementJSON is the JSON representation of a training requirement.
type RequirementJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	OrganizationID string `json:"organization_id"`
	Type           string `json:"type"`
	Frequency      string `json:"frequency,omitempty"`
	DueDateType    string `json:"due_date_type,omitempty"`

	RollingPeriodMonths int `json:"rolling_period_months,omitempty"`
	PeriodYear          int `json:"period_year,omitempty"`
	PeriodStartMonth    int `json:"period_start_month,omitempty"`
	PeriodStartDay      int `json:"period_start_day,omitempty"`

	RequiredHours   float64  `json:"required_hours,omitempty"`
	RequiredShifts  int      `json:"required_shifts,omitempty"`
	RequiredCalls   int      `json:"required_calls,omitempty"`
	RequiredCourses []string `json:"required_courses,omitempty"`

	TrainingType      string   `json:"training_type,omitempty"`
	CategoryIDs       []string `json:"category_ids,omitempty"`
	CertificationName string   `json:"certification_name,omitempty"`
	RegistryCode      string   `json:"registry_code,omitempty"`

	AppliesToAll  bool     `json:"applies_to_all,omitempty"`
	RequiredRoles []string `json:"required_roles,omitempty"`
	Active        *bool    `json:"active,omitempty"` // default true
}

// =============================================================================
// VALIDATION TABLES
// =============================================================================

var validTypes = map[compliance.RequirementType]bool{
	compliance.RequirementHours:         true,
	compliance.RequirementCertification: true,
	compliance.RequirementShifts:        true,
	compliance.RequirementCalls:         true,
	compliance.RequirementCourses:       true,
	compliance.RequirementOther:         true,
}

var validFrequencies = map[compliance.Frequency]bool{
	compliance.FrequencyAnnual:    true,
	compliance.FrequencyQuarterly: true,
	compliance.FrequencyMonthly:   true,
	compliance.FrequencyBiannual:  true,
	compliance.FrequencyOneTime:   true,
}

var validDueDateTypes = map[compliance.DueDateType]bool{
	compliance.DueCalendarPeriod:      true,
	compliance.DueRolling:             true,
	compliance.DueCertificationPeriod: true,
	compliance.DueFixedDate:           true,
}

// =============================================================================
// PARSING
// =============================================================================

// Parse converts a single JSON requirement definition.
func Parse(data []byte) (*compliance.Requirement, error) {
	var j RequirementJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("invalid requirement JSON: %w", err)
	}
	return Build(j)
}

// ParseSet converts a JSON array of requirement definitions.
func ParseSet(data []byte) ([]*compliance.Requirement, error) {
	var defs []RequirementJSON
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("invalid requirement set JSON: %w", err)
	}

	reqs := make([]*compliance.Requirement, 0, len(defs))
	for i, def := range defs {
		req, err := Build(def)
		if err != nil {
			return nil, fmt.Errorf("requirement %d: %w", i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Build validates a definition and applies defaults.
func Build(j RequirementJSON) (*compliance.Requirement, error) {
	if j.ID == "" {
		return nil, fmt.Errorf("requirement id is required")
	}

	reqType := compliance.RequirementType(j.Type)
	if !validTypes[reqType] {
		return nil, &compliance.ConfigDefectError{
			RequirementID: compliance.RequirementID(j.ID), Field: "type", Value: j.Type,
		}
	}

	frequency := compliance.Frequency(j.Frequency)
	if j.Frequency == "" {
		frequency = compliance.FrequencyAnnual
	} else if !validFrequencies[frequency] {
		return nil, &compliance.ConfigDefectError{
			RequirementID: compliance.RequirementID(j.ID), Field: "frequency", Value: j.Frequency,
		}
	}

	dueDateType := compliance.DueDateType(j.DueDateType)
	if j.DueDateType == "" {
		dueDateType = compliance.DueCalendarPeriod
	} else if !validDueDateTypes[dueDateType] {
		return nil, &compliance.ConfigDefectError{
			RequirementID: compliance.RequirementID(j.ID), Field: "due_date_type", Value: j.DueDateType,
		}
	}

	if dueDateType == compliance.DueRolling && j.RollingPeriodMonths <= 0 {
		return nil, fmt.Errorf("requirement %s: rolling due date requires rolling_period_months", j.ID)
	}

	active := true
	if j.Active != nil {
		active = *j.Active
	}

	courses := make([]compliance.CourseID, 0, len(j.RequiredCourses))
	for _, id := range j.RequiredCourses {
		courses = append(courses, compliance.CourseID(id))
	}

	return &compliance.Requirement{
		ID:                  compliance.RequirementID(j.ID),
		OrganizationID:      compliance.OrganizationID(j.OrganizationID),
		Name:                j.Name,
		Type:                reqType,
		Frequency:           frequency,
		DueDateType:         dueDateType,
		RollingPeriodMonths: j.RollingPeriodMonths,
		PeriodYear:          j.PeriodYear,
		PeriodStartMonth:    time.Month(j.PeriodStartMonth),
		PeriodStartDay:      j.PeriodStartDay,
		RequiredHours:       decimal.NewFromFloat(j.RequiredHours),
		RequiredShifts:      j.RequiredShifts,
		RequiredCalls:       j.RequiredCalls,
		RequiredCourses:     courses,
		TrainingType:        j.TrainingType,
		CategoryIDs:         j.CategoryIDs,
		CertificationName:   j.CertificationName,
		RegistryCode:        j.RegistryCode,
		AppliesToAll:        j.AppliesToAll,
		RequiredRoles:       j.RequiredRoles,
		Active:              active,
	}, nil
}

// =============================================================================
// ENCODING
// =============================================================================

// FromRequirement converts a requirement back to its JSON form (used by the
// store to persist requirement configs).
func FromRequirement(req *compliance.Requirement) RequirementJSON {
	courses := make([]string, 0, len(req.RequiredCourses))
	for _, id := range req.RequiredCourses {
		courses = append(courses, string(id))
	}

	active := req.Active
	return RequirementJSON{
		ID:                  string(req.ID),
		Name:                req.Name,
		OrganizationID:      string(req.OrganizationID),
		Type:                string(req.Type),
		Frequency:           string(req.Frequency),
		DueDateType:         string(req.DueDateType),
		RollingPeriodMonths: req.RollingPeriodMonths,
		PeriodYear:          req.PeriodYear,
		PeriodStartMonth:    int(req.PeriodStartMonth),
		PeriodStartDay:      req.PeriodStartDay,
		RequiredHours:       req.RequiredHours.InexactFloat64(),
		RequiredShifts:      req.RequiredShifts,
		RequiredCalls:       req.RequiredCalls,
		RequiredCourses:     courses,
		TrainingType:        req.TrainingType,
		CategoryIDs:         req.CategoryIDs,
		CertificationName:   req.CertificationName,
		RegistryCode:        req.RegistryCode,
		AppliesToAll:        req.AppliesToAll,
		RequiredRoles:       req.RequiredRoles,
		Active:              &active,
	}
}

// Encode serializes a requirement to its JSON form.
func Encode(req *compliance.Requirement) ([]byte, error) {
	return json.Marshal(FromRequirement(req))
}
