/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Decimal
  quantities are rendered as floats at this boundary only; all comparisons
  happened upstream on rounded decimals.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/requirement.go: RequirementJSON type
*/
package api

import (
	"time"

	"github.com/stationops/compliance-engine/certs"
	"github.com/stationops/compliance-engine/compliance"
	"github.com/stationops/compliance-engine/factory"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ComplianceResultDTO is the per-member summary for profile/dashboard display.
type ComplianceResultDTO struct {
	MemberID             string  `json:"member_id"`
	RequirementsMet      int     `json:"requirements_met"`
	RequirementsTotal    int     `json:"requirements_total"`
	CertsExpiringSoon    int     `json:"certs_expiring_soon"`
	CertsExpired         int     `json:"certs_expired"`
	ComplianceStatus     string  `json:"compliance_status"`
	HoursThisYear        float64 `json:"hours_this_year"`
	ActiveCertifications int     `json:"active_certifications"`
}

// EvaluationDTO is one requirement's progress for a member.
type EvaluationDTO struct {
	RequirementID string  `json:"requirement_id"`
	Type          string  `json:"type"`
	Completed     float64 `json:"completed_amount"`
	Required      float64 `json:"required_amount"`
	Percentage    float64 `json:"percentage"`
	IsComplete    bool    `json:"is_complete"`
	CellStatus    string  `json:"cell_status"`
	WaivedMonths  int     `json:"waived_months"`
	PeriodStart   string  `json:"period_start,omitempty"`
	PeriodEnd     string  `json:"period_end,omitempty"`
}

// MatrixCellDTO is one cell of the compliance matrix.
type MatrixCellDTO struct {
	RequirementID string  `json:"requirement_id"`
	Status        string  `json:"status"`
	Percentage    float64 `json:"percentage"`
}

// MatrixRowDTO is one member's row.
type MatrixRowDTO struct {
	MemberID             string          `json:"member_id"`
	Cells                []MatrixCellDTO `json:"cells"`
	CompletionPercentage float64         `json:"completion_percentage"`
}

// MatrixDTO is the full member x requirement grid.
type MatrixDTO struct {
	RequirementIDs []string       `json:"requirement_ids"`
	Rows           []MatrixRowDTO `json:"rows"`
}

// AlertEventDTO is a fired alert tier handed to the notification dispatcher.
type AlertEventDTO struct {
	RecordID        string   `json:"record_id"`
	MemberID        string   `json:"member_id"`
	Tier            string   `json:"tier"`
	Recipients      []string `json:"recipients"`
	DaysUntilExpiry int      `json:"days_until_expiry"`
	FiredAt         string   `json:"fired_at"`
}

// AlertRunDTO summarizes one daily alert pass.
type AlertRunDTO struct {
	RanAt          string          `json:"ran_at"`
	RecordsVisited int             `json:"records_visited"`
	Events         []AlertEventDTO `json:"events"`
}

// RequirementDTO wraps the factory JSON form.
type RequirementDTO struct {
	Config factory.RequirementJSON `json:"config"`
}

// CreateRequirementRequest is the request body for requirement creation.
type CreateRequirementRequest struct {
	Config factory.RequirementJSON `json:"config"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toComplianceResultDTO(r compliance.ComplianceResult) ComplianceResultDTO {
	return ComplianceResultDTO{
		MemberID:             string(r.MemberID),
		RequirementsMet:      r.RequirementsMet,
		RequirementsTotal:    r.RequirementsTotal,
		CertsExpiringSoon:    r.CertsExpiringSoon,
		CertsExpired:         r.CertsExpired,
		ComplianceStatus:     string(r.Status),
		HoursThisYear:        r.HoursThisYear.InexactFloat64(),
		ActiveCertifications: r.ActiveCertifications,
	}
}

func toEvaluationDTO(ev compliance.Evaluation) EvaluationDTO {
	dto := EvaluationDTO{
		RequirementID: string(ev.RequirementID),
		Type:          string(ev.Type),
		Completed:     ev.Completed.InexactFloat64(),
		Required:      ev.Required.InexactFloat64(),
		Percentage:    ev.Percentage.InexactFloat64(),
		IsComplete:    ev.Complete,
		CellStatus:    string(ev.Cell),
		WaivedMonths:  ev.WaivedMonths,
	}
	if ev.Window != nil {
		dto.PeriodStart = ev.Window.Start.String()
		dto.PeriodEnd = ev.Window.End.String()
	}
	return dto
}

func toMatrixDTO(m compliance.Matrix) MatrixDTO {
	dto := MatrixDTO{}
	for _, id := range m.RequirementIDs {
		dto.RequirementIDs = append(dto.RequirementIDs, string(id))
	}
	for _, row := range m.Rows {
		rowDTO := MatrixRowDTO{
			MemberID:             string(row.MemberID),
			CompletionPercentage: row.CompletionPercentage.InexactFloat64(),
		}
		for _, cell := range row.Cells {
			rowDTO.Cells = append(rowDTO.Cells, MatrixCellDTO{
				RequirementID: string(cell.RequirementID),
				Status:        string(cell.Status),
				Percentage:    cell.Percentage.InexactFloat64(),
			})
		}
		dto.Rows = append(dto.Rows, rowDTO)
	}
	return dto
}

func toAlertEventDTO(e certs.AlertEvent) AlertEventDTO {
	recipients := make([]string, 0, len(e.Recipients))
	for _, r := range e.Recipients {
		recipients = append(recipients, string(r))
	}
	return AlertEventDTO{
		RecordID:        e.RecordID,
		MemberID:        string(e.MemberID),
		Tier:            string(e.Tier),
		Recipients:      recipients,
		DaysUntilExpiry: e.DaysUntilExpiry,
		FiredAt:         e.FiredAt.UTC().Format(time.RFC3339),
	}
}
