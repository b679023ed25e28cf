/*
status.go - Aggregate compliance status and the per-member summary

PURPOSE:
  Rolls a member's per-requirement evaluations and certification counts into
  one of green/yellow/red. The precedence is strict and a single expired
  certification always forces red - it cannot be outranked by anything,
  including a merely expiring-soon certification elsewhere.

PRECEDENCE:
  RED:    any expired cert, OR fewer than half of the requirements met
  YELLOW: any cert expiring soon, OR not all requirements met
  GREEN:  otherwise
*/
package compliance

import "github.com/shopspring/decimal"

// =============================================================================
// STATUS AGGREGATION
// =============================================================================

// StatusFor resolves the aggregate status from requirement counts and
// certification counts. The half rule is evaluated in integers (2*met < total)
// so no floating-point comparison is involved.
func StatusFor(met, total, certsExpired, certsExpiringSoon int) ComplianceStatus {
	if certsExpired > 0 || (total > 0 && 2*met < total) {
		return StatusRed
	}
	if certsExpiringSoon > 0 || (total > 0 && met < total) {
		return StatusYellow
	}
	return StatusGreen
}

// =============================================================================
// PER-MEMBER SUMMARY
// =============================================================================

// EvaluateMember produces the ComplianceResult for one member: every
// applicable requirement is evaluated, certifications are classified, and
// hours for the current calendar year are summed. The result is derived
// state, recomputed on demand.
func (e *Evaluator) EvaluateMember(member Member, reqs []*Requirement, records []TrainingRecord, waivers []WaiverPeriod, today Date) ComplianceResult {
	result := ComplianceResult{MemberID: member.ID, HoursThisYear: decimal.Zero}

	for _, req := range reqs {
		if !req.AppliesTo(member) {
			continue
		}
		result.RequirementsTotal++
		if e.Evaluate(req, records, waivers, today).Complete {
			result.RequirementsMet++
		}
	}

	year := Window{Start: StartOfYear(today.Year()), End: EndOfYear(today.Year())}
	for _, rec := range records {
		if rec.IsCompleted() && year.Contains(rec.CompletionDate) {
			result.HoursThisYear = result.HoursThisYear.Add(rec.HoursCompleted)
		}

		if !rec.HasCertification() {
			continue
		}
		exp := e.Catalog.ExpirationFor(rec)
		if exp.IsZero() {
			result.ActiveCertifications++ // no expiry defined, counts as held
			continue
		}
		switch ClassifyCertification(exp, today) {
		case CertExpired:
			result.CertsExpired++
		case CertExpiringSoon:
			result.CertsExpiringSoon++
			result.ActiveCertifications++
		default:
			result.ActiveCertifications++
		}
	}
	result.HoursThisYear = result.HoursThisYear.Round(2)

	result.Status = StatusFor(result.RequirementsMet, result.RequirementsTotal, result.CertsExpired, result.CertsExpiringSoon)
	return result
}
