package compliance

import "time"

// =============================================================================
// CERTIFICATION FRESHNESS - Shared classification primitive
// =============================================================================
// Used by the certification evaluator here and by the expiration tracker in
// the certs package. Status is always computed from the expiration date and
// the reference date; it is never stored.

type CertState string

const (
	CertCurrent      CertState = "current"       // expires more than 90 days out
	CertExpiringSoon CertState = "expiring_soon" // expires within 90 days
	CertExpired      CertState = "expired"       // expiration date has passed
)

// ExpirationHorizonDays is the look-ahead for the expiring-soon band.
const ExpirationHorizonDays = 90

// ClassifyCertification buckets an expiration date relative to today:
//
//	expiration >  today+90d  -> current
//	today < expiration <= today+90d -> expiring_soon
//	expiration <= today      -> expired
func ClassifyCertification(expiration, today Date) CertState {
	switch {
	case expiration.BeforeOrEqual(today):
		return CertExpired
	case expiration.BeforeOrEqual(today.AddDays(ExpirationHorizonDays)):
		return CertExpiringSoon
	default:
		return CertCurrent
	}
}

// =============================================================================
// AUTO-EXPIRATION - When a record has no explicit expiration date
// =============================================================================

// AutoExpiration computes the expiration date from a completion date and the
// course's validity in months. The day is clamped to the target month's last
// day, so Feb 29 + 12 months lands on Feb 28.
func AutoExpiration(completion Date, expirationMonths int) Date {
	base := int(completion.Month()) - 1 + expirationMonths
	year := completion.Year() + base/12
	month := time.Month(base%12 + 1)
	day := completion.Day()
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// ExpirationFor resolves a record's effective expiration date: the explicit
// date when present, otherwise the auto-expiration derived from the course.
// Returns the zero Date when neither applies.
func (c CourseCatalog) ExpirationFor(rec TrainingRecord) Date {
	if !rec.ExpirationDate.IsZero() {
		return rec.ExpirationDate
	}
	if course, ok := c[rec.CourseID]; ok && course.ExpirationMonths > 0 && !rec.CompletionDate.IsZero() {
		return AutoExpiration(rec.CompletionDate, course.ExpirationMonths)
	}
	return Date{}
}
