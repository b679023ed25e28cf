// Package certs implements certification expiration tracking: freshness
// classification, auto-expiration, and the tiered alert state machine.
// It builds on the compliance package's classification primitives.
package certs

import (
	"time"

	"github.com/stationops/compliance-engine/compliance"
)

// =============================================================================
// ALERT TIERS
// =============================================================================

// Tier is one of the five escalating notification points for a certification
// nearing or past expiration.
type Tier string

const (
	Tier90      Tier = "90"
	Tier60      Tier = "60"
	Tier30      Tier = "30"
	Tier7       Tier = "7"
	TierExpired Tier = "expired"
)

// Recipient identifies who an alert tier notifies. The engine decides the
// recipients; delivery transport is the dispatcher's problem.
type Recipient string

const (
	RecipientMember            Recipient = "member"
	RecipientTrainingOfficer   Recipient = "training_officer"
	RecipientComplianceOfficer Recipient = "compliance_officer"
	RecipientChief             Recipient = "chief"
)

// =============================================================================
// ALERT STATE - One nullable timestamp per tier, set at most once
// =============================================================================

// AlertState is the per-record alert bookkeeping. Each timestamp is written
// exactly once via compare-and-set; once set, the engine never re-evaluates
// that tier for the record.
type AlertState struct {
	RecordID         string
	Alert90SentAt    *time.Time
	Alert60SentAt    *time.Time
	Alert30SentAt    *time.Time
	Alert7SentAt     *time.Time
	EscalationSentAt *time.Time
}

// SentAt returns the timestamp for a tier, nil if that tier has not fired.
func (s AlertState) SentAt(tier Tier) *time.Time {
	switch tier {
	case Tier90:
		return s.Alert90SentAt
	case Tier60:
		return s.Alert60SentAt
	case Tier30:
		return s.Alert30SentAt
	case Tier7:
		return s.Alert7SentAt
	case TierExpired:
		return s.EscalationSentAt
	}
	return nil
}

// =============================================================================
// ALERT EVENT - Handed to the external notification dispatcher
// =============================================================================

type AlertEvent struct {
	RecordID        string
	MemberID        compliance.MemberID
	Tier            Tier
	Recipients      []Recipient
	DaysUntilExpiry int
	FiredAt         time.Time
}
