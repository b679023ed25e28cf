/*
tracker.go - The certification alert state machine and daily pass

PURPOSE:
  Walks every certification-bearing training record once a day and fires at
  most one alert tier per record - the next unsent tier the record has
  reached. The transition table:

    days until expiry   tier      recipients
    <=90, >60           90        member
    <=60, >30           60        member
    <=30, >7            30        member + training officer
    <=7,  >0            7         member + training + compliance
    <=0                 expired   member + training + compliance + chief

  Tiers advance strictly forward, one per run. A record discovered deep in
  a band catches up one tier per daily run rather than skipping; a record
  that is already expired escalates directly (the escalation transition
  requires only that escalation has not fired yet).

IDEMPOTENCY:
  Advancing a tier is a compare-and-set: the store writes the timestamp only
  if it is currently null. Two workers running the same daily pass cannot
  double-fire a tier; the loser of the race treats the lost CAS as success
  by another worker, not as an error. Renewal needs no backward transition -
  a renewed certification simply leaves the expiring set, so future passes
  skip it.
*/
package certs

import (
	"context"
	"errors"
	"time"

	"github.com/stationops/compliance-engine/compliance"
)

// =============================================================================
// ALERT STORE - CAS persistence for tier timestamps
// =============================================================================

// AlertStore persists per-record alert state. MarkSent is the only write:
// an atomic conditional update that sets the tier timestamp only when it is
// currently null, returning whether this caller won the write.
type AlertStore interface {
	State(ctx context.Context, recordID string) (AlertState, error)

	// MarkSent records that a tier fired. Returns (false, nil) when the
	// tier timestamp was already set - the lost race is the desired outcome.
	MarkSent(ctx context.Context, recordID string, tier Tier, at time.Time) (bool, error)
}

// =============================================================================
// TRANSITION TABLE
// =============================================================================

type tierRule struct {
	Tier       Tier
	MaxDays    int // tier is reachable once days-until-expiry <= MaxDays
	Recipients []Recipient
}

// tierSequence orders the pre-expiry tiers. Monotonic advancement walks this
// slice; the expired escalation is handled separately since it does not
// require the earlier tiers.
var tierSequence = []tierRule{
	{Tier: Tier90, MaxDays: 90, Recipients: []Recipient{RecipientMember}},
	{Tier: Tier60, MaxDays: 60, Recipients: []Recipient{RecipientMember}},
	{Tier: Tier30, MaxDays: 30, Recipients: []Recipient{RecipientMember, RecipientTrainingOfficer}},
	{Tier: Tier7, MaxDays: 7, Recipients: []Recipient{RecipientMember, RecipientTrainingOfficer, RecipientComplianceOfficer}},
}

var escalationRule = tierRule{
	Tier:    TierExpired,
	MaxDays: 0,
	Recipients: []Recipient{
		RecipientMember, RecipientTrainingOfficer, RecipientComplianceOfficer, RecipientChief,
	},
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker drives the daily alert pass. It is stateless apart from the store;
// running it twice for the same day is a no-op on the second run.
type Tracker struct {
	Store   AlertStore
	Catalog compliance.CourseCatalog

	// Now stamps fired tiers. Defaults to time.Now.
	Now func() time.Time
}

func NewTracker(store AlertStore, catalog compliance.CourseCatalog) *Tracker {
	return &Tracker{Store: store, Catalog: catalog, Now: time.Now}
}

// RunDailyPass evaluates every record and returns the alert events that
// fired. Store failures on one record never stop the pass; they are joined
// into the returned error after all records have been visited.
func (t *Tracker) RunDailyPass(ctx context.Context, today compliance.Date, records []compliance.TrainingRecord) ([]AlertEvent, error) {
	var events []AlertEvent
	var errs []error

	for _, rec := range records {
		event, err := t.processRecord(ctx, today, rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if event != nil {
			events = append(events, *event)
		}
	}

	return events, errors.Join(errs...)
}

// processRecord advances at most one tier for one record.
func (t *Tracker) processRecord(ctx context.Context, today compliance.Date, rec compliance.TrainingRecord) (*AlertEvent, error) {
	if !rec.HasCertification() {
		return nil, nil
	}
	exp := t.Catalog.ExpirationFor(rec)
	if exp.IsZero() {
		return nil, nil
	}

	days := compliance.DaysBetween(today, exp)
	if days > compliance.ExpirationHorizonDays {
		// Current (or renewed) certification: nothing to do.
		return nil, nil
	}

	state, err := t.Store.State(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	rule, ok := t.nextTier(state, days)
	if !ok {
		return nil, nil
	}

	firedAt := t.Now()
	won, err := t.Store.MarkSent(ctx, rec.ID, rule.Tier, firedAt)
	if err != nil {
		return nil, err
	}
	if !won {
		// Another worker advanced this tier already.
		return nil, nil
	}

	return &AlertEvent{
		RecordID:        rec.ID,
		MemberID:        rec.MemberID,
		Tier:            rule.Tier,
		Recipients:      rule.Recipients,
		DaysUntilExpiry: days,
		FiredAt:         firedAt,
	}, nil
}

// nextTier picks the single tier to advance, if any: for expired records the
// escalation (unless already fired), otherwise the first unsent tier in the
// sequence that the day count has reached.
func (t *Tracker) nextTier(state AlertState, days int) (tierRule, bool) {
	if days <= 0 {
		if state.EscalationSentAt == nil {
			return escalationRule, true
		}
		return tierRule{}, false
	}

	for _, rule := range tierSequence {
		if state.SentAt(rule.Tier) != nil {
			continue
		}
		if days <= rule.MaxDays {
			return rule, true
		}
		// The next unsent tier is not reachable yet; nothing deeper can
		// fire before it does.
		return tierRule{}, false
	}
	return tierRule{}, false
}
