package certs_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationops/compliance-engine/certs"
	"github.com/stationops/compliance-engine/certs/store"
	"github.com/stationops/compliance-engine/compliance"
)

func testCatalog() compliance.CourseCatalog {
	return compliance.CourseCatalog{
		"emt-b": {
			ID:               "emt-b",
			Name:             "EMT Basic Refresher",
			RegistryCode:     "EMT-B-2020",
			ExpirationMonths: 24,
		},
	}
}

func certRecord(id string, expires compliance.Date) compliance.TrainingRecord {
	return compliance.TrainingRecord{
		ID:                  id,
		MemberID:            "m1",
		Status:              compliance.RecordCompleted,
		CompletionDate:      compliance.NewDate(2024, time.January, 1),
		CourseID:            "emt-b",
		CertificationNumber: "C-1001",
		ExpirationDate:      expires,
	}
}

func newTracker(s certs.AlertStore) *certs.Tracker {
	return certs.NewTracker(s, testCatalog())
}

// =============================================================================
// TIER ADVANCEMENT
// =============================================================================

func TestRunDailyPass_FiresTierWhenBandReached(t *testing.T) {
	ctx := context.Background()
	today := compliance.NewDate(2025, time.June, 1)
	rec := certRecord("rec-1", today.AddDays(75))

	tracker := newTracker(store.NewMemory())
	events, err := tracker.RunDailyPass(ctx, today, []compliance.TrainingRecord{rec})
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, certs.Tier90, events[0].Tier)
	assert.Equal(t, []certs.Recipient{certs.RecipientMember}, events[0].Recipients)
	assert.Equal(t, 75, events[0].DaysUntilExpiry)
}

func TestRunDailyPass_SecondRunSameDayIsNoOp(t *testing.T) {
	ctx := context.Background()
	today := compliance.NewDate(2025, time.June, 1)
	rec := certRecord("rec-1", today.AddDays(75))

	tracker := newTracker(store.NewMemory())
	_, err := tracker.RunDailyPass(ctx, today, []compliance.TrainingRecord{rec})
	require.NoError(t, err)

	events, err := tracker.RunDailyPass(ctx, today, []compliance.TrainingRecord{rec})
	require.NoError(t, err)
	assert.Empty(t, events, "the 90 tier already fired and 60 is not reachable at 75 days")
}

func TestRunDailyPass_CatchesUpOneTierPerRun(t *testing.T) {
	// A record first seen at 46 days out has skipped the 90 band entirely.
	// Each daily run advances exactly one tier: 90, then 60. The 30 tier
	// waits until the day count actually reaches 30.
	ctx := context.Background()
	today := compliance.NewDate(2025, time.June, 1)
	rec := certRecord("rec-1", today.AddDays(46))
	records := []compliance.TrainingRecord{rec}

	tracker := newTracker(store.NewMemory())

	events, err := tracker.RunDailyPass(ctx, today, records)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, certs.Tier90, events[0].Tier)

	events, err = tracker.RunDailyPass(ctx, today.AddDays(1), records)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, certs.Tier60, events[0].Tier)

	// 44 days out: 90 and 60 have fired, 30 is not reachable yet.
	events, err = tracker.RunDailyPass(ctx, today.AddDays(2), records)
	require.NoError(t, err)
	assert.Empty(t, events)

	// 30 days out: the 30 tier fires and brings in the training officer.
	events, err = tracker.RunDailyPass(ctx, today.AddDays(16), records)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, certs.Tier30, events[0].Tier)
	assert.Equal(t,
		[]certs.Recipient{certs.RecipientMember, certs.RecipientTrainingOfficer},
		events[0].Recipients)
}

func TestRunDailyPass_ExpiredRecordEscalatesDirectly(t *testing.T) {
	// GIVEN: A record discovered only after its expiration, no earlier tiers
	// WHEN: Running the daily pass
	// THEN: The escalation fires immediately; it does not wait for the
	//       pre-expiry tiers

	ctx := context.Background()
	today := compliance.NewDate(2025, time.June, 1)
	rec := certRecord("rec-1", today.AddDays(-10))

	tracker := newTracker(store.NewMemory())
	events, err := tracker.RunDailyPass(ctx, today, []compliance.TrainingRecord{rec})
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, certs.TierExpired, events[0].Tier)
	assert.Equal(t, []certs.Recipient{
		certs.RecipientMember,
		certs.RecipientTrainingOfficer,
		certs.RecipientComplianceOfficer,
		certs.RecipientChief,
	}, events[0].Recipients)
	assert.Equal(t, -10, events[0].DaysUntilExpiry)

	// The escalation fires exactly once.
	events, err = tracker.RunDailyPass(ctx, today.AddDays(1), []compliance.TrainingRecord{rec})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRunDailyPass_SkipsRecordsOutsideTheHorizon(t *testing.T) {
	ctx := context.Background()
	today := compliance.NewDate(2025, time.June, 1)

	current := certRecord("rec-1", today.AddDays(200))
	noCert := compliance.TrainingRecord{
		ID:             "rec-2",
		MemberID:       "m1",
		Status:         compliance.RecordCompleted,
		CompletionDate: compliance.NewDate(2025, time.January, 1),
	}

	tracker := newTracker(store.NewMemory())
	events, err := tracker.RunDailyPass(ctx, today, []compliance.TrainingRecord{current, noCert})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRunDailyPass_RenewalLeavesTheExpiringSet(t *testing.T) {
	// GIVEN: A record that fired its 90 alert, then was renewed (expiration
	//        pushed out past the horizon)
	// WHEN: Running subsequent passes
	// THEN: The record is skipped; no backward transition is needed

	ctx := context.Background()
	today := compliance.NewDate(2025, time.June, 1)

	expiring := certRecord("rec-1", today.AddDays(80))
	tracker := newTracker(store.NewMemory())
	events, err := tracker.RunDailyPass(ctx, today, []compliance.TrainingRecord{expiring})
	require.NoError(t, err)
	require.Len(t, events, 1)

	renewed := certRecord("rec-1", today.AddDays(700))
	events, err = tracker.RunDailyPass(ctx, today.AddDays(1), []compliance.TrainingRecord{renewed})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRunDailyPass_DerivedExpirationFromCatalog(t *testing.T) {
	// No explicit expiration date: emt-b expires 24 months after completion.
	ctx := context.Background()
	rec := certRecord("rec-1", compliance.Date{})
	rec.CompletionDate = compliance.NewDate(2023, time.September, 1)

	// 2025-09-01 expiration, 62 days out from 2025-07-01.
	today := compliance.NewDate(2025, time.July, 1)
	tracker := newTracker(store.NewMemory())
	events, err := tracker.RunDailyPass(ctx, today, []compliance.TrainingRecord{rec})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, certs.Tier90, events[0].Tier)
	assert.Equal(t, 62, events[0].DaysUntilExpiry)
}

// =============================================================================
// CONCURRENT IDEMPOTENCY
// =============================================================================

func TestRunDailyPass_ConcurrentWorkersFireTierOnce(t *testing.T) {
	// GIVEN: Several workers running the same daily pass against one store
	// WHEN: All process the same expiring record
	// THEN: Exactly one of them emits the event; the rest lose the CAS and
	//       treat that as success

	ctx := context.Background()
	today := compliance.NewDate(2025, time.June, 1)
	rec := certRecord("rec-1", today.AddDays(50))
	shared := store.NewMemory()

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan int, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			events, err := newTracker(shared).RunDailyPass(ctx, today, []compliance.TrainingRecord{rec})
			assert.NoError(t, err)
			results <- len(events)
		}()
	}
	wg.Wait()
	close(results)

	fired := 0
	for n := range results {
		fired += n
	}
	assert.Equal(t, 1, fired, "the tier must fire exactly once across all workers")
}
