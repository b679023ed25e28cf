package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationops/compliance-engine/api"
	"github.com/stationops/compliance-engine/compliance"
	"github.com/stationops/compliance-engine/store/sqlite"
)

func TestAlertScheduler_RunsImmediatePassOnStart(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	today := compliance.Today()
	require.NoError(t, store.SaveRecord(context.Background(), compliance.TrainingRecord{
		ID:                  "rec-cert",
		MemberID:            "m1",
		Status:              compliance.RecordCompleted,
		CompletionDate:      today.AddMonths(-22),
		HoursCompleted:      decimal.Zero,
		CertificationNumber: "C-1001",
		ExpirationDate:      today.AddDays(40),
	}))

	scheduler := api.NewAlertScheduler(store)
	scheduler.CheckInterval = time.Hour
	scheduler.Start()
	t.Cleanup(scheduler.Stop)

	require.Eventually(t, func() bool {
		return scheduler.LastRun() != nil
	}, 2*time.Second, 10*time.Millisecond, "the first pass runs on start")

	run := scheduler.LastRun()
	assert.Equal(t, 1, run.RecordsVisited)
	require.Len(t, run.Events, 1)
	assert.Equal(t, "90", run.Events[0].Tier)
}

func TestAlertScheduler_DisabledDoesNotRun(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	scheduler := api.NewAlertScheduler(store)
	scheduler.Enabled = false
	scheduler.Start()
	t.Cleanup(scheduler.Stop)

	time.Sleep(50 * time.Millisecond)
	assert.Nil(t, scheduler.LastRun())
}
