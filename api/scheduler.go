/*
scheduler.go - Automated daily certification alert pass

PURPOSE:
  Periodically runs the certification alert pass so expiring certifications
  escalate without manual triggering.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Each pass loads the current catalog and record snapshot, then hands
    them to the tracker
  - Duplicate or overlapping passes are harmless: every tier advance is a
    compare-and-set, so a retried or concurrent pass cannot double-fire
  - Records the last run summary for the UI

CONFIGURATION:
  - CheckInterval: How often to run (default: 24 hours)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewAlertScheduler(store)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - certs/tracker.go: The tier state machine this drives
  - handlers.go: RunAlerts endpoint (manual pass)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/stationops/compliance-engine/certs"
	"github.com/stationops/compliance-engine/compliance"
	"github.com/stationops/compliance-engine/store/sqlite"
)

// AlertScheduler drives the automated daily alert pass.
type AlertScheduler struct {
	Store         *sqlite.Store
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	lastRun *AlertRunDTO
}

// NewAlertScheduler creates a new scheduler.
func NewAlertScheduler(store *sqlite.Store) *AlertScheduler {
	return &AlertScheduler{
		Store:         store,
		CheckInterval: 24 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the background loop. The first pass runs immediately.
func (s *AlertScheduler) Start() {
	if !s.Enabled {
		log.Println("alert scheduler disabled")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.runPass()
		for {
			select {
			case <-s.ticker.C:
				s.runPass()
			case <-s.stop:
				return
			}
		}
	}()

	log.Printf("alert scheduler started (interval: %v)", s.CheckInterval)
}

// Stop halts the background loop and waits for an in-flight pass.
func (s *AlertScheduler) Stop() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	log.Println("alert scheduler stopped")
}

// LastRun returns the most recent pass summary, nil before the first pass.
func (s *AlertScheduler) LastRun() *AlertRunDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *AlertScheduler) runPass() {
	ctx := context.Background()
	today := compliance.Today()

	catalog, err := s.Store.CourseCatalog(ctx)
	if err != nil {
		log.Printf("alert pass: loading catalog: %v", err)
		return
	}
	records, err := s.Store.ListRecords(ctx)
	if err != nil {
		log.Printf("alert pass: loading records: %v", err)
		return
	}

	tracker := certs.NewTracker(s.Store, catalog)
	events, err := tracker.RunDailyPass(ctx, today, records)
	if err != nil {
		// Per-record failures were already isolated; log and keep the summary.
		log.Printf("alert pass: %v", err)
	}

	run := AlertRunDTO{
		RanAt:          today.String(),
		RecordsVisited: len(records),
		Events:         []AlertEventDTO{},
	}
	for _, e := range events {
		run.Events = append(run.Events, toAlertEventDTO(e))
	}

	s.mu.Lock()
	s.lastRun = &run
	s.mu.Unlock()

	log.Printf("alert pass complete: %d records, %d alerts fired", len(records), len(events))
}
