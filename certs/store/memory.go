// Package store provides AlertStore implementations.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stationops/compliance-engine/certs"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.Mutex
	states map[string]*certs.AlertState
}

func NewMemory() *Memory {
	return &Memory{states: make(map[string]*certs.AlertState)}
}

func (m *Memory) State(_ context.Context, recordID string) (certs.AlertState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.states[recordID]; ok {
		return *s, nil
	}
	return certs.AlertState{RecordID: recordID}, nil
}

// MarkSent sets the tier timestamp only if it is currently null. The check
// and the write happen under one lock, matching the atomic conditional
// update contract of the interface.
func (m *Memory) MarkSent(_ context.Context, recordID string, tier certs.Tier, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.states[recordID]
	if !ok {
		s = &certs.AlertState{RecordID: recordID}
		m.states[recordID] = s
	}

	slot, err := tierSlot(s, tier)
	if err != nil {
		return false, err
	}
	if *slot != nil {
		return false, nil
	}
	stamped := at
	*slot = &stamped
	return true, nil
}

func tierSlot(s *certs.AlertState, tier certs.Tier) (**time.Time, error) {
	switch tier {
	case certs.Tier90:
		return &s.Alert90SentAt, nil
	case certs.Tier60:
		return &s.Alert60SentAt, nil
	case certs.Tier30:
		return &s.Alert30SentAt, nil
	case certs.Tier7:
		return &s.Alert7SentAt, nil
	case certs.TierExpired:
		return &s.EscalationSentAt, nil
	}
	return nil, fmt.Errorf("unknown alert tier %q", tier)
}
