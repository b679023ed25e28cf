package compliance_test

import (
	"testing"
	"time"

	"github.com/stationops/compliance-engine/compliance"
)

// =============================================================================
// MATRIX BUILD
// =============================================================================

func TestMatrixBuilder_RowPercentageCountsOnlyCompletedCells(t *testing.T) {
	// GIVEN: Four applicable requirements: two completed, one expired cert,
	//        one in progress
	// WHEN: Building the matrix
	// THEN: The row completes at 2/4 = 50.0%; expired and in-progress cells
	//       keep their own statuses but do not count

	member := compliance.Member{ID: "m1", OrganizationID: "org1"}
	today := d(2025, time.June, 1)

	done1 := annualHoursReq("done-1", 5)
	done2 := annualHoursReq("done-2", 8)
	partial := annualHoursReq("partial", 40)
	expiredCert := &compliance.Requirement{
		ID:           "emt-cert",
		Type:         compliance.RequirementCertification,
		Frequency:    compliance.FrequencyAnnual,
		RegistryCode: "EMT-B",
		AppliesToAll: true,
		Active:       true,
	}

	records := []compliance.TrainingRecord{
		completedHours(d(2025, time.February, 1), 10),
		certRecord("emt-b", d(2022, time.January, 1), d(2024, time.January, 1)),
	}

	builder := &compliance.MatrixBuilder{Evaluator: newEvaluator()}
	matrix := builder.Build(compliance.MatrixInput{
		Members:         []compliance.Member{member},
		Requirements:    []*compliance.Requirement{done1, done2, partial, expiredCert},
		RecordsByMember: map[compliance.MemberID][]compliance.TrainingRecord{"m1": records},
		Today:           today,
	})

	if len(matrix.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(matrix.Rows))
	}
	row := matrix.Rows[0]
	if len(row.Cells) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(row.Cells))
	}
	if !row.CompletionPercentage.Equal(dec(50.0)) {
		t.Errorf("expected 50.0%%, got %s", row.CompletionPercentage)
	}

	statuses := make(map[compliance.RequirementID]compliance.CellStatus)
	for _, cell := range row.Cells {
		statuses[cell.RequirementID] = cell.Status
	}
	if statuses["emt-cert"] != compliance.CellExpired {
		t.Errorf("expected the certification cell expired, got %s", statuses["emt-cert"])
	}
	if statuses["partial"] != compliance.CellInProgress {
		t.Errorf("expected the partial cell in progress, got %s", statuses["partial"])
	}
}

func TestMatrixBuilder_SkipsNonApplicableCells(t *testing.T) {
	// GIVEN: An officer-only requirement and a mixed roster
	// WHEN: Building the matrix
	// THEN: The non-officer's row has no cell for it; a member with zero
	//       applicable requirements is vacuously complete

	officer := compliance.Member{ID: "officer", OrganizationID: "org1", Roles: []string{"officer"}}
	rookie := compliance.Member{ID: "rookie", OrganizationID: "org1", Roles: []string{"probationary"}}

	officerOnly := annualHoursReq("officer-hours", 12)
	officerOnly.AppliesToAll = false
	officerOnly.RequiredRoles = []string{"officer"}

	builder := &compliance.MatrixBuilder{Evaluator: newEvaluator()}
	matrix := builder.Build(compliance.MatrixInput{
		Members:      []compliance.Member{officer, rookie},
		Requirements: []*compliance.Requirement{officerOnly},
		Today:        d(2025, time.June, 1),
	})

	if got := len(matrix.Rows[0].Cells); got != 1 {
		t.Errorf("expected 1 cell for the officer, got %d", got)
	}
	if got := len(matrix.Rows[1].Cells); got != 0 {
		t.Errorf("expected no cells for the rookie, got %d", got)
	}
	if !matrix.Rows[1].CompletionPercentage.Equal(dec(100)) {
		t.Errorf("expected the empty row vacuously complete, got %s", matrix.Rows[1].CompletionPercentage)
	}
}

func TestMatrixBuilder_RowsKeepInputOrderAcrossWorkers(t *testing.T) {
	// GIVEN: A roster larger than the worker pool
	// WHEN: Building concurrently
	// THEN: Rows come back in input member order

	var members []compliance.Member
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		members = append(members, compliance.Member{ID: compliance.MemberID(id), OrganizationID: "org1"})
	}

	builder := &compliance.MatrixBuilder{Evaluator: newEvaluator(), Workers: 3}
	matrix := builder.Build(compliance.MatrixInput{
		Members:      members,
		Requirements: []*compliance.Requirement{annualHoursReq("hours", 1)},
		Today:        d(2025, time.June, 1),
	})

	for i, row := range matrix.Rows {
		if row.MemberID != members[i].ID {
			t.Fatalf("row %d out of order: expected %s, got %s", i, members[i].ID, row.MemberID)
		}
	}
}
