/*
matrix.go - The member x requirement compliance matrix

PURPOSE:
  Builds the department-wide oversight grid: one cell per applicable
  (member, requirement) pair with a four-state status, plus a per-member
  completion percentage. Only completed cells contribute to the percentage -
  expired and in-progress cells do not.

CONCURRENCY:
  Evaluation is stateless and embarrassingly parallel per member, so rows
  fan out across a small worker pool. No shared mutable state exists on the
  evaluation path; results land in pre-sized slots indexed by member.

ISOLATION:
  A panic evaluating one cell degrades that cell to not_started and the row
  keeps building. The matrix is computed fresh on every request and never
  cached across requirement or waiver edits.
*/
package compliance

import (
	"log"
	"sync"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MATRIX TYPES
// =============================================================================

type MatrixCell struct {
	MemberID      MemberID
	RequirementID RequirementID
	Status        CellStatus
	Percentage    decimal.Decimal
}

type MatrixRow struct {
	MemberID             MemberID
	Cells                []MatrixCell
	CompletionPercentage decimal.Decimal
}

type Matrix struct {
	RequirementIDs []RequirementID
	Rows           []MatrixRow
}

// MatrixInput bundles the snapshots a matrix build consumes.
type MatrixInput struct {
	Members         []Member
	Requirements    []*Requirement
	RecordsByMember map[MemberID][]TrainingRecord
	WaiversByMember map[MemberID][]WaiverPeriod
	Today           Date
}

// =============================================================================
// MATRIX BUILDER
// =============================================================================

const defaultMatrixWorkers = 4

type MatrixBuilder struct {
	Evaluator *Evaluator

	// Workers bounds the per-member fan-out. Zero means the default.
	Workers int
}

// Build computes the full matrix. Rows come back in input member order.
func (b *MatrixBuilder) Build(input MatrixInput) Matrix {
	workers := b.Workers
	if workers <= 0 {
		workers = defaultMatrixWorkers
	}
	if workers > len(input.Members) && len(input.Members) > 0 {
		workers = len(input.Members)
	}

	matrix := Matrix{Rows: make([]MatrixRow, len(input.Members))}
	for _, req := range input.Requirements {
		matrix.RequirementIDs = append(matrix.RequirementIDs, req.ID)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				member := input.Members[i]
				matrix.Rows[i] = b.buildRow(
					member,
					input.Requirements,
					input.RecordsByMember[member.ID],
					input.WaiversByMember[member.ID],
					input.Today,
				)
			}
		}()
	}
	for i := range input.Members {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return matrix
}

func (b *MatrixBuilder) buildRow(member Member, reqs []*Requirement, records []TrainingRecord, waivers []WaiverPeriod, today Date) MatrixRow {
	row := MatrixRow{MemberID: member.ID}
	completed := 0

	for _, req := range reqs {
		if !req.AppliesTo(member) {
			continue
		}
		cell := b.buildCell(member, req, records, waivers, today)
		if cell.Status == CellCompleted {
			completed++
		}
		row.Cells = append(row.Cells, cell)
	}

	total := len(row.Cells)
	if total == 0 {
		// Nothing applies to this member; vacuously complete.
		row.CompletionPercentage = hundred
		return row
	}
	row.CompletionPercentage = decimal.NewFromInt(int64(completed)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(hundred).
		Round(1)
	return row
}

// buildCell evaluates one cell with panic isolation: a defect in one
// (member, requirement) pair surfaces as a best-effort not_started cell.
func (b *MatrixBuilder) buildCell(member Member, req *Requirement, records []TrainingRecord, waivers []WaiverPeriod, today Date) (cell MatrixCell) {
	cell = MatrixCell{
		MemberID:      member.ID,
		RequirementID: req.ID,
		Status:        CellNotStarted,
		Percentage:    decimal.Zero,
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("compliance: evaluation panic for member=%s requirement=%s: %v", member.ID, req.ID, r)
		}
	}()

	ev := b.Evaluator.Evaluate(req, records, waivers, today)
	cell.Status = ev.Cell
	cell.Percentage = ev.Percentage
	return cell
}
