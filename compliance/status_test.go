package compliance_test

import (
	"testing"
	"time"

	"github.com/stationops/compliance-engine/compliance"
)

// =============================================================================
// STATUS PRECEDENCE
// =============================================================================

func TestStatusFor_Precedence(t *testing.T) {
	cases := []struct {
		name              string
		met, total        int
		expired, expiring int
		want              compliance.ComplianceStatus
	}{
		{"all met, no certs", 4, 4, 0, 0, compliance.StatusGreen},
		{"no requirements at all", 0, 0, 0, 0, compliance.StatusGreen},
		{"one short of total", 3, 4, 0, 0, compliance.StatusYellow},
		{"expiring cert outranks all-met", 4, 4, 0, 1, compliance.StatusYellow},
		{"under half met", 1, 4, 0, 0, compliance.StatusRed},
		{"exactly half met is yellow", 2, 4, 0, 0, compliance.StatusYellow},
		{"expired cert outranks everything", 4, 4, 1, 1, compliance.StatusRed},
		{"expired cert with nothing met", 0, 0, 1, 0, compliance.StatusRed},
	}
	for _, tc := range cases {
		if got := compliance.StatusFor(tc.met, tc.total, tc.expired, tc.expiring); got != tc.want {
			t.Errorf("%s: StatusFor(%d, %d, %d, %d) = %s, want %s",
				tc.name, tc.met, tc.total, tc.expired, tc.expiring, got, tc.want)
		}
	}
}

func TestStatusFor_HalfRuleAvoidsFloatBoundary(t *testing.T) {
	// 3 of 7: 2*3 < 7, red. 4 of 7: 2*4 >= 7, yellow.
	if got := compliance.StatusFor(3, 7, 0, 0); got != compliance.StatusRed {
		t.Errorf("3 of 7: expected red, got %s", got)
	}
	if got := compliance.StatusFor(4, 7, 0, 0); got != compliance.StatusYellow {
		t.Errorf("4 of 7: expected yellow, got %s", got)
	}
}

// =============================================================================
// PER-MEMBER SUMMARY
// =============================================================================

func TestEvaluateMember_ExpiredCertForcesRedDespiteAllMet(t *testing.T) {
	// GIVEN: A member who meets all four requirements but holds one expired
	//        certification
	// WHEN: Building the compliance result
	// THEN: Status is red; the expired cert cannot be outranked

	member := compliance.Member{ID: "m1", OrganizationID: "org1", Roles: []string{"firefighter"}}
	today := d(2025, time.June, 1)

	reqs := []*compliance.Requirement{
		annualHoursReq("hours", 10),
		annualHoursReq("hours-2", 5),
		annualHoursReq("hours-3", 2),
		annualHoursReq("hours-4", 1),
	}

	records := []compliance.TrainingRecord{
		completedHours(d(2025, time.February, 1), 12),
		certRecord("emt-b", d(2022, time.January, 1), d(2024, time.January, 1)),
	}

	result := newEvaluator().EvaluateMember(member, reqs, records, nil, today)

	if result.RequirementsMet != 4 || result.RequirementsTotal != 4 {
		t.Fatalf("expected 4 of 4 met, got %d of %d", result.RequirementsMet, result.RequirementsTotal)
	}
	if result.CertsExpired != 1 {
		t.Fatalf("expected 1 expired cert, got %d", result.CertsExpired)
	}
	if result.Status != compliance.StatusRed {
		t.Errorf("expected red, got %s", result.Status)
	}
}

func TestEvaluateMember_CountsOnlyApplicableRequirements(t *testing.T) {
	member := compliance.Member{ID: "m1", OrganizationID: "org1", Roles: []string{"firefighter"}}

	applicable := annualHoursReq("all", 1)
	officerOnly := annualHoursReq("officer", 1)
	officerOnly.AppliesToAll = false
	officerOnly.RequiredRoles = []string{"officer"}

	result := newEvaluator().EvaluateMember(member,
		[]*compliance.Requirement{applicable, officerOnly},
		[]compliance.TrainingRecord{completedHours(d(2025, time.March, 1), 2)},
		nil, d(2025, time.June, 1))

	if result.RequirementsTotal != 1 {
		t.Errorf("expected only the applicable requirement counted, got total %d", result.RequirementsTotal)
	}
	if result.Status != compliance.StatusGreen {
		t.Errorf("expected green, got %s", result.Status)
	}
}

func TestEvaluateMember_SumsCurrentYearHoursAndCountsCerts(t *testing.T) {
	member := compliance.Member{ID: "m1", OrganizationID: "org1"}
	today := d(2025, time.June, 1)

	current := certRecord("emt-b", d(2025, time.January, 10), d(2027, time.January, 10))
	current.HoursCompleted = dec(8)
	expiring := certRecord("emt-adv", d(2023, time.July, 1), d(2025, time.July, 1))
	lastYear := completedHours(d(2024, time.November, 1), 6)

	result := newEvaluator().EvaluateMember(member, nil,
		[]compliance.TrainingRecord{current, expiring, lastYear}, nil, today)

	if !result.HoursThisYear.Equal(dec(8)) {
		t.Errorf("expected 8 hours this year, got %s", result.HoursThisYear)
	}
	if result.ActiveCertifications != 2 {
		t.Errorf("expected 2 active certifications (expiring-soon still held), got %d", result.ActiveCertifications)
	}
	if result.CertsExpiringSoon != 1 {
		t.Errorf("expected 1 expiring soon, got %d", result.CertsExpiringSoon)
	}
	if result.Status != compliance.StatusYellow {
		t.Errorf("expected yellow from the expiring cert, got %s", result.Status)
	}
}
