package eligibility

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"freight-bid-api-server/internal/models"
)

func intPtr(v int) *int { return &v }

func testTrucker(accidents, complaints int, truckYear int, licenseIssued time.Time) *models.Trucker {
	t := &models.Trucker{}
	t.Truck.Year = truckYear
	t.DriverLicense.IssueDate = licenseIssued
	if accidents > 0 {
		t.AccidentHistory.HasAccidents = true
		t.AccidentHistory.Details = make([]models.AccidentRecord, accidents)
	}
	if complaints > 0 {
		t.TheftComplaints.HasComplaints = true
		t.TheftComplaints.Details = make([]models.ComplaintRecord, complaints)
	}
	return t
}

func TestEvaluateNoCriteria(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	trucker := testTrucker(5, 5, 1990, now.AddDate(-1, 0, 0))

	result := Evaluate(trucker, nil, now)
	if !result.IsEligible {
		t.Fatalf("expected eligible with nil criteria, got reasons %v", result.Reasons)
	}

	result = Evaluate(trucker, &models.EligibilityCriteria{}, now)
	if !result.IsEligible {
		t.Fatalf("expected eligible with empty criteria, got reasons %v", result.Reasons)
	}
}

func TestEvaluateCollectsAllFailingReasons(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	// 2 accidents, truck from 2020 (6 years old), 3 years of license tenure.
	trucker := testTrucker(2, 0, 2020, now.AddDate(-3, 0, 0))
	criteria := &models.EligibilityCriteria{
		MaxAccidentHistory: intPtr(1),
		MaxTruckAge:        intPtr(5),
		MinExperienceYears: intPtr(5),
	}

	result := Evaluate(trucker, criteria, now)
	if result.IsEligible {
		t.Fatal("expected ineligible")
	}
	if len(result.Reasons) != 3 {
		t.Fatalf("expected exactly 3 reasons, got %d: %v", len(result.Reasons), result.Reasons)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	trucker := testTrucker(3, 2, 2018, now.AddDate(-2, 0, 0))
	criteria := &models.EligibilityCriteria{
		MaxAccidentHistory: intPtr(0),
		MaxTheftComplaints: intPtr(0),
		MaxTruckAge:        intPtr(4),
		MinExperienceYears: intPtr(10),
	}

	first := Evaluate(trucker, criteria, now)
	second := Evaluate(trucker, criteria, now)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("evaluation not deterministic: %v vs %v", first, second)
	}
	if len(first.Reasons) != 4 {
		t.Fatalf("expected 4 reasons, got %v", first.Reasons)
	}
}

func TestEvaluatePassesAtThreshold(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	// Exactly at every limit: counts equal to max and tenure equal to min pass.
	trucker := testTrucker(1, 1, 2021, now.AddDate(-5, 0, -2))
	criteria := &models.EligibilityCriteria{
		MaxAccidentHistory: intPtr(1),
		MaxTheftComplaints: intPtr(1),
		MaxTruckAge:        intPtr(5),
		MinExperienceYears: intPtr(5),
	}

	result := Evaluate(trucker, criteria, now)
	if !result.IsEligible {
		t.Fatalf("expected eligible at exact thresholds, got %v", result.Reasons)
	}
}

func TestEvaluateLicenseTenureReason(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	// License issued 4 years ago against a 5-year minimum.
	trucker := testTrucker(0, 0, now.Year(), now.AddDate(-4, 0, 0))
	criteria := &models.EligibilityCriteria{MinExperienceYears: intPtr(5)}

	result := Evaluate(trucker, criteria, now)
	if result.IsEligible {
		t.Fatal("expected ineligible")
	}
	if len(result.Reasons) != 1 {
		t.Fatalf("expected 1 reason, got %v", result.Reasons)
	}
	reason := result.Reasons[0]
	if !strings.Contains(reason, "4") || !strings.Contains(reason, "5") {
		t.Fatalf("reason should mention actual and required tenure, got %q", reason)
	}
}

func TestEvaluateTenureUsesJulianYears(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	// 5 calendar years minus a day is still 4 whole Julian years.
	trucker := testTrucker(0, 0, now.Year(), now.AddDate(-5, 0, 1))
	criteria := &models.EligibilityCriteria{MinExperienceYears: intPtr(5)}

	result := Evaluate(trucker, criteria, now)
	if result.IsEligible {
		t.Fatal("expected ineligible just under the five-year mark")
	}
}

func TestEvaluateIgnoresDetailsWhenFlagUnset(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	trucker := testTrucker(0, 0, now.Year(), now.AddDate(-20, 0, 0))
	// Stale detail rows without the flag should not count.
	trucker.AccidentHistory.Details = make([]models.AccidentRecord, 3)
	criteria := &models.EligibilityCriteria{MaxAccidentHistory: intPtr(0)}

	result := Evaluate(trucker, criteria, now)
	if !result.IsEligible {
		t.Fatalf("expected eligible, got %v", result.Reasons)
	}
}
