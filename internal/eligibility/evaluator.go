// server/internal/eligibility/evaluator.go
package eligibility

import (
	"fmt"
	"time"

	"freight-bid-api-server/internal/models"
)

// hoursPerYear uses the Julian-year approximation, matching how license
// tenure is presented to truckers elsewhere in the product.
const hoursPerYear = 365.25 * 24

// Result is the outcome of an eligibility evaluation. Reasons lists every
// failing check, not just the first, so a caller can present all deficiencies
// at once.
type Result struct {
	IsEligible bool     `json:"isEligible"`
	Reasons    []string `json:"reasons"`
}

// Evaluate compares a trucker's safety profile against a load's posted
// criteria, relative to the given reference time. Absent criteria impose no
// constraint. The function is pure: it never mutates state and knows nothing
// about bid or load status.
func Evaluate(trucker *models.Trucker, criteria *models.EligibilityCriteria, now time.Time) Result {
	result := Result{IsEligible: true}
	if criteria == nil {
		return result
	}

	fail := func(reason string) {
		result.IsEligible = false
		result.Reasons = append(result.Reasons, reason)
	}

	if criteria.MaxAccidentHistory != nil {
		accidents := 0
		if trucker.AccidentHistory.HasAccidents {
			accidents = len(trucker.AccidentHistory.Details)
		}
		if accidents > *criteria.MaxAccidentHistory {
			fail(fmt.Sprintf("You have %d accidents in your history, but the maximum allowed is %d",
				accidents, *criteria.MaxAccidentHistory))
		}
	}

	if criteria.MaxTheftComplaints != nil {
		complaints := 0
		if trucker.TheftComplaints.HasComplaints {
			complaints = len(trucker.TheftComplaints.Details)
		}
		if complaints > *criteria.MaxTheftComplaints {
			fail(fmt.Sprintf("You have %d theft complaints in your history, but the maximum allowed is %d",
				complaints, *criteria.MaxTheftComplaints))
		}
	}

	if criteria.MaxTruckAge != nil {
		truckAge := now.Year() - trucker.Truck.Year
		if truckAge > *criteria.MaxTruckAge {
			fail(fmt.Sprintf("Your truck is %d years old, but the maximum age allowed is %d years",
				truckAge, *criteria.MaxTruckAge))
		}
	}

	if criteria.MinExperienceYears != nil {
		experienceYears := int(now.Sub(trucker.DriverLicense.IssueDate).Hours() / hoursPerYear)
		if experienceYears < *criteria.MinExperienceYears {
			fail(fmt.Sprintf("You have %d years of driving experience, but the minimum required is %d years",
				experienceYears, *criteria.MinExperienceYears))
		}
	}

	return result
}
