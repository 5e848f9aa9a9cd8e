// Package eligibility holds the pure age and marital-status rules for flat
// applications. The rules take effect at submission time only; a later
// birthday never invalidates an application already on the books.
package eligibility

import "bto-allocation/internal/models"

const (
	MinAgeMarried = 21
	MinAgeSingle  = 35
)

// IsEligible reports whether the applicant may apply for the given flat type.
// Married applicants aged 21 and above may take any flat type a project
// offers. Single applicants aged 35 and above are limited to the smallest
// flat type. Everyone else is ineligible.
func IsEligible(u *models.User, ft models.FlatType) bool {
	switch u.MaritalStatus {
	case models.Married:
		return u.Age >= MinAgeMarried
	case models.Single:
		return u.Age >= MinAgeSingle && ft == models.SmallestFlatType
	default:
		return false
	}
}

// EligibleFlatTypes lists the flat types the applicant could apply for,
// independent of any particular project's offerings. Empty when the
// applicant is ineligible across the board.
func EligibleFlatTypes(u *models.User) []models.FlatType {
	var out []models.FlatType
	for _, ft := range []models.FlatType{models.TwoRoom, models.ThreeRoom} {
		if IsEligible(u, ft) {
			out = append(out, ft)
		}
	}
	return out
}
