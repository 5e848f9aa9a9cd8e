// Package inventory covers the project table: flat stock accounting, the
// application window, and officer slot bookkeeping, plus the manager-facing
// project lifecycle operations.
package inventory

import (
	"fmt"
	"time"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/models"
)

// IsOpenForApplication reports whether the project accepts applications at
// the given instant. The window is half-open: the open date counts, the
// close date does not. Hidden projects are closed regardless of dates.
func IsOpenForApplication(p *models.Project, asOf time.Time) bool {
	if !p.Visible {
		return false
	}
	return !asOf.Before(p.OpenDate) && asOf.Before(p.CloseDate)
}

// UnitsRemaining returns the current unit count for a flat type, zero when
// the project does not offer it.
func UnitsRemaining(p *models.Project, ft models.FlatType) int {
	return p.Flats[ft].Units
}

// ReserveUnit decrements the stock for one flat type on the given project
// copy. The count never goes below zero.
func ReserveUnit(p *models.Project, ft models.FlatType) error {
	stock, ok := p.Flats[ft]
	if !ok {
		return apperrors.NewNoUnitsAvailableError(p.Name, string(ft))
	}
	if stock.Units <= 0 {
		return apperrors.NewInsufficientInventoryError(p.Name, string(ft))
	}
	stock.Units--
	p.Flats[ft] = stock
	return nil
}

// ReleaseUnit returns one unit of stock, undoing a reservation when a booked
// application is withdrawn.
func ReleaseUnit(p *models.Project, ft models.FlatType) error {
	stock, ok := p.Flats[ft]
	if !ok {
		return apperrors.NewNoUnitsAvailableError(p.Name, string(ft))
	}
	stock.Units++
	p.Flats[ft] = stock
	return nil
}

// RemainingOfficerSlots counts slots not yet taken by approved officers.
func RemainingOfficerSlots(p *models.Project) int {
	n := p.OfficerSlots - len(p.OfficerNRICs)
	if n < 0 {
		return 0
	}
	return n
}

// ValidateProject checks the structural rules a project must satisfy before
// it enters the table.
func ValidateProject(p *models.Project) error {
	if p.Name == "" {
		return apperrors.NewInvalidInputError("project name is required")
	}
	if p.Neighborhood == "" {
		return apperrors.NewInvalidInputError("neighborhood is required")
	}
	if p.ManagerNRIC == "" {
		return apperrors.NewInvalidInputError("manager NRIC is required")
	}
	if !p.CloseDate.After(p.OpenDate) {
		return apperrors.NewInvalidInputError("close date must be after open date")
	}
	if p.OfficerSlots < 0 {
		return apperrors.NewInvalidInputError("officer slots must not be negative")
	}
	if len(p.Flats) == 0 {
		return apperrors.NewInvalidInputError("project must offer at least one flat type")
	}
	for ft, stock := range p.Flats {
		if ft != models.TwoRoom && ft != models.ThreeRoom {
			return apperrors.NewInvalidInputError(fmt.Sprintf("unknown flat type %q", ft))
		}
		if stock.Units < 0 {
			return apperrors.NewInvalidInputError(fmt.Sprintf("%s units must not be negative", ft))
		}
		if stock.PriceCents < 0 {
			return apperrors.NewInvalidInputError(fmt.Sprintf("%s price must not be negative", ft))
		}
	}
	return nil
}
