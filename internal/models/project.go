// internal/models/project.go
package models

import "time"

// FlatType is a housing-unit category with its own price and unit count.
type FlatType string

const (
	TwoRoom   FlatType = "2-Room"
	ThreeRoom FlatType = "3-Room"
)

// SmallestFlatType is the only category single applicants may apply for.
const SmallestFlatType = TwoRoom

// FlatStock is the remaining inventory and price for one flat type.
// Prices are whole cents so arithmetic stays exact.
type FlatStock struct {
	Units      int   `json:"units"`
	PriceCents int64 `json:"priceCents"`
}

// Project is a BTO launch keyed by its unique name. The project record owns
// its flat inventory and officer-slot bookkeeping exclusively; applications
// and assignments reference it by name only.
type Project struct {
	Name         string                 `json:"name" db:"name"`
	Neighborhood string                 `json:"neighborhood" db:"neighborhood"`
	OpenDate     time.Time              `json:"openDate" db:"open_date"`
	CloseDate    time.Time              `json:"closeDate" db:"close_date"`
	Visible      bool                   `json:"visible" db:"visible"`
	ManagerNRIC  string                 `json:"managerNric" db:"manager_nric"`
	OfficerSlots int                    `json:"officerSlots" db:"officer_slots"`
	OfficerNRICs []string               `json:"officerNrics" db:"officer_nrics"`
	Flats        map[FlatType]FlatStock `json:"flats" db:"flats"`
}

// HasOfficer reports whether the officer is approved on this project.
func (p *Project) HasOfficer(nric string) bool {
	for _, id := range p.OfficerNRICs {
		if id == nric {
			return true
		}
	}
	return false
}

// Offers reports whether the project carries the flat type at all,
// regardless of remaining units.
func (p *Project) Offers(ft FlatType) bool {
	_, ok := p.Flats[ft]
	return ok
}

// Clone returns a deep copy so callers can stage mutations without touching
// the owned record.
func (p *Project) Clone() *Project {
	cp := *p
	cp.OfficerNRICs = append([]string(nil), p.OfficerNRICs...)
	cp.Flats = make(map[FlatType]FlatStock, len(p.Flats))
	for ft, stock := range p.Flats {
		cp.Flats[ft] = stock
	}
	return &cp
}
