// internal/models/assignment.go
package models

import "time"

// AssignmentStatus tracks an officer's registration request for a project.
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentApproved AssignmentStatus = "approved"
	AssignmentRejected AssignmentStatus = "rejected"
)

// OfficerAssignment links an officer to a project. An officer holds at most
// one approved assignment at any time; pending requests may exist on several
// projects but approving one voids the rest.
type OfficerAssignment struct {
	ID          string           `json:"id" db:"id"`
	OfficerNRIC string           `json:"officerNric" db:"officer_nric"`
	ProjectName string           `json:"projectName" db:"project_name"`
	Status      AssignmentStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// Clone returns a copy safe to stage mutations on.
func (a *OfficerAssignment) Clone() *OfficerAssignment {
	cp := *a
	return &cp
}
