// internal/models/application.go
package models

import "time"

// ApplicationStatus is the lifecycle position of a flat application.
//
//	Pending -> Successful | Unsuccessful
//	Successful -> Booked
//	Pending | Successful -> Withdrawn (via approved withdrawal request)
//
// Unsuccessful, Booked and Withdrawn are terminal.
type ApplicationStatus string

const (
	StatusPending      ApplicationStatus = "pending"
	StatusSuccessful   ApplicationStatus = "successful"
	StatusUnsuccessful ApplicationStatus = "unsuccessful"
	StatusBooked       ApplicationStatus = "booked"
	StatusWithdrawn    ApplicationStatus = "withdrawn"
)

// Terminal reports whether no further transition is possible.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusUnsuccessful || s == StatusBooked || s == StatusWithdrawn
}

// Application is one applicant's bid for a flat type in a project.
type Application struct {
	ID                  string            `json:"id" db:"id"`
	ApplicantNRIC       string            `json:"applicantNric" db:"applicant_nric"`
	ProjectName         string            `json:"projectName" db:"project_name"`
	FlatType            FlatType          `json:"flatType" db:"flat_type"`
	Status              ApplicationStatus `json:"status" db:"status"`
	BookedBy            string            `json:"bookedBy,omitempty" db:"booked_by"`
	WithdrawalRequested bool              `json:"withdrawalRequested" db:"withdrawal_requested"`
	CreatedAt           time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time         `json:"updatedAt" db:"updated_at"`
}

// Active reports whether this application blocks the applicant from
// submitting another one.
func (a *Application) Active() bool {
	return !a.Status.Terminal()
}

// Clone returns a copy safe to stage mutations on.
func (a *Application) Clone() *Application {
	cp := *a
	return &cp
}

// BookingReceipt is produced when an officer books a flat on behalf of a
// successful applicant.
type BookingReceipt struct {
	ApplicationID string        `json:"applicationId"`
	ApplicantNRIC string        `json:"applicantNric"`
	ApplicantName string        `json:"applicantName"`
	Age           int           `json:"age"`
	MaritalStatus MaritalStatus `json:"maritalStatus"`
	ProjectName   string        `json:"projectName"`
	Neighborhood  string        `json:"neighborhood"`
	FlatType      FlatType      `json:"flatType"`
	PriceCents    int64         `json:"priceCents"`
	BookedBy      string        `json:"bookedBy"`
	BookedAt      time.Time     `json:"bookedAt"`
}
