// internal/models/user.go
package models

// Role tags an authenticated identity. The set is closed: authorization
// switches on this tag, never on structural type inspection.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleOfficer   Role = "officer"
	RoleManager   Role = "manager"
)

// MaritalStatus of a user, as captured at registration.
type MaritalStatus string

const (
	Married MaritalStatus = "Married"
	Single  MaritalStatus = "Single"
)

// User is a registered portal user keyed by NRIC. Officers carry the same
// applicant attributes (age, marital status) as plain applicants because an
// officer may hold an application of its own; managers never apply.
type User struct {
	NRIC          string        `json:"nric" db:"nric"`
	Name          string        `json:"name" db:"name"`
	Age           int           `json:"age" db:"age"`
	MaritalStatus MaritalStatus `json:"maritalStatus" db:"marital_status"`
	Role          Role          `json:"role" db:"role"`
	Email         string        `json:"email,omitempty" db:"email"`
	Phone         string        `json:"phone,omitempty" db:"phone"`
	PasswordHash  string        `json:"-" db:"password_hash"`
}

// CanApply reports whether this user may submit flat applications.
func (u *User) CanApply() bool {
	return u.Role == RoleApplicant || u.Role == RoleOfficer
}

// Identity derives the gate-facing principal for the user. It intentionally
// carries no credential material.
func (u *User) Identity() Identity {
	return Identity{NRIC: u.NRIC, Name: u.Name, Role: u.Role}
}

// Identity is the role-bound principal handed to the access gate after
// authentication.
type Identity struct {
	NRIC string `json:"nric"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}
