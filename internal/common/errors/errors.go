// Package errors provides the typed failure taxonomy for the allocation core.
// Every core operation returns either a success value or exactly one of these
// kinds; callers branch on the code to render role-appropriate messages.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Business-rule failures surfaced by the allocation core.
const (
	ErrCodeAlreadyHasActiveApplication ErrorCode = "ALREADY_HAS_ACTIVE_APPLICATION"
	ErrCodeProjectClosed               ErrorCode = "PROJECT_CLOSED"
	ErrCodeIneligible                  ErrorCode = "INELIGIBLE"
	ErrCodeNoUnitsAvailable            ErrorCode = "NO_UNITS_AVAILABLE"
	ErrCodeInsufficientInventory       ErrorCode = "INSUFFICIENT_INVENTORY"
	ErrCodeInvalidTransition           ErrorCode = "INVALID_TRANSITION"
	ErrCodeOfficerAlreadyAssigned      ErrorCode = "OFFICER_ALREADY_ASSIGNED"
	ErrCodeNoSlotsAvailable            ErrorCode = "NO_SLOTS_AVAILABLE"
	ErrCodeAlreadyReplied              ErrorCode = "ALREADY_REPLIED"
	ErrCodeNotFound                    ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized                ErrorCode = "UNAUTHORIZED"
)

// Infrastructure failures raised by the collaborators around the core.
const (
	ErrCodeStoreFailure      ErrorCode = "STORE_FAILURE"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidCredential ErrorCode = "INVALID_CREDENTIAL"
	ErrCodeProjectInUse      ErrorCode = "PROJECT_IN_USE"
)

// DomainError is a structured application error.
type DomainError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("DomainError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the error code, or "" when err is not a DomainError.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ==========================
// Constructors
// ==========================

// NewAlreadyHasActiveApplicationError rejects a second concurrent application.
func NewAlreadyHasActiveApplicationError(applicantNRIC string) *DomainError {
	return &DomainError{
		Code:      ErrCodeAlreadyHasActiveApplication,
		Message:   "Applicant already holds an active application",
		Details:   fmt.Sprintf("applicant: %s", applicantNRIC),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProjectClosedError rejects a submission outside the application window.
func NewProjectClosedError(project string) *DomainError {
	return &DomainError{
		Code:      ErrCodeProjectClosed,
		Message:   "Project is not open for application",
		Details:   fmt.Sprintf("project: %s", project),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIneligibleError rejects an applicant the eligibility rules exclude.
func NewIneligibleError(details string) *DomainError {
	return &DomainError{
		Code:      ErrCodeIneligible,
		Message:   "Applicant is not eligible for this flat type",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoUnitsAvailableError rejects a submission for an exhausted flat type.
func NewNoUnitsAvailableError(project string, flatType string) *DomainError {
	return &DomainError{
		Code:      ErrCodeNoUnitsAvailable,
		Message:   "No units remaining for the requested flat type",
		Details:   fmt.Sprintf("project: %s, flatType: %s", project, flatType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInsufficientInventoryError fails a unit reservation at booking time.
func NewInsufficientInventoryError(project string, flatType string) *DomainError {
	return &DomainError{
		Code:      ErrCodeInsufficientInventory,
		Message:   "Inventory exhausted before booking",
		Details:   fmt.Sprintf("project: %s, flatType: %s", project, flatType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError rejects a state-machine move that is not legal
// from the current status.
func NewInvalidTransitionError(from, to string) *DomainError {
	return &DomainError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Illegal application status transition",
		Details:   fmt.Sprintf("from: %s, to: %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOfficerAlreadyAssignedError enforces officer exclusivity.
func NewOfficerAlreadyAssignedError(officerNRIC string) *DomainError {
	return &DomainError{
		Code:      ErrCodeOfficerAlreadyAssigned,
		Message:   "Officer already holds an approved assignment",
		Details:   fmt.Sprintf("officer: %s", officerNRIC),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoSlotsAvailableError rejects approval on a fully staffed project.
func NewNoSlotsAvailableError(project string) *DomainError {
	return &DomainError{
		Code:      ErrCodeNoSlotsAvailable,
		Message:   "No officer slots remaining on project",
		Details:   fmt.Sprintf("project: %s", project),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyRepliedError freezes a replied enquiry.
func NewAlreadyRepliedError(enquiryID string) *DomainError {
	return &DomainError{
		Code:      ErrCodeAlreadyReplied,
		Message:   "Enquiry has already been replied to",
		Details:   fmt.Sprintf("enquiry: %s", enquiryID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError reports an unknown id reference.
func NewNotFoundError(kind, id string) *DomainError {
	return &DomainError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", kind),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError is raised by the access gate before the core is reached.
func NewUnauthorizedError(details string) *DomainError {
	return &DomainError{
		Code:      ErrCodeUnauthorized,
		Message:   "Identity is not permitted to perform this operation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreFailureError wraps a persistence collaborator failure.
func NewStoreFailureError(err error) *DomainError {
	return &DomainError{
		Code:      ErrCodeStoreFailure,
		Message:   "Persistence operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidInputError rejects malformed caller input before any rule runs.
func NewInvalidInputError(details string) *DomainError {
	return &DomainError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCredentialError reports a failed password verification.
func NewInvalidCredentialError() *DomainError {
	return &DomainError{
		Code:      ErrCodeInvalidCredential,
		Message:   "Invalid NRIC or password",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProjectInUseError refuses deletion of a referenced project.
func NewProjectInUseError(project, details string) *DomainError {
	return &DomainError{
		Code:      ErrCodeProjectInUse,
		Message:   "Project is referenced by live records",
		Details:   fmt.Sprintf("project: %s, %s", project, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
