// Package access is the single authorization chokepoint in front of the
// core services. Every check resolves from the caller's role tag and the
// current tables; a refusal here means the underlying operation never runs.
package access

import (
	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/models"
	"bto-allocation/internal/tables"
)

// Operation names an action a caller may attempt.
type Operation string

const (
	OpBrowseProjects     Operation = "browse-projects"
	OpSubmitApplication  Operation = "submit-application"
	OpRequestWithdrawal  Operation = "request-withdrawal"
	OpCreateEnquiry      Operation = "create-enquiry"
	OpEditEnquiry        Operation = "edit-enquiry"
	OpDeleteEnquiry      Operation = "delete-enquiry"
	OpRequestAssignment  Operation = "request-assignment"
	OpBookFlat           Operation = "book-flat"
	OpManageProjects     Operation = "manage-projects"
	OpDecideApplication  Operation = "decide-application"
	OpDecideWithdrawal   Operation = "decide-withdrawal"
	OpDecideAssignment   Operation = "decide-assignment"
	OpViewAllEnquiries   Operation = "view-all-enquiries"
	OpGenerateReports    Operation = "generate-reports"
)

// roleOps maps each operation to the roles allowed to attempt it. Officers
// keep every applicant capability on top of their own.
var roleOps = map[Operation]map[models.Role]bool{
	OpBrowseProjects:    {models.RoleApplicant: true, models.RoleOfficer: true, models.RoleManager: true},
	OpSubmitApplication: {models.RoleApplicant: true, models.RoleOfficer: true},
	OpRequestWithdrawal: {models.RoleApplicant: true, models.RoleOfficer: true},
	OpCreateEnquiry:     {models.RoleApplicant: true, models.RoleOfficer: true},
	OpEditEnquiry:       {models.RoleApplicant: true, models.RoleOfficer: true},
	OpDeleteEnquiry:     {models.RoleApplicant: true, models.RoleOfficer: true},
	OpRequestAssignment: {models.RoleOfficer: true},
	OpBookFlat:          {models.RoleOfficer: true},
	OpManageProjects:    {models.RoleManager: true},
	OpDecideApplication: {models.RoleManager: true},
	OpDecideWithdrawal:  {models.RoleManager: true},
	OpDecideAssignment:  {models.RoleManager: true},
	OpViewAllEnquiries:  {models.RoleOfficer: true, models.RoleManager: true},
	OpGenerateReports:   {models.RoleManager: true},
}

// Gate answers authorization questions for the transport layer.
type Gate struct {
	tables *tables.Tables
}

func NewGate(t *tables.Tables) *Gate {
	return &Gate{tables: t}
}

// Authorize refuses the operation unless the caller's role permits it.
func (g *Gate) Authorize(u *models.User, op Operation) error {
	allowed, known := roleOps[op]
	if !known || !allowed[u.Role] {
		return apperrors.NewUnauthorizedError(string(u.Role) + " may not " + string(op))
	}
	return nil
}

// AuthorizeReply clears a caller to answer one specific enquiry: the manager
// of the enquiry's project, or an officer on its roster.
func (g *Gate) AuthorizeReply(u *models.User, enquiryID string) error {
	e, ok := g.tables.Enquiry(enquiryID)
	if !ok {
		return apperrors.NewNotFoundError("enquiry", enquiryID)
	}
	p, ok := g.tables.Project(e.ProjectName)
	if !ok {
		return apperrors.NewNotFoundError("project", e.ProjectName)
	}
	switch u.Role {
	case models.RoleManager:
		if p.ManagerNRIC == u.NRIC {
			return nil
		}
	case models.RoleOfficer:
		if p.HasOfficer(u.NRIC) {
			return nil
		}
	}
	return apperrors.NewUnauthorizedError("caller does not handle project " + e.ProjectName)
}

// AuthorizeProjectDecision clears a manager to rule on records belonging to
// a project they own.
func (g *Gate) AuthorizeProjectDecision(u *models.User, projectName string) error {
	if u.Role != models.RoleManager {
		return apperrors.NewUnauthorizedError(string(u.Role) + " may not decide for a project")
	}
	p, ok := g.tables.Project(projectName)
	if !ok {
		return apperrors.NewNotFoundError("project", projectName)
	}
	if p.ManagerNRIC != u.NRIC {
		return apperrors.NewUnauthorizedError("project belongs to another manager")
	}
	return nil
}
