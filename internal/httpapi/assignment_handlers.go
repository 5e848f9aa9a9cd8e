package httpapi

import (
	"net/http"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/core/access"
	"bto-allocation/internal/models"
)

type assignmentRequest struct {
	ProjectName string `json:"projectName"`
}

func (s *Server) handleRequestAssignment(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.gate.Authorize(u, access.OpRequestAssignment); err != nil {
		writeError(w, err)
		return
	}
	var req assignmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	asg, err := s.assignments.Request(r.Context(), u.NRIC, req.ProjectName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asg)
}

// handleListAssignments gives officers their own requests and managers the
// requests filed against one of their projects.
func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	switch u.Role {
	case models.RoleOfficer:
		writeJSON(w, http.StatusOK, s.assignments.ListByOfficer(r.Context(), u.NRIC))
	case models.RoleManager:
		project := r.URL.Query().Get("project")
		if project == "" {
			writeError(w, apperrors.NewInvalidInputError("project query parameter is required"))
			return
		}
		if err := s.gate.AuthorizeProjectDecision(u, project); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.assignments.ListByProject(r.Context(), project))
	default:
		writeError(w, apperrors.NewUnauthorizedError("applicants have no assignment view"))
	}
}

type assignmentDecisionRequest struct {
	Approve bool `json:"approve"`
}

func (s *Server) handleDecideAssignment(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	asgID := r.PathValue("id")

	asg, err := s.assignments.Assignment(r.Context(), asgID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.gate.AuthorizeProjectDecision(u, asg.ProjectName); err != nil {
		writeError(w, err)
		return
	}
	var req assignmentDecisionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var decided *models.OfficerAssignment
	if req.Approve {
		decided, err = s.assignments.Approve(r.Context(), asgID)
	} else {
		decided, err = s.assignments.Reject(r.Context(), asgID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decided)
}
