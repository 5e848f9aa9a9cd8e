package httpapi

import (
	"net/http"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/core/access"
	"bto-allocation/internal/core/application"
	"bto-allocation/internal/models"
)

type submitApplicationRequest struct {
	ProjectName string          `json:"projectName"`
	FlatType    models.FlatType `json:"flatType"`
}

func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.gate.Authorize(u, access.OpSubmitApplication); err != nil {
		writeError(w, err)
		return
	}
	var req submitApplicationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	app, err := s.applications.Submit(r.Context(), u.NRIC, req.ProjectName, req.FlatType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// handleListApplications serves managers the whole table, or one project's
// slice when ?project= is set. Officers get their handled project only.
func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	project := r.URL.Query().Get("project")

	switch u.Role {
	case models.RoleManager:
		if project != "" {
			writeJSON(w, http.StatusOK, s.applications.ListByProject(r.Context(), project))
			return
		}
		writeJSON(w, http.StatusOK, s.applications.List(r.Context()))
	case models.RoleOfficer:
		handled, ok := s.assignments.ApprovedProjectFor(r.Context(), u.NRIC)
		if !ok || (project != "" && project != handled) {
			writeError(w, apperrors.NewUnauthorizedError("officer may only view their handled project"))
			return
		}
		writeJSON(w, http.StatusOK, s.applications.ListByProject(r.Context(), handled))
	default:
		writeError(w, apperrors.NewUnauthorizedError("applicants view their own application at /applications/mine"))
	}
}

func (s *Server) handleMyApplication(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	app, err := s.applications.ApplicationFor(r.Context(), u.NRIC)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type decisionRequest struct {
	Outcome string `json:"outcome"`
}

func (s *Server) handleDecideApplication(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	appID := r.PathValue("id")

	app, err := s.applications.Application(r.Context(), appID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.gate.AuthorizeProjectDecision(u, app.ProjectName); err != nil {
		writeError(w, err)
		return
	}
	var req decisionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	decided, err := s.applications.Decide(r.Context(), appID, models.ApplicationStatus(req.Outcome))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decided)
}

func (s *Server) handleBookFlat(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.gate.Authorize(u, access.OpBookFlat); err != nil {
		writeError(w, err)
		return
	}
	receipt, err := s.applications.Book(r.Context(), r.PathValue("id"), u.NRIC)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.gate.Authorize(u, access.OpRequestWithdrawal); err != nil {
		writeError(w, err)
		return
	}
	app, err := s.applications.RequestWithdrawal(r.Context(), r.PathValue("id"), u.NRIC)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// handleBookingReport serves managers a receipt row per booked flat,
// optionally narrowed by project, marital status or flat type.
func (s *Server) handleBookingReport(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.gate.Authorize(u, access.OpGenerateReports); err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	rows := s.applications.BookingReport(r.Context(), application.ReportFilter{
		ProjectName:   q.Get("project"),
		MaritalStatus: models.MaritalStatus(q.Get("maritalStatus")),
		FlatType:      models.FlatType(q.Get("flatType")),
	})
	writeJSON(w, http.StatusOK, rows)
}

type withdrawalDecisionRequest struct {
	Approve bool `json:"approve"`
}

func (s *Server) handleDecideWithdrawal(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	appID := r.PathValue("id")

	app, err := s.applications.Application(r.Context(), appID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.gate.AuthorizeProjectDecision(u, app.ProjectName); err != nil {
		writeError(w, err)
		return
	}
	var req withdrawalDecisionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var resolved *models.Application
	if req.Approve {
		resolved, err = s.applications.ApproveWithdrawal(r.Context(), appID)
	} else {
		resolved, err = s.applications.RejectWithdrawal(r.Context(), appID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}
