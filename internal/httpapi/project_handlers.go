package httpapi

import (
	"net/http"
	"strconv"
	"time"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/core/access"
	"bto-allocation/internal/models"
	"bto-allocation/internal/search"
)

type projectRequest struct {
	Name         string                               `json:"name"`
	Neighborhood string                               `json:"neighborhood"`
	OpenDate     string                               `json:"openDate"`
	CloseDate    string                               `json:"closeDate"`
	Visible      bool                                 `json:"visible"`
	OfficerSlots int                                  `json:"officerSlots"`
	Flats        map[models.FlatType]models.FlatStock `json:"flats"`
}

func (req *projectRequest) toModel(managerNRIC string) (*models.Project, error) {
	open, err := time.Parse("2006-01-02", req.OpenDate)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("openDate must be YYYY-MM-DD")
	}
	closeDate, err := time.Parse("2006-01-02", req.CloseDate)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("closeDate must be YYYY-MM-DD")
	}
	return &models.Project{
		Name:         req.Name,
		Neighborhood: req.Neighborhood,
		OpenDate:     open,
		CloseDate:    closeDate,
		Visible:      req.Visible,
		ManagerNRIC:  managerNRIC,
		OfficerSlots: req.OfficerSlots,
		Flats:        req.Flats,
	}, nil
}

// handleListProjects serves the role-appropriate view: managers see the full
// table, everyone else sees what they could apply to right now.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.gate.Authorize(u, access.OpBrowseProjects); err != nil {
		writeError(w, err)
		return
	}
	if u.Role == models.RoleManager {
		if r.URL.Query().Get("mine") == "true" {
			writeJSON(w, http.StatusOK, s.projects.ListByManager(r.Context(), u.NRIC))
			return
		}
		writeJSON(w, http.StatusOK, s.projects.List(r.Context()))
		return
	}
	writeJSON(w, http.StatusOK, s.projects.OpenProjectsFor(r.Context(), u, time.Now().UTC()))
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.gate.Authorize(u, access.OpBrowseProjects); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.projects.Project(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	// Hidden projects exist only for staff.
	if !p.Visible && u.Role == models.RoleApplicant {
		writeError(w, apperrors.NewNotFoundError("project", p.Name))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.gate.Authorize(u, access.OpManageProjects); err != nil {
		writeError(w, err)
		return
	}
	var req projectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := req.toModel(u.NRIC)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.projects.CreateProject(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	name := r.PathValue("name")
	if err := s.gate.AuthorizeProjectDecision(u, name); err != nil {
		writeError(w, err)
		return
	}
	var req projectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Name = name
	p, err := req.toModel(u.NRIC)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.projects.UpdateProject(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	updated, err := s.projects.Project(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	name := r.PathValue("name")
	if err := s.gate.AuthorizeProjectDecision(u, name); err != nil {
		writeError(w, err)
		return
	}
	if err := s.projects.DeleteProject(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

func (s *Server) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	name := r.PathValue("name")
	if err := s.gate.AuthorizeProjectDecision(u, name); err != nil {
		writeError(w, err)
		return
	}
	var req visibilityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.projects.SetVisibility(r.Context(), name, req.Visible); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchProjects(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.gate.Authorize(u, access.OpBrowseProjects); err != nil {
		writeError(w, err)
		return
	}
	if s.index == nil {
		writeError(w, apperrors.NewInvalidInputError("search is not enabled"))
		return
	}
	q := search.Query{
		Keywords:     r.URL.Query().Get("q"),
		Neighborhood: r.URL.Query().Get("neighborhood"),
		FlatType:     models.FlatType(r.URL.Query().Get("flatType")),
	}
	if raw := r.URL.Query().Get("maxPriceCents"); raw != "" {
		maxPrice, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, apperrors.NewInvalidInputError("maxPriceCents must be an integer"))
			return
		}
		q.MaxPrice = maxPrice
	}
	results, err := s.index.Search(r.Context(), q)
	if err != nil {
		writeError(w, apperrors.NewStoreFailureError(err))
		return
	}
	writeJSON(w, http.StatusOK, results)
}
