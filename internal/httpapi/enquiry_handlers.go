package httpapi

import (
	"net/http"

	"bto-allocation/internal/core/access"
	"bto-allocation/internal/models"
)

type enquiryRequest struct {
	ProjectName string `json:"projectName"`
	Content     string `json:"content"`
}

func (s *Server) handleCreateEnquiry(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.gate.Authorize(u, access.OpCreateEnquiry); err != nil {
		writeError(w, err)
		return
	}
	var req enquiryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.enquiries.Create(r.Context(), u.NRIC, req.ProjectName, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// handleListEnquiries shows applicants their own enquiries; staff see the
// whole table, or one project's slice with ?project=.
func (s *Server) handleListEnquiries(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if u.Role == models.RoleApplicant {
		writeJSON(w, http.StatusOK, s.enquiries.ListByApplicant(r.Context(), u.NRIC))
		return
	}
	if err := s.gate.Authorize(u, access.OpViewAllEnquiries); err != nil {
		writeError(w, err)
		return
	}
	if project := r.URL.Query().Get("project"); project != "" {
		writeJSON(w, http.StatusOK, s.enquiries.ListByProject(r.Context(), project))
		return
	}
	writeJSON(w, http.StatusOK, s.enquiries.ListAll(r.Context()))
}

type enquiryEditRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleEditEnquiry(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.gate.Authorize(u, access.OpEditEnquiry); err != nil {
		writeError(w, err)
		return
	}
	var req enquiryEditRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.enquiries.Edit(r.Context(), r.PathValue("id"), u.NRIC, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEnquiry(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := s.gate.Authorize(u, access.OpDeleteEnquiry); err != nil {
		writeError(w, err)
		return
	}
	if err := s.enquiries.Delete(r.Context(), r.PathValue("id"), u.NRIC); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type replyRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleReplyEnquiry(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	enqID := r.PathValue("id")
	if err := s.gate.AuthorizeReply(u, enqID); err != nil {
		writeError(w, err)
		return
	}
	var req replyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.enquiries.Reply(r.Context(), enqID, u.NRIC, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
