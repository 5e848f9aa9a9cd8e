// Package httpapi exposes the allocation core over JSON HTTP. Every route
// except login sits behind the session middleware, and role checks go
// through the access gate before any service is touched.
package httpapi

import (
	"context"
	"net/http"

	"bto-allocation/internal/auth"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/core/access"
	"bto-allocation/internal/core/application"
	"bto-allocation/internal/core/assignment"
	"bto-allocation/internal/core/enquiry"
	"bto-allocation/internal/core/inventory"
	"bto-allocation/internal/models"
	"bto-allocation/internal/search"
)

type Server struct {
	auth         *auth.Service
	gate         *access.Gate
	projects     *inventory.Service
	applications *application.Service
	assignments  *assignment.Service
	enquiries    *enquiry.Service
	index        *search.ProjectIndex
	log          logger.Logger
}

type Deps struct {
	Auth         *auth.Service
	Gate         *access.Gate
	Projects     *inventory.Service
	Applications *application.Service
	Assignments  *assignment.Service
	Enquiries    *enquiry.Service
	Index        *search.ProjectIndex
	Logger       logger.Logger
}

func NewServer(d Deps) *Server {
	return &Server{
		auth:         d.Auth,
		gate:         d.Gate,
		projects:     d.Projects,
		applications: d.Applications,
		assignments:  d.Assignments,
		enquiries:    d.Enquiries,
		index:        d.Index,
		log:          d.Logger.WithFields(map[string]interface{}{"component": "httpapi"}),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", s.withUser(s.handleLogout))
	mux.HandleFunc("POST /api/v1/auth/password", s.withUser(s.handleChangePassword))

	mux.HandleFunc("GET /api/v1/projects", s.withUser(s.handleListProjects))
	mux.HandleFunc("GET /api/v1/projects/search", s.withUser(s.handleSearchProjects))
	mux.HandleFunc("GET /api/v1/projects/{name}", s.withUser(s.handleGetProject))
	mux.HandleFunc("POST /api/v1/projects", s.withUser(s.handleCreateProject))
	mux.HandleFunc("PUT /api/v1/projects/{name}", s.withUser(s.handleUpdateProject))
	mux.HandleFunc("DELETE /api/v1/projects/{name}", s.withUser(s.handleDeleteProject))
	mux.HandleFunc("POST /api/v1/projects/{name}/visibility", s.withUser(s.handleSetVisibility))

	mux.HandleFunc("POST /api/v1/applications", s.withUser(s.handleSubmitApplication))
	mux.HandleFunc("GET /api/v1/applications", s.withUser(s.handleListApplications))
	mux.HandleFunc("GET /api/v1/applications/mine", s.withUser(s.handleMyApplication))
	mux.HandleFunc("POST /api/v1/applications/{id}/decision", s.withUser(s.handleDecideApplication))
	mux.HandleFunc("POST /api/v1/applications/{id}/book", s.withUser(s.handleBookFlat))
	mux.HandleFunc("POST /api/v1/applications/{id}/withdrawal", s.withUser(s.handleRequestWithdrawal))
	mux.HandleFunc("POST /api/v1/applications/{id}/withdrawal/decision", s.withUser(s.handleDecideWithdrawal))

	mux.HandleFunc("POST /api/v1/assignments", s.withUser(s.handleRequestAssignment))
	mux.HandleFunc("GET /api/v1/assignments", s.withUser(s.handleListAssignments))
	mux.HandleFunc("POST /api/v1/assignments/{id}/decision", s.withUser(s.handleDecideAssignment))

	mux.HandleFunc("POST /api/v1/enquiries", s.withUser(s.handleCreateEnquiry))
	mux.HandleFunc("GET /api/v1/enquiries", s.withUser(s.handleListEnquiries))
	mux.HandleFunc("PUT /api/v1/enquiries/{id}", s.withUser(s.handleEditEnquiry))
	mux.HandleFunc("DELETE /api/v1/enquiries/{id}", s.withUser(s.handleDeleteEnquiry))
	mux.HandleFunc("POST /api/v1/enquiries/{id}/reply", s.withUser(s.handleReplyEnquiry))

	mux.HandleFunc("GET /api/v1/reports/bookings", s.withUser(s.handleBookingReport))

	mux.HandleFunc("GET /healthz", s.handleHealth)

	return mux
}

type contextKey string

const userKey contextKey = "user"

// withUser resolves the bearer token to a user record and stores it on the
// request context.
func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "missing session token")
			return
		}
		u, err := s.auth.Resolve(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	}
}

func currentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
