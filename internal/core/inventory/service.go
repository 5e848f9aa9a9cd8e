package inventory

import (
	"context"
	"time"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/core/eligibility"
	"bto-allocation/internal/models"
	"bto-allocation/internal/tables"
)

// ProjectIndexer mirrors project records into the search backend. Index
// failures are logged, not surfaced; the tables stay the source of truth.
type ProjectIndexer interface {
	IndexProject(ctx context.Context, p *models.Project) error
	RemoveProject(ctx context.Context, name string) error
}

// Service carries the manager-facing project lifecycle.
type Service struct {
	tables  *tables.Tables
	indexer ProjectIndexer
	log     logger.Logger
}

func NewService(t *tables.Tables, indexer ProjectIndexer, log logger.Logger) *Service {
	return &Service{
		tables:  t,
		indexer: indexer,
		log:     log.WithFields(map[string]interface{}{"component": "inventory"}),
	}
}

// CreateProject validates and registers a new project. Project names are the
// table key, so a duplicate name is refused.
func (s *Service) CreateProject(ctx context.Context, p *models.Project) error {
	if err := ValidateProject(p); err != nil {
		return err
	}
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		if _, exists := tx.Project(p.Name); exists {
			return apperrors.NewInvalidInputError("project name already in use: " + p.Name)
		}
		if _, ok := tx.User(p.ManagerNRIC); !ok {
			return apperrors.NewNotFoundError("user", p.ManagerNRIC)
		}
		tx.PutProject(p)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("project created", map[string]interface{}{
		"project": p.Name,
		"manager": p.ManagerNRIC,
	})
	s.index(ctx, p)
	return nil
}

// UpdateProject replaces the mutable fields of an existing project. The
// officer roster and name are not touched here; the roster belongs to the
// assignment workflow.
func (s *Service) UpdateProject(ctx context.Context, p *models.Project) error {
	if err := ValidateProject(p); err != nil {
		return err
	}
	var updated *models.Project
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		current, ok := tx.Project(p.Name)
		if !ok {
			return apperrors.NewNotFoundError("project", p.Name)
		}
		current.Neighborhood = p.Neighborhood
		current.OpenDate = p.OpenDate
		current.CloseDate = p.CloseDate
		current.OfficerSlots = p.OfficerSlots
		current.Flats = p.Flats
		if current.OfficerSlots < len(current.OfficerNRICs) {
			return apperrors.NewInvalidInputError("officer slots below current roster size")
		}
		tx.PutProject(current)
		updated = current
		return nil
	})
	if err != nil {
		return err
	}
	s.index(ctx, updated)
	return nil
}

// SetVisibility toggles whether applicants can see and apply to the project.
func (s *Service) SetVisibility(ctx context.Context, name string, visible bool) error {
	var updated *models.Project
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		p, ok := tx.Project(name)
		if !ok {
			return apperrors.NewNotFoundError("project", name)
		}
		p.Visible = visible
		tx.PutProject(p)
		updated = p
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("project visibility changed", map[string]interface{}{
		"project": name,
		"visible": visible,
	})
	s.index(ctx, updated)
	return nil
}

// DeleteProject removes a project that nothing references. A project with
// applications, assignment requests, or enquiries on file is refused so that
// those records never dangle.
func (s *Service) DeleteProject(ctx context.Context, name string) error {
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		if _, ok := tx.Project(name); !ok {
			return apperrors.NewNotFoundError("project", name)
		}
		if len(tx.ApplicationsByProject(name)) > 0 {
			return apperrors.NewProjectInUseError(name, "applications on file")
		}
		if len(tx.AssignmentsByProject(name)) > 0 {
			return apperrors.NewProjectInUseError(name, "assignment requests on file")
		}
		if len(tx.EnquiriesByProject(name)) > 0 {
			return apperrors.NewProjectInUseError(name, "enquiries on file")
		}
		tx.DeleteProject(name)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("project deleted", map[string]interface{}{"project": name})
	if s.indexer != nil {
		if err := s.indexer.RemoveProject(ctx, name); err != nil {
			s.log.WithError(err).Warn("search index removal failed", map[string]interface{}{"project": name})
		}
	}
	return nil
}

// Project returns one project by name.
func (s *Service) Project(ctx context.Context, name string) (*models.Project, error) {
	p, ok := s.tables.Project(name)
	if !ok {
		return nil, apperrors.NewNotFoundError("project", name)
	}
	return p, nil
}

// List returns every project, name-sorted. Managers see the full table.
func (s *Service) List(ctx context.Context) []*models.Project {
	return s.tables.Projects()
}

// ListByManager returns the projects one manager owns.
func (s *Service) ListByManager(ctx context.Context, managerNRIC string) []*models.Project {
	var out []*models.Project
	for _, p := range s.tables.Projects() {
		if p.ManagerNRIC == managerNRIC {
			out = append(out, p)
		}
	}
	return out
}

// OpenProjectsFor returns the projects the user could apply to right now:
// visible, inside the application window, and offering at least one flat
// type the user is eligible for.
func (s *Service) OpenProjectsFor(ctx context.Context, u *models.User, asOf time.Time) []*models.Project {
	var out []*models.Project
	for _, p := range s.tables.Projects() {
		if !IsOpenForApplication(p, asOf) {
			continue
		}
		for _, ft := range eligibility.EligibleFlatTypes(u) {
			if p.Offers(ft) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func (s *Service) index(ctx context.Context, p *models.Project) {
	if s.indexer == nil || p == nil {
		return
	}
	if err := s.indexer.IndexProject(ctx, p); err != nil {
		s.log.WithError(err).Warn("search indexing failed", map[string]interface{}{"project": p.Name})
	}
}
