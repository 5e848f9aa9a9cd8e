// Package assignment runs the officer-to-project registration workflow:
// officers request a posting, the project's manager approves or rejects it,
// and approval consumes one of the project's bounded officer slots.
package assignment

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/common/metrics"
	"bto-allocation/internal/core/inventory"
	"bto-allocation/internal/models"
	"bto-allocation/internal/tables"
)

type Service struct {
	tables *tables.Tables
	log    logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(t *tables.Tables, log logger.Logger) *Service {
	return &Service{
		tables: t,
		log:    log.WithFields(map[string]interface{}{"component": "assignment"}),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Request files an officer's registration for a project. An officer holds at
// most one approved posting at a time, and duplicate pending requests for
// the same project are refused. An officer with an active application on the
// project cannot also handle it.
func (s *Service) Request(ctx context.Context, officerNRIC, projectName string) (*models.OfficerAssignment, error) {
	var asg *models.OfficerAssignment
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		officer, ok := tx.User(officerNRIC)
		if !ok {
			return apperrors.NewNotFoundError("user", officerNRIC)
		}
		if officer.Role != models.RoleOfficer {
			return apperrors.NewUnauthorizedError("only officers may register for a project")
		}
		if _, ok := tx.Project(projectName); !ok {
			return apperrors.NewNotFoundError("project", projectName)
		}
		if app, has := tx.ActiveApplicationFor(officerNRIC); has && app.ProjectName == projectName {
			return apperrors.NewOfficerAlreadyAssignedError(officerNRIC)
		}
		for _, existing := range tx.AssignmentsByOfficer(officerNRIC) {
			if existing.Status == models.AssignmentApproved {
				return apperrors.NewOfficerAlreadyAssignedError(officerNRIC)
			}
			if existing.Status == models.AssignmentPending && existing.ProjectName == projectName {
				return apperrors.NewOfficerAlreadyAssignedError(officerNRIC)
			}
		}

		now := s.now()
		asg = &models.OfficerAssignment{
			ID:          s.newID(),
			OfficerNRIC: officerNRIC,
			ProjectName: projectName,
			Status:      models.AssignmentPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		tx.PutAssignment(asg)
		return nil
	})
	if err != nil {
		s.countFailure(err)
		return nil, err
	}

	s.log.Info("assignment requested", map[string]interface{}{
		"assignment": asg.ID,
		"officer":    officerNRIC,
		"project":    projectName,
	})
	return asg, nil
}

// Approve grants a pending request. The slot count and the officer's
// exclusivity are re-checked at approval time, since other requests may have
// been approved since this one was filed. On approval the officer joins the
// project roster and their other pending requests are voided.
func (s *Service) Approve(ctx context.Context, asgID string) (*models.OfficerAssignment, error) {
	var asg *models.OfficerAssignment
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		a, ok := tx.Assignment(asgID)
		if !ok {
			return apperrors.NewNotFoundError("assignment", asgID)
		}
		if a.Status != models.AssignmentPending {
			return apperrors.NewInvalidTransitionError(string(a.Status), string(models.AssignmentApproved))
		}
		project, ok := tx.Project(a.ProjectName)
		if !ok {
			return apperrors.NewNotFoundError("project", a.ProjectName)
		}
		if inventory.RemainingOfficerSlots(project) == 0 {
			return apperrors.NewNoSlotsAvailableError(project.Name)
		}
		for _, other := range tx.AssignmentsByOfficer(a.OfficerNRIC) {
			if other.ID != a.ID && other.Status == models.AssignmentApproved {
				return apperrors.NewOfficerAlreadyAssignedError(a.OfficerNRIC)
			}
		}

		now := s.now()
		a.Status = models.AssignmentApproved
		a.UpdatedAt = now
		tx.PutAssignment(a)

		project.OfficerNRICs = append(project.OfficerNRICs, a.OfficerNRIC)
		tx.PutProject(project)

		// The officer is now committed to one project; their other
		// pending requests can never be approved and are closed out.
		for _, other := range tx.AssignmentsByOfficer(a.OfficerNRIC) {
			if other.ID != a.ID && other.Status == models.AssignmentPending {
				other.Status = models.AssignmentRejected
				other.UpdatedAt = now
				tx.PutAssignment(other)
			}
		}
		asg = a
		return nil
	})
	if err != nil {
		s.countFailure(err)
		return nil, err
	}

	metrics.AssignmentDecisions.WithLabelValues(string(models.AssignmentApproved)).Inc()
	s.log.Info("assignment approved", map[string]interface{}{
		"assignment": asgID,
		"officer":    asg.OfficerNRIC,
		"project":    asg.ProjectName,
	})
	return asg, nil
}

// Reject closes a pending request without touching the roster.
func (s *Service) Reject(ctx context.Context, asgID string) (*models.OfficerAssignment, error) {
	var asg *models.OfficerAssignment
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		a, ok := tx.Assignment(asgID)
		if !ok {
			return apperrors.NewNotFoundError("assignment", asgID)
		}
		if a.Status != models.AssignmentPending {
			return apperrors.NewInvalidTransitionError(string(a.Status), string(models.AssignmentRejected))
		}
		a.Status = models.AssignmentRejected
		a.UpdatedAt = s.now()
		tx.PutAssignment(a)
		asg = a
		return nil
	})
	if err != nil {
		s.countFailure(err)
		return nil, err
	}

	metrics.AssignmentDecisions.WithLabelValues(string(models.AssignmentRejected)).Inc()
	s.log.Info("assignment rejected", map[string]interface{}{"assignment": asgID})
	return asg, nil
}

// Assignment returns one request by id.
func (s *Service) Assignment(ctx context.Context, id string) (*models.OfficerAssignment, error) {
	a, ok := s.tables.Assignment(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("assignment", id)
	}
	return a, nil
}

// ListByOfficer returns an officer's requests in filing order.
func (s *Service) ListByOfficer(ctx context.Context, nric string) []*models.OfficerAssignment {
	return s.tables.AssignmentsByOfficer(nric)
}

// ListByProject returns a project's requests in filing order.
func (s *Service) ListByProject(ctx context.Context, project string) []*models.OfficerAssignment {
	return s.tables.AssignmentsByProject(project)
}

// ApprovedProjectFor returns the name of the project the officer currently
// handles, when there is one.
func (s *Service) ApprovedProjectFor(ctx context.Context, nric string) (string, bool) {
	for _, a := range s.tables.AssignmentsByOfficer(nric) {
		if a.Status == models.AssignmentApproved {
			return a.ProjectName, true
		}
	}
	return "", false
}

func (s *Service) countFailure(err error) {
	if code := apperrors.CodeOf(err); code != "" && code != apperrors.ErrCodeStoreFailure {
		metrics.DomainFailures.WithLabelValues(string(code)).Inc()
	}
}
