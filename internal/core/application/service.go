// Package application implements the flat application lifecycle: submission,
// the manager decision, officer booking, and the two-step withdrawal flow.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/common/metrics"
	"bto-allocation/internal/core/eligibility"
	"bto-allocation/internal/core/inventory"
	"bto-allocation/internal/models"
	"bto-allocation/internal/tables"
)

// Notifier delivers lifecycle notifications to applicants. Delivery failures
// never fail the operation that triggered them.
type Notifier interface {
	ApplicationDecided(ctx context.Context, u *models.User, a *models.Application)
	BookingConfirmed(ctx context.Context, u *models.User, r *models.BookingReceipt)
	WithdrawalResolved(ctx context.Context, u *models.User, a *models.Application, approved bool)
}

type Service struct {
	tables   *tables.Tables
	notifier Notifier
	log      logger.Logger
	now      func() time.Time
	newID    func() string
}

func NewService(t *tables.Tables, notifier Notifier, log logger.Logger) *Service {
	return &Service{
		tables:   t,
		notifier: notifier,
		log:      log.WithFields(map[string]interface{}{"component": "application"}),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Submit files a new application. Guards run in a fixed order so the caller
// always sees the most fundamental failure first: an existing active
// application, then a closed window, then eligibility, then stock. No unit
// is reserved here; stock is committed at booking time.
func (s *Service) Submit(ctx context.Context, applicantNRIC, projectName string, ft models.FlatType) (*models.Application, error) {
	timer := time.Now()
	defer func() { metrics.OperationDuration.WithLabelValues("submit").Observe(time.Since(timer).Seconds()) }()

	var app *models.Application
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		applicant, ok := tx.User(applicantNRIC)
		if !ok {
			return apperrors.NewNotFoundError("user", applicantNRIC)
		}
		if !applicant.CanApply() {
			return apperrors.NewUnauthorizedError("managers cannot apply for flats")
		}
		if existing, has := tx.ActiveApplicationFor(applicantNRIC); has {
			return apperrors.NewAlreadyHasActiveApplicationError(existing.ApplicantNRIC)
		}
		project, ok := tx.Project(projectName)
		if !ok {
			return apperrors.NewNotFoundError("project", projectName)
		}
		if project.HasOfficer(applicantNRIC) {
			return apperrors.NewUnauthorizedError("officers cannot apply to a project they handle")
		}
		if !inventory.IsOpenForApplication(project, s.now()) {
			return apperrors.NewProjectClosedError(projectName)
		}
		if !eligibility.IsEligible(applicant, ft) {
			return apperrors.NewIneligibleError(fmt.Sprintf("%s aged %d cannot apply for %s", applicant.MaritalStatus, applicant.Age, ft))
		}
		if !project.Offers(ft) || inventory.UnitsRemaining(project, ft) == 0 {
			return apperrors.NewNoUnitsAvailableError(projectName, string(ft))
		}

		now := s.now()
		app = &models.Application{
			ID:            s.newID(),
			ApplicantNRIC: applicantNRIC,
			ProjectName:   projectName,
			FlatType:      ft,
			Status:        models.StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		tx.PutApplication(app)
		return nil
	})
	if err != nil {
		s.countFailure(err)
		return nil, err
	}

	metrics.ApplicationsSubmitted.WithLabelValues(string(ft)).Inc()
	s.log.Info("application submitted", map[string]interface{}{
		"application": app.ID,
		"applicant":   applicantNRIC,
		"project":     projectName,
		"flat_type":   string(ft),
	})
	return app, nil
}

// Decide records the manager's verdict on a pending application. Approval
// does not reserve a unit; the applicant still has to book through an
// officer.
func (s *Service) Decide(ctx context.Context, appID string, outcome models.ApplicationStatus) (*models.Application, error) {
	if outcome != models.StatusSuccessful && outcome != models.StatusUnsuccessful {
		return nil, apperrors.NewInvalidInputError("decision outcome must be successful or unsuccessful")
	}

	var app *models.Application
	var applicant *models.User
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		a, ok := tx.Application(appID)
		if !ok {
			return apperrors.NewNotFoundError("application", appID)
		}
		if a.Status != models.StatusPending {
			return apperrors.NewInvalidTransitionError(string(a.Status), string(outcome))
		}
		a.Status = outcome
		a.UpdatedAt = s.now()
		tx.PutApplication(a)
		app = a
		applicant, _ = tx.User(a.ApplicantNRIC)
		return nil
	})
	if err != nil {
		s.countFailure(err)
		return nil, err
	}

	metrics.ApplicationDecisions.WithLabelValues(string(outcome)).Inc()
	s.log.Info("application decided", map[string]interface{}{
		"application": appID,
		"outcome":     string(outcome),
	})
	if s.notifier != nil && applicant != nil {
		s.notifier.ApplicationDecided(ctx, applicant, app)
	}
	return app, nil
}

// Book reserves a unit for a successful application and moves it to booked.
// Only an officer approved for the application's project may book, and this
// is where stock is committed: if the last unit went to someone else after
// the manager's approval, the booking fails and the application stays
// successful.
func (s *Service) Book(ctx context.Context, appID, officerNRIC string) (*models.BookingReceipt, error) {
	timer := time.Now()
	defer func() { metrics.OperationDuration.WithLabelValues("book").Observe(time.Since(timer).Seconds()) }()

	var receipt *models.BookingReceipt
	var applicant *models.User
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		a, ok := tx.Application(appID)
		if !ok {
			return apperrors.NewNotFoundError("application", appID)
		}
		if a.Status != models.StatusSuccessful {
			return apperrors.NewInvalidTransitionError(string(a.Status), string(models.StatusBooked))
		}
		project, ok := tx.Project(a.ProjectName)
		if !ok {
			return apperrors.NewNotFoundError("project", a.ProjectName)
		}
		if !project.HasOfficer(officerNRIC) {
			return apperrors.NewUnauthorizedError("officer is not handling this project")
		}
		if err := inventory.ReserveUnit(project, a.FlatType); err != nil {
			return err
		}

		u, ok := tx.User(a.ApplicantNRIC)
		if !ok {
			return apperrors.NewNotFoundError("user", a.ApplicantNRIC)
		}

		now := s.now()
		a.Status = models.StatusBooked
		a.BookedBy = officerNRIC
		a.UpdatedAt = now
		tx.PutApplication(a)
		tx.PutProject(project)

		applicant = u
		receipt = &models.BookingReceipt{
			ApplicationID: a.ID,
			ApplicantNRIC: u.NRIC,
			ApplicantName: u.Name,
			Age:           u.Age,
			MaritalStatus: u.MaritalStatus,
			ProjectName:   project.Name,
			Neighborhood:  project.Neighborhood,
			FlatType:      a.FlatType,
			PriceCents:    project.Flats[a.FlatType].PriceCents,
			BookedBy:      officerNRIC,
			BookedAt:      now,
		}
		return nil
	})
	if err != nil {
		s.countFailure(err)
		return nil, err
	}

	metrics.FlatsBooked.WithLabelValues(string(receipt.FlatType)).Inc()
	s.log.Info("flat booked", map[string]interface{}{
		"application": appID,
		"officer":     officerNRIC,
		"project":     receipt.ProjectName,
		"flat_type":   string(receipt.FlatType),
	})
	if s.notifier != nil {
		s.notifier.BookingConfirmed(ctx, applicant, receipt)
	}
	return receipt, nil
}

// RequestWithdrawal flags a non-terminal application for manager review.
// Repeat requests are accepted without effect.
func (s *Service) RequestWithdrawal(ctx context.Context, appID, applicantNRIC string) (*models.Application, error) {
	var app *models.Application
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		a, ok := tx.Application(appID)
		if !ok {
			return apperrors.NewNotFoundError("application", appID)
		}
		if a.ApplicantNRIC != applicantNRIC {
			return apperrors.NewUnauthorizedError("only the applicant may request withdrawal")
		}
		if a.Status == models.StatusUnsuccessful || a.Status == models.StatusWithdrawn {
			return apperrors.NewInvalidTransitionError(string(a.Status), "withdrawal-requested")
		}
		if !a.WithdrawalRequested {
			a.WithdrawalRequested = true
			a.UpdatedAt = s.now()
			tx.PutApplication(a)
		}
		app = a
		return nil
	})
	if err != nil {
		s.countFailure(err)
		return nil, err
	}
	s.log.Info("withdrawal requested", map[string]interface{}{"application": appID})
	return app, nil
}

// ApproveWithdrawal moves a flagged application to withdrawn. A booked
// application returns its unit to stock in the same step.
func (s *Service) ApproveWithdrawal(ctx context.Context, appID string) (*models.Application, error) {
	var app *models.Application
	var applicant *models.User
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		a, ok := tx.Application(appID)
		if !ok {
			return apperrors.NewNotFoundError("application", appID)
		}
		if !a.WithdrawalRequested {
			return apperrors.NewInvalidTransitionError(string(a.Status), string(models.StatusWithdrawn))
		}
		if a.Status == models.StatusBooked {
			project, ok := tx.Project(a.ProjectName)
			if !ok {
				return apperrors.NewNotFoundError("project", a.ProjectName)
			}
			if err := inventory.ReleaseUnit(project, a.FlatType); err != nil {
				return err
			}
			tx.PutProject(project)
		}
		a.Status = models.StatusWithdrawn
		a.WithdrawalRequested = false
		a.UpdatedAt = s.now()
		tx.PutApplication(a)
		app = a
		applicant, _ = tx.User(a.ApplicantNRIC)
		return nil
	})
	if err != nil {
		s.countFailure(err)
		return nil, err
	}

	metrics.WithdrawalsResolved.WithLabelValues("approved").Inc()
	s.log.Info("withdrawal approved", map[string]interface{}{"application": appID})
	if s.notifier != nil && applicant != nil {
		s.notifier.WithdrawalResolved(ctx, applicant, app, true)
	}
	return app, nil
}

// RejectWithdrawal clears the flag and leaves the application where it was.
func (s *Service) RejectWithdrawal(ctx context.Context, appID string) (*models.Application, error) {
	var app *models.Application
	var applicant *models.User
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		a, ok := tx.Application(appID)
		if !ok {
			return apperrors.NewNotFoundError("application", appID)
		}
		if !a.WithdrawalRequested {
			return apperrors.NewInvalidTransitionError(string(a.Status), string(a.Status))
		}
		a.WithdrawalRequested = false
		a.UpdatedAt = s.now()
		tx.PutApplication(a)
		app = a
		applicant, _ = tx.User(a.ApplicantNRIC)
		return nil
	})
	if err != nil {
		s.countFailure(err)
		return nil, err
	}

	metrics.WithdrawalsResolved.WithLabelValues("rejected").Inc()
	s.log.Info("withdrawal rejected", map[string]interface{}{"application": appID})
	if s.notifier != nil && applicant != nil {
		s.notifier.WithdrawalResolved(ctx, applicant, app, false)
	}
	return app, nil
}

// Application returns one application by id.
func (s *Service) Application(ctx context.Context, id string) (*models.Application, error) {
	a, ok := s.tables.Application(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("application", id)
	}
	return a, nil
}

// ApplicationFor returns the applicant's active application.
func (s *Service) ApplicationFor(ctx context.Context, nric string) (*models.Application, error) {
	a, ok := s.tables.ActiveApplicationFor(nric)
	if !ok {
		return nil, apperrors.NewNotFoundError("application", nric)
	}
	return a, nil
}

// List returns every application in submission order.
func (s *Service) List(ctx context.Context) []*models.Application {
	return s.tables.Applications()
}

// ListByProject returns a project's applications in submission order.
func (s *Service) ListByProject(ctx context.Context, project string) []*models.Application {
	return s.tables.ApplicationsByProject(project)
}

// ReportFilter narrows the booking report. Zero-value fields match everything.
type ReportFilter struct {
	ProjectName   string
	MaritalStatus models.MaritalStatus
	FlatType      models.FlatType
}

// BookingReport rebuilds receipt rows for every booked application that
// passes the filter, in submission order. Applications whose applicant or
// project has since disappeared are skipped rather than failing the report.
func (s *Service) BookingReport(ctx context.Context, f ReportFilter) []*models.BookingReceipt {
	var rows []*models.BookingReceipt
	for _, a := range s.tables.Applications() {
		if a.Status != models.StatusBooked {
			continue
		}
		if f.ProjectName != "" && a.ProjectName != f.ProjectName {
			continue
		}
		if f.FlatType != "" && a.FlatType != f.FlatType {
			continue
		}
		u, ok := s.tables.User(a.ApplicantNRIC)
		if !ok {
			continue
		}
		if f.MaritalStatus != "" && u.MaritalStatus != f.MaritalStatus {
			continue
		}
		p, ok := s.tables.Project(a.ProjectName)
		if !ok {
			continue
		}
		rows = append(rows, &models.BookingReceipt{
			ApplicationID: a.ID,
			ApplicantNRIC: u.NRIC,
			ApplicantName: u.Name,
			Age:           u.Age,
			MaritalStatus: u.MaritalStatus,
			ProjectName:   p.Name,
			Neighborhood:  p.Neighborhood,
			FlatType:      a.FlatType,
			PriceCents:    p.Flats[a.FlatType].PriceCents,
			BookedBy:      a.BookedBy,
			BookedAt:      a.UpdatedAt,
		})
	}
	return rows
}

func (s *Service) countFailure(err error) {
	if code := apperrors.CodeOf(err); code != "" && code != apperrors.ErrCodeStoreFailure {
		metrics.DomainFailures.WithLabelValues(string(code)).Inc()
	}
}
