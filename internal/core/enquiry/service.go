// Package enquiry implements the question-and-reply workflow between
// applicants and project staff. An enquiry takes exactly one reply, and a
// replied enquiry is frozen for its author.
package enquiry

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/common/metrics"
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
		log:    log.WithFields(map[string]interface{}{"component": "enquiry"}),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Create files a new enquiry against a project. Any applicant may enquire
// about any project, visible or not, at any time.
func (s *Service) Create(ctx context.Context, applicantNRIC, projectName, content string) (*models.Enquiry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewInvalidInputError("enquiry content must not be empty")
	}
	var enq *models.Enquiry
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		if _, ok := tx.User(applicantNRIC); !ok {
			return apperrors.NewNotFoundError("user", applicantNRIC)
		}
		if _, ok := tx.Project(projectName); !ok {
			return apperrors.NewNotFoundError("project", projectName)
		}
		now := s.now()
		enq = &models.Enquiry{
			ID:            s.newID(),
			ApplicantNRIC: applicantNRIC,
			ProjectName:   projectName,
			Content:       content,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		tx.PutEnquiry(enq)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("enquiry created", map[string]interface{}{
		"enquiry":   enq.ID,
		"applicant": applicantNRIC,
		"project":   projectName,
	})
	return enq, nil
}

// Edit rewrites the enquiry text. Only the author may edit, and only before
// a reply lands.
func (s *Service) Edit(ctx context.Context, enqID, applicantNRIC, content string) (*models.Enquiry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewInvalidInputError("enquiry content must not be empty")
	}
	var enq *models.Enquiry
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		e, ok := tx.Enquiry(enqID)
		if !ok {
			return apperrors.NewNotFoundError("enquiry", enqID)
		}
		if e.ApplicantNRIC != applicantNRIC {
			return apperrors.NewUnauthorizedError("only the author may edit an enquiry")
		}
		if e.Replied() {
			return apperrors.NewAlreadyRepliedError(enqID)
		}
		e.Content = content
		e.UpdatedAt = s.now()
		tx.PutEnquiry(e)
		enq = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enq, nil
}

// Delete removes an unanswered enquiry. Same freeze rule as Edit.
func (s *Service) Delete(ctx context.Context, enqID, applicantNRIC string) error {
	return s.tables.Update(ctx, func(tx *tables.Tx) error {
		e, ok := tx.Enquiry(enqID)
		if !ok {
			return apperrors.NewNotFoundError("enquiry", enqID)
		}
		if e.ApplicantNRIC != applicantNRIC {
			return apperrors.NewUnauthorizedError("only the author may delete an enquiry")
		}
		if e.Replied() {
			return apperrors.NewAlreadyRepliedError(enqID)
		}
		tx.DeleteEnquiry(enqID)
		return nil
	})
}

// Reply attaches the single reply. The caller has already been cleared by
// the access gate; this layer only enforces the one-reply rule.
func (s *Service) Reply(ctx context.Context, enqID, responderNRIC, text string) (*models.Enquiry, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewInvalidInputError("reply text must not be empty")
	}
	var enq *models.Enquiry
	err := s.tables.Update(ctx, func(tx *tables.Tx) error {
		e, ok := tx.Enquiry(enqID)
		if !ok {
			return apperrors.NewNotFoundError("enquiry", enqID)
		}
		if e.Replied() {
			return apperrors.NewAlreadyRepliedError(enqID)
		}
		now := s.now()
		e.Reply = &models.EnquiryReply{
			Text:          text,
			ResponderNRIC: responderNRIC,
			RepliedAt:     now,
		}
		e.UpdatedAt = now
		tx.PutEnquiry(e)
		enq = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.EnquiriesReplied.Inc()
	s.log.Info("enquiry replied", map[string]interface{}{
		"enquiry":   enqID,
		"responder": responderNRIC,
	})
	return enq, nil
}

// Enquiry returns one enquiry by id.
func (s *Service) Enquiry(ctx context.Context, id string) (*models.Enquiry, error) {
	e, ok := s.tables.Enquiry(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("enquiry", id)
	}
	return e, nil
}

// ListAll returns every enquiry in filing order.
func (s *Service) ListAll(ctx context.Context) []*models.Enquiry {
	return s.tables.Enquiries()
}

// ListByApplicant returns one author's enquiries in filing order.
func (s *Service) ListByApplicant(ctx context.Context, nric string) []*models.Enquiry {
	return s.tables.EnquiriesByApplicant(nric)
}

// ListByProject returns one project's enquiries in filing order.
func (s *Service) ListByProject(ctx context.Context, project string) []*models.Enquiry {
	var out []*models.Enquiry
	for _, e := range s.tables.Enquiries() {
		if e.ProjectName == project {
			out = append(out, e)
		}
	}
	return out
}
