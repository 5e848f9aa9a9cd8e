// Package store is the persistence collaborator for the allocation core.
// The core owns its records in memory; implementations of Store are the sole
// load/save boundary (write-through, no transaction log).
package store

import (
	"context"

	"bto-allocation/internal/models"
)

// Store loads whole tables at startup and persists single records after each
// successful mutation.
type Store interface {
	LoadUsers(ctx context.Context) ([]*models.User, error)
	LoadProjects(ctx context.Context) ([]*models.Project, error)
	LoadApplications(ctx context.Context) ([]*models.Application, error)
	LoadAssignments(ctx context.Context) ([]*models.OfficerAssignment, error)
	LoadEnquiries(ctx context.Context) ([]*models.Enquiry, error)

	SaveUser(ctx context.Context, u *models.User) error
	SaveProject(ctx context.Context, p *models.Project) error
	SaveApplication(ctx context.Context, a *models.Application) error
	SaveAssignment(ctx context.Context, a *models.OfficerAssignment) error
	SaveEnquiry(ctx context.Context, e *models.Enquiry) error

	DeleteProject(ctx context.Context, name string) error
	DeleteEnquiry(ctx context.Context, id string) error
}
