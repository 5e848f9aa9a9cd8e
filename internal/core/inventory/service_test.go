package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/models"
	"bto-allocation/internal/store"
	"bto-allocation/internal/tables"
)

type recordingIndexer struct {
	indexed []string
	removed []string
}

func (r *recordingIndexer) IndexProject(ctx context.Context, p *models.Project) error {
	r.indexed = append(r.indexed, p.Name)
	return nil
}

func (r *recordingIndexer) RemoveProject(ctx context.Context, name string) error {
	r.removed = append(r.removed, name)
	return nil
}

func newServiceFixture(t *testing.T) (*Service, *tables.Tables, *recordingIndexer) {
	t.Helper()
	ctx := context.Background()
	tbl := tables.New(store.NewMemory(), logger.NewTestLogger(t))
	require.NoError(t, tbl.Hydrate(ctx))

	require.NoError(t, tbl.Update(ctx, func(tx *tables.Tx) error {
		tx.PutUser(&models.User{NRIC: "S5000000A", Name: "Ellen", Age: 45, MaritalStatus: models.Married, Role: models.RoleManager})
		tx.PutProject(project())
		return nil
	}))

	idx := &recordingIndexer{}
	return NewService(tbl, idx, logger.NewTestLogger(t)), tbl, idx
}

// An unreferenced project is the deletion happy path. The reference scans
// run under the table lock and must not take it again, so the watchdog
// treats a hang as a failure rather than letting the test binary time out.
func TestDeleteProjectRemovesUnreferencedProject(t *testing.T) {
	ctx := context.Background()
	svc, tbl, idx := newServiceFixture(t)

	done := make(chan error, 1)
	go func() { done <- svc.DeleteProject(ctx, "Acacia Breeze") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("DeleteProject did not return")
	}

	_, ok := tbl.Project("Acacia Breeze")
	assert.False(t, ok)
	assert.Equal(t, []string{"Acacia Breeze"}, idx.removed)
}

func TestDeleteProjectUnknownName(t *testing.T) {
	ctx := context.Background()
	svc, _, idx := newServiceFixture(t)

	err := svc.DeleteProject(ctx, "No Such Project")
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
	assert.Empty(t, idx.removed)
}

func TestDeleteProjectRefusedWhileReferenced(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		seed func(tx *tables.Tx)
	}{
		{
			// Terminal applications block deletion too: the booking
			// report rebuilds its rows from the project record.
			name: "application on file",
			seed: func(tx *tables.Tx) {
				tx.PutApplication(&models.Application{
					ID:            "app-1",
					ApplicantNRIC: "S1000001A",
					ProjectName:   "Acacia Breeze",
					FlatType:      models.TwoRoom,
					Status:        models.StatusBooked,
					CreatedAt:     now,
					UpdatedAt:     now,
				})
			},
		},
		{
			name: "assignment request on file",
			seed: func(tx *tables.Tx) {
				tx.PutAssignment(&models.OfficerAssignment{
					ID:          "asg-1",
					OfficerNRIC: "S2000001D",
					ProjectName: "Acacia Breeze",
					Status:      models.AssignmentRejected,
					CreatedAt:   now,
					UpdatedAt:   now,
				})
			},
		},
		{
			name: "enquiry on file",
			seed: func(tx *tables.Tx) {
				tx.PutEnquiry(&models.Enquiry{
					ID:            "enq-1",
					ApplicantNRIC: "S1000001A",
					ProjectName:   "Acacia Breeze",
					Content:       "When is the ballot?",
					CreatedAt:     now,
					UpdatedAt:     now,
				})
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, tbl, idx := newServiceFixture(t)
			require.NoError(t, tbl.Update(ctx, func(tx *tables.Tx) error {
				tc.seed(tx)
				return nil
			}))

			err := svc.DeleteProject(ctx, "Acacia Breeze")
			assert.Equal(t, apperrors.ErrCodeProjectInUse, apperrors.CodeOf(err))

			_, ok := tbl.Project("Acacia Breeze")
			assert.True(t, ok, "refused deletion must leave the project in place")
			assert.Empty(t, idx.removed)
		})
	}
}

// Records tied to another project must not block deletion.
func TestDeleteProjectIgnoresOtherProjectsRecords(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	svc, tbl, _ := newServiceFixture(t)

	require.NoError(t, tbl.Update(ctx, func(tx *tables.Tx) error {
		other := project()
		other.Name = "Birch Grove"
		tx.PutProject(other)
		tx.PutEnquiry(&models.Enquiry{
			ID:            "enq-1",
			ApplicantNRIC: "S1000001A",
			ProjectName:   "Birch Grove",
			Content:       "Is the showflat open?",
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		return nil
	}))

	require.NoError(t, svc.DeleteProject(ctx, "Acacia Breeze"))

	_, ok := tbl.Project("Birch Grove")
	assert.True(t, ok)
}
