package tables

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/models"
	"bto-allocation/internal/store"
)

func testProject(name string) *models.Project {
	return &models.Project{
		Name:         name,
		Neighborhood: "Yishun",
		OpenDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CloseDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Visible:      true,
		ManagerNRIC:  "S5000000A",
		OfficerSlots: 10,
		Flats: map[models.FlatType]models.FlatStock{
			models.TwoRoom: {Units: 5, PriceCents: 11000000},
		},
	}
}

func newTestTables(t *testing.T) (*Tables, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	tbl := New(mem, logger.NewTestLogger(t))
	require.NoError(t, tbl.Hydrate(context.Background()))
	return tbl, mem
}

func TestHydratePopulatesTables(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveUser(ctx, &models.User{NRIC: "S1234567A", Name: "Alice", Role: models.RoleApplicant}))
	require.NoError(t, mem.SaveProject(ctx, testProject("Acacia Breeze")))
	require.NoError(t, mem.SaveApplication(ctx, &models.Application{ID: "app-1", ApplicantNRIC: "S1234567A", ProjectName: "Acacia Breeze", FlatType: models.TwoRoom, Status: models.StatusPending}))

	tbl := New(mem, logger.NewTestLogger(t))
	require.NoError(t, tbl.Hydrate(ctx))

	u, ok := tbl.User("S1234567A")
	require.True(t, ok)
	assert.Equal(t, "Alice", u.Name)

	p, ok := tbl.Project("Acacia Breeze")
	require.True(t, ok)
	assert.Equal(t, 5, p.Flats[models.TwoRoom].Units)

	a, ok := tbl.ActiveApplicationFor("S1234567A")
	require.True(t, ok)
	assert.Equal(t, "app-1", a.ID)
}

func TestUpdateWritesThroughStore(t *testing.T) {
	ctx := context.Background()
	tbl, mem := newTestTables(t)

	err := tbl.Update(ctx, func(tx *Tx) error {
		tx.PutProject(testProject("Acacia Breeze"))
		tx.PutApplication(&models.Application{ID: "app-1", ApplicantNRIC: "S1234567A", ProjectName: "Acacia Breeze", FlatType: models.TwoRoom, Status: models.StatusPending})
		return nil
	})
	require.NoError(t, err)

	_, ok := tbl.Project("Acacia Breeze")
	assert.True(t, ok)

	persisted, err := mem.LoadApplications(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "app-1", persisted[0].ID)
}

func TestUpdateCallbackErrorDiscardsStagedRecords(t *testing.T) {
	ctx := context.Background()
	tbl, mem := newTestTables(t)

	wantErr := errors.New("refused")
	err := tbl.Update(ctx, func(tx *Tx) error {
		tx.PutProject(testProject("Acacia Breeze"))
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	_, ok := tbl.Project("Acacia Breeze")
	assert.False(t, ok)
	persisted, err := mem.LoadProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

// failingStore refuses all writes.
type failingStore struct {
	*store.Memory
}

func (f *failingStore) SaveProject(ctx context.Context, p *models.Project) error {
	return errors.New("disk full")
}

func TestUpdateStoreFailureLeavesTablesUntouched(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Memory: store.NewMemory()}
	tbl := New(fs, logger.NewTestLogger(t))
	require.NoError(t, tbl.Hydrate(ctx))

	err := tbl.Update(ctx, func(tx *Tx) error {
		tx.PutProject(testProject("Acacia Breeze"))
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStoreFailure, apperrors.CodeOf(err))

	_, ok := tbl.Project("Acacia Breeze")
	assert.False(t, ok)
}

func TestTxReadsSeeStagedRecordsFirst(t *testing.T) {
	ctx := context.Background()
	tbl, _ := newTestTables(t)
	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		tx.PutProject(testProject("Acacia Breeze"))
		return nil
	}))

	err := tbl.Update(ctx, func(tx *Tx) error {
		p, ok := tx.Project("Acacia Breeze")
		require.True(t, ok)
		p.Flats[models.TwoRoom] = models.FlatStock{Units: 4, PriceCents: 11000000}
		tx.PutProject(p)

		again, ok := tx.Project("Acacia Breeze")
		require.True(t, ok)
		assert.Equal(t, 4, again.Flats[models.TwoRoom].Units)
		return nil
	})
	require.NoError(t, err)

	p, ok := tbl.Project("Acacia Breeze")
	require.True(t, ok)
	assert.Equal(t, 4, p.Flats[models.TwoRoom].Units)
}

func TestActiveApplicationForIgnoresTerminalStatuses(t *testing.T) {
	ctx := context.Background()
	tbl, _ := newTestTables(t)

	app := &models.Application{ID: "app-1", ApplicantNRIC: "S1234567A", ProjectName: "Acacia Breeze", FlatType: models.TwoRoom, Status: models.StatusUnsuccessful}
	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		tx.PutApplication(app)
		return nil
	}))

	_, ok := tbl.ActiveApplicationFor("S1234567A")
	assert.False(t, ok)
}

func TestTxActiveApplicationSeesStagedTerminalTransition(t *testing.T) {
	ctx := context.Background()
	tbl, _ := newTestTables(t)
	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		tx.PutApplication(&models.Application{ID: "app-1", ApplicantNRIC: "S1234567A", ProjectName: "Acacia Breeze", FlatType: models.TwoRoom, Status: models.StatusPending})
		return nil
	}))

	err := tbl.Update(ctx, func(tx *Tx) error {
		a, ok := tx.ActiveApplicationFor("S1234567A")
		require.True(t, ok)
		a.Status = models.StatusWithdrawn
		tx.PutApplication(a)

		_, ok = tx.ActiveApplicationFor("S1234567A")
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteProjectRemovesRecord(t *testing.T) {
	ctx := context.Background()
	tbl, mem := newTestTables(t)
	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		tx.PutProject(testProject("Acacia Breeze"))
		return nil
	}))

	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		tx.DeleteProject("Acacia Breeze")
		_, ok := tx.Project("Acacia Breeze")
		assert.False(t, ok)
		return nil
	}))

	_, ok := tbl.Project("Acacia Breeze")
	assert.False(t, ok)
	persisted, err := mem.LoadProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestEnquiryOrderSurvivesEditsAndDeletes(t *testing.T) {
	ctx := context.Background()
	tbl, _ := newTestTables(t)
	now := time.Now().UTC()
	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		tx.PutEnquiry(&models.Enquiry{ID: "enq-1", ApplicantNRIC: "S1234567A", ProjectName: "P", Content: "first", CreatedAt: now})
		tx.PutEnquiry(&models.Enquiry{ID: "enq-2", ApplicantNRIC: "S1234567A", ProjectName: "P", Content: "second", CreatedAt: now})
		tx.PutEnquiry(&models.Enquiry{ID: "enq-3", ApplicantNRIC: "S7654321B", ProjectName: "P", Content: "third", CreatedAt: now})
		return nil
	}))

	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		e, ok := tx.Enquiry("enq-1")
		require.True(t, ok)
		e.Content = "first, edited"
		tx.PutEnquiry(e)
		tx.DeleteEnquiry("enq-2")
		return nil
	}))

	all := tbl.Enquiries()
	require.Len(t, all, 2)
	assert.Equal(t, "enq-1", all[0].ID)
	assert.Equal(t, "first, edited", all[0].Content)
	assert.Equal(t, "enq-3", all[1].ID)

	mine := tbl.EnquiriesByApplicant("S1234567A")
	require.Len(t, mine, 1)
	assert.Equal(t, "enq-1", mine[0].ID)
}

func TestReadViewsReturnCopies(t *testing.T) {
	ctx := context.Background()
	tbl, _ := newTestTables(t)
	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		tx.PutProject(testProject("Acacia Breeze"))
		return nil
	}))

	p, ok := tbl.Project("Acacia Breeze")
	require.True(t, ok)
	p.Flats[models.TwoRoom] = models.FlatStock{Units: 0}
	p.OfficerNRICs = append(p.OfficerNRICs, "S9999999Z")

	fresh, ok := tbl.Project("Acacia Breeze")
	require.True(t, ok)
	assert.Equal(t, 5, fresh.Flats[models.TwoRoom].Units)
	assert.Empty(t, fresh.OfficerNRICs)
}

func TestTxEnquiriesByProjectMergesStagedState(t *testing.T) {
	ctx := context.Background()
	tbl, _ := newTestTables(t)

	enq := func(id, project string) *models.Enquiry {
		return &models.Enquiry{
			ID:            id,
			ApplicantNRIC: "S1234567A",
			ProjectName:   project,
			Content:       "content of " + id,
		}
	}
	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		tx.PutEnquiry(enq("enq-1", "Acacia Breeze"))
		tx.PutEnquiry(enq("enq-2", "Birch Grove"))
		return nil
	}))

	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		// Committed record for another project stays filtered out.
		assert.Len(t, tx.EnquiriesByProject("Acacia Breeze"), 1)

		// A staged new enquiry is visible before flush.
		tx.PutEnquiry(enq("enq-3", "Acacia Breeze"))
		assert.Len(t, tx.EnquiriesByProject("Acacia Breeze"), 2)

		// A staged deletion hides the committed record.
		tx.DeleteEnquiry("enq-1")
		got := tx.EnquiriesByProject("Acacia Breeze")
		require.Len(t, got, 1)
		assert.Equal(t, "enq-3", got[0].ID)

		// A staged edit that moves the enquiry to another project
		// changes which slice it lands in.
		moved := enq("enq-2", "Acacia Breeze")
		tx.PutEnquiry(moved)
		assert.Len(t, tx.EnquiriesByProject("Birch Grove"), 0)
		assert.Len(t, tx.EnquiriesByProject("Acacia Breeze"), 2)
		return nil
	}))
}
