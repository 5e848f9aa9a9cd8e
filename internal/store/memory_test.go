package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bto-allocation/internal/models"
)

func TestMemoryPreservesInsertionOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	for _, id := range []string{"app-3", "app-1", "app-2"} {
		require.NoError(t, m.SaveApplication(ctx, &models.Application{
			ID:            id,
			ApplicantNRIC: "S1234567A",
			ProjectName:   "Acacia Breeze",
			FlatType:      models.TwoRoom,
			Status:        models.StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}))
	}

	apps, err := m.LoadApplications(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 3)
	assert.Equal(t, "app-3", apps[0].ID)
	assert.Equal(t, "app-1", apps[1].ID)
	assert.Equal(t, "app-2", apps[2].ID)

	// Resaving an existing record must update in place, not reorder.
	apps[1].Status = models.StatusSuccessful
	require.NoError(t, m.SaveApplication(ctx, apps[1]))

	apps, err = m.LoadApplications(ctx)
	require.NoError(t, err)
	assert.Equal(t, "app-1", apps[1].ID)
	assert.Equal(t, models.StatusSuccessful, apps[1].Status)
}

func TestMemoryReturnsClones(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	p := &models.Project{
		Name:         "Acacia Breeze",
		Neighborhood: "Yishun",
		ManagerNRIC:  "S3000001E",
		Flats: map[models.FlatType]models.FlatStock{
			models.TwoRoom: {Units: 2, PriceCents: 12000000},
		},
	}
	require.NoError(t, m.SaveProject(ctx, p))

	// Mutating the caller's copy after save must not leak into the store.
	p.Flats[models.TwoRoom] = models.FlatStock{Units: 0, PriceCents: 12000000}

	loaded, err := m.LoadProjects(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 2, loaded[0].Flats[models.TwoRoom].Units)

	// Mutating a loaded copy must not leak either.
	loaded[0].Flats[models.TwoRoom] = models.FlatStock{Units: 99}
	again, err := m.LoadProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, again[0].Flats[models.TwoRoom].Units)
}

func TestMemoryDeleteProject(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, name := range []string{"Acacia Breeze", "Birch Grove"} {
		require.NoError(t, m.SaveProject(ctx, &models.Project{Name: name, ManagerNRIC: "S3000001E"}))
	}
	require.NoError(t, m.DeleteProject(ctx, "Acacia Breeze"))

	projects, err := m.LoadProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Birch Grove", projects[0].Name)

	// Deleting an unknown name is a no-op.
	require.NoError(t, m.DeleteProject(ctx, "Acacia Breeze"))
}

func TestMemoryDeleteEnquiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	for _, id := range []string{"enq-1", "enq-2"} {
		require.NoError(t, m.SaveEnquiry(ctx, &models.Enquiry{
			ID:            id,
			ApplicantNRIC: "S1234567A",
			ProjectName:   "Acacia Breeze",
			Content:       "When is the ballot?",
			CreatedAt:     now,
			UpdatedAt:     now,
		}))
	}
	require.NoError(t, m.DeleteEnquiry(ctx, "enq-1"))

	enqs, err := m.LoadEnquiries(ctx)
	require.NoError(t, err)
	require.Len(t, enqs, 1)
	assert.Equal(t, "enq-2", enqs[0].ID)
}
