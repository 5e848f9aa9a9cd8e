package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bto-allocation/internal/models"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func TestEnsureSchemaCreatesAllTables(t *testing.T) {
	st, mock := newMockStore(t)

	for _, table := range []string{"users", "projects", "applications", "officer_assignments", "enquiries"} {
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ` + table).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, st.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAndLoadUsers(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	u := &models.User{
		NRIC:          "S1234567A",
		Name:          "Alice Tan",
		Age:           36,
		MaritalStatus: models.Single,
		Role:          models.RoleApplicant,
		Email:         "alice@example.com",
		Phone:         "+6591234567",
		PasswordHash:  "bcrypt-hash",
	}

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(u.NRIC, u.Name, u.Age, string(u.MaritalStatus), string(u.Role),
			u.Email, u.Phone, u.PasswordHash).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, st.SaveUser(ctx, u))

	rows := sqlmock.NewRows([]string{
		"nric", "name", "age", "marital_status", "role", "email", "phone", "password_hash",
	}).AddRow(u.NRIC, u.Name, u.Age, string(u.MaritalStatus), string(u.Role),
		u.Email, u.Phone, u.PasswordHash)
	mock.ExpectQuery(`SELECT nric, name, age, marital_status, role, email, phone, password_hash`).
		WillReturnRows(rows)

	users, err := st.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, u, users[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadProjectsDecodesInventory(t *testing.T) {
	st, mock := newMockStore(t)

	open := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	closeDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"name", "neighborhood", "open_date", "close_date", "visible",
		"manager_nric", "officer_slots", "officer_nrics", "flats",
	}).AddRow(
		"Acacia Breeze", "Yishun", open, closeDate, true,
		"S3000001E", 3,
		[]byte(`["S2000001D"]`),
		[]byte(`{"2-Room":{"units":2,"priceCents":12000000}}`),
	)
	mock.ExpectQuery(`SELECT name, neighborhood, open_date, close_date, visible`).
		WillReturnRows(rows)

	projects, err := st.LoadProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)

	p := projects[0]
	assert.Equal(t, "Acacia Breeze", p.Name)
	assert.Equal(t, []string{"S2000001D"}, p.OfficerNRICs)
	assert.Equal(t, 2, p.Flats[models.TwoRoom].Units)
	assert.Equal(t, int64(12000000), p.Flats[models.TwoRoom].PriceCents)
}

func TestSaveProjectEncodesInventory(t *testing.T) {
	st, mock := newMockStore(t)

	p := &models.Project{
		Name:         "Acacia Breeze",
		Neighborhood: "Yishun",
		OpenDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CloseDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Visible:      true,
		ManagerNRIC:  "S3000001E",
		OfficerSlots: 3,
		OfficerNRICs: []string{"S2000001D"},
		Flats: map[models.FlatType]models.FlatStock{
			models.TwoRoom: {Units: 2, PriceCents: 12000000},
		},
	}

	mock.ExpectExec(`INSERT INTO projects`).
		WithArgs(p.Name, p.Neighborhood, p.OpenDate, p.CloseDate, p.Visible,
			p.ManagerNRIC, p.OfficerSlots,
			[]byte(`["S2000001D"]`),
			[]byte(`{"2-Room":{"units":2,"priceCents":12000000}}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.SaveProject(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveProjectWithEmptyRoster(t *testing.T) {
	st, mock := newMockStore(t)

	p := &models.Project{
		Name:         "Birch Grove",
		Neighborhood: "Punggol",
		OpenDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CloseDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ManagerNRIC:  "S3000001E",
		Flats: map[models.FlatType]models.FlatStock{
			models.ThreeRoom: {Units: 1, PriceCents: 18000000},
		},
	}

	// A nil roster must round-trip as an empty jsonb array, not null.
	mock.ExpectExec(`INSERT INTO projects`).
		WithArgs(p.Name, p.Neighborhood, p.OpenDate, p.CloseDate, p.Visible,
			p.ManagerNRIC, p.OfficerSlots,
			[]byte(`[]`),
			[]byte(`{"3-Room":{"units":1,"priceCents":18000000}}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.SaveProject(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadEnquiriesWithAndWithoutReply(t *testing.T) {
	st, mock := newMockStore(t)

	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "applicant_nric", "project_name", "content", "reply", "created_at", "updated_at",
	}).AddRow(
		"enq-1", "S1234567A", "Acacia Breeze", "When is the ballot?",
		nil, created, created,
	).AddRow(
		"enq-2", "S1234567A", "Acacia Breeze", "Is 2-Room still available?",
		[]byte(`{"text":"Yes.","responderNric":"S3000001E","repliedAt":"2026-02-02T09:00:00Z"}`),
		created, created,
	)
	mock.ExpectQuery(`SELECT id, applicant_nric, project_name, content, reply`).
		WillReturnRows(rows)

	enqs, err := st.LoadEnquiries(context.Background())
	require.NoError(t, err)
	require.Len(t, enqs, 2)

	assert.Nil(t, enqs[0].Reply)
	require.NotNil(t, enqs[1].Reply)
	assert.Equal(t, "Yes.", enqs[1].Reply.Text)
	assert.Equal(t, "S3000001E", enqs[1].Reply.ResponderNRIC)
}

func TestSaveApplicationUpsert(t *testing.T) {
	st, mock := newMockStore(t)

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	a := &models.Application{
		ID:            "app-1",
		ApplicantNRIC: "S1234567A",
		ProjectName:   "Acacia Breeze",
		FlatType:      models.TwoRoom,
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	mock.ExpectExec(`INSERT INTO applications`).
		WithArgs(a.ID, a.ApplicantNRIC, a.ProjectName, string(a.FlatType),
			string(a.Status), a.BookedBy, a.WithdrawalRequested, a.CreatedAt, a.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.SaveApplication(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryErrorsAreWrapped(t *testing.T) {
	st, mock := newMockStore(t)

	dbErr := errors.New("connection reset")
	mock.ExpectQuery(`SELECT id, applicant_nric, project_name, flat_type`).
		WillReturnError(dbErr)

	_, err := st.LoadApplications(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "load applications")
}

func TestDeleteEnquiry(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM enquiries`).
		WithArgs("enq-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.DeleteEnquiry(context.Background(), "enq-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
