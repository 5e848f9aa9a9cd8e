package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/models"
	"bto-allocation/internal/store"
	"bto-allocation/internal/tables"
)

const goodDataset = `{
	"users": [
		{"nric": "S3000001E", "name": "Ellen", "age": 45, "maritalStatus": "Married", "role": "manager", "email": "ellen@example.com", "password": "manager-pass-1"},
		{"nric": "S1000001A", "name": "Alice", "age": 36, "maritalStatus": "Single", "role": "applicant", "password": "applicant-pw"}
	],
	"projects": [
		{
			"name": "Acacia Breeze",
			"neighborhood": "Yishun",
			"openDate": "2026-02-01",
			"closeDate": "2026-03-15",
			"visible": true,
			"managerNric": "S3000001E",
			"officerSlots": 5,
			"flats": {
				"2-Room": {"units": 2, "priceCents": 11000000},
				"3-Room": {"units": 3, "priceCents": 18000000}
			}
		}
	]
}`

func newLoader(t *testing.T) (*Loader, *tables.Tables) {
	t.Helper()
	tbl := tables.New(store.NewMemory(), logger.NewTestLogger(t))
	require.NoError(t, tbl.Hydrate(context.Background()))
	return NewLoader(tbl, 4, logger.NewTestLogger(t)), tbl
}

func TestLoadGoodDataset(t *testing.T) {
	loader, tbl := newLoader(t)
	require.NoError(t, loader.Load(context.Background(), []byte(goodDataset)))

	u, ok := tbl.User("S1000001A")
	require.True(t, ok)
	assert.Equal(t, models.Single, u.MaritalStatus)
	assert.NotEqual(t, "applicant-pw", u.PasswordHash, "passwords are stored hashed")

	p, ok := tbl.Project("Acacia Breeze")
	require.True(t, ok)
	assert.Equal(t, 2, p.Flats[models.TwoRoom].Units)
	assert.Equal(t, int64(18000000), p.Flats[models.ThreeRoom].PriceCents)
	assert.Equal(t, "S3000001E", p.ManagerNRIC)
}

func TestValidateRejectsBadDatasets(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "nope"},
		{"missing users", `{"projects": []}`},
		{"bad nric", `{"users": [{"nric": "12345", "name": "X", "age": 30, "maritalStatus": "Single", "role": "applicant", "password": "longenough"}]}`},
		{"bad marital status", `{"users": [{"nric": "S1000001A", "name": "X", "age": 30, "maritalStatus": "Divorced", "role": "applicant", "password": "longenough"}]}`},
		{"bad role", `{"users": [{"nric": "S1000001A", "name": "X", "age": 30, "maritalStatus": "Single", "role": "admin", "password": "longenough"}]}`},
		{"short password", `{"users": [{"nric": "S1000001A", "name": "X", "age": 30, "maritalStatus": "Single", "role": "applicant", "password": "short"}]}`},
		{"too many slots", `{"users": [], "projects": [{"name": "P", "neighborhood": "N", "openDate": "2026-02-01", "closeDate": "2026-03-15", "managerNric": "S3000001E", "officerSlots": 11, "flats": {}}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate([]byte(tc.data))
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
		})
	}

	assert.NoError(t, Validate([]byte(goodDataset)))
}

func TestLoadRejectsUnknownManager(t *testing.T) {
	loader, tbl := newLoader(t)
	data := `{
		"users": [{"nric": "S1000001A", "name": "Alice", "age": 36, "maritalStatus": "Single", "role": "applicant", "password": "applicant-pw"}],
		"projects": [{"name": "P", "neighborhood": "N", "openDate": "2026-02-01", "closeDate": "2026-03-15", "managerNric": "S9999999Z", "officerSlots": 5, "flats": {"2-Room": {"units": 1, "priceCents": 100}}}]
	}`
	err := loader.Load(context.Background(), []byte(data))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))

	// The whole load is rejected, including the valid user record.
	_, ok := tbl.User("S1000001A")
	assert.False(t, ok)
}

func TestLoadRejectsUnknownFlatType(t *testing.T) {
	loader, _ := newLoader(t)
	data := `{
		"users": [{"nric": "S3000001E", "name": "Ellen", "age": 45, "maritalStatus": "Married", "role": "manager", "password": "manager-pass-1"}],
		"projects": [{"name": "P", "neighborhood": "N", "openDate": "2026-02-01", "closeDate": "2026-03-15", "managerNric": "S3000001E", "officerSlots": 5, "flats": {"4-Room": {"units": 1, "priceCents": 100}}}]
	}`
	err := loader.Load(context.Background(), []byte(data))
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}
