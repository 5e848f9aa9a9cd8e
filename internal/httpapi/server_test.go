package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bto-allocation/internal/auth"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/core/access"
	"bto-allocation/internal/core/application"
	"bto-allocation/internal/core/assignment"
	"bto-allocation/internal/core/enquiry"
	"bto-allocation/internal/core/inventory"
	"bto-allocation/internal/models"
	"bto-allocation/internal/notify"
	"bto-allocation/internal/seed"
	"bto-allocation/internal/store"
	"bto-allocation/internal/tables"
)

const testDataset = `{
	"users": [
		{"nric": "S1000001A", "name": "Alice", "age": 36, "maritalStatus": "Single", "role": "applicant", "password": "alice-pass-1"},
		{"nric": "S1000002B", "name": "Ben", "age": 30, "maritalStatus": "Married", "role": "applicant", "password": "ben-pass-11"},
		{"nric": "S2000001D", "name": "Daniel", "age": 40, "maritalStatus": "Married", "role": "officer", "password": "daniel-pass"},
		{"nric": "S3000001E", "name": "Ellen", "age": 45, "maritalStatus": "Married", "role": "manager", "password": "ellen-pass-1"}
	],
	"projects": [
		{
			"name": "Acacia Breeze",
			"neighborhood": "Yishun",
			"openDate": "2026-02-01",
			"closeDate": "2099-03-15",
			"visible": true,
			"managerNric": "S3000001E",
			"officerSlots": 5,
			"flats": {
				"2-Room": {"units": 2, "priceCents": 11000000},
				"3-Room": {"units": 2, "priceCents": 18000000}
			}
		}
	]
}`

type testServer struct {
	srv    *httptest.Server
	tables *tables.Tables
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	log := logger.NewTestLogger(t)

	tbl := tables.New(store.NewMemory(), log)
	require.NoError(t, tbl.Hydrate(ctx))
	require.NoError(t, seed.NewLoader(tbl, 4, log).Load(ctx, []byte(testDataset)))

	mr := miniredis.RunT(t)
	sessions := auth.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 30*time.Minute)

	server := NewServer(Deps{
		Auth:         auth.NewService(tbl, sessions, 4, log),
		Gate:         access.NewGate(tbl),
		Projects:     inventory.NewService(tbl, nil, log),
		Applications: application.NewService(tbl, notify.Noop{}, log),
		Assignments:  assignment.NewService(tbl, log),
		Enquiries:    enquiry.NewService(tbl, log),
		Logger:       log,
	})

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, tables: tbl}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	defer res.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func (ts *testServer) login(t *testing.T, nric, password string) string {
	t.Helper()
	res := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"nric":     nric,
		"password": password,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	sess := decode[models.Session](t, res)
	return sess.Token
}

func TestLoginFailure(t *testing.T) {
	ts := newTestServer(t)
	res := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"nric":     "S1000001A",
		"password": "wrong",
	})
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)
	res := ts.do(t, http.MethodGet, "/api/v1/projects", "", nil)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestProjectVisibilityByRole(t *testing.T) {
	ts := newTestServer(t)
	manager := ts.login(t, "S3000001E", "ellen-pass-1")
	alice := ts.login(t, "S1000001A", "alice-pass-1")

	// Hide the project; the manager list still carries it.
	res := ts.do(t, http.MethodPost, "/api/v1/projects/Acacia Breeze/visibility", manager, map[string]bool{"visible": false})
	res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res = ts.do(t, http.MethodGet, "/api/v1/projects", manager, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decode[[]*models.Project](t, res), 1)

	res = ts.do(t, http.MethodGet, "/api/v1/projects", alice, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, decode[[]*models.Project](t, res))

	res = ts.do(t, http.MethodGet, "/api/v1/projects/Acacia Breeze", alice, nil)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestManagerOnlyRoutes(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "S1000001A", "alice-pass-1")

	res := ts.do(t, http.MethodPost, "/api/v1/projects", alice, map[string]interface{}{
		"name": "Rogue", "neighborhood": "X", "openDate": "2026-02-01", "closeDate": "2026-03-15",
	})
	res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

// Walks the whole lifecycle over HTTP: officer registration and approval,
// application, manager decision, booking, and a withdrawal round trip.
func TestApplicationLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	manager := ts.login(t, "S3000001E", "ellen-pass-1")
	officer := ts.login(t, "S2000001D", "daniel-pass")
	ben := ts.login(t, "S1000002B", "ben-pass-11")

	// Officer joins the project.
	res := ts.do(t, http.MethodPost, "/api/v1/assignments", officer, map[string]string{"projectName": "Acacia Breeze"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	asg := decode[models.OfficerAssignment](t, res)

	res = ts.do(t, http.MethodPost, "/api/v1/assignments/"+asg.ID+"/decision", manager, map[string]bool{"approve": true})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, models.AssignmentApproved, decode[models.OfficerAssignment](t, res).Status)

	// Ben applies.
	res = ts.do(t, http.MethodPost, "/api/v1/applications", ben, map[string]string{
		"projectName": "Acacia Breeze",
		"flatType":    "3-Room",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	app := decode[models.Application](t, res)
	assert.Equal(t, models.StatusPending, app.Status)

	// A second submission conflicts.
	res = ts.do(t, http.MethodPost, "/api/v1/applications", ben, map[string]string{
		"projectName": "Acacia Breeze",
		"flatType":    "2-Room",
	})
	require.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "ALREADY_HAS_ACTIVE_APPLICATION", decode[errorBody](t, res).Code)

	// Manager approves, officer books.
	res = ts.do(t, http.MethodPost, "/api/v1/applications/"+app.ID+"/decision", manager, map[string]string{"outcome": "successful"})
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = ts.do(t, http.MethodPost, "/api/v1/applications/"+app.ID+"/book", officer, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	receipt := decode[models.BookingReceipt](t, res)
	assert.Equal(t, "Ben", receipt.ApplicantName)
	assert.Equal(t, int64(18000000), receipt.PriceCents)

	// Withdrawal round trip.
	res = ts.do(t, http.MethodPost, "/api/v1/applications/"+app.ID+"/withdrawal", ben, nil)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = ts.do(t, http.MethodPost, "/api/v1/applications/"+app.ID+"/withdrawal/decision", manager, map[string]bool{"approve": true})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, models.StatusWithdrawn, decode[models.Application](t, res).Status)

	// The booked unit is back.
	p, ok := ts.tables.Project("Acacia Breeze")
	require.True(t, ok)
	assert.Equal(t, 2, p.Flats[models.ThreeRoom].Units)
}

func TestBookingForbiddenForUnassignedOfficer(t *testing.T) {
	ts := newTestServer(t)
	manager := ts.login(t, "S3000001E", "ellen-pass-1")
	officer := ts.login(t, "S2000001D", "daniel-pass")
	ben := ts.login(t, "S1000002B", "ben-pass-11")

	res := ts.do(t, http.MethodPost, "/api/v1/applications", ben, map[string]string{
		"projectName": "Acacia Breeze",
		"flatType":    "2-Room",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	app := decode[models.Application](t, res)

	res = ts.do(t, http.MethodPost, "/api/v1/applications/"+app.ID+"/decision", manager, map[string]string{"outcome": "successful"})
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	// Daniel never registered for the project.
	res = ts.do(t, http.MethodPost, "/api/v1/applications/"+app.ID+"/book", officer, nil)
	defer res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestEnquiryWorkflowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	manager := ts.login(t, "S3000001E", "ellen-pass-1")
	alice := ts.login(t, "S1000001A", "alice-pass-1")

	res := ts.do(t, http.MethodPost, "/api/v1/enquiries", alice, map[string]string{
		"projectName": "Acacia Breeze",
		"content":     "When is the ballot?",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	e := decode[models.Enquiry](t, res)

	// Alice cannot reply to her own enquiry; the manager can.
	res = ts.do(t, http.MethodPost, "/api/v1/enquiries/"+e.ID+"/reply", alice, map[string]string{"text": "self reply"})
	res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res = ts.do(t, http.MethodPost, "/api/v1/enquiries/"+e.ID+"/reply", manager, map[string]string{"text": "March 20th."})
	require.Equal(t, http.StatusOK, res.StatusCode)
	replied := decode[models.Enquiry](t, res)
	require.NotNil(t, replied.Reply)

	// Editing after the reply is a conflict.
	res = ts.do(t, http.MethodPut, "/api/v1/enquiries/"+e.ID, alice, map[string]string{"content": "edited"})
	require.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "ALREADY_REPLIED", decode[errorBody](t, res).Code)
}

func TestLogoutEndsSession(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "S1000001A", "alice-pass-1")

	res := ts.do(t, http.MethodPost, "/api/v1/auth/logout", alice, nil)
	res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res = ts.do(t, http.MethodGet, "/api/v1/projects", alice, nil)
	defer res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestChangePasswordOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "S1000001A", "alice-pass-1")

	res := ts.do(t, http.MethodPost, "/api/v1/auth/password", alice, map[string]string{
		"current": "alice-pass-1",
		"next":    "alice-pass-2",
	})
	res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	ts.login(t, "S1000001A", "alice-pass-2")
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "S1000001A", "alice-pass-1")

	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/v1/applications", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+alice)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	res, err := http.Get(fmt.Sprintf("%s/healthz", ts.srv.URL))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestBookingReportOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "S1000001A", "alice-pass-1")
	daniel := ts.login(t, "S2000001D", "daniel-pass")
	ellen := ts.login(t, "S3000001E", "ellen-pass-1")

	// Put Daniel on the roster and walk Alice's application to booked.
	res := ts.do(t, http.MethodPost, "/api/v1/assignments", daniel, map[string]string{"projectName": "Acacia Breeze"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	asg := decode[models.OfficerAssignment](t, res)
	res = ts.do(t, http.MethodPost, "/api/v1/assignments/"+asg.ID+"/decision", ellen, map[string]bool{"approve": true})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	res = ts.do(t, http.MethodPost, "/api/v1/applications", alice, map[string]string{
		"projectName": "Acacia Breeze", "flatType": "2-Room",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	app := decode[models.Application](t, res)
	res = ts.do(t, http.MethodPost, "/api/v1/applications/"+app.ID+"/decision", ellen, map[string]string{"outcome": "successful"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()
	res = ts.do(t, http.MethodPost, "/api/v1/applications/"+app.ID+"/book", daniel, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	// Only managers may pull the report.
	res = ts.do(t, http.MethodGet, "/api/v1/reports/bookings", alice, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	res.Body.Close()

	res = ts.do(t, http.MethodGet, "/api/v1/reports/bookings?maritalStatus=Single", ellen, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	rows := decode[[]models.BookingReceipt](t, res)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0].ApplicantName)
	assert.Equal(t, "S2000001D", rows[0].BookedBy)
	assert.Equal(t, int64(11000000), rows[0].PriceCents)

	res = ts.do(t, http.MethodGet, "/api/v1/reports/bookings?maritalStatus=Married", ellen, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	empty := decode[[]models.BookingReceipt](t, res)
	assert.Empty(t, empty)
}
