/*
handlers_test.go - HTTP tests for the roster API

Tests for:
- Kiosk embark/disembark through the router, including error bodies
- Schedule grid and admin correction
- Payroll JSON and spreadsheet export
- Staff creation validation
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/crew-roster/roster"
	"github.com/warp/crew-roster/roster/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type testServer struct {
	store  *store.Memory
	router http.Handler
	ship   roster.Ship
	staff  roster.Staff
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()

	ship, err := m.SaveShip(ctx, roster.Ship{Name: "JFE N1 / 清丸"})
	require.NoError(t, err)
	staff, err := m.SaveStaff(ctx, roster.Staff{
		FirstName: "Kenji",
		LastName:  "Sato",
		Role:      roster.RoleChef,
		DailyRate: decimal.NewFromInt(18000),
		Code:      "100001",
	})
	require.NoError(t, err)

	h := NewHandler(m, zap.NewNop())
	return &testServer{store: m, router: NewRouter(h, []string{"*"}), ship: ship, staff: staff}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// KIOSK
// =============================================================================

func TestKiosk_EmbarkAndDisembark(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: a disembarked chef
	rec := s.do(t, http.MethodPost, "/api/kiosk/lookup", KioskRequest{Code: "100001"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[KioskResponse](t, rec)
	require.NotNil(t, resp.Staff)
	assert.Equal(t, "Kenji Sato", resp.Staff.Name)
	assert.False(t, resp.Staff.Embarked)

	// WHEN: embark
	rec = s.do(t, http.MethodPost, "/api/kiosk/embark", KioskRequest{Code: "100001", ShipID: string(s.ship.ID)})

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decode[KioskResponse](t, rec)
	assert.Equal(t, "Thank you!", resp.Success)
	assert.True(t, resp.Staff.Embarked)
	assert.Equal(t, "JFE N1 / 清丸", resp.Staff.Ship)

	// WHEN: embark again
	rec = s.do(t, http.MethodPost, "/api/kiosk/embark", KioskRequest{Code: "100001", ShipID: string(s.ship.ID)})

	// THEN: conflict, current status still shown
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp = decode[KioskResponse](t, rec)
	assert.Equal(t, "already_embarked", resp.Reason)
	assert.Equal(t, "staff is already embarked", resp.Error)
	require.NotNil(t, resp.Staff)
	assert.True(t, resp.Staff.Embarked)

	// WHEN: disembark
	rec = s.do(t, http.MethodPost, "/api/kiosk/disembark", KioskRequest{Code: "100001"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[KioskResponse](t, rec).Staff.Embarked)

	rec = s.do(t, http.MethodPost, "/api/kiosk/disembark", KioskRequest{Code: "100001"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_disembarked", decode[KioskResponse](t, rec).Reason)
}

func TestKiosk_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		path    string
		req     KioskRequest
		status  int
		message string
	}{
		{"bad code", "/api/kiosk/lookup", KioskRequest{Code: "12"}, http.StatusBadRequest, "invalid code format"},
		{"unknown code", "/api/kiosk/lookup", KioskRequest{Code: "999999"}, http.StatusNotFound, "staff not found: 999999"},
		{"missing ship", "/api/kiosk/embark", KioskRequest{Code: "100001"}, http.StatusBadRequest, "ship selection is required to embark"},
		{"unknown ship", "/api/kiosk/embark", KioskRequest{Code: "100001", ShipID: "ghost"}, http.StatusNotFound, "ship not found: ghost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decode[KioskResponse](t, rec).Error)
		})
	}
}

// =============================================================================
// SCHEDULE
// =============================================================================

func TestSchedule_GridAndCorrection(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	embark := time.Date(2024, time.June, 3, 8, 0, 0, 0, time.UTC)
	iv, err := s.store.CreateInterval(ctx, s.staff.ID, s.ship.ID, embark)
	require.NoError(t, err)
	_, err = s.store.SetEmbarkState(ctx, s.staff.ID, &s.ship.ID, true)
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/schedule?from=2024-06-01&to=2024-06-07", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var grid struct {
		Days []string `json:"days"`
		Rows []struct {
			Cells []struct {
				State string `json:"state"`
			} `json:"cells"`
		} `json:"rows"`
		Intervals []IntervalDTO `json:"intervals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	require.Len(t, grid.Days, 7)
	require.Len(t, grid.Rows, 1)
	assert.Equal(t, "EMPTY", grid.Rows[0].Cells[1].State)
	assert.Equal(t, "SPAN_START", grid.Rows[0].Cells[2].State)
	assert.Equal(t, "SPAN_MIDDLE", grid.Rows[0].Cells[6].State)
	require.Len(t, grid.Intervals, 1)
	assert.Nil(t, grid.Intervals[0].Desembark)

	// Admin closes the interval on the same day
	end := time.Date(2024, time.June, 3, 17, 0, 0, 0, time.UTC)
	rec = s.do(t, http.MethodPatch, "/api/schedule/"+string(iv.ID), CorrectIntervalRequest{Desembark: &end})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	staff, err := s.store.GetStaff(ctx, s.staff.ID)
	require.NoError(t, err)
	assert.False(t, staff.Embarked)

	rec = s.do(t, http.MethodGet, "/api/schedule?from=2024-06-01&to=2024-06-07", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	assert.Equal(t, "SPAN_SINGLE_DAY", grid.Rows[0].Cells[2].State)
	assert.Equal(t, "EMPTY", grid.Rows[0].Cells[3].State)
}

func TestSchedule_BadRange(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/schedule?from=2024-06-07&to=2024-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/schedule?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchedule_RangeTooLong(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/schedule?from=0001-01-01&to=9999-12-31", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at most 366")

	// A full leap year is the largest grid allowed
	rec = s.do(t, http.MethodGet, "/api/schedule?from=2024-01-01&to=2024-12-31", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/schedule?from=2024-01-01&to=2025-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchedule_CorrectUnknownInterval(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPatch, "/api/schedule/missing", CorrectIntervalRequest{})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// PAYROLL
// =============================================================================

func TestPayroll_JSONAndExport(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	iv, err := s.store.CreateInterval(ctx, s.staff.ID, s.ship.ID, time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = s.store.CloseInterval(ctx, iv.ID, time.Date(2024, time.June, 10, 17, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/payroll?from=2024-06-05&to=2024-06-07", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rep := decode[PayrollResponse](t, rec)
	require.Len(t, rep.Lines, 1)
	assert.Equal(t, 3, rep.Lines[0].Days)
	assert.True(t, decimal.NewFromInt(54000).Equal(rep.Total))
	assert.Equal(t, "all", rep.Ship)

	rec = s.do(t, http.MethodGet, "/api/payroll/export.xlsx?from=2024-06-05&to=2024-06-07", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "payroll_2024-06-05_2024-06-07.xlsx")
	assert.NotZero(t, rec.Body.Len())

	rec = s.do(t, http.MethodGet, "/api/payroll", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayroll_RangeTooLong(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/payroll?from=1700-01-01&to=2100-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/payroll/export.xlsx?from=1700-01-01&to=2100-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/payroll?from=2020-01-01&to=2024-12-31", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// STAFF & SHIPS
// =============================================================================

func TestStaff_CreateValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/staff", StaffRequest{FirstName: "Yui", LastName: "Tanaka", Role: "deck", Code: "12"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/staff", StaffRequest{FirstName: "Yui", LastName: "Tanaka", Role: "deck", Code: "100001"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_code", decode[ErrorResponse](t, rec).Reason)

	rec = s.do(t, http.MethodPost, "/api/staff", StaffRequest{
		FirstName: "Yui", LastName: "Tanaka", Role: "Deck", Code: "100002", DailyRate: decimal.NewFromInt(15000),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[StaffDTO](t, rec)
	assert.Equal(t, "deck", created.Role)
	assert.False(t, created.Embarked)
}

func TestStaff_UpdateKeepsEmbarkState(t *testing.T) {
	s := newTestServer(t)
	_, err := s.store.SetEmbarkState(context.Background(), s.staff.ID, &s.ship.ID, true)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPut, "/api/staff/"+string(s.staff.ID), StaffRequest{
		FirstName: "Kenji", LastName: "Satō", Role: "chef", Code: "100001", DailyRate: decimal.NewFromInt(19000),
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dto := decode[StaffDTO](t, rec)
	assert.Equal(t, "Satō", dto.LastName)
	assert.True(t, dto.Embarked)
	require.NotNil(t, dto.ShipID)
	assert.Equal(t, string(s.ship.ID), *dto.ShipID)

	rec = s.do(t, http.MethodPut, "/api/staff/nobody", StaffRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShips_CreateAndList(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/ships", CreateShipRequest{Name: "扇鳳丸"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/ships", CreateShipRequest{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/ships", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ShipDTO](t, rec), 2)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
