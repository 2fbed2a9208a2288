/*
handlers.go - HTTP API handlers for the crew roster

ENDPOINTS:
  Ships:
    GET    /api/ships                  List ships
    POST   /api/ships                  Create ship

  Staff:
    GET    /api/staff                  List staff
    POST   /api/staff                  Create staff member
    PUT    /api/staff/{id}             Update profile fields

  Kiosk (self-service, identified by 6-digit code):
    POST   /api/kiosk/lookup           Current status for a code
    POST   /api/kiosk/embark           Embark on a ship
    POST   /api/kiosk/disembark        Disembark

  Schedule:
    GET    /api/schedule               Calendar grid (?from=&to=&ship=)
    PATCH  /api/schedule/{id}          Admin correction of one interval

  Payroll:
    GET    /api/payroll                Worked days and pay (?from=&to=&ship=)
    GET    /api/payroll/export.xlsx    Same report as a spreadsheet

  Audit:
    GET    /api/audit                  Staff whose flag disagrees with intervals

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: ValidationError
  - 404: NotFoundError
  - 409: ConflictError (reason field says which invariant)
  - 500: StorageError and anything unexpected
  The message is always the specific one from the roster package.

SECURITY NOTE:
  No authentication here. The surrounding application owns sessions.
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/crew-roster/payroll"
	"github.com/warp/crew-roster/roster"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   roster.TxStore
	Kiosk   *roster.Kiosk
	Payroll *payroll.Service
	Auditor *Auditor
	Logger  *zap.Logger
	Today   func() roster.Day
}

// NewHandler wires the engine components around one store.
func NewHandler(store roster.TxStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:   store,
		Kiosk:   roster.NewKiosk(store, logger.Named("kiosk")),
		Payroll: payroll.NewService(store),
		Logger:  logger,
		Today:   roster.Today,
	}
}

// =============================================================================
// HEALTH
// =============================================================================

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the store answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SHIP HANDLERS
// =============================================================================

// ListShips returns all ships.
func (h *Handler) ListShips(w http.ResponseWriter, r *http.Request) {
	ships, err := h.Store.ListShips(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list ships", err)
		return
	}
	dtos := make([]ShipDTO, len(ships))
	for i, s := range ships {
		dtos[i] = toShipDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateShip adds a ship.
func (h *Handler) CreateShip(w http.ResponseWriter, r *http.Request) {
	var req CreateShipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Ship name is required", nil)
		return
	}
	ship, err := h.Store.SaveShip(r.Context(), roster.Ship{Name: strings.TrimSpace(req.Name)})
	if err != nil {
		h.writeDomainError(w, "Failed to create ship", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShipDTO(ship))
}

// =============================================================================
// STAFF HANDLERS
// =============================================================================

// ListStaff returns all staff ordered by first name.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Store.ListStaff(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list staff", err)
		return
	}
	dtos := make([]StaffDTO, len(staff))
	for i, s := range staff {
		dtos[i] = toStaffDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStaff adds a staff member. New staff start disembarked.
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req StaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	staff, err := staffFromRequest("", req)
	if err != nil {
		h.writeDomainError(w, "Invalid staff", err)
		return
	}
	saved, err := h.Store.SaveStaff(r.Context(), staff)
	if err != nil {
		h.writeDomainError(w, "Failed to create staff", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStaffDTO(saved))
}

// UpdateStaff replaces the profile fields of a staff member. Ship and
// status are only changed through the kiosk or a schedule correction.
func (h *Handler) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	id := roster.StaffID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetStaff(r.Context(), id); err != nil {
		h.writeDomainError(w, "Staff not found", err)
		return
	}

	var req StaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	staff, err := staffFromRequest(id, req)
	if err != nil {
		h.writeDomainError(w, "Invalid staff", err)
		return
	}
	saved, err := h.Store.SaveStaff(r.Context(), staff)
	if err != nil {
		h.writeDomainError(w, "Failed to update staff", err)
		return
	}
	writeJSON(w, http.StatusOK, toStaffDTO(saved))
}

func staffFromRequest(id roster.StaffID, req StaffRequest) (roster.Staff, error) {
	role, err := roster.ParseRole(req.Role)
	if err != nil {
		return roster.Staff{}, err
	}
	s := roster.Staff{
		ID:        id,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Role:      role,
		DailyRate: req.DailyRate,
		Code:      strings.TrimSpace(req.Code),
	}
	return s, s.Validate()
}

// =============================================================================
// KIOSK HANDLERS
// =============================================================================

// KioskLookup returns the status for a code without changing anything.
func (h *Handler) KioskLookup(w http.ResponseWriter, r *http.Request) {
	var req KioskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	status, err := h.Kiosk.Lookup(r.Context(), req.Code)
	if err != nil {
		h.writeKioskError(w, r, req.Code, err)
		return
	}
	writeJSON(w, http.StatusOK, KioskResponse{Staff: &status})
}

// KioskEmbark embarks the staff member on the requested ship.
func (h *Handler) KioskEmbark(w http.ResponseWriter, r *http.Request) {
	var req KioskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	tr, err := h.Kiosk.Embark(r.Context(), req.Code, roster.ShipID(req.ShipID))
	if err != nil {
		h.writeKioskError(w, r, req.Code, err)
		return
	}
	writeJSON(w, http.StatusOK, KioskResponse{Success: "Thank you!", Staff: &tr.Status})
}

// KioskDisembark closes the staff member's open interval.
func (h *Handler) KioskDisembark(w http.ResponseWriter, r *http.Request) {
	var req KioskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	tr, err := h.Kiosk.Disembark(r.Context(), req.Code)
	if err != nil {
		h.writeKioskError(w, r, req.Code, err)
		return
	}
	writeJSON(w, http.StatusOK, KioskResponse{Success: "Thank you!", Staff: &tr.Status})
}

// writeKioskError answers with the specific message and, when the code is
// known, the unchanged staff status so the screen can stay on that person.
func (h *Handler) writeKioskError(w http.ResponseWriter, r *http.Request, code string, err error) {
	resp := KioskResponse{Error: err.Error()}
	var ce *roster.ConflictError
	if errors.As(err, &ce) {
		resp.Reason = string(ce.Reason)
	}
	if !roster.IsClientError(err) {
		h.Logger.Error("kiosk failure", zap.Error(err))
		resp.Error = "could not update staff due to an internal database error"
	}
	if roster.ValidateCode(code) == nil && !roster.IsNotFound(err) {
		if status, lookupErr := h.Kiosk.Lookup(r.Context(), code); lookupErr == nil {
			resp.Staff = &status
		}
	}
	writeJSON(w, statusFor(err), resp)
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// GetSchedule returns the calendar grid. Without from/to it shows the
// default range around today.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	rng := roster.DefaultRange(h.Today())
	if from := q.Get("from"); from != "" {
		d, err := roster.ParseDay(from)
		if err != nil {
			h.writeDomainError(w, "Invalid from", err)
			return
		}
		rng.From = d
	}
	if to := q.Get("to"); to != "" {
		d, err := roster.ParseDay(to)
		if err != nil {
			h.writeDomainError(w, "Invalid to", err)
			return
		}
		rng.To = d
	}
	win, err := rng.Window(roster.ShipID(q.Get("ship")))
	if err == nil {
		err = win.CheckLen(roster.MaxGridDays)
	}
	if err != nil {
		h.writeDomainError(w, "Invalid range", err)
		return
	}

	staff, err := h.Store.ListStaff(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to list staff", err)
		return
	}
	ivs, err := h.Store.FindOverlapping(ctx, roster.SelectOverlapping(win))
	if err != nil {
		h.writeDomainError(w, "Failed to load schedule", err)
		return
	}

	grid := roster.Project(staff, rng, ivs)
	resp := ScheduleResponse{
		From:      rng.From,
		To:        rng.To,
		Days:      grid.Days,
		Rows:      make([]GridRowDTO, len(grid.Rows)),
		Intervals: make([]IntervalDTO, len(ivs)),
	}
	for i, row := range grid.Rows {
		resp.Rows[i] = GridRowDTO{Staff: toStaffDTO(row.Staff), Cells: row.Cells}
	}
	for i, iv := range ivs {
		resp.Intervals[i] = toIntervalDTO(iv)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CorrectInterval applies an admin edit to one interval.
func (h *Handler) CorrectInterval(w http.ResponseWriter, r *http.Request) {
	id := roster.IntervalID(chi.URLParam(r, "id"))

	var req CorrectIntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	patch := roster.IntervalPatch{Embark: req.Embark, Desembark: req.Desembark}
	if req.ShipID != nil {
		ship := roster.ShipID(*req.ShipID)
		patch.ShipID = &ship
	}

	iv, err := h.Kiosk.CorrectInterval(r.Context(), id, patch)
	if err != nil {
		h.writeDomainError(w, "Failed to update schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toIntervalDTO(iv))
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// GetPayroll returns worked days and pay for a window.
func (h *Handler) GetPayroll(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.payrollReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toPayrollResponse(rep))
}

// ExportPayroll returns the payroll as an .xlsx attachment.
func (h *Handler) ExportPayroll(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.payrollReport(w, r)
	if !ok {
		return
	}
	filename := fmt.Sprintf("payroll_%s_%s.xlsx", rep.Window.Start, rep.Window.End)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := payroll.WriteXLSX(w, rep); err != nil {
		h.Logger.Error("payroll export failed", zap.Error(err))
	}
}

func (h *Handler) payrollReport(w http.ResponseWriter, r *http.Request) (payroll.Report, bool) {
	win, err := parseWindow(r)
	if err != nil {
		h.writeDomainError(w, "Invalid payroll window", err)
		return payroll.Report{}, false
	}
	rep, err := h.Payroll.Report(r.Context(), win)
	if err != nil {
		h.writeDomainError(w, "Failed to compute payroll", err)
		return payroll.Report{}, false
	}
	return rep, true
}

// parseWindow reads ?from=&to=&ship=. from and to are required.
func parseWindow(r *http.Request) (roster.Window, error) {
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		return roster.Window{}, &roster.ValidationError{Field: "window", Message: "from and to are required"}
	}
	from, err := roster.ParseDay(q.Get("from"))
	if err != nil {
		return roster.Window{}, err
	}
	to, err := roster.ParseDay(q.Get("to"))
	if err != nil {
		return roster.Window{}, err
	}
	win, err := roster.NewWindow(from, to, roster.ShipID(q.Get("ship")))
	if err != nil {
		return roster.Window{}, err
	}
	return win, win.CheckLen(roster.MaxReportDays)
}

// =============================================================================
// DEMO DATA
// =============================================================================

// LoadDemo seeds ships, staff and a few weeks of history.
func (h *Handler) LoadDemo(w http.ResponseWriter, r *http.Request) {
	loaded, err := LoadDemoFleet(r.Context(), h.Store, time.Now())
	if err != nil {
		h.writeDomainError(w, "Failed to load demo data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"loaded": loaded})
}

// =============================================================================
// HELPERS
// =============================================================================

func statusFor(err error) int {
	switch {
	case roster.IsValidation(err):
		return http.StatusBadRequest
	case roster.IsNotFound(err):
		return http.StatusNotFound
	case roster.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: message}
	if status == http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
	} else {
		resp.Error = err.Error()
		resp.Details = message
	}
	var ce *roster.ConflictError
	if errors.As(err, &ce) {
		resp.Reason = string(ce.Reason)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
