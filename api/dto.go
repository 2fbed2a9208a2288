/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

  Dates are YYYY-MM-DD, timestamps are RFC 3339, money is a decimal string.
  Validation happens in handlers and in the roster package, not here.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/crew-roster/payroll"
	"github.com/warp/crew-roster/roster"
)

// =============================================================================
// SHIPS & STAFF
// =============================================================================

type ShipDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CreateShipRequest struct {
	Name string `json:"name"`
}

type StaffDTO struct {
	ID        string          `json:"id"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Role      string          `json:"role"`
	DailyRate decimal.Decimal `json:"daily_rate"`
	Code      string          `json:"code"`
	ShipID    *string         `json:"ship_id,omitempty"`
	Embarked  bool            `json:"status"`
}

// StaffRequest is the body of POST /api/staff and PUT /api/staff/{id}.
type StaffRequest struct {
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Role      string          `json:"role"`
	DailyRate decimal.Decimal `json:"daily_rate"`
	Code      string          `json:"code"`
}

func toShipDTO(s roster.Ship) ShipDTO {
	return ShipDTO{ID: string(s.ID), Name: s.Name}
}

func toStaffDTO(s roster.Staff) StaffDTO {
	dto := StaffDTO{
		ID:        string(s.ID),
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Name:      s.Name(),
		Email:     s.Email,
		Phone:     s.Phone,
		Role:      string(s.Role),
		DailyRate: s.DailyRate,
		Code:      s.Code,
		Embarked:  s.Embarked,
	}
	if s.ShipID != nil {
		id := string(*s.ShipID)
		dto.ShipID = &id
	}
	return dto
}

// =============================================================================
// KIOSK
// =============================================================================

type KioskRequest struct {
	Code   string `json:"code"`
	ShipID string `json:"ship_id,omitempty"`
}

// KioskResponse mirrors what the kiosk screen needs: a message and the
// staff member's current state, also on errors when the code was valid.
type KioskResponse struct {
	Success string              `json:"success,omitempty"`
	Error   string              `json:"error,omitempty"`
	Reason  string              `json:"reason,omitempty"`
	Staff   *roster.KioskStatus `json:"staff,omitempty"`
}

// =============================================================================
// SCHEDULE
// =============================================================================

type IntervalDTO struct {
	ID        string  `json:"id"`
	StaffID   string  `json:"staff_id"`
	ShipID    string  `json:"ship_id"`
	Embark    string  `json:"embark"`
	Desembark *string `json:"desembark"`
}

func toIntervalDTO(iv roster.Interval) IntervalDTO {
	dto := IntervalDTO{
		ID:      string(iv.ID),
		StaffID: string(iv.StaffID),
		ShipID:  string(iv.ShipID),
		Embark:  iv.Embark.Format(time.RFC3339),
	}
	if iv.Desembark != nil {
		d := iv.Desembark.Format(time.RFC3339)
		dto.Desembark = &d
	}
	return dto
}

type GridRowDTO struct {
	Staff StaffDTO      `json:"staff"`
	Cells []roster.Cell `json:"cells"`
}

// ScheduleResponse is the calendar: displayed days, one row per staff
// member, and the raw intervals the rows were derived from.
type ScheduleResponse struct {
	From      roster.Day    `json:"from"`
	To        roster.Day    `json:"to"`
	Days      []roster.Day  `json:"days"`
	Rows      []GridRowDTO  `json:"rows"`
	Intervals []IntervalDTO `json:"intervals"`
}

// CorrectIntervalRequest is the body of PATCH /api/schedule/{id}.
type CorrectIntervalRequest struct {
	ShipID    *string    `json:"ship_id,omitempty"`
	Embark    *time.Time `json:"embark,omitempty"`
	Desembark *time.Time `json:"desembark,omitempty"`
}

// =============================================================================
// PAYROLL
// =============================================================================

type PayrollLineDTO struct {
	Staff  StaffDTO        `json:"staff"`
	Days   int             `json:"days"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

type PayrollResponse struct {
	From      roster.Day       `json:"from"`
	To        roster.Day       `json:"to"`
	Ship      string           `json:"ship"`
	Lines     []PayrollLineDTO `json:"lines"`
	TotalDays int              `json:"total_days"`
	Total     decimal.Decimal  `json:"total"`
}

func toPayrollResponse(rep payroll.Report) PayrollResponse {
	resp := PayrollResponse{
		From:      rep.Window.Start,
		To:        rep.Window.End,
		Ship:      string(rep.Window.Ship),
		Lines:     make([]PayrollLineDTO, 0, len(rep.Lines)),
		TotalDays: rep.TotalDays,
		Total:     rep.Total,
	}
	for _, l := range rep.Lines {
		resp.Lines = append(resp.Lines, PayrollLineDTO{
			Staff:  toStaffDTO(l.Staff),
			Days:   l.Days,
			Rate:   l.Rate,
			Amount: l.Amount,
		})
	}
	return resp
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Details string `json:"details,omitempty"`
}
