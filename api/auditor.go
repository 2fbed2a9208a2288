/*
auditor.go - Periodic roster consistency audit

PURPOSE:
  Periodically checks that every staff member's embark flag agrees with
  their open interval and logs the ones that drifted. Drift can only come
  from writes outside the kiosk (direct DB edits, imports), and it makes
  the kiosk refuse that person, so admins want to hear about it early.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Read only: never repairs anything, correction is an admin action
  - Keeps the last result for GET /api/audit

USAGE:
  auditor := NewAuditor(store, logger, time.Hour)
  auditor.Start()
  // ... later
  auditor.Stop()

SEE ALSO:
  - roster/audit.go: CheckConsistency
  - handlers.go: CorrectInterval endpoint (the fix)
*/
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/crew-roster/roster"
)

// Auditor runs roster.CheckConsistency on a ticker.
type Auditor struct {
	Store         roster.Store
	Logger        *zap.Logger
	CheckInterval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	lastRun    time.Time
	lastDrifts []roster.Drift
}

// NewAuditor creates an auditor. A zero interval defaults to one hour.
func NewAuditor(store roster.Store, logger *zap.Logger, interval time.Duration) *Auditor {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{Store: store, Logger: logger, CheckInterval: interval}
}

// Start begins the audit loop. It runs one check immediately.
func (a *Auditor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ticker != nil {
		return
	}
	a.ticker = time.NewTicker(a.CheckInterval)
	a.stop = make(chan struct{})
	a.wg.Add(1)

	go a.run(a.ticker, a.stop)

	a.Logger.Info("auditor started", zap.Duration("interval", a.CheckInterval))
}

// Stop stops the loop and waits for a running check to finish.
func (a *Auditor) Stop() {
	a.mu.Lock()
	if a.ticker == nil {
		a.mu.Unlock()
		return
	}
	a.ticker.Stop()
	close(a.stop)
	a.ticker = nil
	a.mu.Unlock()

	a.wg.Wait()
	a.Logger.Info("auditor stopped")
}

func (a *Auditor) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer a.wg.Done()

	// Run immediately on start
	a.Check(context.Background())

	for {
		select {
		case <-ticker.C:
			a.Check(context.Background())
		case <-stop:
			return
		}
	}
}

// Check runs one audit, logs every drift and remembers the result.
func (a *Auditor) Check(ctx context.Context) ([]roster.Drift, error) {
	drifts, err := roster.CheckConsistency(ctx, a.Store)
	if err != nil {
		a.Logger.Error("audit failed", zap.Error(err))
		return nil, err
	}

	for _, d := range drifts {
		fields := []zap.Field{
			zap.String("staff_id", string(d.Staff.ID)),
			zap.String("reason", string(d.Reason)),
		}
		if d.Interval != nil {
			fields = append(fields, zap.String("interval_id", string(d.Interval.ID)))
		}
		a.Logger.Warn("roster drift", fields...)
	}

	a.mu.Lock()
	a.lastRun = time.Now()
	a.lastDrifts = drifts
	a.mu.Unlock()
	return drifts, nil
}

// Last returns the result of the most recent check.
func (a *Auditor) Last() (time.Time, []roster.Drift) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastRun, a.lastDrifts
}

// =============================================================================
// HTTP
// =============================================================================

type DriftDTO struct {
	Staff    StaffDTO     `json:"staff"`
	Reason   string       `json:"reason"`
	Interval *IntervalDTO `json:"interval,omitempty"`
}

type AuditResponse struct {
	CheckedAt time.Time  `json:"checked_at"`
	Drifts    []DriftDTO `json:"drifts"`
}

// GetAudit runs a fresh check and returns the drifted staff.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	auditor := h.Auditor
	if auditor == nil {
		auditor = NewAuditor(h.Store, h.Logger, 0)
	}
	drifts, err := auditor.Check(r.Context())
	if err != nil {
		h.writeDomainError(w, "Audit failed", err)
		return
	}
	checkedAt, _ := auditor.Last()

	resp := AuditResponse{CheckedAt: checkedAt, Drifts: make([]DriftDTO, 0, len(drifts))}
	for _, d := range drifts {
		dto := DriftDTO{Staff: toStaffDTO(d.Staff), Reason: string(d.Reason)}
		if d.Interval != nil {
			iv := toIntervalDTO(*d.Interval)
			dto.Interval = &iv
		}
		resp.Drifts = append(resp.Drifts, dto)
	}
	writeJSON(w, http.StatusOK, resp)
}
