package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestAuditor_StartRunsImmediatelyAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTestServer(t)
	_, err := s.store.SetEmbarkState(context.Background(), s.staff.ID, &s.ship.ID, true)
	require.NoError(t, err)

	a := NewAuditor(s.store, zap.NewNop(), time.Hour)
	a.Start()
	a.Start() // second start is a no-op

	assert.Eventually(t, func() bool {
		checked, _ := a.Last()
		return !checked.IsZero()
	}, time.Second, 10*time.Millisecond)

	a.Stop()
	a.Stop()

	_, drifts := a.Last()
	require.Len(t, drifts, 1)
	assert.Equal(t, s.staff.ID, drifts[0].Staff.ID)
}

func TestAuditEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[AuditResponse](t, rec).Drifts)

	_, err := s.store.CreateInterval(context.Background(), s.staff.ID, s.ship.ID, time.Now())
	require.NoError(t, err)

	rec = s.do(t, http.MethodGet, "/api/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AuditResponse](t, rec)
	require.Len(t, resp.Drifts, 1)
	assert.Equal(t, "duplicate_open_interval", resp.Drifts[0].Reason)
	require.NotNil(t, resp.Drifts[0].Interval)
}
