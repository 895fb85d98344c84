package metrics

import (
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityChecksCounter(t *testing.T) {
	m := New("rental-test")

	m.IncAvailabilityCheck(CheckResultAvailable)
	m.IncAvailabilityCheck(CheckResultAvailable)
	m.IncAvailabilityCheck(CheckResultNotFound)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AvailabilityChecks.WithLabelValues(CheckResultAvailable)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvailabilityChecks.WithLabelValues(CheckResultNotFound)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.AvailabilityChecks.WithLabelValues(CheckResultError)))
}

func TestObserveDBQueryCountsErrors(t *testing.T) {
	m := New("rental-test")

	m.ObserveDBQuery("SELECT", time.Millisecond, nil)
	m.ObserveDBQuery("SELECT", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("SELECT")))
}

func TestSetDBPoolStats(t *testing.T) {
	m := New("rental-test")
	m.SetDBPoolStats(sql.DBStats{OpenConnections: 5, InUse: 2, Idle: 3, WaitCount: 7})

	assert.Equal(t, 5.0, testutil.ToFloat64(m.DBOpenConns))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DBInUseConns))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DBIdleConns))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.DBWaitCount))
}

func TestHTTPStatusBuckets(t *testing.T) {
	m := New("rental-test")

	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/availability", http.StatusOK, time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/availability", http.StatusNotFound, time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/availability", http.StatusBadRequest, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/availability", "2xx")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/availability", "4xx")))
}

func TestHandlerExposesServiceLabel(t *testing.T) {
	m := New("rental-test")
	m.IncEvent("reservation.created", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `events_published_total{service="rental-test",status="ok",type="reservation.created"} 1`)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := New("a")
	b := New("b")
	a.IncReservation("created")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ReservationsCreated.WithLabelValues("created")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ReservationsCreated.WithLabelValues("created")))
}
