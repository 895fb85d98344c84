// Package metrics метрики сервиса в Prometheus
package metrics

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Результаты проверки доступности для availability_checks_total
const (
	CheckResultAvailable   = "available"
	CheckResultUnavailable = "unavailable"
	CheckResultInvalid     = "invalid"
	CheckResultNotFound    = "not_found"
	CheckResultError       = "error"
)

// Значения метки outcome для reservations_created_total
const (
	ReservationCreated           = "created"
	ReservationReplayed          = "replayed"
	ReservationInsufficientStock = "insufficient_stock"
	ReservationRejected          = "rejected"
	ReservationError             = "error"
)

// Metrics набор метрик сервиса со своим registry
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBOpenConns     prometheus.Gauge
	DBInUseConns    prometheus.Gauge
	DBIdleConns     prometheus.Gauge
	DBWaitCount     prometheus.Gauge

	AvailabilityChecks  *prometheus.CounterVec
	ReservationsCreated *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
}

// New создает метрики с константной меткой service
func New(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		serviceName: serviceName,
		registry:    reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "path"}),

		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "db_query_duration_seconds",
			Help:        "Database query duration in seconds",
			Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			ConstLabels: constLabels,
		}, []string{"operation"}),

		DBQueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "db_query_errors_total",
			Help:        "Total number of failed database queries",
			ConstLabels: constLabels,
		}, []string{"operation"}),

		DBOpenConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_open_connections",
			Help:        "Number of established connections",
			ConstLabels: constLabels,
		}),
		DBInUseConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_in_use_connections",
			Help:        "Number of connections currently in use",
			ConstLabels: constLabels,
		}),
		DBIdleConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_idle_connections",
			Help:        "Number of idle connections",
			ConstLabels: constLabels,
		}),
		DBWaitCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "db_wait_count",
			Help:        "Total number of connections waited for",
			ConstLabels: constLabels,
		}),

		AvailabilityChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "availability_checks_total",
			Help:        "Total number of availability checks by result",
			ConstLabels: constLabels,
		}, []string{"result"}),

		ReservationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "reservations_created_total",
			Help:        "Total number of reservation attempts by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),

		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "events_published_total",
			Help:        "Total number of published domain events",
			ConstLabels: constLabels,
		}, []string{"type", "status"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueryDuration,
		m.DBQueryErrors,
		m.DBOpenConns,
		m.DBInUseConns,
		m.DBIdleConns,
		m.DBWaitCount,
		m.AvailabilityChecks,
		m.ReservationsCreated,
		m.EventsPublished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ServiceName имя сервиса в метках
func (m *Metrics) ServiceName() string {
	return m.serviceName
}

// Registry registry с метриками сервиса
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler HTTP handler для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest фиксирует HTTP запрос
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveDBQuery фиксирует запрос к БД (dbmetrics.Recorder)
func (m *Metrics) ObserveDBQuery(operation string, duration time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// SetDBPoolStats обновляет статистику connection pool (dbmetrics.Recorder)
func (m *Metrics) SetDBPoolStats(stats sql.DBStats) {
	m.DBOpenConns.Set(float64(stats.OpenConnections))
	m.DBInUseConns.Set(float64(stats.InUse))
	m.DBIdleConns.Set(float64(stats.Idle))
	m.DBWaitCount.Set(float64(stats.WaitCount))
}

// IncAvailabilityCheck увеличивает availability_checks_total{result}
func (m *Metrics) IncAvailabilityCheck(result string) {
	m.AvailabilityChecks.WithLabelValues(result).Inc()
}

// IncReservation увеличивает reservations_created_total{outcome}
func (m *Metrics) IncReservation(outcome string) {
	m.ReservationsCreated.WithLabelValues(outcome).Inc()
}

// IncEvent увеличивает events_published_total{type,status}
func (m *Metrics) IncEvent(eventType string, ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.EventsPublished.WithLabelValues(eventType, status).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
