package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Booking outcome labels.
const (
	BookingOutcomeCreated     = "created"
	BookingOutcomeUnavailable = "unavailable"
	BookingOutcomeContended   = "contended"
	BookingOutcomeInvalid     = "invalid"
	BookingOutcomeError       = "error"
)

// Calendar fetch outcome labels.
const (
	CalendarOutcomeOK           = "ok"
	CalendarOutcomeCached       = "cached"
	CalendarOutcomeNotConnected = "not_connected"
	CalendarOutcomeTimeout      = "timeout"
	CalendarOutcomeError        = "error"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	slotDuration    prometheus.Histogram
	slotsReturned   prometheus.Histogram
	bookings        *prometheus.CounterVec
	calendarFetches *prometheus.CounterVec
	meetings        *prometheus.CounterVec
}

// NewMetricsService registers the service collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache reads",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})

	slotDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "slot_generation_duration_seconds",
		Help:    "Time spent generating slots, busy lookups included",
		Buckets: prometheus.DefBuckets,
	})

	slotsReturned := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "slot_generation_slots",
		Help:    "Number of slots returned per query",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	bookings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_attempts_total",
		Help: "Booking attempts by outcome",
	}, []string{"outcome"})

	calendarFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_busy_fetches_total",
		Help: "External calendar busy lookups by outcome",
	}, []string{"outcome"})

	meetings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_provisioning_total",
		Help: "Remote meeting provisioning attempts by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheLatency, cacheWrite,
		slotDuration, slotsReturned, bookings, calendarFetches, meetings, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLookups:    cacheLookups,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		slotDuration:    slotDuration,
		slotsReturned:   slotsReturned,
		bookings:        bookings,
		calendarFetches: calendarFetches,
		meetings:        meetings,
	}
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveSlotGeneration records one slot query.
func (m *MetricsService) ObserveSlotGeneration(slots int, duration time.Duration) {
	if m == nil {
		return
	}
	m.slotDuration.Observe(duration.Seconds())
	m.slotsReturned.Observe(float64(slots))
}

// RecordBooking counts a booking attempt by outcome.
func (m *MetricsService) RecordBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}

// RecordCalendarFetch counts an external calendar lookup by outcome.
func (m *MetricsService) RecordCalendarFetch(outcome string) {
	if m == nil {
		return
	}
	m.calendarFetches.WithLabelValues(outcome).Inc()
}

// RecordMeeting counts a meeting provisioning attempt.
func (m *MetricsService) RecordMeeting(success bool) {
	if m == nil {
		return
	}
	if success {
		m.meetings.WithLabelValues("success").Inc()
		return
	}
	m.meetings.WithLabelValues("failure").Inc()
}
