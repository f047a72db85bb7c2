// Package metrics declares the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garage_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "garage_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	AppointmentRowsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "garage_appointment_rows_created_total",
		Help: "Appointment day rows inserted.",
	})

	DuplicatePhoneRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "garage_duplicate_phone_rejections_total",
		Help: "Client saves rejected because the phone already exists.",
	})

	ProfileFetchFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "garage_profile_fetch_fallbacks_total",
		Help: "Sessions resolved with default role because the profile fetch failed or timed out.",
	})

	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garage_login_attempts_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	RealtimeSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "garage_realtime_subscribers",
		Help: "Open realtime connections by table.",
	}, []string{"table"})

	RealtimeNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garage_realtime_notifications_total",
		Help: "Change notifications delivered to subscribers by table.",
	}, []string{"table"})

	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garage_notifications_published_total",
		Help: "Appointment notifications handed to the broker by outcome.",
	}, []string{"outcome"})

	BackupRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garage_backup_runs_total",
		Help: "Backup uploads by outcome.",
	}, []string{"outcome"})
)
