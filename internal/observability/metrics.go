package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters. HTTP-level metrics live in the middleware package.
var (
	ShipmentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shipments_created_total",
		Help: "Shipments created through admin operations.",
	})

	// TrackingUpdates is labelled by the resulting canonical status.
	TrackingUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_updates_total",
		Help: "Tracking updates applied, by resulting shipment status.",
	}, []string{"status"})

	ShipmentsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shipments_deleted_total",
		Help: "Shipments deleted through admin operations.",
	})

	// EmailsSent: kind is contact_inbox|contact_confirmation|tracking_update,
	// result is ok|error.
	EmailsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Transactional emails attempted, by kind and result.",
	}, []string{"kind", "result"})

	ReportsRendered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_rendered_total",
		Help: "PDF tracking reports rendered, by result.",
	}, []string{"result"})

	// TrackingLookups counts public lookups by route and outcome
	// (found|not_found|invalid|throttled|error). A rising not_found share
	// from few clients is what tracking id enumeration looks like.
	TrackingLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_lookups_total",
		Help: "Public tracking lookups, by route and outcome.",
	}, []string{"route", "outcome"})

	// RateLimited counts rejected requests by limiter policy.
	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limited_total",
		Help: "Requests rejected by the rate limiter, by policy.",
	}, []string{"policy"})
)

func init() {
	prometheus.MustRegister(
		ShipmentsCreated, TrackingUpdates, ShipmentsDeleted, EmailsSent,
		ReportsRendered, TrackingLookups, RateLimited,
	)
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
