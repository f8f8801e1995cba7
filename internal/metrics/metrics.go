// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PageviewsTracked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_pageviews_total",
		Help: "Pageviews recorded by the tracking middleware.",
	}, []string{"bot"})

	TrackingErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_tracking_errors_total",
		Help: "Failures swallowed by the tracking middleware.",
	}, []string{"stage"})

	GeoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_geo_lookups_total",
		Help: "Geolocation lookups by outcome.",
	}, []string{"result"})

	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "admin_login_attempts_total",
		Help: "Admin login attempts by outcome.",
	}, []string{"result"})

	MirrorDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analytics_mirror_dropped_total",
		Help: "Pageviews dropped because the mirror buffer was full.",
	})

	MirrorFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analytics_mirror_flushed_total",
		Help: "Pageviews written to the mirror.",
	})
)

// Bool renders a boolean label value.
func Bool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
