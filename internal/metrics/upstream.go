// Package metrics instruments outbound directory API requests with Prometheus collectors.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream holds the request collectors for the directory API.
type Upstream struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewUpstream registers the upstream request collectors.
func NewUpstream(reg prometheus.Registerer) (*Upstream, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	u := &Upstream{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationsync_upstream_requests_total",
			Help: "Directory API requests partitioned by status code and method.",
		}, []string{"code", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stationsync_upstream_request_duration_seconds",
			Help:    "Directory API request latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		}, []string{"method"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stationsync_upstream_requests_in_flight",
			Help: "Directory API requests currently in flight.",
		}),
	}
	for _, collector := range []prometheus.Collector{u.requests, u.duration, u.inFlight} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register upstream collector: %w", err)
		}
	}
	return u, nil
}

// InstrumentRoundTripper wraps next so every request updates the collectors.
func (u *Upstream) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(u.inFlight,
		promhttp.InstrumentRoundTripperCounter(u.requests,
			promhttp.InstrumentRoundTripperDuration(u.duration, next),
		),
	)
}
