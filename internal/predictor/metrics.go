package predictor

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values for predictor_requests_total.
const (
	outcomeOK          = "ok"
	outcomeTransport   = "transport_error"
	outcomeBadStatus   = "bad_status"
	outcomeInvalidBody = "invalid_body"
)

var (
	// predictorReqs counts outbound prediction calls by outcome.
	predictorReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictor_requests_total",
			Help: "Total number of calls to the prediction service.",
		},
		[]string{"outcome"},
	)

	// predictorLat records round-trip latency including body read.
	predictorLat = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "predictor_request_duration_seconds",
			Help:    "Duration of prediction service calls in seconds.",
			Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)

func init() {
	prometheus.MustRegister(predictorReqs, predictorLat)
}
