package asyncop

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	failureClient    = "client"
	failureExhausted = "exhausted"
	failureCanceled  = "canceled"
)

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "asyncop_attempts_total",
		Help: "The total number of action invocations",
	}, []string{"label"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "asyncop_retries_total",
		Help: "The total number of retries scheduled after a retryable failure",
	}, []string{"label"})

	successTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "asyncop_success_total",
		Help: "The total number of executions that ended in success",
	}, []string{"label"})

	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "asyncop_failures_total",
		Help: "The total number of executions that ended in failure, by class",
	}, []string{"label", "class"})

	panicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "asyncop_panics_total",
		Help: "The total number of panics recovered from actions or reporters",
	}, []string{"label"})

	singleFlightRejected = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "asyncop_single_flight_rejected_total",
		Help: "The total number of calls skipped because an execution was in flight",
	}, []string{"label"})

	inFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "asyncop_in_flight",
		Help: "The number of executions currently running",
	}, []string{"label"})
)
