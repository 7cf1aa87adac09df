package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	submissionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workflow_assist",
		Subsystem: "workflows",
		Name:      "submissions_total",
		Help:      "Workflow submissions, labeled by outcome category.",
	}, []string{"outcome"})

	deliveriesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workflow_assist",
		Subsystem: "workflows",
		Name:      "deliveries_total",
		Help:      "Instruction deliveries, labeled by outcome category.",
	}, []string{"outcome"})

	emailUpdateFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workflow_assist",
		Subsystem: "workflows",
		Name:      "email_update_failures_total",
		Help:      "Best-effort email-on-file updates that failed.",
	})

	generationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "workflow_assist",
		Subsystem: "generation",
		Name:      "request_duration_seconds",
		Help:      "Time spent waiting on the generation API, labeled by purpose and outcome.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
	}, []string{"purpose", "outcome"})

	emailDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "workflow_assist",
		Subsystem: "email",
		Name:      "send_duration_seconds",
		Help:      "Time spent waiting on the email API, labeled by outcome.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8),
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(submissionsCounter, deliveriesCounter, emailUpdateFailures, generationDuration, emailDuration)
}

// RecordSubmission counts a submission result.
func RecordSubmission(outcome string) {
	submissionsCounter.WithLabelValues(outcome).Inc()
}

// RecordDelivery counts a delivery result.
func RecordDelivery(outcome string) {
	deliveriesCounter.WithLabelValues(outcome).Inc()
}

// RecordEmailUpdateFailure counts a failed email-on-file update.
func RecordEmailUpdateFailure() {
	emailUpdateFailures.Inc()
}

// ObserveGeneration records one generation API call.
func ObserveGeneration(purpose string, started time.Time, err error) {
	generationDuration.WithLabelValues(purpose, outcomeOf(err)).Observe(time.Since(started).Seconds())
}

// ObserveEmail records one email API call.
func ObserveEmail(started time.Time, err error) {
	emailDuration.WithLabelValues(outcomeOf(err)).Observe(time.Since(started).Seconds())
}

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
