// Package telemetry holds the process-wide Prometheus instruments.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "examprep_sessions_started_total",
		Help: "Test sessions whose clock was started.",
	})

	SessionsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "examprep_sessions_submitted_total",
		Help: "Scored sessions, by trigger (manual or timer expiry).",
	}, []string{"trigger"})

	AttemptsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "examprep_attempts_saved_total",
		Help: "Attempt rows upserted.",
	})

	AttemptSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "examprep_attempt_save_failures_total",
		Help: "Attempt upserts that failed; the user still got their result.",
	})
)
