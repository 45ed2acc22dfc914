// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EngineJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_jobs_completed_total",
			Help: "Total number of jobs completed by task type",
		},
		[]string{"task_type"},
	)

	EngineJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_jobs_failed_total",
			Help: "Total number of jobs failed by task type",
		},
		[]string{"task_type", "error_code"},
	)

	EngineJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "engine_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	LeadsScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_leads_scored_total",
			Help: "Total number of leads scored",
		},
	)

	SuggestionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_suggestions_created_total",
			Help: "Total number of suggestion records created",
		},
		[]string{"action_type"},
	)

	MatchCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_match_candidates_total",
			Help: "Total number of match candidates produced by tier",
		},
		[]string{"source"},
	)
)
