package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	apiRequestsTotal   *prometheus.CounterVec
	apiLatencySeconds  *prometheus.HistogramVec
	apiErrorsTotal     *prometheus.CounterVec
	meetingTransitions *prometheus.CounterVec
	invitationOutcomes *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	evaluationsTotal   prometheus.Counter
	gradingsTotal      prometheus.Counter
	oracleSkipsTotal   prometheus.Counter
	selectionsTotal    prometheus.Counter
	recordingLatency   prometheus.Histogram
	recordingRejects   *prometheus.CounterVec
	recordingFallbacks prometheus.Counter
	callConnections    prometheus.Counter
	callSignalsTotal   *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interview_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_errors_total",
			Help: "Total number of error responses returned.",
		}, []string{"method", "route", "status"})

		meetingTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_meeting_transitions_total",
			Help: "Meeting state transitions by target state.",
		}, []string{"to"})

		invitationOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_invitation_responses_total",
			Help: "Invitation responses by outcome.",
		}, []string{"outcome"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_notifications_published_total",
			Help: "Notifications published by event type.",
		}, []string{"type"})

		evaluationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interview_evaluations_submitted_total",
			Help: "Meeting evaluations accepted.",
		})

		gradingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interview_gradings_finalized_total",
			Help: "Test submissions finalized.",
		})

		oracleSkipsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interview_oracle_skips_total",
			Help: "Answers skipped because the scoring oracle failed.",
		})

		selectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interview_selections_run_total",
			Help: "Top-N selection batches executed.",
		})

		recordingLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_recording_store_seconds",
			Help:    "Latency distribution for recording store operations.",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		})

		recordingRejects = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_recording_rejected_total",
			Help: "Recording uploads rejected by reason.",
		}, []string{"reason"})

		recordingFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interview_recording_fallbacks_total",
			Help: "Recordings that fell back to client-side storage.",
		})

		callConnections = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interview_call_connections_total",
			Help: "Websocket call connections accepted.",
		})

		callSignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_call_signals_total",
			Help: "Call signaling frames relayed by type.",
		}, []string{"type"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			meetingTransitions, invitationOutcomes, notificationsTotal,
			evaluationsTotal, gradingsTotal, oracleSkipsTotal, selectionsTotal,
			recordingLatency, recordingRejects, recordingFallbacks,
			callConnections, callSignalsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// MeetingTransitions exposes the counter for meeting state transitions.
func MeetingTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return meetingTransitions
}

// InvitationResponses exposes the counter for invitation outcomes.
func InvitationResponses() *prometheus.CounterVec {
	RegisterMetrics()
	return invitationOutcomes
}

// NotificationsPublished exposes the counter for published notifications.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// EvaluationsSubmitted exposes the counter for accepted evaluations.
func EvaluationsSubmitted() prometheus.Counter {
	RegisterMetrics()
	return evaluationsTotal
}

// GradingsFinalized exposes the counter for finalized submissions.
func GradingsFinalized() prometheus.Counter {
	RegisterMetrics()
	return gradingsTotal
}

// OracleSkips exposes the counter for skipped oracle gradings.
func OracleSkips() prometheus.Counter {
	RegisterMetrics()
	return oracleSkipsTotal
}

// SelectionsRun exposes the counter for selection batches.
func SelectionsRun() prometheus.Counter {
	RegisterMetrics()
	return selectionsTotal
}

// RecordingStoreLatency exposes the histogram for recording stores.
func RecordingStoreLatency() prometheus.Histogram {
	RegisterMetrics()
	return recordingLatency
}

// RecordingRejected exposes the counter for rejected recordings.
func RecordingRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return recordingRejects
}

// RecordingFallbacks exposes the counter for client-side fallbacks.
func RecordingFallbacks() prometheus.Counter {
	RegisterMetrics()
	return recordingFallbacks
}

// CallConnections exposes the counter for call connections.
func CallConnections() prometheus.Counter {
	RegisterMetrics()
	return callConnections
}

// CallSignals exposes the counter for relayed call signals.
func CallSignals() *prometheus.CounterVec {
	RegisterMetrics()
	return callSignalsTotal
}
