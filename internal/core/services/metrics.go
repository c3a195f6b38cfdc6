package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RegistrationCount counts update registrations by task kind and result.
var RegistrationCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sercha",
	Subsystem: "updates",
	Name:      "registrations_total",
	Help:      "Update registrations by task kind and result.",
}, []string{"kind", "result"})

// PayloadBytes counts payload bytes drained from document additions.
var PayloadBytes = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "sercha",
	Subsystem: "updates",
	Name:      "payload_bytes_total",
	Help:      "Payload bytes drained from document additions.",
})

// DocumentsStaged counts documents written to content blobs.
var DocumentsStaged = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "sercha",
	Subsystem: "updates",
	Name:      "documents_staged_total",
	Help:      "Documents written to content blobs.",
})

// ContentSwept counts blobs removed by content sweeps.
var ContentSwept = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "sercha",
	Subsystem: "updates",
	Name:      "content_swept_total",
	Help:      "Content blobs removed by sweeps.",
})

// DecodeDuration observes how long decoding a payload takes, in seconds.
var DecodeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "sercha",
	Subsystem: "updates",
	Name:      "decode_duration_seconds",
	Help:      "Time spent decoding a payload, by format.",
	Buckets:   prometheus.DefBuckets,
}, []string{"format"})

// AuthorizationCount counts credential checks by result.
var AuthorizationCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sercha",
	Subsystem: "keys",
	Name:      "authorizations_total",
	Help:      "Credential checks by result.",
}, []string{"result"})

// TasksExecuted counts tasks finished by the dispatcher by status.
var TasksExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "sercha",
	Subsystem: "dispatcher",
	Name:      "tasks_total",
	Help:      "Tasks finished by the dispatcher, by status.",
}, []string{"status"})

// Collectors returns every service metric, for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		RegistrationCount,
		PayloadBytes,
		DocumentsStaged,
		ContentSwept,
		DecodeDuration,
		AuthorizationCount,
		TasksExecuted,
	}
}
