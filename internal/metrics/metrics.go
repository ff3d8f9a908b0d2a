// Package metrics holds the portal's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsTotal counts admitted uploads by category and outcome
	// (created or replaced).
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_uploads_total",
		Help: "File uploads admitted to the record store.",
	}, []string{"category", "outcome"})

	// AttendanceIngested counts ledger appends from recognizer results.
	AttendanceIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_attendance_entries_ingested_total",
		Help: "Attendance entries appended to the ledger.",
	})

	// ExternalFailures counts failed external-process invocations by op.
	ExternalFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_external_process_failures_total",
		Help: "Failed invocations of the external recognition scripts.",
	}, []string{"op"})
)
