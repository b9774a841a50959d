package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_checkins_total",
		Help: "Attendance records created, by status and progress.",
	}, []string{"status", "progress"})

	duplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_duplicates_total",
		Help: "Check-ins absorbed as duplicates of an existing record.",
	})

	sweepDeletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sweep_deletions_total",
		Help: "Duplicate records removed by the dedup sweeper.",
	})

	notifyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_notify_failures_total",
		Help: "Attendance notifications that failed to send.",
	})
)
