package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"attendance/internal/attendance"
)

func TestHumanProgress(t *testing.T) {
	tests := []struct {
		progress attendance.Progress
		want     string
	}{
		{attendance.ProgressNotLate, "not late"},
		{attendance.ProgressLate, "late"},
		{attendance.ProgressLeaveOnTime, "leave on time"},
		{attendance.ProgressLeaveEarly, "leave early"},
		{attendance.ProgressNotMarkedPresentAM, "not marked as present in the morning"},
		{attendance.Progress("unknown"), "unknown"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, humanProgress(tc.progress))
	}
}
