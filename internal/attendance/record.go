package attendance

import "time"

// Status classifies what an attendance record asserts about a person's day.
type Status string

const (
	StatusPresent Status = "present"
	StatusLeave   Status = "leave"
	StatusWarning Status = "warning"
)

// Progress qualifies a status with how the event relates to the schedule.
type Progress string

const (
	ProgressNotLate            Progress = "not_late"
	ProgressLate               Progress = "late"
	ProgressLeaveOnTime        Progress = "leave_on_time"
	ProgressLeaveEarly         Progress = "leave_early"
	ProgressNotMarkedPresentAM Progress = "not_marked_present_morning"
)

// Record is one observed check-in/out event. Records are immutable after
// creation; corrections happen by deleting extraneous records, never by
// editing status or progress in place.
type Record struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	CalendarDay time.Time `json:"calendar_day"`
	Status      Status    `json:"status"`
	Progress    Progress  `json:"progress"`
	EventTime   time.Time `json:"event_time"`
}

// Person is a registered identity the engine checks check-ins against.
type Person struct {
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Telephone    string    `json:"telephone,omitempty"`
	Address      string    `json:"address,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}
