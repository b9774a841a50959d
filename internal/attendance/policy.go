package attendance

import "time"

// Snapshot holds the newest record of each status a person already has for the
// current day. A nil field means no record of that status exists yet.
type Snapshot struct {
	Present *Record
	Leave   *Record
	Warning *Record
}

// SnapshotOf builds a Snapshot from today's records. records must be ordered
// newest-first; the first record seen per status wins.
func SnapshotOf(records []Record) Snapshot {
	var snap Snapshot
	for i := range records {
		rec := &records[i]
		switch rec.Status {
		case StatusPresent:
			if snap.Present == nil {
				snap.Present = rec
			}
		case StatusLeave:
			if snap.Leave == nil {
				snap.Leave = rec
			}
		case StatusWarning:
			if snap.Warning == nil {
				snap.Warning = rec
			}
		}
	}
	return snap
}

// Outcome is the result of classifying a check-in. When Existing is non-nil
// the check-in matched a record already on file and no write should happen;
// Status and Progress are still set to what the check-in classified as.
type Outcome struct {
	Status   Status
	Progress Progress
	Existing *Record
}

// Duplicate reports whether the check-in should be absorbed without a write.
func (o Outcome) Duplicate() bool { return o.Existing != nil }

// Classify maps a check-in instant and the person's existing records for the
// day to a status/progress decision. Only the hour component of now matters;
// comparisons are strict >=/< on the hour integer, minutes and seconds are
// ignored. The three brackets are exhaustive over 0-23.
func Classify(now time.Time, snap Snapshot) Outcome {
	hour := now.Hour()
	switch {
	// Morning check-in window.
	case hour >= 6 && hour < 9:
		return Outcome{Status: StatusPresent, Progress: ProgressNotLate, Existing: snap.Present}

	// Daytime: leaving early if already present, otherwise a late arrival.
	case hour >= 9 && hour < 16:
		if snap.Present != nil {
			return Outcome{Status: StatusLeave, Progress: ProgressLeaveEarly, Existing: snap.Leave}
		}
		return Outcome{Status: StatusPresent, Progress: ProgressLate}

	// Evening and night (16-24 and 0-6).
	default:
		if snap.Present != nil {
			return Outcome{Status: StatusLeave, Progress: ProgressLeaveOnTime, Existing: snap.Leave}
		}
		return Outcome{Status: StatusWarning, Progress: ProgressNotMarkedPresentAM, Existing: snap.Warning}
	}
}
