package models

// AttendanceStatus represents the status of an attendance record.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// Toggle returns the opposite status.
func (s AttendanceStatus) Toggle() AttendanceStatus {
	if s == AttendanceStatusPresent {
		return AttendanceStatusAbsent
	}
	return AttendanceStatusPresent
}

// AttendanceRecord tracks one (student, session) pair. Exactly one record
// exists per enrolled student at session creation; status is the only field
// that transitions on the scan path.
type AttendanceRecord struct {
	StudentID string           `db:"student_id" json:"student_id"`
	SessionID string           `db:"session_id" json:"session_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	// SelfieData holds the raw liveness payload in the in-memory store.
	SelfieData []byte `db:"-" json:"-"`
	// SelfieRef is the storage key of the persisted liveness payload.
	SelfieRef *string `db:"selfie_ref" json:"selfie_ref,omitempty"`
}

// MarkOutcome is the result of a scan or short-code entry attempt. Every
// value is an expected business outcome, not an error.
type MarkOutcome string

const (
	MarkExpiredQR        MarkOutcome = "expired_qr"
	MarkInvalidQR        MarkOutcome = "invalid_qr"
	MarkLimitReached     MarkOutcome = "limit_reached"
	MarkNotEnrolled      MarkOutcome = "not_enrolled"
	MarkAlreadyMarked    MarkOutcome = "already_marked"
	MarkLivenessRequired MarkOutcome = "liveness_required"
	MarkSuccess          MarkOutcome = "success"
	// MarkError signals an unexpected internal fault and should be treated
	// as a bug, not a normal flow outcome.
	MarkError MarkOutcome = "error"
)

// MarkResult carries the decided outcome plus the touched entities when the
// attempt matched a session.
type MarkResult struct {
	Outcome  MarkOutcome       `json:"outcome"`
	CourseID string            `json:"course_id,omitempty"`
	Session  *Session          `json:"session,omitempty"`
	Record   *AttendanceRecord `json:"record,omitempty"`
}

// AttendanceSummary aggregates one student's presence across a course.
type AttendanceSummary struct {
	StudentID string  `json:"student_id"`
	Present   int     `json:"present"`
	Absent    int     `json:"absent"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}
