package models

import "time"

// LiveClassStatus is a one-way state machine: live -> ended.
type LiveClassStatus string

const (
	LiveClassStatusLive  LiveClassStatus = "live"
	LiveClassStatusEnded LiveClassStatus = "ended"
)

// LiveClass tracks a streamed lecture. At most one live class per course may
// be live at any time; starting a new one ends the rest.
type LiveClass struct {
	ID        string              `db:"id" json:"id"`
	CourseID  string              `db:"course_id" json:"course_id"`
	Status    LiveClassStatus     `db:"status" json:"status"`
	StartTime time.Time           `db:"start_time" json:"start_time"`
	EndTime   *time.Time          `db:"end_time" json:"end_time,omitempty"`
	Attendees []LiveClassAttendee `json:"attendees"`
}

// LiveClassAttendee records one join/leave interval. DurationMinutes is
// computed on leave or on class end, never before.
type LiveClassAttendee struct {
	StudentID       string     `db:"student_id" json:"student_id"`
	JoinTime        time.Time  `db:"join_time" json:"join_time"`
	LeaveTime       *time.Time `db:"leave_time" json:"leave_time,omitempty"`
	DurationMinutes *float64   `db:"duration_minutes" json:"duration_minutes,omitempty"`
}

// Open reports whether the attendee entry has not been closed yet.
func (a *LiveClassAttendee) Open() bool {
	return a.LeaveTime == nil
}
