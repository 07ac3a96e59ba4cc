package models

// Course owns its sessions, attendance records and live classes exclusively.
// Students are directory references copied in at enrollment time; the
// canonical student list lives in the directory.
type Course struct {
	ID                string             `db:"id" json:"id"`
	Name              string             `db:"name" json:"name"`
	Code              string             `db:"code" json:"code"`
	BannerURL         string             `db:"banner_url" json:"banner_url,omitempty"`
	Students          []Student          `json:"students"`
	Sessions          []Session          `json:"sessions"`
	AttendanceRecords []AttendanceRecord `json:"attendance_records"`
	LiveClasses       []LiveClass        `json:"live_classes"`
}

// Enrolled reports whether the student is part of the course.
func (c *Course) Enrolled(studentID string) bool {
	for i := range c.Students {
		if c.Students[i].ID == studentID {
			return true
		}
	}
	return false
}

// SessionByID returns the session with the given id, or nil.
func (c *Course) SessionByID(sessionID string) *Session {
	for i := range c.Sessions {
		if c.Sessions[i].ID == sessionID {
			return &c.Sessions[i]
		}
	}
	return nil
}

// RecordFor returns the attendance record for the (student, session) pair,
// or nil.
func (c *Course) RecordFor(studentID, sessionID string) *AttendanceRecord {
	for i := range c.AttendanceRecords {
		r := &c.AttendanceRecords[i]
		if r.StudentID == studentID && r.SessionID == sessionID {
			return r
		}
	}
	return nil
}

// LiveClassByID returns the live class with the given id, or nil.
func (c *Course) LiveClassByID(liveClassID string) *LiveClass {
	for i := range c.LiveClasses {
		if c.LiveClasses[i].ID == liveClassID {
			return &c.LiveClasses[i]
		}
	}
	return nil
}
