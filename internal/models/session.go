package models

import "time"

// SessionType distinguishes delivery modes. Short codes and liveness checks
// only apply to online sessions.
type SessionType string

const (
	SessionTypeOnline  SessionType = "online"
	SessionTypeOffline SessionType = "offline"
)

// Valid returns true when the type is a supported value.
func (t SessionType) Valid() bool {
	return t == SessionTypeOnline || t == SessionTypeOffline
}

// QRLimitReached is the sentinel written into a session's QR value once its
// capacity is exhausted. It permanently disables scans until a faculty
// regenerate overrides it.
const QRLimitReached = "limit_reached"

// Session is one timed attendance window within a course.
type Session struct {
	ID           string      `db:"id" json:"id"`
	CourseID     string      `db:"course_id" json:"course_id"`
	Date         time.Time   `db:"created_at" json:"date"`
	Type         SessionType `db:"session_type" json:"type"`
	Limit        *int        `db:"limit_count" json:"limit,omitempty"`
	ScannedCount int         `db:"scanned_count" json:"scanned_count"`
	QRCodeValue  string      `db:"qr_code_value" json:"qr_code_value"`
	// PreviousQRCodeValue keeps the token that was on screen when the
	// sentinel replaced it, so a scan of that stale token still reports
	// limit_reached instead of invalid_qr.
	PreviousQRCodeValue string `db:"previous_qr_code_value" json:"-"`
	ShortCode           string `db:"short_code" json:"short_code,omitempty"`
	LivenessCheck       bool   `db:"liveness_check" json:"liveness_check"`
}

// AtCapacity reports whether the session has a limit and has reached it.
func (s *Session) AtCapacity() bool {
	return s.Limit != nil && s.ScannedCount >= *s.Limit
}

// TokenPhase describes where a session's QR token sits in its lifecycle.
type TokenPhase string

const (
	TokenPhaseGenerating   TokenPhase = "generating"
	TokenPhaseActive       TokenPhase = "active"
	TokenPhaseExpired      TokenPhase = "expired"
	TokenPhaseLimitReached TokenPhase = "limit_reached"
)

// TokenState is the countdown read model for a session's current token.
type TokenState struct {
	SessionID        string     `json:"session_id"`
	Phase            TokenPhase `json:"phase"`
	SecondsRemaining int        `json:"seconds_remaining"`
}
