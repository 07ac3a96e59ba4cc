package store

import (
	"github.com/vedhaiygl/smart-attendance-api/internal/models"
	"github.com/vedhaiygl/smart-attendance-api/internal/token"
)

// DecisionInput is the state a mark attempt is judged against. The caller
// performs the session lookup (step 3) and hands over what it found; Decide
// owns the ordering of every check.
type DecisionInput struct {
	Code           string
	NowMillis      int64
	ValidityMillis int64
	// Session is the lookup result, nil when no session matched the code.
	Session *models.Session
	// Enrolled is whether the student belongs to the matched session's course.
	Enrolled bool
	// Record is the (student, session) attendance record, nil when absent.
	Record    *models.AttendanceRecord
	HasSelfie bool
}

// Decide runs the ordered mark checks and returns exactly one outcome. The
// ordering is a contract, not an accident: an expired and already-scanned
// code must report expired_qr, never already_marked.
func Decide(in DecisionInput) models.MarkOutcome {
	if token.Expired(in.Code, in.NowMillis, in.ValidityMillis) {
		return models.MarkExpiredQR
	}
	if in.Session == nil {
		return models.MarkInvalidQR
	}
	if in.Session.QRCodeValue == models.QRLimitReached {
		return models.MarkLimitReached
	}
	if !in.Enrolled {
		return models.MarkNotEnrolled
	}
	if in.Session.AtCapacity() {
		return models.MarkLimitReached
	}
	if in.Record != nil && in.Record.Status == models.AttendanceStatusPresent {
		return models.MarkAlreadyMarked
	}
	if in.Session.Type == models.SessionTypeOnline && in.Session.LivenessCheck && !in.HasSelfie {
		return models.MarkLivenessRequired
	}
	return models.MarkSuccess
}

// MatchesCode reports whether a session answers to the presented code: the
// current QR value verbatim, the short code with or without separators, or
// the token that was live when the capacity sentinel replaced it.
func MatchesCode(s *models.Session, raw, normalized string) bool {
	if s.QRCodeValue == raw {
		return true
	}
	if s.QRCodeValue == models.QRLimitReached && s.PreviousQRCodeValue != "" && s.PreviousQRCodeValue == raw {
		return true
	}
	if s.ShortCode != "" && token.Normalize(s.ShortCode) == normalized {
		return true
	}
	return false
}
