package store

import (
	"context"

	"github.com/vedhaiygl/smart-attendance-api/internal/models"
)

// CreateSessionParams carries everything the store needs to open a session.
// Tokens are generated by the caller so the store stays free of entropy.
type CreateSessionParams struct {
	Type          models.SessionType
	Limit         *int
	LivenessCheck bool
	QRToken       string
	ShortCode     string
}

// SelfieKey is the storage key convention for liveness payloads.
func SelfieKey(sessionID, studentID string) string {
	return sessionID + "/" + studentID + ".jpg"
}

// MarkRequest is one scan or short-code entry attempt.
type MarkRequest struct {
	Code       string
	StudentID  string
	SelfieData []byte
	// SelfieRef is the storage key the caller will persist the payload
	// under; attached to the record on success.
	SelfieRef *string
}

// Store is the authoritative attendance state. Every mutation is atomic from
// the caller's perspective; readers always observe a self-consistent
// snapshot. Two implementations exist: the copy-on-write in-memory store and
// the Postgres-backed variant, with identical outcome semantics.
type Store interface {
	// Reads.
	Courses(ctx context.Context) ([]models.Course, error)
	CourseByID(ctx context.Context, courseID string) (*models.Course, error)
	SessionByID(ctx context.Context, sessionID string) (*models.Session, error)
	ShortCodeInUse(ctx context.Context, normalized string) (bool, error)

	// Course surface.
	CreateCourse(ctx context.Context, name, code string) (*models.Course, error)
	DeleteCourse(ctx context.Context, courseID string) error
	UpdateCourseBanner(ctx context.Context, courseID, bannerURL string) error
	EnrollStudent(ctx context.Context, courseID, studentID string) error

	// Session surface.
	CreateSession(ctx context.Context, courseID string, params CreateSessionParams) (*models.Session, error)
	DeleteSession(ctx context.Context, courseID, sessionID string) error
	// RotateQRToken swaps in a fresh token for periodic rotation. It
	// returns false without mutating when the limit_reached sentinel is in
	// place or the session no longer exists, so a stale rotation timer can
	// never resurrect a closed session.
	RotateQRToken(ctx context.Context, sessionID, tokenValue string) (bool, error)
	// RegenerateQRCode force-sets a fresh token regardless of expiry or the
	// sentinel. Faculty escape hatch.
	RegenerateQRCode(ctx context.Context, sessionID, tokenValue string) (*models.Session, error)

	// Attendance surface.
	MarkAttendance(ctx context.Context, req MarkRequest) (*models.MarkResult, error)
	ToggleAttendance(ctx context.Context, courseID, sessionID, studentID string) (*models.AttendanceRecord, error)

	// Live classes.
	StartLiveClass(ctx context.Context, courseID string) (*models.LiveClass, error)
	EndLiveClass(ctx context.Context, courseID, liveClassID string) (*models.LiveClass, error)
	JoinLiveClass(ctx context.Context, courseID, liveClassID, studentID string) (*models.LiveClass, error)
	LeaveLiveClass(ctx context.Context, courseID, liveClassID, studentID string) (*models.LiveClassAttendee, error)

	// Reset clears all state. Used on logout.
	Reset(ctx context.Context) error
}
