package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/vedhaiygl/smart-attendance-api/internal/directory"
	"github.com/vedhaiygl/smart-attendance-api/internal/models"
	"github.com/vedhaiygl/smart-attendance-api/internal/store"
	"github.com/vedhaiygl/smart-attendance-api/internal/token"
	appErrors "github.com/vedhaiygl/smart-attendance-api/pkg/errors"
)

func newStoreMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *token.FakeClock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	clock := &token.FakeClock{Current: time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)}
	ps := NewPostgresStore(sqlx.NewDb(db, "sqlmock"), clock, 60*time.Second, directory.NewStatic(directory.Seed()))
	return ps, mock, clock, func() { db.Close() }
}

func sessionRows(sess models.Session) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "course_id", "created_at", "session_type", "limit_count",
		"scanned_count", "qr_code_value", "previous_qr_code_value", "short_code", "liveness_check",
	}).AddRow(
		sess.ID, sess.CourseID, sess.Date, sess.Type, sess.Limit,
		sess.ScannedCount, sess.QRCodeValue, sess.PreviousQRCodeValue, sess.ShortCode, sess.LivenessCheck,
	)
}

func TestPostgresCourseByIDNotFound(t *testing.T) {
	ps, mock, _, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, code, banner_url FROM courses WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "code", "banner_url"}))

	_, err := ps.CourseByID(context.Background(), "missing")
	require.ErrorIs(t, err, appErrors.ErrCourseNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresShortCodeInUse(t *testing.T) {
	ps, mock, _, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sessions WHERE short_code")).
		WithArgs("XYZ789").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	used, err := ps.ShortCodeInUse(context.Background(), "XYZ789")
	require.NoError(t, err)
	require.True(t, used)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRotateBlockedBySentinel(t *testing.T) {
	ps, mock, _, cleanup := newStoreMock(t)
	defer cleanup()

	// The WHERE clause refuses to overwrite the sentinel, so zero rows match.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET qr_code_value = $2 WHERE id = $1 AND qr_code_value <> $3")).
		WithArgs("sess-1", "qr_1725270000000_abc1234", models.QRLimitReached).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rotated, err := ps.RotateQRToken(context.Background(), "sess-1", "qr_1725270000000_abc1234")
	require.NoError(t, err)
	require.False(t, rotated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRegenerateClearsSentinel(t *testing.T) {
	ps, mock, clock, cleanup := newStoreMock(t)
	defer cleanup()

	fresh := "qr_1725271000000_zzz9999"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET qr_code_value = $2, previous_qr_code_value = '' WHERE id = $1")).
		WithArgs("sess-1", fresh).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, created_at, session_type")).
		WithArgs("sess-1").
		WillReturnRows(sessionRows(models.Session{
			ID: "sess-1", CourseID: "course-1", Date: clock.Current,
			Type: models.SessionTypeOffline, QRCodeValue: fresh, ShortCode: "ABC-123",
		}))

	sess, err := ps.RegenerateQRCode(context.Background(), "sess-1", fresh)
	require.NoError(t, err)
	require.Equal(t, fresh, sess.QRCodeValue)
	require.Empty(t, sess.PreviousQRCodeValue)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkSuccessReachesCapacity(t *testing.T) {
	ps, mock, clock, cleanup := newStoreMock(t)
	defer cleanup()

	limit := 2
	code := "qr_" + "1725271180000" + "_abcd123"
	clock.Current = time.UnixMilli(1725271200000)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, created_at, session_type")).
		WithArgs(code, models.QRLimitReached, token.Normalize(code)).
		WillReturnRows(sessionRows(models.Session{
			ID: "sess-1", CourseID: "course-1", Date: clock.Current,
			Type: models.SessionTypeOffline, Limit: &limit, ScannedCount: 1,
			QRCodeValue: code, ShortCode: "ABC-123",
		}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM course_students")).
		WithArgs("course-1", "stu-002").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, session_id, status, selfie_ref FROM attendance_records")).
		WithArgs("stu-002", "sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "session_id", "status", "selfie_ref"}).
			AddRow("stu-002", "sess-1", models.AttendanceStatusAbsent, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendance_records SET status = $3")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET scanned_count = $2, qr_code_value = $3, previous_qr_code_value = $4")).
		WithArgs("sess-1", 2, models.QRLimitReached, code).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := ps.MarkAttendance(context.Background(), store.MarkRequest{Code: code, StudentID: "stu-002"})
	require.NoError(t, err)
	require.Equal(t, models.MarkSuccess, result.Outcome)
	require.Equal(t, models.QRLimitReached, result.Session.QRCodeValue)
	require.Equal(t, code, result.Session.PreviousQRCodeValue)
	require.Equal(t, models.AttendanceStatusPresent, result.Record.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkUnknownCode(t *testing.T) {
	ps, mock, _, cleanup := newStoreMock(t)
	defer cleanup()

	// No matching row at all: the decision path reports invalid_qr without
	// touching any record.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, created_at, session_type")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "course_id", "created_at", "session_type", "limit_count",
			"scanned_count", "qr_code_value", "previous_qr_code_value", "short_code", "liveness_check",
		}))
	mock.ExpectCommit()

	result, err := ps.MarkAttendance(context.Background(), store.MarkRequest{Code: "nonsense", StudentID: "stu-001"})
	require.NoError(t, err)
	require.Equal(t, models.MarkInvalidQR, result.Outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateBannerNotFound(t *testing.T) {
	ps, mock, _, cleanup := newStoreMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET banner_url = $2 WHERE id = $1")).
		WithArgs("missing", "https://cdn.example.com/banner.png").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := ps.UpdateCourseBanner(context.Background(), "missing", "https://cdn.example.com/banner.png")
	require.ErrorIs(t, err, appErrors.ErrCourseNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
