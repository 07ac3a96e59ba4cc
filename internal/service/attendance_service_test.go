package service

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vedhaiygl/smart-attendance-api/internal/directory"
	"github.com/vedhaiygl/smart-attendance-api/internal/models"
	"github.com/vedhaiygl/smart-attendance-api/internal/store"
	"github.com/vedhaiygl/smart-attendance-api/internal/token"
	appErrors "github.com/vedhaiygl/smart-attendance-api/pkg/errors"
)

type attendanceFixture struct {
	svc      *AttendanceService
	store    store.Store
	clock    *token.FakeClock
	courseID string
	session  *models.Session
}

func newAttendanceFixture(t *testing.T, params store.CreateSessionParams) *attendanceFixture {
	t.Helper()
	clock := &token.FakeClock{Current: time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore(clock, 60*time.Second, directory.NewStatic(directory.Seed()))
	svc := NewAttendanceService(st, nil, NewMetricsService(), nil, nil, zap.NewNop())

	ctx := context.Background()
	course, err := st.CreateCourse(ctx, "Operating Systems", "CS-301")
	require.NoError(t, err)
	require.NoError(t, st.EnrollStudent(ctx, course.ID, "stu-001"))
	require.NoError(t, st.EnrollStudent(ctx, course.ID, "stu-002"))

	if params.QRToken == "" {
		params.QRToken = token.NewGenerator(clock).SessionToken()
	}
	sess, err := st.CreateSession(ctx, course.ID, params)
	require.NoError(t, err)

	return &attendanceFixture{svc: svc, store: st, clock: clock, courseID: course.ID, session: sess}
}

func TestMarkSuccess(t *testing.T) {
	f := newAttendanceFixture(t, store.CreateSessionParams{Type: models.SessionTypeOffline})

	result, err := f.svc.Mark(context.Background(), MarkRequest{Code: f.session.QRCodeValue, StudentID: "stu-001"})
	require.NoError(t, err)
	require.Equal(t, models.MarkSuccess, result.Outcome)
	require.Equal(t, models.AttendanceStatusPresent, result.Record.Status)
	require.Equal(t, 1, result.Session.ScannedCount)
}

func TestMarkMissingFields(t *testing.T) {
	f := newAttendanceFixture(t, store.CreateSessionParams{Type: models.SessionTypeOffline})

	_, err := f.svc.Mark(context.Background(), MarkRequest{Code: f.session.QRCodeValue})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMarkRejectsBadSelfiePayload(t *testing.T) {
	f := newAttendanceFixture(t, store.CreateSessionParams{Type: models.SessionTypeOnline, LivenessCheck: true})

	_, err := f.svc.Mark(context.Background(), MarkRequest{
		Code:      f.session.QRCodeValue,
		StudentID: "stu-001",
		Selfie:    "%%%not-base64%%%",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMarkDecodesDataURLSelfie(t *testing.T) {
	f := newAttendanceFixture(t, store.CreateSessionParams{Type: models.SessionTypeOnline, LivenessCheck: true})

	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	result, err := f.svc.Mark(context.Background(), MarkRequest{
		Code:      f.session.QRCodeValue,
		StudentID: "stu-001",
		Selfie:    payload,
	})
	require.NoError(t, err)
	require.Equal(t, models.MarkSuccess, result.Outcome)
	require.NotNil(t, result.Record.SelfieRef)
	require.Equal(t, store.SelfieKey(f.session.ID, "stu-001"), *result.Record.SelfieRef)
}

func TestMarkLivenessRequiredWithoutSelfie(t *testing.T) {
	f := newAttendanceFixture(t, store.CreateSessionParams{Type: models.SessionTypeOnline, LivenessCheck: true})

	result, err := f.svc.Mark(context.Background(), MarkRequest{Code: f.session.QRCodeValue, StudentID: "stu-001"})
	require.NoError(t, err)
	require.Equal(t, models.MarkLivenessRequired, result.Outcome)
}

func TestToggleFlipsRecord(t *testing.T) {
	f := newAttendanceFixture(t, store.CreateSessionParams{Type: models.SessionTypeOffline})

	record, err := f.svc.Toggle(context.Background(), f.courseID, f.session.ID, "stu-002")
	require.NoError(t, err)
	require.Equal(t, models.AttendanceStatusPresent, record.Status)

	record, err = f.svc.Toggle(context.Background(), f.courseID, f.session.ID, "stu-002")
	require.NoError(t, err)
	require.Equal(t, models.AttendanceStatusAbsent, record.Status)
}

func TestSummaryCountsAcrossSessions(t *testing.T) {
	f := newAttendanceFixture(t, store.CreateSessionParams{Type: models.SessionTypeOffline})
	ctx := context.Background()

	gen := token.NewGenerator(f.clock)
	second, err := f.store.CreateSession(ctx, f.courseID, store.CreateSessionParams{
		Type:    models.SessionTypeOffline,
		QRToken: gen.SessionToken(),
	})
	require.NoError(t, err)

	_, err = f.svc.Mark(ctx, MarkRequest{Code: f.session.QRCodeValue, StudentID: "stu-001"})
	require.NoError(t, err)
	_, err = f.svc.Mark(ctx, MarkRequest{Code: second.QRCodeValue, StudentID: "stu-001"})
	require.NoError(t, err)

	summary, err := f.svc.Summary(ctx, f.courseID, "stu-001")
	require.NoError(t, err)
	require.Equal(t, 2, summary.Present)
	require.Equal(t, 0, summary.Absent)
	require.Equal(t, 2, summary.Total)
	require.InDelta(t, 100.0, summary.Percent, 0.001)

	summary, err = f.svc.Summary(ctx, f.courseID, "stu-002")
	require.NoError(t, err)
	require.Equal(t, 0, summary.Present)
	require.Equal(t, 2, summary.Total)
	require.InDelta(t, 0.0, summary.Percent, 0.001)
}

func TestSummaryUnknownStudent(t *testing.T) {
	f := newAttendanceFixture(t, store.CreateSessionParams{Type: models.SessionTypeOffline})

	_, err := f.svc.Summary(context.Background(), f.courseID, "stu-999")
	require.ErrorIs(t, err, appErrors.ErrStudentNotFound)
}

func TestCourseSummaryOrdersByRoster(t *testing.T) {
	f := newAttendanceFixture(t, store.CreateSessionParams{Type: models.SessionTypeOffline})
	ctx := context.Background()

	_, err := f.svc.Mark(ctx, MarkRequest{Code: f.session.QRCodeValue, StudentID: "stu-002"})
	require.NoError(t, err)

	summaries, err := f.svc.CourseSummary(ctx, f.courseID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "stu-001", summaries[0].StudentID)
	require.Equal(t, 0, summaries[0].Present)
	require.Equal(t, "stu-002", summaries[1].StudentID)
	require.Equal(t, 1, summaries[1].Present)
}
