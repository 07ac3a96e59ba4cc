package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vedhaiygl/smart-attendance-api/internal/directory"
	"github.com/vedhaiygl/smart-attendance-api/internal/store"
	"github.com/vedhaiygl/smart-attendance-api/internal/token"
	appErrors "github.com/vedhaiygl/smart-attendance-api/pkg/errors"
)

func newRosterFixture(t *testing.T) (*RosterService, store.Store) {
	t.Helper()
	clock := &token.FakeClock{Current: time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore(clock, 60*time.Second, directory.NewStatic(directory.Seed()))
	svc := NewRosterService(st, directory.NewStatic(directory.Seed()), nil, nil, nil, zap.NewNop())
	return svc, st
}

func TestCreateAndListCourses(t *testing.T) {
	svc, _ := newRosterFixture(t)
	ctx := context.Background()

	created, err := svc.CreateCourse(ctx, CreateCourseRequest{Name: "Databases", Code: "CS-305"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Empty(t, created.Students)

	courses, err := svc.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, "CS-305", courses[0].Code)
}

func TestCreateCourseValidation(t *testing.T) {
	svc, _ := newRosterFixture(t)

	_, err := svc.CreateCourse(context.Background(), CreateCourseRequest{Name: "", Code: "CS-305"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollStudentUnknownInDirectory(t *testing.T) {
	svc, _ := newRosterFixture(t)
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, CreateCourseRequest{Name: "Networks", Code: "CS-306"})
	require.NoError(t, err)

	err = svc.EnrollStudent(ctx, course.ID, "stu-999")
	require.ErrorIs(t, err, appErrors.ErrStudentNotFound)
}

func TestDeleteCourseStopsItsRotations(t *testing.T) {
	clock := &token.FakeClock{Current: time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore(clock, 60*time.Second, directory.NewStatic(directory.Seed()))
	sessions := NewSessionService(st, token.NewGenerator(clock), clock, nil, NewMetricsService(), SessionServiceConfig{
		RotationInterval: time.Hour,
	}, nil, zap.NewNop())
	t.Cleanup(sessions.Close)
	svc := NewRosterService(st, directory.NewStatic(directory.Seed()), nil, sessions, nil, zap.NewNop())
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, CreateCourseRequest{Name: "Compilers", Code: "CS-411"})
	require.NoError(t, err)
	sess, err := sessions.CreateSession(ctx, course.ID, CreateSessionRequest{Type: "offline"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCourse(ctx, course.ID))

	sessions.mu.Lock()
	_, tracked := sessions.rotations[sess.ID]
	sessions.mu.Unlock()
	require.False(t, tracked)

	_, err = svc.GetCourse(ctx, course.ID)
	require.ErrorIs(t, err, appErrors.ErrCourseNotFound)
}

func TestUpdateBannerUnknownCourse(t *testing.T) {
	svc, _ := newRosterFixture(t)

	err := svc.UpdateBanner(context.Background(), "missing", "https://cdn.example.com/banner.png")
	require.ErrorIs(t, err, appErrors.ErrCourseNotFound)
}

func TestStudentsReturnsRoster(t *testing.T) {
	svc, _ := newRosterFixture(t)

	students := svc.Students(context.Background())
	require.Len(t, students, 8)
	require.Equal(t, "stu-001", students[0].ID)
}

func TestResetClearsCatalogue(t *testing.T) {
	svc, _ := newRosterFixture(t)
	ctx := context.Background()

	_, err := svc.CreateCourse(ctx, CreateCourseRequest{Name: "AI", Code: "CS-440"})
	require.NoError(t, err)
	require.NoError(t, svc.Reset(ctx))

	courses, err := svc.ListCourses(ctx)
	require.NoError(t, err)
	require.Empty(t, courses)
}
