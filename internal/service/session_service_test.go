package service

import (
	"context"
	"regexp"
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

func newSessionFixture(t *testing.T) (*SessionService, store.Store, *token.FakeClock, string) {
	t.Helper()
	clock := &token.FakeClock{Current: time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore(clock, 60*time.Second, directory.NewStatic(directory.Seed()))
	svc := NewSessionService(st, token.NewGenerator(clock), clock, nil, NewMetricsService(), SessionServiceConfig{
		QRValidity:        60 * time.Second,
		RotationInterval:  time.Hour,
		ShortCodeAttempts: 5,
	}, nil, zap.NewNop())
	t.Cleanup(svc.Close)

	course, err := st.CreateCourse(context.Background(), "Distributed Systems", "CS-401")
	require.NoError(t, err)
	return svc, st, clock, course.ID
}

func TestCreateSessionOnlineGetsShortCode(t *testing.T) {
	svc, _, _, courseID := newSessionFixture(t)

	sess, err := svc.CreateSession(context.Background(), courseID, CreateSessionRequest{
		Type:          "online",
		LivenessCheck: true,
	})
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^qr_\d+_[0-9a-z]{7}$`), sess.QRCodeValue)
	require.Regexp(t, regexp.MustCompile(`^[A-Z]{3}-[0-9]{3}$`), sess.ShortCode)
	require.True(t, sess.LivenessCheck)
}

func TestCreateSessionOfflineSkipsShortCodeAndLiveness(t *testing.T) {
	svc, _, _, courseID := newSessionFixture(t)

	sess, err := svc.CreateSession(context.Background(), courseID, CreateSessionRequest{
		Type:          "offline",
		LivenessCheck: true,
	})
	require.NoError(t, err)
	require.Empty(t, sess.ShortCode)
	require.False(t, sess.LivenessCheck)
}

func TestCreateSessionRejectsBadType(t *testing.T) {
	svc, _, _, courseID := newSessionFixture(t)

	_, err := svc.CreateSession(context.Background(), courseID, CreateSessionRequest{Type: "hybrid"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

type collidingStore struct {
	store.Store
}

func (collidingStore) ShortCodeInUse(context.Context, string) (bool, error) {
	return true, nil
}

func TestCreateSessionShortCodeExhaustion(t *testing.T) {
	svc, st, _, courseID := newSessionFixture(t)
	svc.store = collidingStore{Store: st}

	_, err := svc.CreateSession(context.Background(), courseID, CreateSessionRequest{Type: "online"})
	require.ErrorIs(t, err, appErrors.ErrShortCodeSpace)
}

func TestTokenStateLifecycle(t *testing.T) {
	svc, st, clock, courseID := newSessionFixture(t)

	limit := 1
	sess, err := svc.CreateSession(context.Background(), courseID, CreateSessionRequest{Type: "offline", Limit: &limit})
	require.NoError(t, err)

	state, err := svc.TokenState(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, models.TokenPhaseActive, state.Phase)
	require.Equal(t, 60, state.SecondsRemaining)

	clock.Advance(45 * time.Second)
	state, err = svc.TokenState(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, models.TokenPhaseActive, state.Phase)
	require.Equal(t, 15, state.SecondsRemaining)

	clock.Advance(15 * time.Second)
	state, err = svc.TokenState(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, models.TokenPhaseExpired, state.Phase)
	require.Zero(t, state.SecondsRemaining)

	// Fill the session to capacity; the sentinel wins over expiry.
	fresh, err := svc.RegenerateQRCode(context.Background(), sess.ID)
	require.NoError(t, err)
	require.NoError(t, st.EnrollStudent(context.Background(), courseID, "stu-001"))
	result, err := st.MarkAttendance(context.Background(), store.MarkRequest{Code: fresh.QRCodeValue, StudentID: "stu-001"})
	require.NoError(t, err)
	require.Equal(t, models.MarkSuccess, result.Outcome)

	state, err = svc.TokenState(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, models.TokenPhaseLimitReached, state.Phase)
}

func TestTokenStateUnknownSession(t *testing.T) {
	svc, _, _, _ := newSessionFixture(t)

	_, err := svc.TokenState(context.Background(), "missing")
	require.ErrorIs(t, err, appErrors.ErrSessionNotFound)
}

func TestRotationLoopStopsAtSentinel(t *testing.T) {
	clock := &token.FakeClock{Current: time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore(clock, 60*time.Second, directory.NewStatic(directory.Seed()))
	svc := NewSessionService(st, token.NewGenerator(clock), clock, nil, NewMetricsService(), SessionServiceConfig{
		QRValidity:       60 * time.Second,
		RotationInterval: 5 * time.Millisecond,
	}, nil, zap.NewNop())
	t.Cleanup(svc.Close)

	course, err := st.CreateCourse(context.Background(), "Algorithms", "CS-201")
	require.NoError(t, err)
	require.NoError(t, st.EnrollStudent(context.Background(), course.ID, "stu-001"))

	limit := 1
	sess, err := svc.CreateSession(context.Background(), course.ID, CreateSessionRequest{Type: "offline", Limit: &limit})
	require.NoError(t, err)

	// Rotation keeps replacing the token while the session is open.
	require.Eventually(t, func() bool {
		current, err := st.SessionByID(context.Background(), sess.ID)
		return err == nil && current.QRCodeValue != sess.QRCodeValue
	}, time.Second, 2*time.Millisecond)

	current, err := st.SessionByID(context.Background(), sess.ID)
	require.NoError(t, err)
	result, err := st.MarkAttendance(context.Background(), store.MarkRequest{Code: current.QRCodeValue, StudentID: "stu-001"})
	require.NoError(t, err)
	require.Equal(t, models.MarkSuccess, result.Outcome)

	// Once the sentinel is in place no rotation may overwrite it.
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		_, tracked := svc.rotations[sess.ID]
		return !tracked
	}, time.Second, 2*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	closed, err := st.SessionByID(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Equal(t, models.QRLimitReached, closed.QRCodeValue)
}

func TestDeleteSessionStopsRotation(t *testing.T) {
	svc, _, _, courseID := newSessionFixture(t)

	sess, err := svc.CreateSession(context.Background(), courseID, CreateSessionRequest{Type: "offline"})
	require.NoError(t, err)
	svc.mu.Lock()
	_, tracked := svc.rotations[sess.ID]
	svc.mu.Unlock()
	require.True(t, tracked)

	require.NoError(t, svc.DeleteSession(context.Background(), courseID, sess.ID))
	svc.mu.Lock()
	_, tracked = svc.rotations[sess.ID]
	svc.mu.Unlock()
	require.False(t, tracked)
}
