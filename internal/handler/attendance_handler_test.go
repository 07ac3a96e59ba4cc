package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vedhaiygl/smart-attendance-api/internal/directory"
	"github.com/vedhaiygl/smart-attendance-api/internal/models"
	"github.com/vedhaiygl/smart-attendance-api/internal/service"
	"github.com/vedhaiygl/smart-attendance-api/internal/store"
	"github.com/vedhaiygl/smart-attendance-api/internal/token"
	"github.com/vedhaiygl/smart-attendance-api/pkg/response"
)

type handlerFixture struct {
	handler  *AttendanceHandler
	store    store.Store
	clock    *token.FakeClock
	courseID string
	session  *models.Session
}

func newHandlerFixture(t *testing.T, params store.CreateSessionParams) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := &token.FakeClock{Current: time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore(clock, 60*time.Second, directory.NewStatic(directory.Seed()))
	svc := service.NewAttendanceService(st, nil, service.NewMetricsService(), nil, nil, zap.NewNop())

	ctx := context.Background()
	course, err := st.CreateCourse(ctx, "Software Engineering", "CS-320")
	require.NoError(t, err)
	require.NoError(t, st.EnrollStudent(ctx, course.ID, "stu-001"))

	if params.QRToken == "" {
		params.QRToken = token.NewGenerator(clock).SessionToken()
	}
	sess, err := st.CreateSession(ctx, course.ID, params)
	require.NoError(t, err)

	return &handlerFixture{
		handler:  NewAttendanceHandler(svc),
		store:    st,
		clock:    clock,
		courseID: course.ID,
		session:  sess,
	}
}

func postMark(t *testing.T, h *AttendanceHandler, payload map[string]string) (*httptest.ResponseRecorder, response.Envelope) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/mark", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Mark(c)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func markOutcome(t *testing.T, envelope response.Envelope) string {
	t.Helper()
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	outcome, ok := data["outcome"].(string)
	require.True(t, ok)
	return outcome
}

func TestMarkEndpointSuccess(t *testing.T) {
	f := newHandlerFixture(t, store.CreateSessionParams{Type: models.SessionTypeOffline})

	rec, envelope := postMark(t, f.handler, map[string]string{
		"code":       f.session.QRCodeValue,
		"student_id": "stu-001",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.MarkSuccess), markOutcome(t, envelope))
}

func TestMarkEndpointExpiredToken(t *testing.T) {
	f := newHandlerFixture(t, store.CreateSessionParams{Type: models.SessionTypeOffline})
	f.clock.Advance(61 * time.Second)

	rec, envelope := postMark(t, f.handler, map[string]string{
		"code":       f.session.QRCodeValue,
		"student_id": "stu-001",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(models.MarkExpiredQR), markOutcome(t, envelope))
}

func TestMarkEndpointNotEnrolled(t *testing.T) {
	f := newHandlerFixture(t, store.CreateSessionParams{Type: models.SessionTypeOffline})

	rec, envelope := postMark(t, f.handler, map[string]string{
		"code":       f.session.QRCodeValue,
		"student_id": "stu-008",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(models.MarkNotEnrolled), markOutcome(t, envelope))
}

func TestMarkEndpointMissingBody(t *testing.T) {
	f := newHandlerFixture(t, store.CreateSessionParams{Type: models.SessionTypeOffline})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/mark", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")

	f.handler.Mark(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleEndpoint(t *testing.T) {
	f := newHandlerFixture(t, store.CreateSessionParams{Type: models.SessionTypeOffline})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/toggle", nil)
	c.Params = gin.Params{
		{Key: "id", Value: f.courseID},
		{Key: "sessionId", Value: f.session.ID},
		{Key: "studentId", Value: "stu-001"},
	}

	f.handler.Toggle(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(models.AttendanceStatusPresent), data["status"])
}

func TestSummaryEndpointUnknownCourse(t *testing.T) {
	f := newHandlerFixture(t, store.CreateSessionParams{Type: models.SessionTypeOffline})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/summary", nil)
	c.Params = gin.Params{
		{Key: "id", Value: "missing"},
		{Key: "studentId", Value: "stu-001"},
	}

	f.handler.Summary(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
