package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vedhaiygl/smart-attendance-api/internal/models"
	"github.com/vedhaiygl/smart-attendance-api/internal/service"
	appErrors "github.com/vedhaiygl/smart-attendance-api/pkg/errors"
	"github.com/vedhaiygl/smart-attendance-api/pkg/response"
)

// AttendanceHandler exposes the scan pipeline and faculty overrides.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// markStatus maps each business outcome to an HTTP status. Rejections are
// not errors; the outcome always travels in the body.
func markStatus(outcome models.MarkOutcome) int {
	switch outcome {
	case models.MarkSuccess:
		return http.StatusOK
	case models.MarkNotEnrolled:
		return http.StatusForbidden
	case models.MarkAlreadyMarked:
		return http.StatusConflict
	case models.MarkLimitReached:
		return http.StatusConflict
	case models.MarkLivenessRequired:
		return http.StatusPreconditionRequired
	case models.MarkError:
		return http.StatusInternalServerError
	default: // expired_qr, invalid_qr
		return http.StatusUnprocessableEntity
	}
}

// Mark godoc
// @Summary Mark attendance from a QR scan or short code entry
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.attendance.Mark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, markStatus(result.Outcome), result)
}

// Toggle godoc
// @Summary Toggle one attendance record without token validation
// @Tags Attendance
// @Produce json
// @Param id path string true "Course ID"
// @Param sessionId path string true "Session ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sessions/{sessionId}/attendance/{studentId}/toggle [post]
func (h *AttendanceHandler) Toggle(c *gin.Context) {
	record, err := h.attendance.Toggle(c.Request.Context(), c.Param("id"), c.Param("sessionId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Summary godoc
// @Summary Attendance summary for one student in a course
// @Tags Attendance
// @Produce json
// @Param id path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/attendance/{studentId}/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summary, err := h.attendance.Summary(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// CourseSummary godoc
// @Summary Attendance summary for every enrolled student
// @Tags Attendance
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/attendance-summary [get]
func (h *AttendanceHandler) CourseSummary(c *gin.Context) {
	summaries, err := h.attendance.CourseSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries)
}
