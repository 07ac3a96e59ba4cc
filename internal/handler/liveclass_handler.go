package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vedhaiygl/smart-attendance-api/internal/service"
	appErrors "github.com/vedhaiygl/smart-attendance-api/pkg/errors"
	"github.com/vedhaiygl/smart-attendance-api/pkg/response"
)

// LiveClassHandler exposes the live class lifecycle endpoints.
type LiveClassHandler struct {
	liveClasses *service.LiveClassService
}

// NewLiveClassHandler constructs a live class handler.
func NewLiveClassHandler(liveClasses *service.LiveClassService) *LiveClassHandler {
	return &LiveClassHandler{liveClasses: liveClasses}
}

// Start godoc
// @Summary Start a live class, ending any previous one in the course
// @Tags LiveClasses
// @Produce json
// @Param id path string true "Course ID"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/live-classes [post]
func (h *LiveClassHandler) Start(c *gin.Context) {
	lc, err := h.liveClasses.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lc)
}

// End godoc
// @Summary End a live class and finalize open attendee entries
// @Tags LiveClasses
// @Produce json
// @Param id path string true "Course ID"
// @Param liveClassId path string true "Live class ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/live-classes/{liveClassId}/end [post]
func (h *LiveClassHandler) End(c *gin.Context) {
	lc, err := h.liveClasses.End(c.Request.Context(), c.Param("id"), c.Param("liveClassId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lc)
}

type liveClassStudentRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

// Join godoc
// @Summary Record a student joining a live class
// @Tags LiveClasses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param liveClassId path string true "Live class ID"
// @Param payload body liveClassStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/live-classes/{liveClassId}/join [post]
func (h *LiveClassHandler) Join(c *gin.Context) {
	var req liveClassStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lc, err := h.liveClasses.Join(c.Request.Context(), c.Param("id"), c.Param("liveClassId"), req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lc)
}

// Leave godoc
// @Summary Record a student leaving a live class
// @Tags LiveClasses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param liveClassId path string true "Live class ID"
// @Param payload body liveClassStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/live-classes/{liveClassId}/leave [post]
func (h *LiveClassHandler) Leave(c *gin.Context) {
	var req liveClassStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	attendee, err := h.liveClasses.Leave(c.Request.Context(), c.Param("id"), c.Param("liveClassId"), req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attendee)
}
