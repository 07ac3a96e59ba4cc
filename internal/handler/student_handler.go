package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vedhaiygl/smart-attendance-api/internal/service"
	"github.com/vedhaiygl/smart-attendance-api/pkg/response"
)

// StudentHandler exposes the directory roster.
type StudentHandler struct {
	roster *service.RosterService
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(roster *service.RosterService) *StudentHandler {
	return &StudentHandler{roster: roster}
}

// List godoc
// @Summary List the student directory
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.roster.Students(c.Request.Context()))
}
