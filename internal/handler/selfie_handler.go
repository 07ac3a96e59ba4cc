package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vedhaiygl/smart-attendance-api/internal/service"
	"github.com/vedhaiygl/smart-attendance-api/internal/store"
	appErrors "github.com/vedhaiygl/smart-attendance-api/pkg/errors"
	"github.com/vedhaiygl/smart-attendance-api/pkg/response"
)

// SelfieHandler signs and serves liveness payloads for faculty review.
type SelfieHandler struct {
	selfies *service.SelfieService
}

// NewSelfieHandler constructs a selfie handler.
func NewSelfieHandler(selfies *service.SelfieService) *SelfieHandler {
	return &SelfieHandler{selfies: selfies}
}

// SignedURL godoc
// @Summary Issue a time-limited link for a stored selfie
// @Tags Selfies
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{sessionId}/selfies/{studentId}/url [get]
func (h *SelfieHandler) SignedURL(c *gin.Context) {
	sessionID := c.Param("sessionId")
	studentID := c.Param("studentId")
	recordKey := sessionID + ":" + studentID
	token, expires, err := h.selfies.SignedURL(recordKey, store.SelfieKey(sessionID, studentID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"token":      token,
		"url":        "/selfies?token=" + token,
		"expires_at": expires,
	})
}

// Serve godoc
// @Summary Serve a selfie via its signed token
// @Tags Selfies
// @Produce image/jpeg
// @Param token query string true "Signed token"
// @Success 200
// @Router /selfies [get]
func (h *SelfieHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing token"))
		return
	}
	file, err := h.selfies.OpenSigned(token)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrNotFound.Code, http.StatusNotFound, "selfie not available"))
		return
	}
	defer file.Close() //nolint:errcheck
	c.Header("Content-Type", "image/jpeg")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
