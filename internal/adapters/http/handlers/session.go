package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/session-relay/internal/adapters/http/dto"
	"github.com/jsamuelsen/session-relay/internal/app"
)

// SessionHandler handles the sign-in hand-off, sign-out and session status.
type SessionHandler struct {
	service *app.SessionService
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(service *app.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// GetSession handles GET /api/v1/session.
// Reports token presence, identity, and whether renewal or a rate-limit
// window is active. Tokens are never returned.
func (h *SessionHandler) GetSession(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponseFromDomain(status))
}

// PutSession handles PUT /api/v1/session.
// Stores the tokens the login screen obtained from the backend.
func (h *SessionHandler) PutSession(c *gin.Context) {
	var req dto.SessionRequest

	if err := dto.BindAndValidate(c, &req); err != nil {
		if errors.Is(err, dto.ErrValidation) {
			RespondWithValidationErrors(c, dto.ValidationErrors(err))
			return
		}

		RespondWithErrorCode(c, dto.ErrorCodeBadRequest, "request body must be a JSON session object")

		return
	}

	status, err := h.service.SignIn(c.Request.Context(), req.ToDomain())
	if err != nil {
		RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponseFromDomain(status))
}

// DeleteSession handles DELETE /api/v1/session.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.service.SignOut(c.Request.Context()); err != nil {
		RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterSessionRoutes registers session routes on the given router group.
func (h *SessionHandler) RegisterSessionRoutes(rg *gin.RouterGroup) {
	rg.GET("/session", h.GetSession)
	rg.PUT("/session", h.PutSession)
	rg.DELETE("/session", h.DeleteSession)
}
