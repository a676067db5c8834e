package handler

import (
	"net/http"

	"wastetrack/backend/internal/api/middleware"
	"wastetrack/backend/internal/apperr"
	"wastetrack/backend/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Directory.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// ListWorkers returns the active workers an agent can assign.
func (h *Handler) ListWorkers(c *gin.Context) {
	users, err := h.Directory.ListActiveByRole(c.Request.Context(), models.RoleWorker)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser returns a user. Non-agents can only read themselves.
func (h *Handler) GetUser(c *gin.Context) {
	id := c.Param("id")
	if middleware.Role(c) != models.RoleAgent && id != middleware.UserID(c) {
		respondError(c, apperr.Unauthorized("you can only view your own profile"))
		return
	}
	user, err := h.Directory.Resolve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) ActivateUser(c *gin.Context) {
	h.setActive(c, true)
}

func (h *Handler) DeactivateUser(c *gin.Context) {
	h.setActive(c, false)
}

func (h *Handler) setActive(c *gin.Context, active bool) {
	id := c.Param("id")
	if err := h.Directory.SetActive(c.Request.Context(), id, active); err != nil {
		respondError(c, err)
		return
	}
	user, err := h.Directory.Resolve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
