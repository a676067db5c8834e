package handler

import (
	"net/http"

	"wastetrack/backend/internal/apperr"
	"wastetrack/backend/internal/directory"
	"wastetrack/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RegisterUser creates an account and returns a token for it. Role defaults
// to CITIZEN.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name, email and password are required")
		return
	}
	role := models.RoleCitizen
	if req.Role != "" {
		role = models.Role(req.Role)
	}

	user, err := h.Directory.Register(c.Request.Context(), directory.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     role,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.issue(c, http.StatusCreated, user)
}

// Login exchanges credentials for a token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	user, err := h.Directory.Authenticate(c.Request.Context(), req.Email, req.Password)
	if apperr.Is(err, apperr.KindUnauthorized) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.Message(err), "kind": "UNAUTHENTICATED"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	h.issue(c, http.StatusOK, user)
}

func (h *Handler) issue(c *gin.Context, status int, user *models.User) {
	token, err := h.Tokens.Issue(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to sign token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token", "kind": "INTERNAL"})
		return
	}
	c.JSON(status, authResponse{Token: token, User: user})
}
