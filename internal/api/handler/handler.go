package handler

import (
	"net/http"

	"wastetrack/backend/internal/api/middleware"
	"wastetrack/backend/internal/apperr"
	"wastetrack/backend/internal/complaint"
	"wastetrack/backend/internal/directory"
	"wastetrack/backend/internal/models"
	"wastetrack/backend/internal/stats"

	"github.com/gin-gonic/gin"
)

// Handler holds the services behind the HTTP API.
type Handler struct {
	Complaints *complaint.Service
	Directory  *directory.Service
	Stats      *stats.Aggregator
	Tokens     *middleware.Tokens
}

func NewHandler(complaints *complaint.Service, st *stats.Aggregator, tokens *middleware.Tokens) *Handler {
	return &Handler{
		Complaints: complaints,
		Directory:  complaints.Directory,
		Stats:      st,
		Tokens:     tokens,
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", h.RegisterUser)
	auth.POST("/login", h.Login)

	secured := api.Group("", middleware.AuthMiddleware(h.Tokens))
	agentOnly := middleware.RequireRole(models.RoleAgent)

	complaints := secured.Group("/complaints")
	complaints.GET("", h.ListComplaints)
	complaints.POST("", middleware.RequireRole(models.RoleCitizen), h.CreateComplaint)
	complaints.GET("/:id", h.GetComplaint)
	complaints.DELETE("/:id", agentOnly, h.DeleteComplaint)
	complaints.GET("/:id/logs", h.ComplaintLogs)
	complaints.PUT("/:id/assign", agentOnly, h.AssignComplaint)
	complaints.PUT("/:id/start", middleware.RequireRole(models.RoleWorker), h.StartComplaint)
	complaints.PUT("/:id/complete", middleware.RequireRole(models.RoleWorker), h.CompleteComplaint)
	complaints.PUT("/:id/verify", agentOnly, h.VerifyComplaint)
	complaints.PUT("/:id/feedback", middleware.RequireRole(models.RoleCitizen), h.SubmitFeedback)

	secured.GET("/dashboard/stats", h.DashboardStats)
	secured.GET("/activity", h.MyActivity)

	users := secured.Group("/users")
	users.GET("", agentOnly, h.ListUsers)
	users.GET("/workers", agentOnly, h.ListWorkers)
	users.GET("/:id", h.GetUser)
	users.PUT("/:id/activate", agentOnly, h.ActivateUser)
	users.PUT("/:id/deactivate", agentOnly, h.DeactivateUser)
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindNotFound:        http.StatusNotFound,
	apperr.KindUnauthorized:    http.StatusForbidden,
	apperr.KindInvalidArgument: http.StatusBadRequest,
	apperr.KindConflict:        http.StatusConflict,
}

// respondError writes err with the status of its kind.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
		kind = apperr.KindInternal
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err), "kind": kind})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message, "kind": apperr.KindInvalidArgument})
}
