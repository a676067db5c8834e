package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"wastetrack/backend/internal/api/middleware"
	"wastetrack/backend/internal/complaint"
	"wastetrack/backend/internal/filestore"
	"wastetrack/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type createRequest struct {
	Title       string  `json:"title" form:"title"`
	Description string  `json:"description" form:"description"`
	Address     string  `json:"address" form:"address"`
	Latitude    float64 `json:"locationLat" form:"locationLat"`
	Longitude   float64 `json:"locationLng" form:"locationLng"`
	Priority    string  `json:"priority" form:"priority"`
}

type assignRequest struct {
	WorkerID string `json:"workerId" binding:"required"`
}

type verifyRequest struct {
	Approved *bool   `json:"approved" binding:"required"`
	Feedback *string `json:"feedback"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
	Rating   int    `json:"rating" binding:"required"`
}

type pageResponse struct {
	Items []models.ComplaintView `json:"items"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Size  int                    `json:"size"`
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// formUpload returns the uploaded file in field, or nil when none was sent.
// The caller closes the returned closer.
func formUpload(c *gin.Context, field string) (*filestore.Upload, io.Closer, error) {
	header, err := c.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return open(header)
}

func open(header *multipart.FileHeader) (*filestore.Upload, io.Closer, error) {
	f, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return &filestore.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}, f, nil
}

func closeAll(closers ...io.Closer) {
	for _, c := range closers {
		if c != nil {
			_ = c.Close()
		}
	}
}

func respondResult(c *gin.Context, status int, res *complaint.Result) {
	c.JSON(status, models.NewComplaintView(res.Complaint))
}

// CreateComplaint accepts JSON or a multipart form with an optional "image".
func (h *Handler) CreateComplaint(c *gin.Context) {
	var req createRequest
	var image *filestore.Upload
	if isMultipart(c) {
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "invalid complaint form")
			return
		}
		up, closer, err := formUpload(c, "image")
		if err != nil {
			badRequest(c, "invalid image upload")
			return
		}
		defer closeAll(closer)
		image = up
	} else if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid complaint payload")
		return
	}

	res, err := h.Complaints.Create(c.Request.Context(), middleware.UserID(c), complaint.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Priority:    models.Priority(strings.ToUpper(req.Priority)),
		Image:       image,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, http.StatusCreated, res)
}

// ListComplaints lists what the caller may see. Query: status, page, size.
func (h *Handler) ListComplaints(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		badRequest(c, "page must be a number")
		return
	}
	size, err := queryInt(c, "size")
	if err != nil {
		badRequest(c, "size must be a number")
		return
	}

	res, err := h.Complaints.ListForActor(c.Request.Context(), middleware.UserID(c), complaint.ListInput{
		Status: models.Status(strings.ToUpper(c.Query("status"))),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	out := pageResponse{Items: make([]models.ComplaintView, 0, len(res.Items)), Total: res.Total, Page: res.Page, Size: res.Size}
	for i := range res.Items {
		out.Items = append(out.Items, models.NewComplaintView(&res.Items[i]))
	}
	c.JSON(http.StatusOK, out)
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (h *Handler) GetComplaint(c *gin.Context) {
	comp, err := h.Complaints.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewComplaintView(comp))
}

func (h *Handler) DeleteComplaint(c *gin.Context) {
	if err := h.Complaints.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ComplaintLogs returns the complaint's history, newest first.
func (h *Handler) ComplaintLogs(c *gin.Context) {
	logs, err := h.Complaints.Logs(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// MyActivity returns the entries the caller wrote, newest first.
func (h *Handler) MyActivity(c *gin.Context) {
	logs, err := h.Complaints.ActorLogs(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) AssignComplaint(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "workerId is required")
		return
	}
	res, err := h.Complaints.Assign(c.Request.Context(), middleware.UserID(c), c.Param("id"), complaint.AssignInput{WorkerID: req.WorkerID})
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, http.StatusOK, res)
}

func (h *Handler) StartComplaint(c *gin.Context) {
	res, err := h.Complaints.Start(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, http.StatusOK, res)
}

// CompleteComplaint accepts optional "beforeImage" and "afterImage" files.
func (h *Handler) CompleteComplaint(c *gin.Context) {
	var in complaint.CompleteInput
	if isMultipart(c) {
		before, bc, err := formUpload(c, "beforeImage")
		if err != nil {
			badRequest(c, "invalid beforeImage upload")
			return
		}
		after, ac, err := formUpload(c, "afterImage")
		if err != nil {
			closeAll(bc)
			badRequest(c, "invalid afterImage upload")
			return
		}
		defer closeAll(bc, ac)
		in.BeforeImage, in.AfterImage = before, after
	}

	res, err := h.Complaints.Complete(c.Request.Context(), middleware.UserID(c), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, http.StatusOK, res)
}

func (h *Handler) VerifyComplaint(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "approved is required")
		return
	}
	res, err := h.Complaints.Verify(c.Request.Context(), middleware.UserID(c), c.Param("id"), complaint.VerifyInput{
		Approved: *req.Approved,
		Feedback: req.Feedback,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, http.StatusOK, res)
}

func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "rating is required")
		return
	}
	res, err := h.Complaints.SubmitFeedback(c.Request.Context(), middleware.UserID(c), c.Param("id"), complaint.FeedbackInput{
		Feedback: req.Feedback,
		Rating:   req.Rating,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondResult(c, http.StatusOK, res)
}

// DashboardStats returns the counters of the caller's role.
func (h *Handler) DashboardStats(c *gin.Context) {
	actor, err := h.Directory.Resolve(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.Stats.For(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
