package complaint

import (
	"math"
	"strings"
	"unicode/utf8"

	"wastetrack/backend/internal/apperr"
	"wastetrack/backend/internal/config"
	"wastetrack/backend/internal/filestore"
	"wastetrack/backend/internal/models"
)

// CreateInput is what a citizen submits. Priority defaults to MEDIUM.
type CreateInput struct {
	Title       string
	Description string
	Address     string
	Latitude    float64
	Longitude   float64
	Priority    models.Priority
	Image       *filestore.Upload
}

func (in *CreateInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)

	switch {
	case in.Title == "":
		return apperr.InvalidArgument("title is required")
	case utf8.RuneCountInString(in.Title) > config.MaxTitleLength:
		return apperr.InvalidArgument("title must not exceed %d characters", config.MaxTitleLength)
	case in.Description == "":
		return apperr.InvalidArgument("description is required")
	case utf8.RuneCountInString(in.Description) > config.MaxDescriptionLength:
		return apperr.InvalidArgument("description must not exceed %d characters", config.MaxDescriptionLength)
	case in.Address == "":
		return apperr.InvalidArgument("address is required")
	case in.Latitude < config.MinLatitude || in.Latitude > config.MaxLatitude:
		return apperr.InvalidArgument("latitude must be between %v and %v", config.MinLatitude, config.MaxLatitude)
	case in.Longitude < config.MinLongitude || in.Longitude > config.MaxLongitude:
		return apperr.InvalidArgument("longitude must be between %v and %v", config.MinLongitude, config.MaxLongitude)
	}

	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.Valid() {
		return apperr.InvalidArgument("priority must be one of LOW, MEDIUM, HIGH")
	}
	return checkPhoto("image", in.Image)
}

func checkPhoto(field string, up *filestore.Upload) error {
	if up == nil {
		return nil
	}
	if err := up.Check(); err != nil {
		return apperr.InvalidArgument("%s must be a jpeg, png, gif or webp image", field)
	}
	return nil
}

// AssignInput names the worker an agent hands the complaint to.
type AssignInput struct {
	WorkerID string
}

func (in AssignInput) validate() error {
	if strings.TrimSpace(in.WorkerID) == "" {
		return apperr.InvalidArgument("workerId is required")
	}
	return nil
}

// CompleteInput carries the optional evidence photos of the work.
type CompleteInput struct {
	BeforeImage *filestore.Upload
	AfterImage  *filestore.Upload
}

func (in CompleteInput) validate() error {
	if err := checkPhoto("beforeImage", in.BeforeImage); err != nil {
		return err
	}
	return checkPhoto("afterImage", in.AfterImage)
}

// VerifyInput is the agent's verdict. Feedback, when set, replaces the
// default details of the audit entry.
type VerifyInput struct {
	Approved bool
	Feedback *string
}

func (in VerifyInput) validate() error {
	if in.Feedback != nil && utf8.RuneCountInString(*in.Feedback) > config.MaxFeedbackLength {
		return apperr.InvalidArgument("feedback must not exceed %d characters", config.MaxFeedbackLength)
	}
	return nil
}

// FeedbackInput is the citizen's rating of the outcome.
type FeedbackInput struct {
	Feedback string
	Rating   int
}

func (in FeedbackInput) validate() error {
	if in.Rating < config.MinRating || in.Rating > config.MaxRating {
		return apperr.InvalidArgument("rating must be between %d and %d", config.MinRating, config.MaxRating)
	}
	if utf8.RuneCountInString(in.Feedback) > config.MaxFeedbackLength {
		return apperr.InvalidArgument("feedback must not exceed %d characters", config.MaxFeedbackLength)
	}
	return nil
}

// ListInput filters ListForActor. Page starts at 0; Size 0 means the default.
type ListInput struct {
	Status models.Status
	Page   int
	Size   int
}

func (in *ListInput) validate() error {
	if in.Status != "" && !in.Status.Valid() {
		return apperr.InvalidArgument("unknown status %q", in.Status)
	}
	if in.Page < 0 {
		return apperr.InvalidArgument("page must not be negative")
	}
	switch {
	case in.Size <= 0:
		in.Size = config.DefaultPageSize
	case in.Size > config.MaxPageSize:
		in.Size = config.MaxPageSize
	}
	if in.Page > math.MaxInt/in.Size {
		return apperr.InvalidArgument("page %d is out of range", in.Page)
	}
	return nil
}
