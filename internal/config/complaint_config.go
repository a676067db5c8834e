package config

const (
	// Rating
	MinRating = 1
	MaxRating = 5

	// Field limits
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MaxFeedbackLength    = 500

	// Coordinates
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0

	// Listing
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ActionDetails holds the default audit details text per action tag.
var ActionDetails = map[string]string{
	"CREATED":   "Complaint submitted by citizen",
	"ASSIGNED":  "Complaint assigned to worker: %s",
	"STARTED":   "Work started on complaint",
	"COMPLETED": "Work completed with before/after photos",
	"VERIFIED":  "Complaint verified by agent",
	"REJECTED":  "Complaint rejected by agent",
	"FEEDBACK":  "Citizen provided feedback and rating: %d/5",
}
