package models

import "time"

// ComplaintView is the caller-facing projection of a complaint.
type ComplaintView struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Latitude    float64  `json:"locationLat"`
	Longitude   float64  `json:"locationLng"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`

	CitizenID          string  `json:"citizenId"`
	CitizenName        string  `json:"citizenName,omitempty"`
	CitizenEmail       string  `json:"citizenEmail,omitempty"`
	AssignedWorkerID   *string `json:"assignedWorkerId"`
	AssignedWorkerName string  `json:"assignedWorkerName,omitempty"`

	ImagePath       *string `json:"imagePath"`
	BeforeImagePath *string `json:"beforeImagePath"`
	AfterImagePath  *string `json:"afterImagePath"`
	Feedback        *string `json:"feedback"`
	Rating          *int    `json:"rating"`

	AssignedAt  *time.Time `json:"assignedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	VerifiedAt  *time.Time `json:"verifiedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewComplaintView projects c. Citizen and worker details are filled in when
// the associations are loaded.
func NewComplaintView(c *Complaint) ComplaintView {
	v := ComplaintView{
		ID:               c.ID,
		Title:            c.Title,
		Description:      c.Description,
		Address:          c.Address,
		Latitude:         c.Latitude,
		Longitude:        c.Longitude,
		Status:           c.Status,
		Priority:         c.Priority,
		CitizenID:        c.CitizenID,
		AssignedWorkerID: c.AssignedWorkerID,
		ImagePath:        c.ImagePath,
		BeforeImagePath:  c.BeforeImagePath,
		AfterImagePath:   c.AfterImagePath,
		Feedback:         c.Feedback,
		Rating:           c.Rating,
		AssignedAt:       c.AssignedAt,
		CompletedAt:      c.CompletedAt,
		VerifiedAt:       c.VerifiedAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if c.Citizen != nil {
		v.CitizenName = c.Citizen.Name
		v.CitizenEmail = c.Citizen.Email
	}
	if c.AssignedWorker != nil {
		v.AssignedWorkerName = c.AssignedWorker.Name
	}
	return v
}

// DashboardStats holds the per-role dashboard counters. Counters that do not
// apply to the caller's role are nil.
type DashboardStats struct {
	TotalComplaints      *int64 `json:"totalComplaints,omitempty"`
	PendingComplaints    *int64 `json:"pendingComplaints,omitempty"`
	AssignedComplaints   *int64 `json:"assignedComplaints,omitempty"`
	InProgressComplaints *int64 `json:"inProgressComplaints,omitempty"`
	CompletedComplaints  *int64 `json:"completedComplaints,omitempty"`
	VerifiedComplaints   *int64 `json:"verifiedComplaints,omitempty"`

	MyComplaints       *int64 `json:"myComplaints,omitempty"`
	ResolvedComplaints *int64 `json:"resolvedComplaints,omitempty"`

	AssignedTasks  *int64 `json:"assignedTasks,omitempty"`
	PendingTasks   *int64 `json:"pendingTasks,omitempty"`
	CompletedTasks *int64 `json:"completedTasks,omitempty"`

	StatusBreakdown   map[Status]int64   `json:"statusBreakdown,omitempty"`
	PriorityBreakdown map[Priority]int64 `json:"priorityBreakdown,omitempty"`
}
