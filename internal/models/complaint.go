package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusVerified   Status = "VERIFIED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusVerified}

// edges is the lifecycle graph. COMPLETED -> ASSIGNED is the rejection back-edge.
var edges = map[Status][]Status{
	StatusPending:    {StatusAssigned},
	StatusAssigned:   {StatusInProgress},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {StatusVerified, StatusAssigned},
	StatusVerified:   nil,
}

func (s Status) Valid() bool {
	_, ok := edges[s]
	return ok
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, to := range edges[s] {
		if to == next {
			return true
		}
	}
	return false
}

// IsTerminal is true for VERIFIED.
func (s Status) IsTerminal() bool {
	return s.Valid() && len(edges[s]) == 0
}

// Priority of a complaint.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Complaint is a citizen-reported waste issue and the subject of the
// lifecycle. Title, description, location and citizen are fixed at creation.
type Complaint struct {
	ID          string  `gorm:"primaryKey;type:varchar(36)"`
	Title       string  `gorm:"type:varchar(200);not null"`
	Description string  `gorm:"type:varchar(1000);not null"`
	Address     string  `gorm:"type:varchar(255);not null"`
	Latitude    float64 `gorm:"column:location_lat;type:numeric(10,8);not null"`
	Longitude   float64 `gorm:"column:location_lng;type:numeric(11,8);not null"`

	Status   Status   `gorm:"type:varchar(16);not null;index"`
	Priority Priority `gorm:"type:varchar(8);not null;index"`

	CitizenID        string  `gorm:"type:varchar(36);not null;index"`
	Citizen          *User   `gorm:"foreignKey:CitizenID"`
	AssignedWorkerID *string `gorm:"type:varchar(36);index"`
	AssignedWorker   *User   `gorm:"foreignKey:AssignedWorkerID"`

	// Each image slot is written at most once.
	ImagePath       *string `gorm:"type:varchar(512)"`
	BeforeImagePath *string `gorm:"type:varchar(512)"`
	AfterImagePath  *string `gorm:"type:varchar(512)"`

	Feedback *string `gorm:"type:varchar(500)"`
	Rating   *int

	AssignedAt  *time.Time
	CompletedAt *time.Time
	VerifiedAt  *time.Time
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false"`

	// Version is bumped on every committed mutation and guards against stale writes.
	Version int `gorm:"not null;default:1"`

	ActivityLogs []ActivityLog `gorm:"foreignKey:ComplaintID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate generates the complaint id when none is set.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// IsAssignedTo reports whether userID is the complaint's worker. A complaint
// without a worker is assigned to nobody.
func (c *Complaint) IsAssignedTo(userID string) bool {
	return c.AssignedWorkerID != nil && *c.AssignedWorkerID == userID
}

// IsOwnedBy reports whether userID filed the complaint.
func (c *Complaint) IsOwnedBy(userID string) bool {
	return c.CitizenID == userID
}

// Clone returns a deep copy without loaded associations.
func (c *Complaint) Clone() *Complaint {
	cp := *c
	cp.Citizen = nil
	cp.AssignedWorker = nil
	cp.ActivityLogs = nil
	cp.AssignedWorkerID = cloneString(c.AssignedWorkerID)
	cp.ImagePath = cloneString(c.ImagePath)
	cp.BeforeImagePath = cloneString(c.BeforeImagePath)
	cp.AfterImagePath = cloneString(c.AfterImagePath)
	cp.Feedback = cloneString(c.Feedback)
	cp.AssignedAt = cloneTime(c.AssignedAt)
	cp.CompletedAt = cloneTime(c.CompletedAt)
	cp.VerifiedAt = cloneTime(c.VerifiedAt)
	if c.Rating != nil {
		r := *c.Rating
		cp.Rating = &r
	}
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
