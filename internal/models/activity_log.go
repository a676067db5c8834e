package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit action vocabulary.
const (
	ActionCreated   = "CREATED"
	ActionAssigned  = "ASSIGNED"
	ActionStarted   = "STARTED"
	ActionCompleted = "COMPLETED"
	ActionVerified  = "VERIFIED"
	ActionRejected  = "REJECTED"
	ActionFeedback  = "FEEDBACK"
)

// ActionResult maps each status-changing action to the status it leaves the
// complaint in. FEEDBACK does not change status and is absent.
var ActionResult = map[string]Status{
	ActionCreated:   StatusPending,
	ActionAssigned:  StatusAssigned,
	ActionStarted:   StatusInProgress,
	ActionCompleted: StatusCompleted,
	ActionVerified:  StatusVerified,
	ActionRejected:  StatusAssigned,
}

// ActivityLog is an append-only audit entry. It is never updated; it is
// removed only together with its complaint.
type ActivityLog struct {
	ID      string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Action  string `gorm:"type:varchar(32);not null" json:"action"`
	Details string `gorm:"type:text" json:"details"`

	ComplaintID string `gorm:"type:varchar(36);not null;index:idx_log_complaint_created" json:"complaintId"`
	UserID      string `gorm:"type:varchar(36);not null;index" json:"userId"`
	User        *User  `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `gorm:"not null;index:idx_log_complaint_created" json:"createdAt"`
}

// BeforeCreate generates a UUID for the entry when none is set.
func (l *ActivityLog) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return
}
