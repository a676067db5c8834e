package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of actor roles.
type Role string

const (
	RoleCitizen Role = "CITIZEN"
	RoleWorker  Role = "WORKER"
	RoleAgent   Role = "AGENT"
)

// Roles lists every valid role.
var Roles = []Role{RoleCitizen, RoleWorker, RoleAgent}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleWorker, RoleAgent:
		return true
	}
	return false
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// User is an actor of the workflow. Role never changes once assigned;
// IsActive only filters role listings.
type User struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password string `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash
	Phone    string `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Role     Role   `gorm:"type:varchar(16);not null;index" json:"role"`
	IsActive bool   `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate generates a UUID for the user when none is set.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
