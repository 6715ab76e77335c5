package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership roles, in ascending order of privilege.
const (
	RoleTrial  = "trial"
	RoleMember = "member"
	RoleAdmin  = "admin"
)

func ValidRole(role string) bool {
	return role == RoleTrial || role == RoleMember || role == RoleAdmin
}

// User is a dashboard account. Membership access is defined by the
// Role plus AccessExpiresAt pair; admins never expire.
type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password        string         `gorm:"not null" json:"-"`
	Role            string         `gorm:"size:20;default:'trial'" json:"role"`
	AccessExpiresAt *time.Time     `json:"access_expires_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasAccess reports whether the user may reach membership-gated routes.
func (u *User) HasAccess(now time.Time) bool {
	if u.Role == RoleAdmin {
		return true
	}
	return u.AccessExpiresAt != nil && now.Before(*u.AccessExpiresAt)
}
