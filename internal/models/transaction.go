package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Transaction statuses.
const (
	TxPending  = "pending"
	TxApproved = "approved"
	TxRejected = "rejected"
)

// Transaction is a manual payment submitted by a user and reviewed by an
// admin. Approval applies the purchased plan to the user's membership.
type Transaction struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanCode   string         `gorm:"size:50;not null" json:"plan_code"`
	Amount     int64          `gorm:"not null" json:"amount"` // minor currency units
	Currency   string         `gorm:"size:8;default:'USD'" json:"currency"`
	Reference  string         `gorm:"size:255" json:"reference"` // transfer reference / proof
	Status     string         `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ReviewedBy *uuid.UUID     `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt *time.Time     `json:"reviewed_at"`
	Meta       datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"meta"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	User       User           `gorm:"foreignKey:UserID" json:"-"`
}
