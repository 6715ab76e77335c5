package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateTransactionRequest struct {
	PlanCode  string `json:"plan_code"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

type TransactionResponse struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	UserEmail  string     `json:"user_email,omitempty"`
	PlanCode   string     `json:"plan_code"`
	Amount     int64      `json:"amount"`
	Currency   string     `json:"currency"`
	Reference  string     `json:"reference"`
	Status     string     `json:"status"`
	ReviewedAt *time.Time `json:"reviewed_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

type SetRoleRequest struct {
	Role            string     `json:"role"`
	AccessExpiresAt *time.Time `json:"access_expires_at"`
}
