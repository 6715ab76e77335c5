package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/aslammaulana/yt-manager-backend/internal/dto"
	"github.com/aslammaulana/yt-manager-backend/internal/models"
	"github.com/aslammaulana/yt-manager-backend/internal/scope"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTxNotFound     = errors.New("transaction not found")
	ErrTxNotPending   = errors.New("transaction already reviewed")
	ErrUnknownPlan    = errors.New("unknown plan code")
	ErrInvalidRequest = errors.New("invalid transaction request")
)

// PlanDurations maps purchasable plan codes to the membership window each
// approval grants.
var PlanDurations = map[string]time.Duration{
	"monthly":   30 * 24 * time.Hour,
	"quarterly": 90 * 24 * time.Hour,
	"yearly":    365 * 24 * time.Hour,
}

type TransactionService struct {
	db *gorm.DB
}

func NewTransactionService(db *gorm.DB) *TransactionService {
	return &TransactionService{db: db}
}

// Create records a manual payment submission as pending review.
func (s *TransactionService) Create(userID uuid.UUID, req *dto.CreateTransactionRequest) (*dto.TransactionResponse, error) {
	if _, ok := PlanDurations[req.PlanCode]; !ok {
		return nil, ErrUnknownPlan
	}
	if req.Amount <= 0 || req.Reference == "" {
		return nil, ErrInvalidRequest
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	tx := models.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		PlanCode:  req.PlanCode,
		Amount:    req.Amount,
		Currency:  currency,
		Reference: req.Reference,
		Status:    models.TxPending,
	}
	if err := s.db.Create(&tx).Error; err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	resp := txResponse(&tx, "")
	return &resp, nil
}

// ListVisible returns the caller's transactions, or every transaction for
// admins, optionally filtered by status.
func (s *TransactionService) ListVisible(userID uuid.UUID, admin bool, status string) ([]dto.TransactionResponse, error) {
	q := s.db.Scopes(scope.VisibleTo(userID, admin)).Preload("User").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var txs []models.Transaction
	if err := q.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	out := make([]dto.TransactionResponse, len(txs))
	for i := range txs {
		out[i] = txResponse(&txs[i], txs[i].User.Email)
	}
	return out, nil
}

// Approve marks a pending transaction approved and applies its plan:
// the user becomes a member and their access window extends by the plan
// duration, on top of any remaining time. Only pending transactions can
// be reviewed, so a double approval is rejected rather than double-applied.
func (s *TransactionService) Approve(adminID, txID uuid.UUID) (*dto.TransactionResponse, error) {
	var tx models.Transaction
	err := s.db.Transaction(func(db *gorm.DB) error {
		if err := db.First(&tx, "id = ?", txID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTxNotFound
			}
			return err
		}
		if tx.Status != models.TxPending {
			return ErrTxNotPending
		}

		duration, ok := PlanDurations[tx.PlanCode]
		if !ok {
			return ErrUnknownPlan
		}

		var user models.User
		if err := db.First(&user, "id = ?", tx.UserID).Error; err != nil {
			return fmt.Errorf("transaction owner not found: %w", err)
		}

		now := time.Now()
		base := now
		if user.AccessExpiresAt != nil && user.AccessExpiresAt.After(now) {
			base = *user.AccessExpiresAt
		}
		newExpiry := base.Add(duration)

		role := user.Role
		if role != models.RoleAdmin {
			role = models.RoleMember
		}
		if err := db.Model(&user).Updates(map[string]interface{}{
			"role":              role,
			"access_expires_at": newExpiry,
		}).Error; err != nil {
			return fmt.Errorf("failed to apply plan: %w", err)
		}

		tx.Status = models.TxApproved
		tx.ReviewedBy = &adminID
		tx.ReviewedAt = &now
		return db.Save(&tx).Error
	})
	if err != nil {
		return nil, err
	}

	resp := txResponse(&tx, "")
	return &resp, nil
}

// Reject marks a pending transaction rejected without touching membership.
func (s *TransactionService) Reject(adminID, txID uuid.UUID) (*dto.TransactionResponse, error) {
	var tx models.Transaction
	if err := s.db.First(&tx, "id = ?", txID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTxNotFound
		}
		return nil, err
	}
	if tx.Status != models.TxPending {
		return nil, ErrTxNotPending
	}

	now := time.Now()
	tx.Status = models.TxRejected
	tx.ReviewedBy = &adminID
	tx.ReviewedAt = &now
	if err := s.db.Save(&tx).Error; err != nil {
		return nil, fmt.Errorf("failed to reject transaction: %w", err)
	}

	resp := txResponse(&tx, "")
	return &resp, nil
}

func txResponse(tx *models.Transaction, userEmail string) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:         tx.ID,
		UserID:     tx.UserID,
		UserEmail:  userEmail,
		PlanCode:   tx.PlanCode,
		Amount:     tx.Amount,
		Currency:   tx.Currency,
		Reference:  tx.Reference,
		Status:     tx.Status,
		ReviewedAt: tx.ReviewedAt,
		CreatedAt:  tx.CreatedAt,
	}
}
