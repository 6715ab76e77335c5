package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/aslammaulana/yt-manager-backend/internal/dto"
	"github.com/aslammaulana/yt-manager-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidRole = errors.New("invalid role")

// AdminService backs the admin panel's user management.
type AdminService struct {
	db *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

func (s *AdminService) ListUsers() ([]dto.UserResponse, error) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	now := time.Now()
	out := make([]dto.UserResponse, len(users))
	for i := range users {
		out[i] = dto.UserResponse{
			ID:              users[i].ID,
			Email:           users[i].Email,
			Role:            users[i].Role,
			AccessExpiresAt: users[i].AccessExpiresAt,
			HasAccess:       users[i].HasAccess(now),
		}
	}
	return out, nil
}

// SetRole changes a user's role, and optionally their access expiry.
// Promoting to admin clears the expiry; other roles keep the current one
// unless an explicit expiry is provided.
func (s *AdminService) SetRole(userID uuid.UUID, req *dto.SetRoleRequest) (*dto.UserResponse, error) {
	if !models.ValidRole(req.Role) {
		return nil, ErrInvalidRole
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{"role": req.Role}
	if req.Role == models.RoleAdmin {
		updates["access_expires_at"] = nil
	} else if req.AccessExpiresAt != nil {
		updates["access_expires_at"] = *req.AccessExpiresAt
	}

	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	resp := userResponse(&user)
	return &resp, nil
}
