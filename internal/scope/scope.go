package scope

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ForOwner returns a GORM scope that filters rows by owning user.
// This is the application-level stand-in for row-level security.
func ForOwner(userID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// VisibleTo scopes a query to what the caller may see: admins read all
// rows, everyone else reads only their own.
func VisibleTo(userID uuid.UUID, admin bool) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if admin {
			return db
		}
		return db.Where("user_id = ?", userID)
	}
}
