package middleware

import (
	"time"

	"github.com/aslammaulana/yt-manager-backend/internal/dto"
	"github.com/aslammaulana/yt-manager-backend/internal/models"
	"github.com/aslammaulana/yt-manager-backend/internal/scope"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// MembershipRequired gates dashboard routes on the role + access expiry
// pair, checked against the database per request so a role change or
// expiry takes effect immediately. Admins always pass. Expired callers
// get 403 with code "no_access" (the client redirects to pricing).
func MembershipRequired(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := scope.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if user.Role == models.RoleAdmin {
			scope.SetAdmin(c)
			return c.Next()
		}

		if !user.HasAccess(time.Now()) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Membership expired or inactive",
				Code:    "no_access",
			})
		}

		return c.Next()
	}
}
