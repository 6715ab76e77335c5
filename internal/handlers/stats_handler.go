package handlers

import (
	"github.com/aslammaulana/yt-manager-backend/internal/dto"
	"github.com/aslammaulana/yt-manager-backend/internal/scope"
	"github.com/aslammaulana/yt-manager-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type StatsHandler struct {
	statsService *services.StatsService
}

func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// Get aggregates stats for every account the caller can see. Live API
// calls are the default; ?live=false serves the cached snapshot only.
// Per-account failures degrade into is_expired markers, so this endpoint
// returns 200 with partial data unless the database itself fails.
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	live := c.Query("live", "true") != "false"

	resp, err := h.statsService.Aggregate(c.UserContext(), userID, scope.IsAdmin(c), live)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to aggregate stats",
		})
	}

	return c.JSON(resp)
}
