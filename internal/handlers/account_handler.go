package handlers

import (
	"errors"

	"github.com/aslammaulana/yt-manager-backend/internal/dto"
	"github.com/aslammaulana/yt-manager-backend/internal/scope"
	"github.com/aslammaulana/yt-manager-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AccountHandler struct {
	accountService *services.AccountService
}

func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

func (h *AccountHandler) List(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	accounts, err := h.accountService.ListVisible(userID, scope.IsAdmin(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to list accounts",
		})
	}

	return c.JSON(accounts)
}

// Token is the per-account token lookup used by upload tooling; the
// refresh margin applied here is the same one the aggregator uses.
func (h *AccountHandler) Token(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	gmail := c.Params("gmail")
	resp, err := h.accountService.Token(c.UserContext(), userID, scope.IsAdmin(c), gmail)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Account not found",
			})
		}
		if errors.Is(err, services.ErrAccountExpired) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "Account requires re-authorization", Code: "reauth_required",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to resolve token",
		})
	}

	return c.JSON(resp)
}

func (h *AccountHandler) Delete(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	gmail := c.Params("gmail")
	if err := h.accountService.Delete(userID, scope.IsAdmin(c), gmail); err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Account not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to delete account",
		})
	}

	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}

// Import bulk-loads token rows; admin only (enforced by the route group).
func (h *AccountHandler) Import(c *fiber.Ctx) error {
	var req dto.ImportAccountsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if len(req.Accounts) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "No accounts to import",
		})
	}

	imported, err := h.accountService.Import(req.Accounts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Import failed",
		})
	}

	return c.JSON(dto.ImportAccountsResponse{Imported: imported})
}
