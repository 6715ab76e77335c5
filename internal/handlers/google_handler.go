package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/aslammaulana/yt-manager-backend/internal/config"
	"github.com/aslammaulana/yt-manager-backend/internal/dto"
	"github.com/aslammaulana/yt-manager-backend/internal/google"
	"github.com/aslammaulana/yt-manager-backend/internal/scope"
	"github.com/aslammaulana/yt-manager-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const statePurpose = "oauth_state"

// GoogleHandler runs the channel-linking OAuth flow: consent URL out,
// authorization code in.
type GoogleHandler struct {
	accountService *services.AccountService
	oauth          *oauth2.Config
	cfg            *config.Config
}

func NewGoogleHandler(accountService *services.AccountService, oauth *oauth2.Config, cfg *config.Config) *GoogleHandler {
	return &GoogleHandler{accountService: accountService, oauth: oauth, cfg: cfg}
}

// Connect returns the Google consent URL with a state token bound to the
// caller's session.
func (h *GoogleHandler) Connect(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	state, err := h.mintState(userID.String())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to create state token",
		})
	}

	return c.JSON(dto.ConnectResponse{
		URL:   google.ConsentURL(h.oauth, state),
		State: state,
	})
}

// Callback exchanges the authorization code and links the channel account
// to the current user. Upstream Google failures map to 502, never retried.
func (h *GoogleHandler) Callback(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Authorization code is required",
		})
	}
	if !h.verifyState(req.State, userID.String()) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid state token",
		})
	}

	resp, err := h.accountService.LinkFromCode(c.UserContext(), userID, req.Code)
	if err != nil {
		if errors.Is(err, services.ErrGoogleUpstream) {
			return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
				Error: true, Message: "Google authorization failed",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to link account",
		})
	}

	slog.Info("channel linked", "user", scope.GetEmail(c), "gmail", resp.Gmail, "action", "oauth_link")
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// mintState signs a short-lived token tying the consent flow to one user.
func (h *GoogleHandler) mintState(sub string) (string, error) {
	claims := jwt.MapClaims{
		"sub":     sub,
		"purpose": statePurpose,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(10 * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

func (h *GoogleHandler) verifyState(state, sub string) bool {
	token, err := jwt.Parse(state, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	purpose, _ := claims["purpose"].(string)
	tokenSub, _ := claims["sub"].(string)
	return purpose == statePurpose && tokenSub == sub
}
