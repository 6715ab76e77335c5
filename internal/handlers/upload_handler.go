package handlers

import (
	"encoding/json"
	"errors"

	"github.com/aslammaulana/yt-manager-backend/internal/dto"
	"github.com/aslammaulana/yt-manager-backend/internal/scope"
	"github.com/aslammaulana/yt-manager-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UploadHandler struct {
	uploadService *services.UploadService
}

func NewUploadHandler(uploadService *services.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// UploadVideo accepts multipart form data: a "metadata" JSON field and a
// "video" file part. The file is streamed to YouTube's resumable upload
// endpoint under the target gmail's grant.
func (h *UploadHandler) UploadVideo(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var meta dto.UploadVideoMeta
	if err := json.Unmarshal([]byte(c.FormValue("metadata")), &meta); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid metadata field",
		})
	}
	if meta.Gmail == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Target gmail is required",
		})
	}

	fileHeader, err := c.FormFile("video")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Video file is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to read video file",
		})
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "video/*"
	}

	videoID, err := h.uploadService.UploadVideo(c.UserContext(), userID, scope.IsAdmin(c), &meta, file, fileHeader.Size, mimeType)
	if err != nil {
		return h.uploadError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.UploadVideoResponse{
		VideoID: videoID,
		Gmail:   meta.Gmail,
	})
}

// SetThumbnail accepts a "gmail" form field and an "image" file part.
func (h *UploadHandler) SetThumbnail(c *fiber.Ctx) error {
	userID, err := scope.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	videoID := c.Params("id")
	gmail := c.FormValue("gmail")
	if gmail == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Target gmail is required",
		})
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Image file is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to read image file",
		})
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	if err := h.uploadService.SetThumbnail(c.UserContext(), userID, scope.IsAdmin(c), gmail, videoID, file, mimeType); err != nil {
		return h.uploadError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Thumbnail updated"})
}

func (h *UploadHandler) uploadError(c *fiber.Ctx, err error) error {
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
	if errors.Is(err, services.ErrGoogleUpstream) {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: "YouTube upload failed",
		})
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: err.Error(),
	})
}
