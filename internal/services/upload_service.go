package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aslammaulana/yt-manager-backend/internal/dto"
	"github.com/aslammaulana/yt-manager-backend/internal/google"
	"github.com/aslammaulana/yt-manager-backend/internal/models"
	"github.com/aslammaulana/yt-manager-backend/internal/scope"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadService pushes videos to YouTube through the resumable protocol
// on behalf of a linked account.
type UploadService struct {
	db        *gorm.DB
	yt        *google.Client
	refresher *google.Refresher
	chunkSize int64
}

func NewUploadService(db *gorm.DB, yt *google.Client, refresher *google.Refresher, chunkSize int64) *UploadService {
	return &UploadService{db: db, yt: yt, refresher: refresher, chunkSize: chunkSize}
}

// UploadVideo streams the video to YouTube under the given gmail's grant
// and returns the created video ID.
func (s *UploadService) UploadVideo(ctx context.Context, userID uuid.UUID, admin bool, meta *dto.UploadVideoMeta, file io.Reader, size int64, mimeType string) (string, error) {
	if meta.Title == "" {
		return "", errors.New("video title is required")
	}

	acc, err := s.usableAccount(ctx, userID, admin, meta.Gmail)
	if err != nil {
		return "", err
	}

	session, err := s.yt.StartResumableUpload(ctx, acc.AccessToken, google.VideoMeta{
		Title:       meta.Title,
		Description: meta.Description,
		Tags:        meta.Tags,
		CategoryID:  meta.CategoryID,
		Privacy:     meta.Privacy,
	}, size, mimeType)
	if err != nil {
		if errors.Is(err, google.ErrUnauthorized) {
			return "", ErrAccountExpired
		}
		return "", fmt.Errorf("%w: resumable session: %v", ErrGoogleUpstream, err)
	}

	videoID, err := s.yt.UploadChunks(ctx, acc.AccessToken, session, file, size, s.chunkSize)
	if err != nil {
		return "", fmt.Errorf("%w: upload: %v", ErrGoogleUpstream, err)
	}

	slog.Info("video uploaded", "gmail", acc.Gmail, "video_id", videoID, "size", size)
	return videoID, nil
}

// SetThumbnail uploads a custom thumbnail for an already-created video.
func (s *UploadService) SetThumbnail(ctx context.Context, userID uuid.UUID, admin bool, gmail, videoID string, image io.Reader, mimeType string) error {
	acc, err := s.usableAccount(ctx, userID, admin, gmail)
	if err != nil {
		return err
	}

	if err := s.yt.SetThumbnail(ctx, acc.AccessToken, videoID, image, mimeType); err != nil {
		if errors.Is(err, google.ErrUnauthorized) {
			return ErrAccountExpired
		}
		return fmt.Errorf("%w: thumbnails.set: %v", ErrGoogleUpstream, err)
	}
	return nil
}

// usableAccount loads a visible account and guarantees a fresh token.
// Uploads are long-lived, so unlike the stats path a refresh failure here
// is fatal instead of degrading to a stale token.
func (s *UploadService) usableAccount(ctx context.Context, userID uuid.UUID, admin bool, gmail string) (*models.ChannelAccount, error) {
	var acc models.ChannelAccount
	err := s.db.Scopes(scope.VisibleTo(userID, admin)).Where("gmail = ?", gmail).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := s.refresher.EnsureFresh(ctx, &acc); err != nil {
		if errors.Is(err, google.ErrNotRenewable) {
			return nil, ErrAccountExpired
		}
		return nil, fmt.Errorf("%w: token refresh: %v", ErrGoogleUpstream, err)
	}
	return &acc, nil
}
