package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aslammaulana/yt-manager-backend/internal/dto"
	"github.com/aslammaulana/yt-manager-backend/internal/google"
	"github.com/aslammaulana/yt-manager-backend/internal/models"
	"github.com/aslammaulana/yt-manager-backend/internal/scope"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound = errors.New("channel account not found")
	ErrAccountExpired  = errors.New("account token expired and cannot be renewed without re-authorization")
	ErrGoogleUpstream  = errors.New("google api request failed")
)

type AccountService struct {
	db        *gorm.DB
	oauth     *oauth2.Config
	yt        *google.Client
	refresher *google.Refresher
}

func NewAccountService(db *gorm.DB, oauth *oauth2.Config, yt *google.Client, refresher *google.Refresher) *AccountService {
	return &AccountService{db: db, oauth: oauth, yt: yt, refresher: refresher}
}

// LinkFromCode exchanges an authorization code, resolves the Google account
// email and channel snapshot, and upserts the linked account under userID.
// Idempotent per gmail: re-authorizing overwrites credentials in place.
func (s *AccountService) LinkFromCode(ctx context.Context, userID uuid.UUID, code string) (*dto.AccountResponse, error) {
	if code == "" {
		return nil, errors.New("authorization code is required")
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", ErrGoogleUpstream, err)
	}

	gmail, err := s.yt.UserEmail(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", ErrGoogleUpstream, err)
	}

	ch, err := s.yt.OwnChannel(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: channels.list: %v", ErrGoogleUpstream, err)
	}

	acc, err := s.upsert(userID, gmail, tok.AccessToken, tok.RefreshToken, tok.Expiry.Unix(), ch)
	if err != nil {
		return nil, err
	}

	resp := accountResponse(acc)
	return &resp, nil
}

// upsert writes the account keyed by gmail, preserving the row ID and —
// when Google returned no refresh token this time — the stored one.
func (s *AccountService) upsert(userID uuid.UUID, gmail, accessToken, refreshToken string, expiresAt int64, ch *google.Channel) (*models.ChannelAccount, error) {
	var acc models.ChannelAccount
	err := s.db.Where("gmail = ?", gmail).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		acc = models.ChannelAccount{ID: uuid.New(), Gmail: gmail}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	acc.UserID = userID
	acc.AccessToken = accessToken
	if refreshToken != "" {
		acc.RefreshToken = refreshToken
	}
	acc.ExpiresAt = expiresAt
	if ch != nil {
		acc.ChannelID = ch.ID
		acc.Name = ch.Title
		acc.Thumbnail = ch.Thumbnail
		acc.Subscribers = ch.Subscribers
		acc.Views = ch.Views
	}

	if err := s.db.Save(&acc).Error; err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}
	return &acc, nil
}

// ListVisible returns the caller's linked accounts from the cached
// snapshot, without touching Google. Admins see every account.
func (s *AccountService) ListVisible(userID uuid.UUID, admin bool) ([]dto.AccountResponse, error) {
	var accounts []models.ChannelAccount
	if err := s.db.Scopes(scope.VisibleTo(userID, admin)).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	out := make([]dto.AccountResponse, len(accounts))
	for i := range accounts {
		out[i] = accountResponse(&accounts[i])
	}
	return out, nil
}

// Token returns a usable access token for the gmail, refreshing through
// the shared safety margin first. A transient refresh failure still
// returns the stale token; only a permanently expired account errors.
func (s *AccountService) Token(ctx context.Context, userID uuid.UUID, admin bool, gmail string) (*dto.TokenResponse, error) {
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
		// Stale token served; downstream callers surface the failure.
	}

	return &dto.TokenResponse{
		AccessToken: acc.AccessToken,
		ExpiresAt:   acc.ExpiresAt,
	}, nil
}

// Delete removes a linked account the caller owns (admins may remove any).
func (s *AccountService) Delete(userID uuid.UUID, admin bool, gmail string) error {
	result := s.db.Scopes(scope.VisibleTo(userID, admin)).Where("gmail = ?", gmail).Delete(&models.ChannelAccount{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Import bulk-upserts token rows (admin tooling). Rows with an invalid
// owner id or empty gmail are skipped, not fatal.
func (s *AccountService) Import(rows []dto.ImportAccountRow) (int, error) {
	imported := 0
	for _, row := range rows {
		if row.Gmail == "" {
			continue
		}
		ownerID, err := uuid.Parse(row.UserID)
		if err != nil {
			continue
		}
		acc, err := s.upsert(ownerID, row.Gmail, row.AccessToken, row.RefreshToken, row.ExpiresAt, nil)
		if err != nil {
			return imported, err
		}
		if row.Name != "" || row.Thumbnail != "" {
			updates := map[string]interface{}{}
			if row.Name != "" {
				updates["name"] = row.Name
			}
			if row.Thumbnail != "" {
				updates["thumbnail"] = row.Thumbnail
			}
			if err := s.db.Model(acc).Updates(updates).Error; err != nil {
				return imported, fmt.Errorf("failed to update imported account: %w", err)
			}
		}
		imported++
	}
	return imported, nil
}

func accountResponse(acc *models.ChannelAccount) dto.AccountResponse {
	now := time.Now().Unix()
	return dto.AccountResponse{
		ID:          acc.ID,
		Gmail:       acc.Gmail,
		ChannelID:   acc.ChannelID,
		Name:        acc.Name,
		Thumbnail:   acc.Thumbnail,
		Subscribers: acc.Subscribers,
		Views:       acc.Views,
		ExpiresAt:   acc.ExpiresAt,
		// Expired here means unrecoverable without re-auth; a renewable
		// token refreshes transparently on the next stats or token call.
		IsExpired: acc.TokenExpired(now, 0) && !acc.Renewable(),
		LinkedAt:  acc.CreatedAt,
	}
}
