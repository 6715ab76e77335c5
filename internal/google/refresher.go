package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aslammaulana/yt-manager-backend/internal/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// RefreshMargin is the safety window in seconds: tokens within this
// distance of expiry are treated as expired and refreshed. The margin is
// the same at every call site.
const RefreshMargin = 300

// ErrNotRenewable means the access token is expired and no refresh token
// is stored; the account stays expired until the user re-authorizes.
var ErrNotRenewable = errors.New("access token expired and no refresh token stored")

// Refresher renews expired access tokens in place and persists the result.
type Refresher struct {
	db    *gorm.DB
	oauth *oauth2.Config
}

func NewRefresher(db *gorm.DB, oauth *oauth2.Config) *Refresher {
	return &Refresher{db: db, oauth: oauth}
}

// NeedsRefresh applies the renewal rule from one place:
// now + margin >= expires_at, and a refresh token must be present.
func (r *Refresher) NeedsRefresh(acc *models.ChannelAccount, now int64) bool {
	return acc.TokenExpired(now, RefreshMargin) && acc.Renewable()
}

// EnsureFresh refreshes the account's access token when it is inside the
// safety window, updating both the struct and the stored row. A transient
// refresh failure returns the error but leaves the stale token in place so
// callers can degrade per-account instead of failing the batch. Concurrent
// refreshes of the same gmail are not serialized; last writer wins.
func (r *Refresher) EnsureFresh(ctx context.Context, acc *models.ChannelAccount) error {
	now := time.Now().Unix()
	if !acc.TokenExpired(now, RefreshMargin) {
		return nil
	}
	if !acc.Renewable() {
		return ErrNotRenewable
	}

	src := r.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: acc.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		if IsPermanentRefreshError(err) {
			slog.Error("refresh token rejected by google", "gmail", acc.Gmail, "action", "token_refresh", "error", err.Error())
		} else {
			slog.Warn("transient token refresh failure", "gmail", acc.Gmail, "error", err.Error())
		}
		return fmt.Errorf("refresh token for %s: %w", acc.Gmail, err)
	}

	acc.AccessToken = tok.AccessToken
	acc.ExpiresAt = tok.Expiry.Unix()
	// Persist a rotated refresh token when Google returns one (RFC 6749).
	if tok.RefreshToken != "" && tok.RefreshToken != acc.RefreshToken {
		acc.RefreshToken = tok.RefreshToken
	}

	err = r.db.Model(&models.ChannelAccount{}).
		Where("gmail = ?", acc.Gmail).
		Updates(map[string]interface{}{
			"access_token":  acc.AccessToken,
			"refresh_token": acc.RefreshToken,
			"expires_at":    acc.ExpiresAt,
		}).Error
	if err != nil {
		// The in-memory token is still valid for this request.
		slog.Error("failed to persist refreshed token", "gmail", acc.Gmail, "error", err.Error())
	}
	return nil
}

// IsPermanentRefreshError distinguishes revoked or invalid grants from
// transient transport failures. Permanent failures require re-authorization.
func IsPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
