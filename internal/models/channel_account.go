package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelAccount is a linked YouTube channel: the Google OAuth grant plus
// the last-known channel snapshot. Gmail is the natural key; re-authorizing
// the same Google account overwrites tokens instead of creating a new row.
type ChannelAccount struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Gmail        string    `gorm:"size:255;not null;uniqueIndex" json:"gmail"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	AccessToken  string    `gorm:"type:text" json:"-"`
	RefreshToken string    `gorm:"type:text" json:"-"`
	ExpiresAt    int64     `gorm:"not null;default:0" json:"expires_at"` // epoch seconds

	// Cached channel snapshot, refreshed opportunistically after live fetches.
	ChannelID   string `gorm:"size:64" json:"channel_id"`
	Name        string `gorm:"size:255" json:"name"`
	Thumbnail   string `gorm:"type:text" json:"thumbnail"`
	Subscribers int64  `json:"subscribers"`
	Views       int64  `json:"views"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}

// TokenExpired reports whether the access token is past its expiry,
// with margin (seconds) applied as a safety window.
func (a *ChannelAccount) TokenExpired(now int64, margin int64) bool {
	return now+margin >= a.ExpiresAt
}

// Renewable reports whether an expired access token can still be refreshed.
// Google only issues a refresh token on consent; without one the account
// stays expired until the user re-authorizes.
func (a *ChannelAccount) Renewable() bool {
	return a.RefreshToken != ""
}
