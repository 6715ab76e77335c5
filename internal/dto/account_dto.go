package dto

import (
	"time"

	"github.com/google/uuid"
)

// ConnectResponse carries the Google consent URL the client redirects to.
type ConnectResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type CallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// AccountResponse is the cached (non-live) view of a linked channel.
type AccountResponse struct {
	ID          uuid.UUID `json:"id"`
	Gmail       string    `json:"gmail"`
	ChannelID   string    `json:"channel_id"`
	Name        string    `json:"name"`
	Thumbnail   string    `json:"thumbnail"`
	Subscribers int64     `json:"subscribers"`
	Views       int64     `json:"views"`
	ExpiresAt   int64     `json:"expires_at"`
	IsExpired   bool      `json:"is_expired"`
	LinkedAt    time.Time `json:"linked_at"`
}

// TokenResponse is returned by the per-account token lookup endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// ImportAccountRow is one row of an admin bulk token import.
type ImportAccountRow struct {
	Gmail        string `json:"gmail"`
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	Name         string `json:"name"`
	Thumbnail    string `json:"thumbnail"`
}

type ImportAccountsRequest struct {
	Accounts []ImportAccountRow `json:"accounts"`
}

type ImportAccountsResponse struct {
	Imported int `json:"imported"`
}
