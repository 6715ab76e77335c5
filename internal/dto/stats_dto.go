package dto

import "github.com/google/uuid"

// ChannelStats is the normalized per-account shape from the aggregator.
// Expired accounts carry zeroed counters and keep their cached identity
// fields so the dashboard can still render the row.
type ChannelStats struct {
	ID           uuid.UUID `json:"id"`
	Gmail        string    `json:"gmail"`
	ChannelID    string    `json:"channel_id"`
	Name         string    `json:"name"`
	Thumbnail    string    `json:"thumbnail"`
	Subscribers  int64     `json:"subscribers"`
	Views        int64     `json:"views"`
	RealtimeH48  int64     `json:"realtime_h48"`
	ExpiresAt    int64     `json:"expires_at"`
	IsExpired    bool      `json:"is_expired"`
	FromSnapshot bool      `json:"from_snapshot"` // true when live fetch was skipped or failed
}

// StatsTotals sums the counters of non-expired accounts only.
type StatsTotals struct {
	Subscribers int64 `json:"subscribers"`
	Views       int64 `json:"views"`
	RealtimeH48 int64 `json:"realtime_h48"`
	Accounts    int   `json:"accounts"`
	Expired     int   `json:"expired"`
}

type StatsResponse struct {
	Channels []ChannelStats `json:"channels"`
	Totals   StatsTotals    `json:"totals"`
}
