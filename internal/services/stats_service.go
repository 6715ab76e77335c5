package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aslammaulana/yt-manager-backend/internal/dto"
	"github.com/aslammaulana/yt-manager-backend/internal/google"
	"github.com/aslammaulana/yt-manager-backend/internal/models"
	"github.com/aslammaulana/yt-manager-backend/internal/scope"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RealtimeWindow is the trailing range behind the realtime_h48 metric.
const RealtimeWindow = 48 * time.Hour

// StatsService aggregates per-channel statistics across every account
// visible to the caller, refreshing expired tokens inline.
type StatsService struct {
	db        *gorm.DB
	yt        *google.Client
	refresher *google.Refresher
}

func NewStatsService(db *gorm.DB, yt *google.Client, refresher *google.Refresher) *StatsService {
	return &StatsService{db: db, yt: yt, refresher: refresher}
}

// Aggregate fans out one worker per account and joins before responding.
// Branches never short-circuit each other: each catches its own failure
// and degrades to an expired marker or the cached snapshot. Only the
// initial database read can fail the whole call.
func (s *StatsService) Aggregate(ctx context.Context, userID uuid.UUID, admin bool, live bool) (*dto.StatsResponse, error) {
	var accounts []models.ChannelAccount
	if err := s.db.Scopes(scope.VisibleTo(userID, admin)).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	channels := make([]dto.ChannelStats, len(accounts))
	var wg sync.WaitGroup
	for i := range accounts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			channels[i] = s.collect(ctx, &accounts[i], live)
		}(i)
	}
	wg.Wait()

	resp := &dto.StatsResponse{Channels: channels}
	for i := range channels {
		if channels[i].IsExpired {
			resp.Totals.Expired++
			continue
		}
		resp.Totals.Accounts++
		resp.Totals.Subscribers += channels[i].Subscribers
		resp.Totals.Views += channels[i].Views
		resp.Totals.RealtimeH48 += channels[i].RealtimeH48
	}
	return resp, nil
}

// collect produces the normalized stats for one account. Exactly one
// refresh attempt happens per pass, through the shared safety margin.
func (s *StatsService) collect(ctx context.Context, acc *models.ChannelAccount, live bool) dto.ChannelStats {
	st := dto.ChannelStats{
		ID:           acc.ID,
		Gmail:        acc.Gmail,
		ChannelID:    acc.ChannelID,
		Name:         acc.Name,
		Thumbnail:    acc.Thumbnail,
		Subscribers:  acc.Subscribers,
		Views:        acc.Views,
		ExpiresAt:    acc.ExpiresAt,
		FromSnapshot: true,
	}

	cachedViews := acc.Views

	if err := s.refresher.EnsureFresh(ctx, acc); err != nil {
		if errors.Is(err, google.ErrNotRenewable) {
			return expiredStats(st)
		}
		// Transient refresh failure: keep serving the stale token unless
		// it is already past its hard expiry.
		if acc.TokenExpired(time.Now().Unix(), 0) {
			return expiredStats(st)
		}
	}
	st.ExpiresAt = acc.ExpiresAt

	if !live {
		return st
	}

	ch, err := s.yt.OwnChannel(ctx, acc.AccessToken)
	if err != nil {
		if errors.Is(err, google.ErrUnauthorized) {
			return expiredStats(st)
		}
		slog.Warn("live channel fetch failed, serving snapshot", "gmail", acc.Gmail, "error", err.Error())
		return st
	}

	st.ChannelID = ch.ID
	st.Name = ch.Title
	st.Thumbnail = ch.Thumbnail
	st.Subscribers = ch.Subscribers
	st.Views = ch.Views
	st.FromSnapshot = false

	rt, err := s.yt.RecentViews(ctx, acc.AccessToken, RealtimeWindow)
	if err != nil {
		// Analytics degraded: estimate from view growth since the last snapshot.
		rt = ch.Views - cachedViews
		if rt < 0 {
			rt = 0
		}
		slog.Warn("analytics query failed, using derived estimate", "gmail", acc.Gmail, "error", err.Error())
	}
	st.RealtimeH48 = rt

	s.writeSnapshot(acc, ch)
	return st
}

// writeSnapshot caches live results opportunistically; failure only logs.
func (s *StatsService) writeSnapshot(acc *models.ChannelAccount, ch *google.Channel) {
	err := s.db.Model(&models.ChannelAccount{}).
		Where("id = ?", acc.ID).
		Updates(map[string]interface{}{
			"channel_id":  ch.ID,
			"name":        ch.Title,
			"thumbnail":   ch.Thumbnail,
			"subscribers": ch.Subscribers,
			"views":       ch.Views,
		}).Error
	if err != nil {
		slog.Error("failed to cache channel snapshot", "gmail", acc.Gmail, "error", err.Error())
	}
}

// expiredStats zeroes the counters but keeps cached identity fields so the
// dashboard can still render the row; expired accounts never count toward
// aggregate totals.
func expiredStats(st dto.ChannelStats) dto.ChannelStats {
	st.IsExpired = true
	st.Subscribers = 0
	st.Views = 0
	st.RealtimeH48 = 0
	return st
}
