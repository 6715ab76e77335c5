package services

import (
	"context"
	"testing"
	"time"

	"github.com/aslammaulana/yt-manager-backend/internal/dto"
	"github.com/aslammaulana/yt-manager-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(t *testing.T) (*AccountService, *fakeGoogle) {
	t.Helper()
	db := newTestDB(t)
	fg := newFakeGoogle(t)
	refresher := newRefresher(db, fg)
	return NewAccountService(db, fg.oauthConfig(), fg.client(), refresher), fg
}

func TestLinkFromCodeUpsertsByGmail(t *testing.T) {
	svc, fg := newAccountService(t)
	userID := uuid.New()

	fg.grant("code-1", "a@x.com", fakeChannel{ID: "UC-a", Title: "Channel A", Subscribers: 100, Views: 5000})

	first, err := svc.LinkFromCode(context.Background(), userID, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", first.Gmail)
	assert.Equal(t, "UC-a", first.ChannelID)
	assert.Equal(t, int64(100), first.Subscribers)
	assert.False(t, first.IsExpired)

	// Re-authorizing the same Google account must not create a second row.
	second, err := svc.LinkFromCode(context.Background(), userID, "code-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	svc.db.Model(&models.ChannelAccount{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestLinkFromCodeReassignsOwner(t *testing.T) {
	svc, fg := newAccountService(t)
	fg.grant("code-2", "shared@x.com", fakeChannel{ID: "UC-s", Title: "Shared"})

	oldOwner := uuid.New()
	_, err := svc.LinkFromCode(context.Background(), oldOwner, "code-2")
	require.NoError(t, err)

	newOwner := uuid.New()
	_, err = svc.LinkFromCode(context.Background(), newOwner, "code-2")
	require.NoError(t, err)

	var acc models.ChannelAccount
	require.NoError(t, svc.db.Where("gmail = ?", "shared@x.com").First(&acc).Error)
	assert.Equal(t, newOwner, acc.UserID)
}

func TestUpsertKeepsStoredRefreshToken(t *testing.T) {
	svc, _ := newAccountService(t)
	userID := uuid.New()

	_, err := svc.upsert(userID, "keep@x.com", "at-1", "rt-original", time.Now().Add(time.Hour).Unix(), nil)
	require.NoError(t, err)

	// Google omits the refresh token on repeat consent; the stored one stays.
	_, err = svc.upsert(userID, "keep@x.com", "at-2", "", time.Now().Add(time.Hour).Unix(), nil)
	require.NoError(t, err)

	var acc models.ChannelAccount
	require.NoError(t, svc.db.Where("gmail = ?", "keep@x.com").First(&acc).Error)
	assert.Equal(t, "rt-original", acc.RefreshToken)
	assert.Equal(t, "at-2", acc.AccessToken)
}

func TestTokenRefreshesInsideMargin(t *testing.T) {
	svc, fg := newAccountService(t)
	userID := uuid.New()
	fg.grant("rt-fresh", "fresh@x.com", fakeChannel{ID: "UC-f"})

	require.NoError(t, svc.db.Create(&models.ChannelAccount{
		ID:           uuid.New(),
		Gmail:        "fresh@x.com",
		UserID:       userID,
		AccessToken:  "stale-token",
		RefreshToken: "rt-fresh",
		ExpiresAt:    time.Now().Add(time.Minute).Unix(), // inside the 300s margin
	}).Error)

	tok, err := svc.Token(context.Background(), userID, false, "fresh@x.com")
	require.NoError(t, err)
	assert.Equal(t, "issued-by-rt-fresh", tok.AccessToken)
	assert.Equal(t, 1, fg.refreshCount("rt-fresh"))

	var acc models.ChannelAccount
	require.NoError(t, svc.db.Where("gmail = ?", "fresh@x.com").First(&acc).Error)
	assert.Equal(t, "issued-by-rt-fresh", acc.AccessToken)
	assert.Greater(t, acc.ExpiresAt, time.Now().Add(30*time.Minute).Unix())
}

func TestTokenExpiredWithoutRefreshToken(t *testing.T) {
	svc, _ := newAccountService(t)
	userID := uuid.New()

	require.NoError(t, svc.db.Create(&models.ChannelAccount{
		ID:          uuid.New(),
		Gmail:       "dead@x.com",
		UserID:      userID,
		AccessToken: "stale-token",
		ExpiresAt:   time.Now().Add(-time.Hour).Unix(),
	}).Error)

	_, err := svc.Token(context.Background(), userID, false, "dead@x.com")
	assert.ErrorIs(t, err, ErrAccountExpired)
}

func TestTokenScopedToOwner(t *testing.T) {
	svc, _ := newAccountService(t)
	owner := uuid.New()

	require.NoError(t, svc.db.Create(&models.ChannelAccount{
		ID:          uuid.New(),
		Gmail:       "private@x.com",
		UserID:      owner,
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}).Error)

	_, err := svc.Token(context.Background(), uuid.New(), false, "private@x.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	// Admins cross the ownership boundary.
	tok, err := svc.Token(context.Background(), uuid.New(), true, "private@x.com")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)
}

func TestDeleteScopedToOwner(t *testing.T) {
	svc, _ := newAccountService(t)
	owner := uuid.New()

	require.NoError(t, svc.db.Create(&models.ChannelAccount{
		ID:     uuid.New(),
		Gmail:  "mine@x.com",
		UserID: owner,
	}).Error)

	assert.ErrorIs(t, svc.Delete(uuid.New(), false, "mine@x.com"), ErrAccountNotFound)
	require.NoError(t, svc.Delete(owner, false, "mine@x.com"))
	assert.ErrorIs(t, svc.Delete(owner, false, "mine@x.com"), ErrAccountNotFound)
}

func TestImportSkipsInvalidRows(t *testing.T) {
	svc, _ := newAccountService(t)
	owner := uuid.New()

	n, err := svc.Import([]dto.ImportAccountRow{
		{Gmail: "one@x.com", UserID: owner.String(), AccessToken: "at", RefreshToken: "rt", ExpiresAt: time.Now().Add(time.Hour).Unix(), Name: "One"},
		{Gmail: "", UserID: owner.String()},             // missing gmail
		{Gmail: "two@x.com", UserID: "not-a-uuid"},      // bad owner id
		{Gmail: "three@x.com", UserID: owner.String()},  // bare row, still imported
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var acc models.ChannelAccount
	require.NoError(t, svc.db.Where("gmail = ?", "one@x.com").First(&acc).Error)
	assert.Equal(t, "One", acc.Name)
	assert.Equal(t, owner, acc.UserID)
}
