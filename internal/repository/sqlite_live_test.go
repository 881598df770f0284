package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveSessionRepo_GetMissing(t *testing.T) {
	repo := NewSQLiteLiveSessionRepo(testutil.NewTestDB(t))

	_, err := repo.Get(context.Background(), testOwner)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLiveSessionRepo_SaveAndGet(t *testing.T) {
	repo := NewSQLiteLiveSessionRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	live, err := domain.NewLiveSession("live-1", testOwner, domain.FeedingLeft, nil, testutil.BaseTime)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, live))

	got, err := repo.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, "live-1", got.ID)
	assert.Equal(t, domain.FeedingLeft, got.Type)
	assert.True(t, testutil.BaseTime.Equal(got.StartTime))
	assert.False(t, got.Paused)
	assert.Nil(t, got.PausedAt)
}

func TestLiveSessionRepo_PauseStateSurvivesRoundTrip(t *testing.T) {
	repo := NewSQLiteLiveSessionRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	vol := 120
	live, err := domain.NewLiveSession("live-1", testOwner, domain.FeedingBottle, &vol, testutil.BaseTime)
	require.NoError(t, err)
	require.NoError(t, live.Pause(testutil.BaseTime.Add(5*time.Minute)))
	require.NoError(t, live.Resume(testutil.BaseTime.Add(7*time.Minute+500*time.Millisecond)))
	require.NoError(t, live.Pause(testutil.BaseTime.Add(10*time.Minute)))
	require.NoError(t, repo.Save(ctx, live))

	got, err := repo.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.True(t, got.Paused)
	require.NotNil(t, got.PausedAt)
	assert.True(t, testutil.BaseTime.Add(10*time.Minute).Equal(*got.PausedAt))
	assert.Equal(t, 2*time.Minute+500*time.Millisecond, got.AccumulatedPaused)
	require.NotNil(t, got.BottleVolume)
	assert.Equal(t, 120, *got.BottleVolume)

	now := testutil.BaseTime.Add(30 * time.Minute)
	assert.Equal(t, live.Elapsed(now), got.Elapsed(now))
}

func TestLiveSessionRepo_SaveReplacesAndDelete(t *testing.T) {
	repo := NewSQLiteLiveSessionRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	live, err := domain.NewLiveSession("live-1", testOwner, domain.FeedingLeft, nil, testutil.BaseTime)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, live))
	require.NoError(t, live.SwitchSide())
	require.NoError(t, repo.Save(ctx, live))

	got, err := repo.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedingRight, got.Type)

	require.NoError(t, repo.Delete(ctx, testOwner))
	_, err = repo.Get(ctx, testOwner)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, repo.Delete(ctx, testOwner))
}
