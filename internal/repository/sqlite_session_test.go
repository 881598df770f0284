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

const testOwner = "owner-1"

func TestSessionRepo_InsertAndGetByID(t *testing.T) {
	repo := NewSQLiteSessionRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	sess := testutil.NewTestSession(testutil.WithNotes("Good latch"))
	require.NoError(t, repo.Insert(ctx, testOwner, sess))

	fetched, err := repo.GetByID(ctx, testOwner, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, fetched.ID)
	assert.Equal(t, 15, fetched.Duration)
	assert.Equal(t, domain.FeedingLeft, fetched.Type)
	assert.Equal(t, "Good latch", fetched.Notes)
	assert.Nil(t, fetched.BottleVolume)
	assert.True(t, sess.StartTime.Equal(fetched.StartTime))
	require.NotNil(t, fetched.EndTime)
	assert.True(t, sess.EndTime.Equal(*fetched.EndTime))
}

func TestSessionRepo_GetByID_NotFound(t *testing.T) {
	repo := NewSQLiteSessionRepo(testutil.NewTestDB(t))

	_, err := repo.GetByID(context.Background(), testOwner, "nonexistent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepo_BottleVolumeRoundTrip(t *testing.T) {
	repo := NewSQLiteSessionRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	sess := testutil.NewTestSession(testutil.WithBottle(150))
	require.NoError(t, repo.Insert(ctx, testOwner, sess))

	fetched, err := repo.GetByID(ctx, testOwner, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedingBottle, fetched.Type)
	require.NotNil(t, fetched.BottleVolume)
	assert.Equal(t, 150, *fetched.BottleVolume)
}

func TestSessionRepo_ListNewestFirstAndOwnerScoped(t *testing.T) {
	repo := NewSQLiteSessionRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	s1 := testutil.NewTestSession(testutil.WithStart(testutil.BaseTime.Add(-2 * time.Hour)))
	s2 := testutil.NewTestSession(testutil.WithStart(testutil.BaseTime.Add(-1 * time.Hour)))
	foreign := testutil.NewTestSession()
	require.NoError(t, repo.Insert(ctx, testOwner, s1))
	require.NoError(t, repo.Insert(ctx, testOwner, s2))
	require.NoError(t, repo.Insert(ctx, "owner-2", foreign))

	list, err := repo.List(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, s2.ID, list[0].ID)
	assert.Equal(t, s1.ID, list[1].ID)
}

func TestSessionRepo_ListOrdersAcrossZones(t *testing.T) {
	repo := NewSQLiteSessionRepo(testutil.NewTestDB(t))
	ctx := context.Background()
	plus2 := time.FixedZone("UTC+2", 2*3600)

	// 09:30+02:00 is 07:30Z, earlier than 08:00Z.
	early := testutil.NewTestSession(testutil.WithStart(time.Date(2025, 6, 15, 9, 30, 0, 0, plus2)))
	late := testutil.NewTestSession()
	require.NoError(t, repo.Insert(ctx, testOwner, early))
	require.NoError(t, repo.Insert(ctx, testOwner, late))

	list, err := repo.List(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, late.ID, list[0].ID)
}

func TestSessionRepo_DuplicateIDIsIntegrityError(t *testing.T) {
	repo := NewSQLiteSessionRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	sess := testutil.NewTestSession()
	require.NoError(t, repo.Insert(ctx, testOwner, sess))
	err := repo.Insert(ctx, testOwner, sess)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestSessionRepo_DurationCheckIsValidationError(t *testing.T) {
	repo := NewSQLiteSessionRepo(testutil.NewTestDB(t))

	sess := testutil.NewTestSession(testutil.WithDuration(481))
	err := repo.Insert(context.Background(), testOwner, sess)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSessionRepo_Update(t *testing.T) {
	repo := NewSQLiteSessionRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	sess := testutil.NewTestSession()
	require.NoError(t, repo.Insert(ctx, testOwner, sess))

	sess.Type = domain.FeedingBoth
	sess.Duration = 30
	sess.Notes = "switched"
	require.NoError(t, repo.Update(ctx, testOwner, sess))

	fetched, err := repo.GetByID(ctx, testOwner, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedingBoth, fetched.Type)
	assert.Equal(t, 30, fetched.Duration)
	assert.Equal(t, "switched", fetched.Notes)
}

func TestSessionRepo_UpdateForeignOwnerNotFound(t *testing.T) {
	repo := NewSQLiteSessionRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	sess := testutil.NewTestSession()
	require.NoError(t, repo.Insert(ctx, testOwner, sess))

	sess.Duration = 40
	err := repo.Update(ctx, "owner-2", sess)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	fetched, err := repo.GetByID(ctx, testOwner, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, fetched.Duration)
}

func TestSessionRepo_Delete(t *testing.T) {
	repo := NewSQLiteSessionRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	sess := testutil.NewTestSession()
	require.NoError(t, repo.Insert(ctx, testOwner, sess))
	require.NoError(t, repo.Delete(ctx, testOwner, sess.ID))

	_, err := repo.GetByID(ctx, testOwner, sess.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.Delete(ctx, testOwner, sess.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepo_Ping(t *testing.T) {
	repo := NewSQLiteSessionRepo(testutil.NewTestDB(t))
	assert.NoError(t, repo.Ping(context.Background(), testOwner))
}
