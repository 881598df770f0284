package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/repository"
	"github.com/alexanderramin/feedlog/internal/testutil"
)

type fixture struct {
	fake  *testutil.FakeService
	svc   *backend.Service
	repo  *repository.SQLiteAuthSessionRepo
	clock *testutil.Clock
	mgr   *Manager
}

// newFixture builds a Manager that checks passwords, like the hosted backend.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := testutil.NewFakeService()
	svc := fake.Service()
	svc.Kind = backend.KindREST
	repo := repository.NewSQLiteAuthSessionRepo(testutil.NewTestDB(t))
	clock := testutil.NewClock(time.Now())
	return &fixture{
		fake:  fake,
		svc:   svc,
		repo:  repo,
		clock: clock,
		mgr:   NewManager(svc, repo, WithClock(clock.Now)),
	}
}

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no identity event")
		return Event{}
	}
}

func TestManager_SignInPersistsAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Auth.Register("parent@example.com", "secret123")
	events, cancel := f.mgr.Subscribe()
	defer cancel()

	id, err := f.mgr.SignIn(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "parent@example.com", id.Email)
	assert.Equal(t, id, f.mgr.Current())

	ev := recv(t, events)
	assert.Equal(t, SignedIn, ev.Kind)
	assert.Equal(t, id.ID, ev.Identity.ID)

	stored, kind, err := f.repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rest", kind)
	assert.Equal(t, id.ID, stored.User.ID)
}

func TestManager_SignInCreatesProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Auth.Register("parent@example.com", "secret123")

	id, err := f.mgr.SignIn(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)

	p, err := f.fake.Profiles.Get(ctx, id.ID)
	require.NoError(t, err)
	assert.Equal(t, "parent@example.com", p.Email)
}

func TestManager_SignInKeepsExistingProfileFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ownerID := f.fake.Auth.Register("parent@example.com", "secret123")
	require.NoError(t, f.fake.Profiles.Upsert(ctx, testutil.NewTestProfile(ownerID, "old@example.com",
		testutil.WithChild("Mia", testutil.BaseTime))))

	_, err := f.mgr.SignIn(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)

	p, err := f.fake.Profiles.Get(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "parent@example.com", p.Email)
	assert.Equal(t, "Mia", p.ChildName)
}

func TestManager_ProfileFailureDoesNotBlockSignIn(t *testing.T) {
	f := newFixture(t)
	f.fake.Auth.Register("parent@example.com", "secret123")
	f.fake.Profiles.Err = fmt.Errorf("profile table: %w", domain.ErrSchema)

	_, err := f.mgr.SignIn(context.Background(), "parent@example.com", "secret123")
	assert.NoError(t, err)
}

func TestManager_SignInErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Auth.Register("parent@example.com", "secret123")

	_, err := f.mgr.SignIn(ctx, "", "secret123")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.mgr.SignIn(ctx, "parent@example.com", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.mgr.SignIn(ctx, "parent@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Nil(t, f.mgr.Current())
}

func TestManager_SignUp(t *testing.T) {
	f := newFixture(t)

	id, signedIn, err := f.mgr.SignUp(context.Background(), "new@example.com", "secret123")
	require.NoError(t, err)
	assert.True(t, signedIn)
	assert.Equal(t, id, f.mgr.Current())
}

func TestManager_SignOutClearsAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Auth.Register("parent@example.com", "secret123")
	_, err := f.mgr.SignIn(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)

	events, cancel := f.mgr.Subscribe()
	defer cancel()
	require.NoError(t, f.mgr.SignOut(ctx))

	ev := recv(t, events)
	assert.Equal(t, SignedOut, ev.Kind)
	assert.Nil(t, ev.Identity)
	assert.Nil(t, f.mgr.Current())
	assert.Equal(t, 1, f.fake.Auth.SignOuts)

	_, _, err = f.repo.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Signing out twice is a no-op.
	require.NoError(t, f.mgr.SignOut(ctx))
}

func TestManager_StartRestoresSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Auth.Register("parent@example.com", "secret123")
	id, err := f.mgr.SignIn(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)

	// A second process sharing the state database.
	next := NewManager(f.svc, f.repo, WithClock(f.clock.Now))
	require.NoError(t, next.Start(ctx))
	require.NotNil(t, next.Current())
	assert.Equal(t, id.ID, next.Current().ID)
}

func TestManager_StartDropsForeignBackendSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Save(ctx, &domain.AuthSession{User: domain.Identity{ID: "u1"}}, "mongo"))

	require.NoError(t, f.mgr.Start(ctx))
	assert.Nil(t, f.mgr.Current())
	_, _, err := f.repo.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestManager_StartRefreshesExpiredSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Auth.Register("parent@example.com", "secret123")
	_, err := f.mgr.SignIn(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)
	before := f.mgr.Session()

	f.clock.Advance(2 * time.Hour)
	next := NewManager(f.svc, f.repo, WithClock(f.clock.Now))
	require.NoError(t, next.Start(ctx))
	require.NotNil(t, next.Session())
	assert.NotEqual(t, before.AccessToken, next.Session().AccessToken)
}

func TestManager_StartRejectedRefreshSignsOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Auth.Register("parent@example.com", "secret123")
	_, err := f.mgr.SignIn(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	f.fake.Auth.RefreshErr = fmt.Errorf("%w: refresh token revoked", domain.ErrUnauthenticated)
	next := NewManager(f.svc, f.repo, WithClock(f.clock.Now))
	require.NoError(t, next.Start(ctx))
	assert.Nil(t, next.Current())
}

func TestManager_StartKeepsSessionWhenOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Auth.Register("parent@example.com", "secret123")
	_, err := f.mgr.SignIn(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	f.fake.Auth.RefreshErr = fmt.Errorf("%w: dial tcp: connection refused", domain.ErrConnectivity)
	next := NewManager(f.svc, f.repo, WithClock(f.clock.Now))
	require.NoError(t, next.Start(ctx))
	assert.NotNil(t, next.Current())

	_, err = next.AccessToken(ctx)
	assert.ErrorIs(t, err, domain.ErrConnectivity)
}

func TestManager_AccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mgr.AccessToken(ctx)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	f.fake.Auth.Register("parent@example.com", "secret123")
	_, err = f.mgr.SignIn(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)

	tok, err := f.mgr.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.mgr.Session().AccessToken, tok)

	events, cancel := f.mgr.Subscribe()
	defer cancel()
	f.clock.Advance(59*time.Minute + 30*time.Second)
	refreshed, err := f.mgr.AccessToken(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, tok, refreshed)
	assert.Equal(t, Refreshed, recv(t, events).Kind)
}

func TestManager_AccessTokenRejectedRefreshLosesIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Auth.Register("parent@example.com", "secret123")
	_, err := f.mgr.SignIn(ctx, "parent@example.com", "secret123")
	require.NoError(t, err)

	events, cancel := f.mgr.Subscribe()
	defer cancel()
	f.clock.Advance(2 * time.Hour)
	f.fake.Auth.RefreshErr = domain.ErrUnauthenticated

	_, err = f.mgr.AccessToken(ctx)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Equal(t, SignedOut, recv(t, events).Kind)
	assert.Nil(t, f.mgr.Current())
}

func TestManager_UnsubscribedListenerDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Auth.Register("parent@example.com", "secret123")

	_, cancel := f.mgr.Subscribe()
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_, _ = f.mgr.SignIn(ctx, "parent@example.com", "secret123")
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sign-in blocked on a cancelled subscriber")
	}
}

func TestManager_StaticBackendSkipsPassword(t *testing.T) {
	fake := testutil.NewFakeService()
	svc := fake.Service()
	svc.Auth = backend.StaticAuthenticator{}
	mgr := NewManager(svc, repository.NewSQLiteAuthSessionRepo(testutil.NewTestDB(t)))

	assert.False(t, mgr.NeedsPassword())
	id, err := mgr.SignIn(context.Background(), "parent@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, backend.OwnerID("parent@example.com"), id.ID)

	tok, err := mgr.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)

	err = mgr.ResetPassword(context.Background(), "parent@example.com")
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}
