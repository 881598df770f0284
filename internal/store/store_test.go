package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/feedlog/internal/auth"
	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/repository"
	"github.com/alexanderramin/feedlog/internal/testutil"
)

const owner = "owner-1"

// fakeIdentity is a hand-driven IdentitySource.
type fakeIdentity struct {
	mu      sync.Mutex
	current *domain.Identity
	ch      chan auth.Event
}

func newFakeIdentity(id string) *fakeIdentity {
	f := &fakeIdentity{ch: make(chan auth.Event, 4)}
	if id != "" {
		f.current = &domain.Identity{ID: id, Email: id + "@example.com"}
	}
	return f
}

func (f *fakeIdentity) Current() *domain.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeIdentity) Subscribe() (<-chan auth.Event, func()) {
	return f.ch, func() {}
}

func (f *fakeIdentity) emit(kind auth.EventKind, id string) {
	f.mu.Lock()
	if id == "" {
		f.current = nil
	} else {
		f.current = &domain.Identity{ID: id}
	}
	ev := auth.Event{Kind: kind, Identity: f.current}
	f.mu.Unlock()
	f.ch <- ev
}

type harness struct {
	fake  *testutil.FakeSessionTable
	ids   *fakeIdentity
	clock *testutil.Clock
	store *Store
}

func newHarness(t *testing.T, ownerID string, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		fake:  testutil.NewFakeSessionTable(),
		ids:   newFakeIdentity(ownerID),
		clock: testutil.NewClock(testutil.BaseTime.Add(12 * time.Hour)),
	}
	live := repository.NewSQLiteLiveSessionRepo(testutil.NewTestDB(t))
	opts = append([]Option{WithClock(h.clock.Now)}, opts...)
	h.store = New(h.fake, live, h.ids, opts...)
	return h
}

func (h *harness) init(t *testing.T) {
	t.Helper()
	require.NoError(t, h.store.Init(context.Background()))
	t.Cleanup(func() { _ = h.store.Close() })
}

func waitReloaded(t *testing.T, s *Store) {
	t.Helper()
	select {
	case <-s.reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("identity change not applied")
	}
}

func countID(sessions []domain.FeedingSession, id string) int {
	n := 0
	for _, s := range sessions {
		if s.ID == id {
			n++
		}
	}
	return n
}

func TestAdd_EveryValidDurationAppearsOnce(t *testing.T) {
	h := newHarness(t, owner)
	h.init(t)
	ctx := context.Background()

	for d := domain.MinDurationMin; d <= domain.MaxDurationMin; d++ {
		saved, err := h.store.Add(ctx, testutil.NewTestSession(testutil.WithDuration(d)))
		require.NoError(t, err, "duration %d", d)
		assert.Equal(t, 1, countID(h.store.Sessions(), saved.ID), "duration %d", d)
	}
	assert.Len(t, h.store.Sessions(), domain.MaxDurationMin)
	assert.Len(t, h.fake.Rows(owner), domain.MaxDurationMin)
}

func TestAdd_InvalidDurationRejectedBeforeWrite(t *testing.T) {
	h := newHarness(t, owner)
	h.init(t)
	ctx := context.Background()
	_, err := h.store.Add(ctx, testutil.NewTestSession())
	require.NoError(t, err)
	before := h.store.Sessions()

	for _, d := range []int{0, -5, 481, 10000} {
		_, err := h.store.Add(ctx, testutil.NewTestSession(testutil.WithDuration(d)))
		assert.ErrorIs(t, err, domain.ErrValidation, "duration %d", d)
	}
	assert.Equal(t, 1, h.fake.Calls("insert"))
	assert.Equal(t, before, h.store.Sessions())
}

func TestAdd_OtherValidationFailures(t *testing.T) {
	h := newHarness(t, owner)
	h.init(t)
	ctx := context.Background()

	noVolume := testutil.NewTestSession(testutil.WithType(domain.FeedingBottle))
	noVolume.BottleVolume = nil
	future := testutil.NewTestSession(testutil.WithStart(h.clock.Now().Add(time.Hour)))
	endBeforeStart := testutil.NewTestSession()
	early := endBeforeStart.StartTime.Add(-time.Minute)
	endBeforeStart.EndTime = &early

	for name, s := range map[string]domain.FeedingSession{
		"bottle without volume": noVolume,
		"future start":          future,
		"end before start":      endBeforeStart,
		"volume on breast":      testutil.NewTestSession(func(s *domain.FeedingSession) { v := 90; s.BottleVolume = &v }),
	} {
		_, err := h.store.Add(ctx, s)
		assert.ErrorIs(t, err, domain.ErrValidation, name)
	}
	assert.Zero(t, h.fake.Calls("insert"))
	assert.Empty(t, h.store.Sessions())
}

func TestAdd_FillsIDAndClearsActive(t *testing.T) {
	h := newHarness(t, owner, WithIDGenerator(func() string { return "generated" }))
	h.init(t)

	s := testutil.NewTestSession(testutil.WithID(""))
	s.Active = true
	saved, err := h.store.Add(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "generated", saved.ID)
	assert.False(t, saved.Active)
}

func TestAdd_WriteFailureLeavesCacheUntouched(t *testing.T) {
	failures := []error{
		fmt.Errorf("insert: %w", domain.ErrConnectivity),
		fmt.Errorf("insert: %w", domain.ErrTimeout),
		fmt.Errorf("insert: %w", domain.ErrPermission),
		fmt.Errorf("insert: %w", domain.ErrIntegrity),
	}
	for _, failure := range failures {
		t.Run(failure.Error(), func(t *testing.T) {
			h := newHarness(t, owner)
			h.init(t)
			h.fake.FailWith("insert", failure)

			_, err := h.store.Add(context.Background(), testutil.NewTestSession())
			assert.ErrorIs(t, err, failure)
			assert.Empty(t, h.store.Sessions())
			assert.Empty(t, h.fake.Rows(owner))
		})
	}
}

func TestAdd_PrependsToHead(t *testing.T) {
	h := newHarness(t, owner)
	h.init(t)
	ctx := context.Background()

	first, err := h.store.Add(ctx, testutil.NewTestSession())
	require.NoError(t, err)
	second, err := h.store.Add(ctx, testutil.NewTestSession(testutil.WithStart(testutil.BaseTime.Add(-time.Hour))))
	require.NoError(t, err)

	sessions := h.store.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)
}

func TestUpdate_ReplacesAfterWrite(t *testing.T) {
	h := newHarness(t, owner)
	h.init(t)
	ctx := context.Background()

	saved, err := h.store.Add(ctx, testutil.NewTestSession())
	require.NoError(t, err)

	saved.Duration = 42
	saved.Notes = "fussy"
	require.NoError(t, h.store.Update(ctx, saved))

	got, err := h.store.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Duration)
	assert.Equal(t, "fussy", h.fake.Rows(owner)[0].Notes)
}

func TestUpdate_FailuresLeaveCacheUntouched(t *testing.T) {
	h := newHarness(t, owner)
	h.init(t)
	ctx := context.Background()
	saved, err := h.store.Add(ctx, testutil.NewTestSession())
	require.NoError(t, err)

	bad := saved
	bad.Duration = 0
	assert.ErrorIs(t, h.store.Update(ctx, bad), domain.ErrValidation)
	assert.Zero(t, h.fake.Calls("update"))

	h.fake.FailWith("update", domain.ErrPermission)
	changed := saved
	changed.Duration = 30
	assert.ErrorIs(t, h.store.Update(ctx, changed), domain.ErrPermission)

	got, err := h.store.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Duration, got.Duration)
}

func TestUpdate_MissingRow(t *testing.T) {
	h := newHarness(t, owner)
	h.init(t)

	err := h.store.Update(context.Background(), testutil.NewTestSession())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, h.store.Sessions())
}

func TestRemove_DeletesFromBackendAndCache(t *testing.T) {
	h := newHarness(t, owner)
	h.init(t)
	ctx := context.Background()

	keep, err := h.store.Add(ctx, testutil.NewTestSession())
	require.NoError(t, err)
	gone, err := h.store.Add(ctx, testutil.NewTestSession())
	require.NoError(t, err)

	require.NoError(t, h.store.Remove(ctx, gone.ID))
	assert.Zero(t, countID(h.store.Sessions(), gone.ID))
	assert.Zero(t, countID(h.fake.Rows(owner), gone.ID))

	require.NoError(t, h.store.Load(ctx))
	sessions := h.store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, keep.ID, sessions[0].ID)
}

func TestRemove_FailureLeavesCacheUntouched(t *testing.T) {
	h := newHarness(t, owner)
	h.init(t)
	ctx := context.Background()
	saved, err := h.store.Add(ctx, testutil.NewTestSession())
	require.NoError(t, err)

	h.fake.FailWith("delete", domain.ErrConnectivity)
	assert.ErrorIs(t, h.store.Remove(ctx, saved.ID), domain.ErrConnectivity)
	assert.Equal(t, 1, countID(h.store.Sessions(), saved.ID))

	assert.ErrorIs(t, h.store.Remove(ctx, ""), domain.ErrValidation)
}

func TestWrites_RequireIdentity(t *testing.T) {
	h := newHarness(t, "")
	h.init(t)
	ctx := context.Background()

	_, err := h.store.Add(ctx, testutil.NewTestSession())
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.ErrorIs(t, h.store.Load(ctx), domain.ErrUnauthenticated)
	assert.ErrorIs(t, h.store.Remove(ctx, "x"), domain.ErrUnauthenticated)
	_, err = h.store.StartLive(ctx, domain.FeedingLeft, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Zero(t, h.fake.Calls("insert"))
}

func TestInit_LoadsNewestFirst(t *testing.T) {
	h := newHarness(t, owner)
	older := testutil.NewTestSession(testutil.WithStart(testutil.BaseTime.Add(-24 * time.Hour)))
	newer := testutil.NewTestSession()
	h.fake.Seed(owner, older, newer)
	h.init(t)

	assert.True(t, h.store.Loaded())
	sessions := h.store.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, newer.ID, sessions[0].ID)
}

func TestInit_LoadFailureSurfaces(t *testing.T) {
	h := newHarness(t, owner)
	h.fake.FailWith("list", domain.ErrSchema)

	err := h.store.Init(context.Background())
	t.Cleanup(func() { _ = h.store.Close() })
	assert.ErrorIs(t, err, domain.ErrSchema)
	assert.False(t, h.store.Loaded())
}

func TestInit_RetriesFailedLoad(t *testing.T) {
	h := newHarness(t, owner)
	h.fake.Seed(owner, testutil.NewTestSession())
	h.fake.FailWith("list", domain.ErrConnectivity)

	err := h.store.Init(context.Background())
	t.Cleanup(func() { _ = h.store.Close() })
	require.ErrorIs(t, err, domain.ErrConnectivity)
	assert.ErrorIs(t, h.store.LastLoadErr(), domain.ErrConnectivity)

	h.fake.FailWith("list", nil)
	require.NoError(t, h.store.Init(context.Background()))
	assert.True(t, h.store.Loaded())
	assert.Len(t, h.store.Sessions(), 1)
	assert.NoError(t, h.store.LastLoadErr())

	require.NoError(t, h.store.Init(context.Background()))
	assert.Equal(t, 2, h.fake.Calls("list"), "a loaded store is not reloaded")
}

func TestIdentityChange_LoadFailureIsRecorded(t *testing.T) {
	h := newHarness(t, owner)
	theirs := testutil.NewTestSession()
	h.fake.Seed("owner-2", theirs)
	h.init(t)

	h.fake.FailWith("list", domain.ErrTimeout)
	h.ids.emit(auth.SignedIn, "owner-2")
	waitReloaded(t, h.store)

	assert.False(t, h.store.Loaded())
	assert.ErrorIs(t, h.store.LastLoadErr(), domain.ErrTimeout)

	h.fake.FailWith("list", nil)
	require.NoError(t, h.store.Init(context.Background()))
	sessions := h.store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, theirs.ID, sessions[0].ID)
}

func TestIdentityLoss_ClearsCache(t *testing.T) {
	h := newHarness(t, owner)
	h.fake.Seed(owner, testutil.NewTestSession())
	h.init(t)
	require.Len(t, h.store.Sessions(), 1)

	h.ids.emit(auth.SignedOut, "")
	waitReloaded(t, h.store)

	assert.Empty(t, h.store.Sessions())
	assert.Empty(t, h.store.Owner())
	_, err := h.store.Add(context.Background(), testutil.NewTestSession())
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestIdentityChange_LoadsNewOwner(t *testing.T) {
	h := newHarness(t, owner)
	mine := testutil.NewTestSession()
	theirs := testutil.NewTestSession()
	h.fake.Seed(owner, mine)
	h.fake.Seed("owner-2", theirs)
	h.init(t)

	h.ids.emit(auth.SignedIn, "owner-2")
	waitReloaded(t, h.store)

	sessions := h.store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, theirs.ID, sessions[0].ID)
}

func TestIdentityRefresh_KeepsCache(t *testing.T) {
	h := newHarness(t, owner)
	h.fake.Seed(owner, testutil.NewTestSession())
	h.init(t)

	h.ids.emit(auth.Refreshed, owner)
	waitReloaded(t, h.store)

	assert.Len(t, h.store.Sessions(), 1)
	assert.Equal(t, 1, h.fake.Calls("list"))
}

func TestInFlightWrite_DiscardedAfterIdentityChange(t *testing.T) {
	h := newHarness(t, owner)
	h.init(t)
	entered, release := h.fake.HoldWrites()
	defer release()

	type result struct {
		err error
	}
	done := make(chan result, 1)
	go func() {
		_, err := h.store.Add(context.Background(), testutil.NewTestSession())
		done <- result{err}
	}()
	<-entered

	h.ids.emit(auth.SignedIn, "owner-2")
	waitReloaded(t, h.store)
	release()

	res := <-done
	assert.NoError(t, res.err)
	assert.Empty(t, h.store.Sessions(), "write from the previous owner must not leak into the new cache")
	assert.Len(t, h.fake.Rows(owner), 1, "the write itself completed")
}

func TestInFlightWrite_AfterCloseDoesNotFail(t *testing.T) {
	h := newHarness(t, owner)
	require.NoError(t, h.store.Init(context.Background()))
	entered, release := h.fake.HoldWrites()
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := h.store.Add(context.Background(), testutil.NewTestSession())
		done <- err
	}()
	<-entered

	require.NoError(t, h.store.Close())
	release()

	assert.NoError(t, <-done)
	assert.Empty(t, h.store.Sessions())

	_, err := h.store.Add(context.Background(), testutil.NewTestSession())
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, h.store.Close(), "close is idempotent")
}

func TestDailyAndWeekly(t *testing.T) {
	h := newHarness(t, owner)
	h.init(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 11, 0, 0, 0, 0, time.Local) // Wednesday
	at := func(hh, mm int) time.Time {
		return time.Date(2025, 6, 11, hh, mm, 0, 0, time.Local)
	}

	for _, s := range []domain.FeedingSession{
		testutil.NewTestSession(testutil.WithStart(at(8, 30)), testutil.WithDuration(15), testutil.WithType(domain.FeedingLeft)),
		testutil.NewTestSession(testutil.WithStart(at(11, 45)), testutil.WithDuration(12), testutil.WithType(domain.FeedingRight)),
		testutil.NewTestSession(testutil.WithStart(at(14, 20)), testutil.WithDuration(18), testutil.WithType(domain.FeedingBoth)),
		testutil.NewTestSession(testutil.WithStart(at(17, 0)), testutil.WithDuration(10), testutil.WithBottle(120)),
	} {
		_, err := h.store.Add(ctx, s)
		require.NoError(t, err)
	}

	d := h.store.Daily(day)
	assert.Equal(t, 4, d.TotalSessions)
	assert.Equal(t, 55, d.TotalTime)
	assert.Equal(t, 15, d.LeftBreastTime)
	assert.Equal(t, 12, d.RightBreastTime)
	assert.Equal(t, 18, d.BothBreastsTime)
	assert.Equal(t, 10, d.BottleTime)
	assert.Equal(t, 120, d.BottleVolume)
	assert.Len(t, h.store.SessionsOn(day), 4)

	w := h.store.Weekly(day)
	assert.Equal(t, time.Monday, w.WeekStart.Weekday())
	assert.Equal(t, 4, w.Days[2].TotalSessions)
	assert.Equal(t, 55, w.Totals.TotalTime)

	sunday := newHarness(t, owner, WithWeekStart(domain.WeekStartSunday))
	sunday.init(t)
	assert.Equal(t, time.Sunday, sunday.store.Weekly(day).WeekStart.Weekday())
}

func TestObserver_RecordsUseCases(t *testing.T) {
	obs := &recordingObserver{}
	h := newHarness(t, owner, WithObserver(obs))
	h.init(t)

	_, err := h.store.Add(context.Background(), testutil.NewTestSession(testutil.WithDuration(0)))
	require.Error(t, err)

	events := obs.snapshot()
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, "load", events[0].Name)
	last := events[len(events)-1]
	assert.Equal(t, "add", last.Name)
	assert.False(t, last.Success)
	assert.ErrorIs(t, last.Err, domain.ErrValidation)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (r *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingObserver) snapshot() []UseCaseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]UseCaseEvent(nil), r.events...)
}
