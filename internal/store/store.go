// Package store is the write-through session cache. Every mutation is
// confirmed by the data service before the cache changes, and the cache
// follows the signed-in identity.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/feedlog/internal/auth"
	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/repository"
	"github.com/alexanderramin/feedlog/internal/summary"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// IdentitySource reports the signed-in identity and its changes.
type IdentitySource interface {
	Current() *domain.Identity
	Subscribe() (<-chan auth.Event, func())
}

// Store caches the owner's sessions and mediates every write.
type Store struct {
	sessions  backend.SessionTable
	live      repository.LiveSessionRepo
	ids       IdentitySource
	now       func() time.Time
	newID     func() string
	weekStart domain.WeekStartDay
	observer  UseCaseObserver

	mu     sync.RWMutex
	owner  string
	cache  []domain.FeedingSession
	loaded bool
	// loadErr is the outcome of the last load, kept for background reloads.
	loadErr error
	// gen changes whenever the owner changes or the store closes. Writes
	// that finish under a stale generation are dropped from the cache.
	gen     uint64
	started bool
	closed  bool

	stop        chan struct{}
	wg          sync.WaitGroup
	unsubscribe func()
	// reloaded receives after each identity change has been applied.
	reloaded chan struct{}
}

// Option configures a Store.
type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func WithWeekStart(d domain.WeekStartDay) Option {
	return func(s *Store) { s.weekStart = d }
}

func WithObserver(o UseCaseObserver) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// New creates a Store. Call Init before use and Close when done.
func New(sessions backend.SessionTable, live repository.LiveSessionRepo, ids IdentitySource, opts ...Option) *Store {
	s := &Store{
		sessions:  sessions,
		live:      live,
		ids:       ids,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		weekStart: domain.WeekStartMonday,
		observer:  NoopUseCaseObserver{},
		stop:      make(chan struct{}),
		reloaded:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init subscribes to identity changes and loads the current owner's
// sessions, if anyone is signed in. Calling it again retries a load that
// failed.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		retry := s.owner != "" && !s.loaded
		s.mu.Unlock()
		if retry {
			return s.Load(ctx)
		}
		return nil
	}
	s.started = true
	events, unsubscribe := s.ids.Subscribe()
	s.unsubscribe = unsubscribe
	if id := s.ids.Current(); id != nil {
		s.owner = id.ID
	}
	owner := s.owner
	s.mu.Unlock()

	s.wg.Add(1)
	go s.watch(events)

	if owner == "" {
		return nil
	}
	return s.Load(ctx)
}

// Close unsubscribes from identity changes and clears the cache. Writes
// still in flight complete, but their results are discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.gen++
	s.cache = nil
	s.loaded = false
	s.owner = ""
	started := s.started
	s.mu.Unlock()

	if started {
		close(s.stop)
		s.unsubscribe()
		s.wg.Wait()
	}
	return nil
}

func (s *Store) watch(events <-chan auth.Event) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case ev := <-events:
			s.applyIdentity(ev)
		}
	}
}

// applyIdentity clears the cache when the owner changes and reloads for a
// new owner. Token refreshes for the same owner keep the cache.
func (s *Store) applyIdentity(ev auth.Event) {
	next := ""
	if ev.Identity != nil {
		next = ev.Identity.ID
	}

	s.mu.Lock()
	if s.closed || next == s.owner {
		s.mu.Unlock()
		s.signalReloaded()
		return
	}
	s.gen++
	s.owner = next
	s.cache = nil
	s.loaded = false
	s.loadErr = nil
	s.mu.Unlock()

	if next != "" {
		ctx, cancel := context.WithTimeout(context.Background(), backend.DefaultTimeout)
		// Load records its failure for LastLoadErr and the next Init.
		_ = s.Load(ctx)
		cancel()
	}
	s.signalReloaded()
}

func (s *Store) signalReloaded() {
	select {
	case s.reloaded <- struct{}{}:
	default:
	}
}

// snapshot returns the owner and generation a write is issued under.
func (s *Store) snapshot() (string, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", 0, ErrClosed
	}
	if s.owner == "" {
		return "", 0, fmt.Errorf("%w: sign in first", domain.ErrUnauthenticated)
	}
	return s.owner, s.gen, nil
}

func (s *Store) observe(ctx context.Context, name string, started time.Time, err error, fields map[string]any) {
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		Duration:  time.Since(started),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
		StartedAt: started,
	})
}

// Owner returns the id the cache belongs to, or "".
func (s *Store) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// Loaded reports whether the cache holds the owner's full collection.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Load replaces the cache with the owner's sessions, newest first.
func (s *Store) Load(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "load", start, err, nil) }()

	owner, gen, err := s.snapshot()
	if err != nil {
		return err
	}
	rows, err := s.sessions.List(ctx, owner)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return err
	}
	s.loadErr = err
	if err != nil {
		return err
	}
	s.cache = rows
	s.loaded = true
	return nil
}

// LastLoadErr returns the error of the most recent load for the current
// owner, including loads triggered by identity changes.
func (s *Store) LastLoadErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Sessions returns a copy of the cached sessions.
func (s *Store) Sessions() []domain.FeedingSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.FeedingSession(nil), s.cache...)
}

// SessionsOn returns the cached sessions that started on date's local day.
func (s *Store) SessionsOn(date time.Time) []domain.FeedingSession {
	return summary.SessionsOn(s.Sessions(), date)
}

// Get returns a cached session by id.
func (s *Store) Get(id string) (domain.FeedingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.cache {
		if sess.ID == id {
			return sess, nil
		}
	}
	return domain.FeedingSession{}, fmt.Errorf("feeding session %s: %w", id, domain.ErrNotFound)
}

// Daily summarises the cached sessions for date's local day.
func (s *Store) Daily(date time.Time) domain.DailySummary {
	return summary.Daily(s.Sessions(), date)
}

// Weekly summarises the week containing date.
func (s *Store) Weekly(date time.Time) domain.WeeklySummary {
	return summary.Weekly(s.Sessions(), date, s.weekStart)
}

// validate applies the model invariants plus the no-future-start rule.
func (s *Store) validate(sess domain.FeedingSession) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if sess.StartTime.After(s.now().Add(time.Minute)) {
		return fmt.Errorf("%w: start time %s is in the future", domain.ErrValidation,
			sess.StartTime.Format(time.RFC3339))
	}
	return nil
}

// Add validates sess, writes it and, once the write succeeds, puts it at
// the head of the cache. An empty id is filled in.
func (s *Store) Add(ctx context.Context, sess domain.FeedingSession) (_ domain.FeedingSession, err error) {
	start := time.Now()
	defer func() {
		s.observe(ctx, "add", start, err, map[string]any{"type": string(sess.Type), "duration_min": sess.Duration})
	}()

	if sess.ID == "" {
		sess.ID = s.newID()
	}
	sess.Active = false
	if err := s.validate(sess); err != nil {
		return domain.FeedingSession{}, err
	}
	owner, gen, err := s.snapshot()
	if err != nil {
		return domain.FeedingSession{}, err
	}
	if err := s.sessions.Insert(ctx, owner, sess); err != nil {
		return domain.FeedingSession{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.cache = append([]domain.FeedingSession{sess}, s.cache...)
	}
	return sess, nil
}

// Update validates sess and replaces the cached copy once the write succeeds.
func (s *Store) Update(ctx context.Context, sess domain.FeedingSession) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "update", start, err, map[string]any{"id": sess.ID}) }()

	if err := s.validate(sess); err != nil {
		return err
	}
	owner, gen, err := s.snapshot()
	if err != nil {
		return err
	}
	if err := s.sessions.Update(ctx, owner, sess); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil
	}
	for i := range s.cache {
		if s.cache[i].ID == sess.ID {
			s.cache[i] = sess
			return nil
		}
	}
	s.cache = append([]domain.FeedingSession{sess}, s.cache...)
	return nil
}

// Remove deletes the session and drops it from the cache once the delete
// succeeds.
func (s *Store) Remove(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "remove", start, err, map[string]any{"id": id}) }()

	if id == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}
	owner, gen, err := s.snapshot()
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, owner, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil
	}
	for i := range s.cache {
		if s.cache[i].ID == id {
			s.cache = append(s.cache[:i:i], s.cache[i+1:]...)
			break
		}
	}
	return nil
}
