// Package auth owns the signed-in identity. It wraps the backend's
// authenticator, persists the auth session in the state database and
// notifies subscribers when the identity changes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/alexanderramin/feedlog/internal/repository"
)

// refreshSkew refreshes tokens slightly before they expire.
const refreshSkew = time.Minute

// EventKind says what happened to the identity.
type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	Refreshed
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case Refreshed:
		return "refreshed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers on identity changes. Identity is nil
// after sign-out.
type Event struct {
	Kind     EventKind
	Identity *domain.Identity
}

type subscriber struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// Manager tracks the current auth session.
type Manager struct {
	authn    backend.Authenticator
	profiles backend.ProfileTable
	repo     repository.AuthSessionRepo
	kind     backend.Kind
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	session *domain.AuthSession
	subs    map[int]*subscriber
	nextSub int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger for non-fatal failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager for the given backend service.
func NewManager(svc *backend.Service, repo repository.AuthSessionRepo, opts ...Option) *Manager {
	m := &Manager{
		authn:    svc.Auth,
		profiles: svc.Profiles,
		repo:     repo,
		kind:     svc.Kind,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		subs:     make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start restores the persisted session. A session issued by a different
// backend is dropped. An expired session is refreshed; if the service
// rejects the refresh the session is cleared. Connectivity failures keep
// the stored session so later calls can retry.
func (m *Manager) Start(ctx context.Context) error {
	stored, kind, err := m.repo.Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restoring auth session: %w", err)
	}
	if kind != string(m.kind) {
		m.logger.Info("auth_session_dropped", "stored_backend", kind, "backend", string(m.kind))
		return m.repo.Clear(ctx)
	}

	m.mu.Lock()
	m.session = stored
	m.mu.Unlock()

	if !stored.Expired(m.now(), refreshSkew) {
		return nil
	}
	if _, err := m.refresh(ctx, stored); err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return nil
		}
		m.logger.Warn("auth_refresh_deferred", "error", err.Error())
	}
	return nil
}

// Kind reports the backend this manager authenticates against.
func (m *Manager) Kind() backend.Kind { return m.kind }

// Current returns the signed-in identity, or nil.
func (m *Manager) Current() *domain.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	id := m.session.User
	return &id
}

// Session returns a copy of the current auth session, or nil.
func (m *Manager) Session() *domain.AuthSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

func validateCredentials(email, password string, needPassword bool) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if needPassword && password == "" {
		return "", fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	return email, nil
}

// NeedsPassword reports whether the backend verifies passwords.
func (m *Manager) NeedsPassword() bool {
	return m.kind == backend.KindREST
}

// SignUp registers an account. It returns false when the service wants the
// address confirmed before the first sign-in.
func (m *Manager) SignUp(ctx context.Context, email, password string) (*domain.Identity, bool, error) {
	email, err := validateCredentials(email, password, m.NeedsPassword())
	if err != nil {
		return nil, false, err
	}
	s, err := m.authn.SignUp(ctx, email, password)
	if err != nil {
		return nil, false, err
	}
	if s.AccessToken == "" && m.NeedsPassword() {
		id := s.User
		return &id, false, nil
	}
	if err := m.adopt(ctx, s); err != nil {
		return nil, false, err
	}
	id := s.User
	return &id, true, nil
}

// SignIn authenticates and makes the result the current identity.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*domain.Identity, error) {
	email, err := validateCredentials(email, password, m.NeedsPassword())
	if err != nil {
		return nil, err
	}
	s, err := m.authn.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := m.adopt(ctx, s); err != nil {
		return nil, err
	}
	id := s.User
	return &id, nil
}

func (m *Manager) adopt(ctx context.Context, s *domain.AuthSession) error {
	if err := m.repo.Save(ctx, s, string(m.kind)); err != nil {
		return fmt.Errorf("saving auth session: %w", err)
	}
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()

	m.ensureProfile(ctx, s.User)
	id := s.User
	m.notify(Event{Kind: SignedIn, Identity: &id})
	return nil
}

// ensureProfile creates the profile row on first sign-in and keeps its
// email current. Failures are logged, not returned.
func (m *Manager) ensureProfile(ctx context.Context, id domain.Identity) {
	p, err := m.profiles.Get(ctx, id.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		p = &domain.Profile{OwnerID: id.ID, Email: id.Email}
	case err != nil:
		m.logger.Warn("profile_lookup_failed", "owner", id.ID, "error", err.Error())
		return
	case p.Email == id.Email:
		return
	default:
		p.Email = id.Email
	}
	if err := m.profiles.Upsert(ctx, p); err != nil {
		m.logger.Warn("profile_upsert_failed", "owner", id.ID, "error", err.Error())
	}
}

// SignOut ends the session locally even when the service cannot be
// reached; the service error is still returned.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return nil
	}

	remoteErr := m.authn.SignOut(ctx, s)
	if err := m.drop(ctx); err != nil {
		return err
	}
	if remoteErr != nil {
		return fmt.Errorf("signed out locally: %w", remoteErr)
	}
	return nil
}

func (m *Manager) drop(ctx context.Context) error {
	m.mu.Lock()
	had := m.session != nil
	m.session = nil
	m.mu.Unlock()

	if err := m.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clearing auth session: %w", err)
	}
	if had {
		m.notify(Event{Kind: SignedOut})
	}
	return nil
}

// ResetPassword asks the service to send a password reset email.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	email, err := validateCredentials(email, "", false)
	if err != nil {
		return err
	}
	return m.authn.ResetPassword(ctx, email)
}

// Verify asks the service who the current session belongs to.
func (m *Manager) Verify(ctx context.Context) (*domain.Identity, error) {
	if _, err := m.AccessToken(ctx); err != nil {
		return nil, err
	}
	return m.authn.User(ctx, m.Session())
}

// AccessToken returns a valid access token, refreshing it when it is about
// to expire. Backends without tokens return an empty token for a signed-in
// identity.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return "", fmt.Errorf("%w: not signed in", domain.ErrUnauthenticated)
	}
	if !s.Expired(m.now(), refreshSkew) {
		return s.AccessToken, nil
	}
	next, err := m.refresh(ctx, s)
	if err != nil {
		return "", err
	}
	return next.AccessToken, nil
}

// refresh swaps s for a fresh session. A rejected refresh loses the identity.
func (m *Manager) refresh(ctx context.Context, s *domain.AuthSession) (*domain.AuthSession, error) {
	next, err := m.authn.Refresh(ctx, s)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			if dropErr := m.drop(ctx); dropErr != nil {
				m.logger.Warn("auth_clear_failed", "error", dropErr.Error())
			}
		}
		return nil, err
	}
	if err := m.repo.Save(ctx, next, string(m.kind)); err != nil {
		return nil, fmt.Errorf("saving refreshed session: %w", err)
	}
	m.mu.Lock()
	m.session = next
	m.mu.Unlock()

	id := next.User
	m.notify(Event{Kind: Refreshed, Identity: &id})
	return next, nil
}

// Subscribe returns a channel of identity events and a cancel func. The
// channel is never closed; stop reading after cancel. Events are delivered
// in order; a slow subscriber delays the next identity change.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, 4), done: make(chan struct{})}
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = sub
	m.mu.Unlock()

	return sub.ch, func() {
		sub.once.Do(func() { close(sub.done) })
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(ev Event) {
	m.mu.Lock()
	subs := make([]*subscriber, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		case <-s.done:
		}
	}
}
