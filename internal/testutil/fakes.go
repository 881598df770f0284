package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/google/uuid"
)

// FakeSessionTable is an in-memory backend.SessionTable with failure
// injection and the ability to hold writes mid-flight.
type FakeSessionTable struct {
	mu    sync.Mutex
	rows  map[string][]domain.FeedingSession
	errs  map[string]error
	calls map[string]int
	hold  chan struct{}
	held  chan struct{}
}

func NewFakeSessionTable() *FakeSessionTable {
	return &FakeSessionTable{
		rows:  make(map[string][]domain.FeedingSession),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// FailWith makes every call to op ("list", "insert", "update", "delete")
// return err until cleared with a nil err.
func (f *FakeSessionTable) FailWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// HoldWrites blocks subsequent writes after they are applied but before
// they return. entered receives once per held write; release unblocks all.
func (f *FakeSessionTable) HoldWrites() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = make(chan struct{})
	f.held = make(chan struct{}, 16)
	hold := f.hold
	var once sync.Once
	return f.held, func() { once.Do(func() { close(hold) }) }
}

// Calls returns how many times op was invoked.
func (f *FakeSessionTable) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Seed stores sessions for ownerID without going through Insert.
func (f *FakeSessionTable) Seed(ownerID string, sessions ...domain.FeedingSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[ownerID] = append(f.rows[ownerID], sessions...)
}

// Rows returns a copy of the stored rows for ownerID.
func (f *FakeSessionTable) Rows(ownerID string) []domain.FeedingSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.FeedingSession(nil), f.rows[ownerID]...)
}

func (f *FakeSessionTable) begin(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.errs[op]
}

func (f *FakeSessionTable) wait(ctx context.Context) error {
	f.mu.Lock()
	hold, held := f.hold, f.held
	f.mu.Unlock()
	if hold == nil {
		return nil
	}
	held <- struct{}{}
	select {
	case <-hold:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeSessionTable) List(ctx context.Context, ownerID string) ([]domain.FeedingSession, error) {
	if err := f.begin("list"); err != nil {
		return nil, err
	}
	rows := f.Rows(ownerID)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].StartTime.After(rows[j].StartTime)
	})
	return rows, nil
}

func (f *FakeSessionTable) Insert(ctx context.Context, ownerID string, s domain.FeedingSession) error {
	if err := f.begin("insert"); err != nil {
		return err
	}
	f.mu.Lock()
	for _, existing := range f.rows[ownerID] {
		if existing.ID == s.ID {
			f.mu.Unlock()
			return fmt.Errorf("feeding session %s: %w", s.ID, domain.ErrIntegrity)
		}
	}
	f.rows[ownerID] = append(f.rows[ownerID], s)
	f.mu.Unlock()
	return f.wait(ctx)
}

func (f *FakeSessionTable) Update(ctx context.Context, ownerID string, s domain.FeedingSession) error {
	if err := f.begin("update"); err != nil {
		return err
	}
	f.mu.Lock()
	found := false
	for i, existing := range f.rows[ownerID] {
		if existing.ID == s.ID {
			f.rows[ownerID][i] = s
			found = true
			break
		}
	}
	f.mu.Unlock()
	if !found {
		return fmt.Errorf("feeding session %s: %w", s.ID, domain.ErrNotFound)
	}
	return f.wait(ctx)
}

func (f *FakeSessionTable) Delete(ctx context.Context, ownerID, id string) error {
	if err := f.begin("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	rows := f.rows[ownerID]
	found := false
	for i, existing := range rows {
		if existing.ID == id {
			f.rows[ownerID] = append(rows[:i:i], rows[i+1:]...)
			found = true
			break
		}
	}
	f.mu.Unlock()
	if !found {
		return fmt.Errorf("feeding session %s: %w", id, domain.ErrNotFound)
	}
	return f.wait(ctx)
}

// FakeProfileTable is an in-memory backend.ProfileTable.
type FakeProfileTable struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
	Err      error
}

func NewFakeProfileTable() *FakeProfileTable {
	return &FakeProfileTable{profiles: make(map[string]domain.Profile)}
}

func (f *FakeProfileTable) Get(ctx context.Context, ownerID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	p, ok := f.profiles[ownerID]
	if !ok {
		return nil, fmt.Errorf("user profile: %w", domain.ErrNotFound)
	}
	return &p, nil
}

func (f *FakeProfileTable) Upsert(ctx context.Context, p *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	now := time.Now().UTC()
	stored := *p
	if existing, ok := f.profiles[p.OwnerID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	f.profiles[p.OwnerID] = stored
	return nil
}

// FakeAuthenticator is an in-memory backend.Authenticator issuing opaque
// tokens with a configurable lifetime.
type FakeAuthenticator struct {
	mu        sync.Mutex
	accounts  map[string]fakeAccount
	refreshes map[string]string
	TTL       time.Duration
	// RefreshErr, when set, is returned by every Refresh call.
	RefreshErr error
	SignOuts   int
	Resets     []string
}

type fakeAccount struct {
	id       string
	password string
}

func NewFakeAuthenticator() *FakeAuthenticator {
	return &FakeAuthenticator{
		accounts:  make(map[string]fakeAccount),
		refreshes: make(map[string]string),
		TTL:       time.Hour,
	}
}

// Register creates an account and returns its id.
func (f *FakeAuthenticator) Register(email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New().String()
	f.accounts[email] = fakeAccount{id: id, password: password}
	return id
}

func (f *FakeAuthenticator) issue(email, id string) *domain.AuthSession {
	refresh := uuid.New().String()
	f.refreshes[refresh] = email
	return &domain.AuthSession{
		AccessToken:  uuid.New().String(),
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(f.TTL).UTC(),
		User:         domain.Identity{ID: id, Email: email},
	}
}

func (f *FakeAuthenticator) SignUp(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		return nil, fmt.Errorf("account %s: %w", email, domain.ErrIntegrity)
	}
	id := uuid.New().String()
	f.accounts[email] = fakeAccount{id: id, password: password}
	return f.issue(email, id), nil
}

func (f *FakeAuthenticator) SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[email]
	if !ok || acct.password != password {
		return nil, domain.ErrInvalidCredentials
	}
	return f.issue(email, acct.id), nil
}

func (f *FakeAuthenticator) SignOut(ctx context.Context, s *domain.AuthSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SignOuts++
	if s != nil {
		delete(f.refreshes, s.RefreshToken)
	}
	return nil
}

func (f *FakeAuthenticator) Refresh(ctx context.Context, s *domain.AuthSession) (*domain.AuthSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	email, ok := f.refreshes[s.RefreshToken]
	if !ok {
		return nil, fmt.Errorf("%w: unknown refresh token", domain.ErrUnauthenticated)
	}
	delete(f.refreshes, s.RefreshToken)
	return f.issue(email, f.accounts[email].id), nil
}

func (f *FakeAuthenticator) ResetPassword(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Resets = append(f.Resets, email)
	return nil
}

func (f *FakeAuthenticator) User(ctx context.Context, s *domain.AuthSession) (*domain.Identity, error) {
	if s == nil {
		return nil, domain.ErrUnauthenticated
	}
	u := s.User
	return &u, nil
}

// FakeService bundles the in-memory tables and authenticator.
type FakeService struct {
	Sessions *FakeSessionTable
	Profiles *FakeProfileTable
	Auth     *FakeAuthenticator
}

func NewFakeService() *FakeService {
	return &FakeService{
		Sessions: NewFakeSessionTable(),
		Profiles: NewFakeProfileTable(),
		Auth:     NewFakeAuthenticator(),
	}
}

// Service exposes the fakes through the backend contract.
func (f *FakeService) Service() *backend.Service {
	return &backend.Service{
		Kind:     backend.KindLocal,
		Sessions: f.Sessions,
		Profiles: f.Profiles,
		Auth:     f.Auth,
	}
}
