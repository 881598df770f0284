// Package backend defines the contract between the session store and the
// external data service that owns durable storage, identity and access
// control. Implementations live in the sub-packages.
package backend

import (
	"context"
	"time"

	"github.com/alexanderramin/feedlog/internal/domain"
)

// SessionTable is the owner-scoped feeding_sessions table.
type SessionTable interface {
	// List returns every session owned by ownerID, newest start time first.
	List(ctx context.Context, ownerID string) ([]domain.FeedingSession, error)
	Insert(ctx context.Context, ownerID string, s domain.FeedingSession) error
	// Update replaces the row with s.ID. Returns domain.ErrNotFound when no
	// row owned by ownerID matches.
	Update(ctx context.Context, ownerID string, s domain.FeedingSession) error
	Delete(ctx context.Context, ownerID, id string) error
}

// ProfileTable is the per-owner user_profiles table.
type ProfileTable interface {
	Get(ctx context.Context, ownerID string) (*domain.Profile, error)
	Upsert(ctx context.Context, p *domain.Profile) error
}

// Authenticator is the identity boundary of the data service.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (*domain.AuthSession, error)
	SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error)
	SignOut(ctx context.Context, s *domain.AuthSession) error
	Refresh(ctx context.Context, s *domain.AuthSession) (*domain.AuthSession, error)
	ResetPassword(ctx context.Context, email string) error
	// User resolves the identity behind s, verifying it with the service
	// where the backend supports that.
	User(ctx context.Context, s *domain.AuthSession) (*domain.Identity, error)
}

// Pinger is implemented by backends that can cheaply check reachability
// and table access. Used by diagnostics only.
type Pinger interface {
	Ping(ctx context.Context, ownerID string) error
}

// Kind names a backend implementation in configuration.
type Kind string

const (
	KindLocal Kind = "local"
	KindREST  Kind = "rest"
	KindMongo Kind = "mongo"
)

// Service bundles the tables and authenticator of one configured backend.
type Service struct {
	Kind     Kind
	Sessions SessionTable
	Profiles ProfileTable
	Auth     Authenticator
	// Close releases connections held by the backend. May be nil.
	Close func(ctx context.Context) error
}

// DefaultTimeout bounds a single data service round trip.
const DefaultTimeout = 15 * time.Second
