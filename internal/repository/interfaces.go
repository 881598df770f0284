package repository

import (
	"context"

	"github.com/alexanderramin/feedlog/internal/domain"
)

// LiveSessionRepo keeps the owner's single in-progress session so that
// separate invocations observe the same live session.
type LiveSessionRepo interface {
	// Get returns domain.ErrNotFound when the owner has no live session.
	Get(ctx context.Context, ownerID string) (*domain.LiveSession, error)
	Save(ctx context.Context, l *domain.LiveSession) error
	Delete(ctx context.Context, ownerID string) error
}

// AuthSessionRepo persists the signed-in auth session.
type AuthSessionRepo interface {
	// Load returns domain.ErrNotFound when nobody is signed in.
	Load(ctx context.Context) (*domain.AuthSession, string, error)
	Save(ctx context.Context, s *domain.AuthSession, backend string) error
	Clear(ctx context.Context) error
}
