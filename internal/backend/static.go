package backend

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/alexanderramin/feedlog/internal/domain"
)

// StaticAuthenticator labels the owner for backends without an identity
// service. It checks no credentials: the same email always maps to the same
// owner id.
type StaticAuthenticator struct{}

// OwnerID derives the stable owner id for email.
func OwnerID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+normalizeEmail(email))).String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (StaticAuthenticator) session(email string) (*domain.AuthSession, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address %q", domain.ErrValidation, email)
	}
	return &domain.AuthSession{User: domain.Identity{ID: OwnerID(email), Email: email}}, nil
}

func (a StaticAuthenticator) SignUp(_ context.Context, email, _ string) (*domain.AuthSession, error) {
	return a.session(email)
}

func (a StaticAuthenticator) SignIn(_ context.Context, email, _ string) (*domain.AuthSession, error) {
	return a.session(email)
}

func (StaticAuthenticator) SignOut(context.Context, *domain.AuthSession) error { return nil }

func (StaticAuthenticator) Refresh(_ context.Context, s *domain.AuthSession) (*domain.AuthSession, error) {
	if s == nil {
		return nil, domain.ErrUnauthenticated
	}
	return s, nil
}

func (StaticAuthenticator) ResetPassword(context.Context, string) error {
	return fmt.Errorf("%w: this backend has no passwords", domain.ErrUnsupported)
}

func (StaticAuthenticator) User(_ context.Context, s *domain.AuthSession) (*domain.Identity, error) {
	if s == nil || s.User.ID == "" {
		return nil, domain.ErrUnauthenticated
	}
	u := s.User
	return &u, nil
}
