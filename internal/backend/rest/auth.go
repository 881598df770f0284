package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/alexanderramin/feedlog/internal/domain"
)

// Auth implements backend.Authenticator against the hosted identity API.
type Auth struct {
	c *Client
}

func toIdentity(u types.User) domain.Identity {
	id := domain.Identity{Email: u.Email}
	if u.ID != uuid.Nil {
		id.ID = u.ID.String()
	}
	return id
}

// toSession converts a token response. Sign-up returns only a user when the
// address has to be confirmed first, so s may carry no tokens.
func toSession(s types.Session, u types.User, now time.Time) (*domain.AuthSession, error) {
	out := &domain.AuthSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         toIdentity(u),
	}
	switch {
	case s.ExpiresAt > 0:
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	case s.ExpiresIn > 0:
		out.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
	}
	if out.AccessToken == "" {
		return out, nil
	}
	claims, err := ParseClaims(out.AccessToken)
	if err != nil {
		return nil, err
	}
	if out.User.ID == "" {
		out.User.ID = claims.Subject
	}
	if out.User.Email == "" {
		out.User.Email = claims.Email
	}
	if out.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	if out.User.ID == "" {
		return nil, fmt.Errorf("%w: session response carries no user", domain.ErrUnauthenticated)
	}
	return out, nil
}

// SignUp registers a new account. When the service requires email
// confirmation the returned session has no access token.
func (a *Auth) SignUp(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	var res *types.SignupResponse
	err := a.c.identity(ctx, "", func(gc gotrue.Client) error {
		var err error
		res, err = gc.Signup(types.SignupRequest{Email: email, Password: password})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("signing up: %w", err)
	}
	return toSession(res.Session, res.User, time.Now())
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	if password == "" {
		return nil, fmt.Errorf("signing in: %w: password is required", domain.ErrInvalidCredentials)
	}
	var res *types.TokenResponse
	err := a.c.identity(ctx, "", func(gc gotrue.Client) error {
		var err error
		res, err = gc.SignInWithEmailPassword(email, password)
		return err
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			return nil, fmt.Errorf("signing in: %w: %s", domain.ErrInvalidCredentials, apiErr.Message)
		}
		return nil, fmt.Errorf("signing in: %w", err)
	}
	return toSession(res.Session, res.User, time.Now())
}

// SignOut revokes the session. A token the service already considers
// invalid counts as signed out.
func (a *Auth) SignOut(ctx context.Context, s *domain.AuthSession) error {
	if s == nil || s.AccessToken == "" {
		return nil
	}
	err := a.c.identity(ctx, s.AccessToken, func(gc gotrue.Client) error {
		return gc.Logout()
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) || errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

func (a *Auth) Refresh(ctx context.Context, s *domain.AuthSession) (*domain.AuthSession, error) {
	if s == nil || s.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", domain.ErrUnauthenticated)
	}
	var res *types.TokenResponse
	err := a.c.identity(ctx, "", func(gc gotrue.Client) error {
		var err error
		res, err = gc.RefreshToken(s.RefreshToken)
		return err
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return nil, fmt.Errorf("refreshing session: %w: %s", domain.ErrUnauthenticated, apiErr.Message)
		}
		return nil, fmt.Errorf("refreshing session: %w", err)
	}
	return toSession(res.Session, res.User, time.Now())
}

func (a *Auth) ResetPassword(ctx context.Context, email string) error {
	err := a.c.identity(ctx, "", func(gc gotrue.Client) error {
		return gc.Recover(types.RecoverRequest{Email: email})
	})
	if err != nil {
		return fmt.Errorf("requesting password reset: %w", err)
	}
	return nil
}

func (a *Auth) User(ctx context.Context, s *domain.AuthSession) (*domain.Identity, error) {
	if s == nil || s.AccessToken == "" {
		return nil, fmt.Errorf("%w: not signed in", domain.ErrUnauthenticated)
	}
	var res *types.UserResponse
	err := a.c.identity(ctx, s.AccessToken, func(gc gotrue.Client) error {
		var err error
		res, err = gc.GetUser()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	id := toIdentity(res.User)
	return &id, nil
}
