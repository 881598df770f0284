package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/feedlog/internal/domain"
)

func TestStaticAuthenticator_StableOwner(t *testing.T) {
	ctx := context.Background()
	var a StaticAuthenticator

	up, err := a.SignUp(ctx, "Parent@Example.com ", "ignored")
	require.NoError(t, err)
	in, err := a.SignIn(ctx, "parent@example.com", "")
	require.NoError(t, err)

	assert.Equal(t, up.User.ID, in.User.ID)
	assert.Equal(t, "parent@example.com", in.User.Email)
	assert.Empty(t, in.AccessToken)
	assert.False(t, in.Expired(in.ExpiresAt, 0))

	other, err := a.SignIn(ctx, "other@example.com", "")
	require.NoError(t, err)
	assert.NotEqual(t, in.User.ID, other.User.ID)
}

func TestStaticAuthenticator_RejectsBadEmail(t *testing.T) {
	_, err := StaticAuthenticator{}.SignIn(context.Background(), "not-an-email", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStaticAuthenticator_ResetUnsupported(t *testing.T) {
	err := StaticAuthenticator{}.ResetPassword(context.Background(), "parent@example.com")
	assert.ErrorIs(t, err, domain.ErrUnsupported)
}
