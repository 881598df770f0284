package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/alexanderramin/feedlog/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("x: %w", domain.ErrValidation), "VALIDATION"},
		{fmt.Errorf("x: %w", domain.ErrTimeout), "TIMEOUT"},
		{domain.ErrConnectivity, "UNAVAILABLE"},
		{domain.ErrPermission, "PERMISSION"},
		{domain.ErrIntegrity, "INTEGRITY"},
		{domain.ErrUnauthenticated, "UNAUTHENTICATED"},
		{domain.ErrNotFound, "NOT_FOUND"},
		{domain.ErrSchema, "SCHEMA"},
		{errors.New("boom"), "UNKNOWN"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorCode(tc.err), "%v", tc.err)
	}
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, IsConnectionError(nil))
	assert.False(t, IsConnectionError(errors.New("plain")))
	assert.True(t, IsConnectionError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(nil))
}

func TestHint(t *testing.T) {
	assert.Empty(t, Hint(nil))
	assert.Empty(t, Hint(errors.New("boom")))
	assert.Contains(t, Hint(fmt.Errorf("insert: %w", domain.ErrSchema)), "tables are missing")
	assert.Contains(t, Hint(domain.ErrUnauthenticated), "feedlog auth signin")
	assert.Contains(t, Hint(domain.ErrPermission), "access policy")
	assert.NotEqual(t, Hint(domain.ErrTimeout), Hint(domain.ErrConnectivity))
}
