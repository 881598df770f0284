package backend

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/alexanderramin/feedlog/internal/domain"
)

// ErrorCode returns a short machine-readable label for err's class, used in
// logs and diagnostics.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrValidation):
		return "VALIDATION"
	case errors.Is(err, domain.ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, domain.ErrConnectivity):
		return "UNAVAILABLE"
	case errors.Is(err, domain.ErrPermission):
		return "PERMISSION"
	case errors.Is(err, domain.ErrIntegrity):
		return "INTEGRITY"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "UNAUTHENTICATED"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "INVALID_CREDENTIALS"
	case errors.Is(err, domain.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, domain.ErrSchema):
		return "SCHEMA"
	case errors.Is(err, domain.ErrUnsupported):
		return "UNSUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// Hint names the likely cause of err in one line for the user, or "" when
// there is nothing more useful to say than the error itself.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrValidation):
		return "Check the values entered; nothing was saved."
	case errors.Is(err, domain.ErrTimeout):
		return "The data service took too long to answer. Check your connection and try again."
	case errors.Is(err, domain.ErrConnectivity):
		return "Could not reach the data service. Check your connection and the configured URL."
	case errors.Is(err, domain.ErrPermission):
		return "The access policy rejected the request. Sign in again with the account that owns this data."
	case errors.Is(err, domain.ErrIntegrity):
		return "A feeding with the same id already exists."
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Your session has expired or you are not signed in. Run 'feedlog auth signin'."
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "Email or password is incorrect."
	case errors.Is(err, domain.ErrSchema):
		return "The backend tables are missing. Create feeding_sessions and user_profiles first."
	case errors.Is(err, domain.ErrUnsupported):
		return "The configured backend does not support this operation."
	case errors.Is(err, domain.ErrNoLiveSession):
		return "Start one with 'feedlog live start'."
	case errors.Is(err, domain.ErrLiveSessionActive):
		return "End or discard the current live session first."
	default:
		return ""
	}
}

// IsConnectionError reports whether err came from the network layer
// (dial failure, DNS, refused connection).
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && !urlErr.Timeout() {
		return !errors.Is(urlErr.Err, context.Canceled)
	}
	return false
}

// IsTimeout reports whether err is a deadline expiry from ctx or the
// network layer.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
