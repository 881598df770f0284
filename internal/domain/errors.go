package domain

import "errors"

// Error classes surfaced by the store and the backends. Callers match them
// with errors.Is; concrete errors wrap one of these with context.
var (
	// ErrValidation is returned before any backend call when a session or
	// form input breaks a data-model invariant.
	ErrValidation = errors.New("validation failed")

	// ErrConnectivity indicates the data service could not be reached.
	ErrConnectivity = errors.New("data service unreachable")

	// ErrTimeout indicates a data service call exceeded its deadline.
	ErrTimeout = errors.New("data service request timed out")

	// ErrPermission indicates the access policy rejected the request.
	ErrPermission = errors.New("permission denied by access policy")

	// ErrIntegrity indicates a constraint violation such as a duplicate id.
	ErrIntegrity = errors.New("integrity constraint violated")

	// ErrUnauthenticated indicates there is no signed-in identity or the
	// backend rejected the access token.
	ErrUnauthenticated = errors.New("not signed in")

	// ErrInvalidCredentials indicates sign-in was rejected.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNotFound indicates the requested row does not exist for the owner.
	ErrNotFound = errors.New("not found")

	// ErrSchema indicates the backend is missing a required table.
	ErrSchema = errors.New("backend schema missing")

	// ErrUnsupported indicates the configured backend cannot perform the operation.
	ErrUnsupported = errors.New("operation not supported by backend")

	ErrNoLiveSession     = errors.New("no live session in progress")
	ErrLiveSessionActive = errors.New("a live session is already in progress")
	ErrCannotSwitch      = errors.New("only left or right sessions can switch side")
)
