package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/domain"
)

// APIError is a non-2xx response from the hosted backend. It unwraps to the
// domain error class the response maps onto.
type APIError struct {
	Status  int
	Code    string
	Message string
	Hint    string
	kind    error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("%v: %s (status %d, code %s)", e.kind, msg, e.Status, e.Code)
	}
	return fmt.Sprintf("%v: %s (status %d)", e.kind, msg, e.Status)
}

func (e *APIError) Unwrap() error { return e.kind }

// errorBody covers both the table API ({code, message, hint}) and the auth
// API ({error, error_description} or {code, msg, error_code}) error shapes.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Hint             string          `json:"hint"`
}

func decodeAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if code := strings.Trim(string(eb.Code), `"`); code != "null" {
			e.Code = code
		}
		if eb.ErrorCode != "" {
			e.Code = eb.ErrorCode
		} else if eb.Error != "" && e.Code == "" {
			e.Code = eb.Error
		}
		e.Message = firstNonEmpty(eb.Message, eb.Msg, eb.ErrorDescription, eb.Error)
		e.Hint = eb.Hint
	} else if len(body) > 0 {
		e.Message = strings.TrimSpace(string(body))
	}
	e.kind = classify(e)
	return e
}

// classify maps database and gateway codes first, then falls back to the
// HTTP status.
func classify(e *APIError) error {
	switch e.Code {
	case "42P01", "PGRST205":
		return domain.ErrSchema
	case "42501":
		return domain.ErrPermission
	case "23505":
		return domain.ErrIntegrity
	case "23514", "23502", "22P02", "22007", "22008":
		return domain.ErrValidation
	case "PGRST301", "PGRST302", "bad_jwt", "session_not_found", "no_authorization":
		return domain.ErrUnauthenticated
	case "invalid_credentials", "invalid_grant":
		return domain.ErrInvalidCredentials
	}
	if strings.Contains(e.Message, "JWT") {
		return domain.ErrUnauthenticated
	}
	switch {
	case e.Status == http.StatusUnauthorized:
		return domain.ErrUnauthenticated
	case e.Status == http.StatusForbidden:
		return domain.ErrPermission
	case e.Status == http.StatusConflict:
		return domain.ErrIntegrity
	case e.Status == http.StatusNotFound:
		return domain.ErrNotFound
	case e.Status == http.StatusBadRequest, e.Status == http.StatusUnprocessableEntity:
		return domain.ErrValidation
	case e.Status == http.StatusRequestTimeout, e.Status == http.StatusGatewayTimeout:
		return domain.ErrTimeout
	case e.Status >= 500:
		return domain.ErrConnectivity
	}
	return fmt.Errorf("unexpected response status %d", e.Status)
}

// transportError classifies failures that never produced a response.
func transportError(err error) error {
	switch {
	case backend.IsTimeout(err):
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	case backend.IsConnectionError(err):
		return fmt.Errorf("%w: %v", domain.ErrConnectivity, err)
	default:
		return err
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
