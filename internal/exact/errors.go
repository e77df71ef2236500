package exact

import (
	"fmt"
)

// ErrorKind classifies API access failures. Kinds are stable identifiers
// surfaced verbatim in tool results.
type ErrorKind string

const (
	KindAuthorizationRequired    ErrorKind = "authorization_required"
	KindReauthenticationRequired ErrorKind = "reauthentication_required"
	KindRateLimitExceeded        ErrorKind = "rate_limit_exceeded"
	KindDivisionNotAccessible    ErrorKind = "division_not_accessible"
	KindModuleNotAvailable       ErrorKind = "module_not_available"
	KindEndpointNotFound         ErrorKind = "endpoint_not_found"
	KindInvalidDate              ErrorKind = "invalid_date"
	KindInvalidParameter         ErrorKind = "invalid_parameter"
	KindNetworkError             ErrorKind = "network_error"
	KindUpstreamError            ErrorKind = "upstream_error"
)

// Error is the structured failure type for the access layer. Message and
// Action are user-facing and must never contain token material.
type Error struct {
	Kind       ErrorKind
	Message    string
	Action     string
	Status     int // HTTP status for upstream errors, 0 otherwise
	RetryAfter int // seconds, for rate-limit errors
	Division   int // for division access errors
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// AsError unwraps err into *Error when possible.
func AsError(err error) (*Error, bool) {
	apiErr, ok := err.(*Error)
	return apiErr, ok
}

func newAuthorizationRequired(message string) *Error {
	return &Error{
		Kind:    KindAuthorizationRequired,
		Message: message,
		Action:  "Run the exactonline-auth command to authenticate",
	}
}

func newReauthenticationRequired() *Error {
	return &Error{
		Kind:    KindReauthenticationRequired,
		Message: "Refresh token expired or revoked",
		Action:  "Run the exactonline-auth command to re-authenticate",
	}
}

func newRateLimitExceeded(retryAfter int) *Error {
	action := "Please wait before making more requests"
	if retryAfter > 0 {
		action = fmt.Sprintf("Please wait %d seconds before retrying", retryAfter)
	}
	return &Error{
		Kind:       KindRateLimitExceeded,
		Message:    "Rate limit exceeded",
		Action:     action,
		RetryAfter: retryAfter,
	}
}

func newDivisionNotAccessible(division int) *Error {
	return &Error{
		Kind:     KindDivisionNotAccessible,
		Message:  fmt.Sprintf("Division %d is not accessible", division),
		Action:   "Use list_divisions to see available divisions",
		Division: division,
	}
}

func newModuleNotAvailable(module string) *Error {
	return &Error{
		Kind:    KindModuleNotAvailable,
		Message: fmt.Sprintf("The %s module is not available for this division", module),
		Action:  "Check the division's subscription or pick another division with list_divisions",
	}
}

func newEndpointNotFound(endpoint string) *Error {
	return &Error{
		Kind:    KindEndpointNotFound,
		Message: fmt.Sprintf("Endpoint %q not found", endpoint),
		Action:  "Use list_endpoints to see available endpoints",
	}
}

// NewInvalidDate reports a caller-supplied date that failed validation.
func NewInvalidDate(value string) *Error {
	return &Error{
		Kind:    KindInvalidDate,
		Message: fmt.Sprintf("Invalid date %q", value),
		Action:  "Use ISO format: YYYY-MM-DD",
	}
}

// NewInvalidParameter reports a caller-supplied value that failed validation.
func NewInvalidParameter(message string) *Error {
	return &Error{
		Kind:    KindInvalidParameter,
		Message: message,
		Action:  "Correct the parameter and retry",
	}
}

func newNetworkError(message string) *Error {
	return &Error{
		Kind:    KindNetworkError,
		Message: message,
		Action:  "Check your network connection and try again",
	}
}

func newUpstreamError(status int, message string) *Error {
	return &Error{
		Kind:    KindUpstreamError,
		Message: message,
		Action:  "Check server logs for details",
		Status:  status,
	}
}
