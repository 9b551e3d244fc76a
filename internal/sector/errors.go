package sector

import (
	"errors"
	"fmt"
	"net"
)

// LoginError means the credentials were rejected or the login response did
// not carry a token. It always surfaces as a reauthentication signal and is
// never retried silently.
type LoginError struct {
	Reason string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed: %s", e.Reason)
}

// AuthenticationError means an established token was rejected on a
// subsequent call, distinct from a failed login.
type AuthenticationError struct {
	Op string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication rejected during %s", e.Op)
}

// ApiError is a transport or HTTP level failure on an individual call.
// It is retryable up to the retry policy's attempt limit.
type ApiError struct {
	Op  string
	Err error
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("api call %s failed: %v", e.Op, e.Err)
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

// ConfigError signals a fatal misconfiguration, such as an action type with
// no mapped endpoint. It is never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// IsRetryable reports whether an error should be retried by the retry
// policy. Only transport-level failures qualify; auth and config problems
// propagate immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}
