package bakalari

import (
	"errors"
	"fmt"
)

// ErrCookieParse means the login exchange redirected as expected but
// the auth cookie was not among the Set-Cookie headers. Distinct from
// LoginFailedError, which signals the portal rejected the credentials.
var ErrCookieParse = errors.New("failed to parse auth cookie from login response")

// ErrAuthRequired means the portal redirected an authenticated fetch
// to its login page: the token is invalid, expired or insufficient.
var ErrAuthRequired = errors.New("authentication required")

// LoginFailedError is a login exchange that did not produce the
// expected redirect, most likely wrong credentials. The raw response
// is kept for diagnostics.
type LoginFailedError struct {
	StatusCode int
	Body       string
}

func (e *LoginFailedError) Error() string {
	return fmt.Sprintf("login failed: status %d", e.StatusCode)
}

// UnknownResponseError is a response whose shape does not match the
// portal's known DOM/CSS conventions. The decoder fails closed on
// structural mismatch instead of attempting best-effort recovery.
type UnknownResponseError struct {
	Reason string
}

func (e *UnknownResponseError) Error() string {
	return fmt.Sprintf("server returned unknown response: %s", e.Reason)
}
