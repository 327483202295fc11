package api

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusTokenExpired is the distinguished status the backend uses for an
// expired access token; coupled with APICode "expired" it is the only
// trigger for the automatic refresh flow.
const StatusTokenExpired = 419

const codeExpired = "expired"

// StatusError is any non-2xx API response. APICode and Message carry the
// body's {code, message} fields when present.
type StatusError struct {
	StatusCode int
	APICode    string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: status %d (%s): %s", e.StatusCode, e.APICode, e.Message)
	}
	if e.APICode != "" {
		return fmt.Sprintf("api: status %d (%s)", e.StatusCode, e.APICode)
	}
	return fmt.Sprintf("api: status %d", e.StatusCode)
}

// IsExpired reports whether err is the expired-session signal that should
// trigger a token refresh.
func IsExpired(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == StatusTokenExpired && se.APICode == codeExpired
}

// IsConflict reports whether err is a business-rule conflict (400), e.g.
// an order already claimed by another driver.
func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusBadRequest
}

// ConflictMessage returns the server-supplied message for a conflict error,
// for user display.
func ConflictMessage(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}
