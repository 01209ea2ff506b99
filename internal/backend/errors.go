package backend

import (
	"errors"
	"fmt"
)

// Remote error codes reported in the envelope's "code" member.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeInvalidOTP   = "INVALID_OTP"
	CodeInvalidInput = "INVALID_INPUT"
)

// RemoteError is an ok:false envelope returned by the record service.
type RemoteError struct {
	Action  string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %s: [%s] %s", e.Action, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %s: %s", e.Action, e.Message)
}

// HTTPError is a non-2xx response from the service proxy.
type HTTPError struct {
	Action     string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("backend %s: HTTP %d: %s", e.Action, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("backend %s: HTTP %d", e.Action, e.StatusCode)
}

func remoteCode(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	return remoteCode(err) == CodeNotFound
}

// IsUnauthorized reports whether the backend rejected the token or OTP.
func IsUnauthorized(err error) bool {
	switch remoteCode(err) {
	case CodeUnauthorized, CodeInvalidOTP:
		return true
	}
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == 401
}

// IsForbidden reports whether the backend refused access to a record.
func IsForbidden(err error) bool {
	return remoteCode(err) == CodeForbidden
}

// IsInvalidInput reports whether the backend rejected the request parameters.
func IsInvalidInput(err error) bool {
	return remoteCode(err) == CodeInvalidInput
}
