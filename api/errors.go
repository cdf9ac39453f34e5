package api

import (
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates API failures once, at the HTTP boundary. Callers branch
// on Kind rather than re-inspecting status codes or message text.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindMfaRequired  Kind = "mfa_required"
	KindLocked       Kind = "locked"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindTransport    Kind = "transport"
	KindServerFault  Kind = "server_fault"
)

// Machine-readable reason codes the backend attaches to error bodies. Older
// deployments only send free-text messages, so classification falls back to
// the message when the code is absent.
const (
	CodeMfaRequired   = "mfa_required"
	CodeAccountLocked = "account_locked"
)

// Error is the single failure type produced by the Client.
type Error struct {
	Kind          Kind
	Status        int    // HTTP status, 0 for transport failures
	Code          string // server reason code, "" when not supplied
	Message       string // server-supplied message, verbatim
	LockedMinutes int    // minutes until an account lockout clears, Locked only
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return string(e.Kind)
}

// errorBody is the wire shape of a non-2xx response.
type errorBody struct {
	Error         string `json:"error"`
	Code          string `json:"code"`
	LockedMinutes int    `json:"lockedMinutes"`
}

func classify(status int, body errorBody) *Error {
	e := &Error{
		Status:        status,
		Code:          body.Code,
		Message:       body.Error,
		LockedMinutes: body.LockedMinutes,
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d", status)
	}

	switch {
	case body.Code == CodeAccountLocked || status == 423:
		e.Kind = KindLocked
	case status == 401 && mfaSignalled(body):
		e.Kind = KindMfaRequired
	case status == 401 || status == 403:
		e.Kind = KindUnauthorized
	case status == 404:
		e.Kind = KindNotFound
	case status >= 500:
		e.Kind = KindServerFault
	default:
		e.Kind = KindValidation
	}
	return e
}

func mfaSignalled(body errorBody) bool {
	if body.Code == CodeMfaRequired {
		return true
	}
	// Fallback for backends that predate the reason-code field.
	return strings.Contains(strings.ToLower(body.Error), "mfa required")
}

// IsMfaRequired reports whether err is an API error demanding a fresh MFA
// verification before the operation can be retried.
func IsMfaRequired(err error) bool {
	return KindOf(err) == KindMfaRequired
}

// IsUnauthorized reports whether err means the session is no longer valid.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// KindOf extracts the failure kind from err, or "" for non-API errors.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}
