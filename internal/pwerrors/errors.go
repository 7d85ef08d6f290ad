package pwerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into the taxonomy shared by every Pumpwood service.
type Kind int

// Error kinds recognised at the HTTP boundary.
const (
	// KindOther marks an internal invariant violation.
	KindOther Kind = iota
	// KindUnauthorized covers bad credentials and missing or expired MFA tokens.
	KindUnauthorized
	// KindForbidden covers authenticated callers that fail a role check.
	KindForbidden
	// KindObjectDoesNotExist covers unknown routes, actions and rows.
	KindObjectDoesNotExist
	// KindWrongParameters covers malformed request payloads.
	KindWrongParameters
	// KindActionArgs covers invalid action-call arguments.
	KindActionArgs
	// KindNotImplemented covers unclassified endpoint/method pairs and unconfigured providers.
	KindNotImplemented
)

// String returns the wire type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "PumpWoodUnauthorized"
	case KindForbidden:
		return "PumpWoodForbidden"
	case KindObjectDoesNotExist:
		return "PumpWoodObjectDoesNotExist"
	case KindWrongParameters:
		return "PumpWoodWrongParameters"
	case KindActionArgs:
		return "PumpWoodActionArgsException"
	case KindNotImplemented:
		return "PumpWoodNotImplementedError"
	default:
		return "PumpWoodOtherException"
	}
}

// Status returns the HTTP status code mapped to the kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindObjectDoesNotExist:
		return http.StatusNotFound
	case KindWrongParameters, KindActionArgs:
		return http.StatusBadRequest
	case KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed error carrying a structured payload for the client.
type Error struct {
	Kind    Kind
	Message string
	Payload map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Code returns the payload "error" entry, the stable machine-readable cause.
func (e *Error) Code() string {
	if e == nil || e.Payload == nil {
		return ""
	}
	code, _ := e.Payload["error"].(string)
	return code
}

// New builds an Error of the given kind.
func New(kind Kind, message string, payload map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Payload: payload}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Unauthorized builds an Unauthorized error whose payload names the cause.
func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, message, map[string]any{"error": code})
}

// Forbidden builds a Forbidden error.
func Forbidden(message string, payload map[string]any) *Error {
	return New(KindForbidden, message, payload)
}

// DoesNotExist builds an ObjectDoesNotExist error.
func DoesNotExist(message string, payload map[string]any) *Error {
	return New(KindObjectDoesNotExist, message, payload)
}

// WrongParameters builds a WrongParameters error.
func WrongParameters(message string, payload map[string]any) *Error {
	return New(KindWrongParameters, message, payload)
}

// NotImplemented builds a NotImplemented error.
func NotImplemented(message string, payload map[string]any) *Error {
	return New(KindNotImplemented, message, payload)
}

// Other builds an OtherException error.
func Other(message string, payload map[string]any) *Error {
	return New(KindOther, message, payload)
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	target, ok := As(err)
	return ok && target.Kind == kind
}

// HasCode reports whether err is an *Error whose payload error code equals code.
func HasCode(err error, code string) bool {
	target, ok := As(err)
	return ok && target.Code() == code
}
