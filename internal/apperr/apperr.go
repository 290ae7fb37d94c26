// Package apperr is the error taxonomy shared by the proxy, the HTTP layer
// and the dashboard controller. Each kind maps to one HTTP status.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	// Internal is anything unexpected: network failures, malformed bodies.
	Internal Kind = iota
	// Configuration means the server is missing a required setting.
	Configuration
	// Validation means the caller sent a bad request.
	Validation
	// Upstream means the provider answered with a non-2xx status.
	Upstream
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Validation:
		return "validation"
	case Upstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is a classified failure. Message is safe to show to clients;
// Detail carries extra context such as the upstream body.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Status  int // upstream status, only for Upstream
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil && e.Detail == "" {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus is the status the HTTP layer responds with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case Validation:
		return http.StatusBadRequest
	case Upstream:
		if e.Status >= 400 && e.Status <= 599 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON error envelope.
type Body struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (e *Error) Body() Body {
	return Body{Error: e.Message, Detail: e.Detail}
}

func NewConfiguration(msg string) *Error {
	return &Error{Kind: Configuration, Message: msg}
}

func NewValidation(msg string) *Error {
	return &Error{Kind: Validation, Message: msg}
}

// NewUpstream records a non-2xx provider response. body becomes the detail.
func NewUpstream(msg string, status int, body string) *Error {
	return &Error{Kind: Upstream, Message: msg, Status: status, Detail: body}
}

// NewInternal wraps err as an unexpected failure.
func NewInternal(err error) *Error {
	e := &Error{Kind: Internal, Message: "Unexpected error", Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// As extracts an *Error from err. Anything else is reported as Internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewInternal(err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
