package internal

import (
	"errors"
	"net/http"
)

// Sentinel errors.
var (
	ErrBind          = errors.New("meract: failed to bind listener")
	ErrServerNotSet  = errors.New("meract: no server attached to router")
	ErrRouteNotFound = errors.New("meract: named route not found")
	ErrMissingParam  = errors.New("meract: missing route parameter")
	ErrServerClosed  = errors.New("meract: server closed")
)

// HTTPError is an error carrying the status code it should be answered with.
// Handlers return it to pick the error response status.
type HTTPError struct {
	// Err is the underlying error, logged but never sent to clients.
	Err error

	// Message is the client-facing message.
	Message string

	// Code is the response status code.
	Code int
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Code)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

// WithError attaches the underlying cause.
func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

// NewHTTPError creates an HTTPError. Codes outside the reason table are
// answered with 500 by the default error handler.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := &HTTPError{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, message, opts...)
}

// AsHTTPError extracts an HTTPError from err's chain, or returns nil.
func AsHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return nil
}

// DefaultErrorHandler answers an HTTPError with its own code and every
// other error with 500.
func DefaultErrorHandler(_ *Request, err error) *Response {
	if httpErr := AsHTTPError(err); httpErr != nil && ValidStatus(httpErr.Code) {
		return ErrorResponse(httpErr.Code)
	}
	return ErrorResponse(http.StatusInternalServerError)
}
