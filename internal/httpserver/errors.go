package httpserver

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

// HTTPError is an error with everything needed to render it.
type HTTPError struct {
	// Err is the underlying error, logged but never rendered.
	Err     error
	Message string
	Code    int
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Name is the status label rendered as the "name" field.
func (e *HTTPError) Name() string {
	return http.StatusText(e.Code)
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

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

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

// AsHTTPError converts any error to an HTTPError. Pipeline errors keep their
// kind; anything unrecognized is internal.
func AsHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	me := mailer.Classify(err)
	return NewHTTPError(me.Kind.HTTPStatus(), me.Message, WithError(me))
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
}
