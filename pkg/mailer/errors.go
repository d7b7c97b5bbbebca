package mailer

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidRequest indicates a malformed or incomplete send request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTemplateNotFound indicates no template is registered under the requested name.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrDuplicateTemplate indicates two templates share a name.
	ErrDuplicateTemplate = errors.New("duplicate template name")

	// ErrInvalidFrontmatter indicates invalid YAML frontmatter.
	ErrInvalidFrontmatter = errors.New("invalid frontmatter")

	// ErrInterpolation indicates the parameters could not be merged into the template source.
	ErrInterpolation = errors.New("failed to interpolate template")

	// ErrCompilation indicates the interpolated markup is not a valid document.
	ErrCompilation = errors.New("failed to compile template")

	// ErrAttachment indicates an attachment file could not be read.
	ErrAttachment = errors.New("failed to read attachment")

	// ErrAcquireConnection indicates no transport connection could be checked out.
	ErrAcquireConnection = errors.New("failed to acquire transport connection")

	// ErrSendFailed indicates email sending failed.
	ErrSendFailed = errors.New("failed to send email")
)

// Kind is the class of a pipeline failure as seen by callers.
type Kind uint8

const (
	// KindInternal is a failure the caller cannot fix. It is the zero Kind.
	KindInternal Kind = iota
	// KindBadRequest is a failure caused by the caller's input.
	KindBadRequest
	// KindNotFound means the requested template does not exist.
	KindNotFound
)

// String returns the human label of the kind.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "Bad Request"
	case KindNotFound:
		return "Not Found"
	default:
		return "Internal Server Error"
	}
}

// HTTPStatus maps the kind to a response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified pipeline failure.
// Message is human readable; Err keeps the stage error for errors.Is and logging.
type Error struct {
	Err     error
	Message string
	Kind    Kind
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify maps any error to exactly one Kind.
// Errors that carry no stage sentinel are internal. Classify(nil) is nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	kind := KindInternal
	switch {
	case errors.Is(err, ErrTemplateNotFound):
		kind = KindNotFound
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInterpolation):
		kind = KindBadRequest
	}

	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

// BadRequest builds a caller-facing error for input rejected outside the pipeline,
// such as an undecodable request body.
func BadRequest(err error) *Error {
	return &Error{Kind: KindBadRequest, Message: err.Error(), Err: errors.Join(ErrInvalidRequest, err)}
}
