package mjml

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// Error describes a structural defect in a markup document.
// Line is 1-based; zero means the position is unknown.
type Error struct {
	Msg  string
	Line int
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("mjml: line %d: %s", e.Line, e.Msg)
	}
	return "mjml: " + e.Msg
}

func errorf(line int, format string, args ...any) *Error {
	return &Error{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// syntaxError normalizes encoding/xml failures into *Error.
func syntaxError(err error) *Error {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return &Error{Line: se.Line, Msg: se.Msg}
	}
	return &Error{Msg: err.Error()}
}
