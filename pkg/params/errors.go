package params

import "errors"

// ErrInvalidJSON indicates the input is not a single well-formed JSON document.
var ErrInvalidJSON = errors.New("params: invalid JSON")
