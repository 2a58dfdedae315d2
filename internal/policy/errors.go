package policy

import (
	"errors"
	"fmt"
)

// ErrUnsupportedType indicates a resolved extension or content type is not whitelisted.
var ErrUnsupportedType = errors.New("unsupported file type")

// UnsupportedTypeError carries the rejected pair together with the whitelists
// so callers can tell the client what would have been accepted.
type UnsupportedTypeError struct {
	Extension           string
	ContentType         string
	AllowedExtensions   []string
	AllowedContentTypes []string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: extension %q, content type %q", e.Extension, e.ContentType)
}

// Is makes errors.Is(err, ErrUnsupportedType) hold.
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}
