package upload

import "errors"

var (
	// ErrMissingFields signals that filename or content type was not supplied.
	ErrMissingFields = errors.New("filename and content_type are required")
	// ErrInvalidFilename signals a filename that would escape the upload prefix.
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrReceiptRequired signals a confirmation without the mandatory grant receipt.
	ErrReceiptRequired = errors.New("grant receipt is required")
	// ErrGrantMismatch signals a confirmation for an object the token was never granted.
	ErrGrantMismatch = errors.New("upload was not granted")
	// ErrRecordExists is returned by audit stores when an identical record is already present.
	ErrRecordExists = errors.New("audit record exists")
)
