// Package presigned issues time-boxed, single-object write URLs against object storage.
package presigned

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// MaxExpiry is the longest signature lifetime S3-compatible backends accept.
const MaxExpiry = 7 * 24 * time.Hour

const defaultTimeout = 5 * time.Second

// Headers the uploader must send verbatim; they are covered by the signature.
const (
	HeaderContentType = "Content-Type"
	HeaderACL         = "X-Amz-Acl"
	HeaderSSE         = "X-Amz-Server-Side-Encryption"

	ACLPrivate = "private"
	SSEAES256  = "AES256"
)

var (
	// ErrInvalidRequest signals a malformed grant request.
	ErrInvalidRequest = errors.New("invalid presign request")
)

// PutRequest describes the object the caller may write.
type PutRequest struct {
	Key         string
	ContentType string
	Expires     time.Duration
}

// Validate checks the request before any backend call.
func (r PutRequest) Validate() error {
	if strings.TrimSpace(r.Key) == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.ContentType) == "" {
		return fmt.Errorf("%w: content type is required", ErrInvalidRequest)
	}
	if r.Expires <= 0 || r.Expires > MaxExpiry {
		return fmt.Errorf("%w: expiry %s out of range", ErrInvalidRequest, r.Expires)
	}
	return nil
}

// SignedPut is a presigned upload: the uploader issues Method against URL and
// must send Headers unchanged.
type SignedPut struct {
	URL     string
	Method  string
	Headers http.Header
}

// Grantor mints a write-only signed URL for exactly one key and content type,
// with private visibility and server-side encryption.
type Grantor interface {
	PresignPut(ctx context.Context, req PutRequest) (SignedPut, error)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
