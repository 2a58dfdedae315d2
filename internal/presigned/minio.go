package presigned

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// minioPresigner is the subset of *minio.Client used for grants.
type minioPresigner interface {
	PresignHeader(ctx context.Context, method, bucketName, objectName string, expires time.Duration, reqParams url.Values, extraHeaders http.Header) (*url.URL, error)
}

// MinIOGrantor presigns PUT requests with minio-go, signing the content type,
// ACL and encryption headers into the URL.
type MinIOGrantor struct {
	client  minioPresigner
	bucket  string
	timeout time.Duration
}

// NewMinIOGrantor wraps a *minio.Client (or anything with PresignHeader).
func NewMinIOGrantor(client minioPresigner, bucket string, timeout time.Duration) *MinIOGrantor {
	return &MinIOGrantor{client: client, bucket: bucket, timeout: timeout}
}

func (g *MinIOGrantor) PresignPut(ctx context.Context, req PutRequest) (SignedPut, error) {
	if err := req.Validate(); err != nil {
		return SignedPut{}, err
	}

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	headers := make(http.Header)
	headers.Set(HeaderContentType, req.ContentType)
	headers.Set(HeaderACL, ACLPrivate)
	headers.Set(HeaderSSE, SSEAES256)

	u, err := g.client.PresignHeader(ctx, http.MethodPut, g.bucket, req.Key, req.Expires, nil, headers)
	if err != nil {
		return SignedPut{}, fmt.Errorf("presign put %q: %w", req.Key, err)
	}
	return SignedPut{URL: u.String(), Method: http.MethodPut, Headers: headers}, nil
}
