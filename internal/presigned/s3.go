package presigned

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// s3Presigner is satisfied by *s3.PresignClient.
type s3Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Grantor presigns PUT requests with the AWS SDK.
type S3Grantor struct {
	presigner s3Presigner
	bucket    string
	timeout   time.Duration
}

// NewS3Grantor wraps an *s3.PresignClient.
func NewS3Grantor(presigner s3Presigner, bucket string, timeout time.Duration) *S3Grantor {
	return &S3Grantor{presigner: presigner, bucket: bucket, timeout: timeout}
}

func (g *S3Grantor) PresignPut(ctx context.Context, req PutRequest) (SignedPut, error) {
	if err := req.Validate(); err != nil {
		return SignedPut{}, err
	}

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket:               aws.String(g.bucket),
		Key:                  aws.String(req.Key),
		ContentType:          aws.String(req.ContentType),
		ACL:                  types.ObjectCannedACLPrivate,
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	}

	signed, err := g.presigner.PresignPutObject(ctx, input,
		s3.WithPresignExpires(req.Expires),
		signContentType(req.ContentType),
	)
	if err != nil {
		return SignedPut{}, fmt.Errorf("presign put %q: %w", req.Key, err)
	}

	// Host is implied by the URL.
	headers := signed.SignedHeader.Clone()
	if headers == nil {
		headers = make(http.Header)
	}
	headers.Del("Host")
	if headers.Get(HeaderContentType) == "" {
		headers.Set(HeaderContentType, req.ContentType)
	}

	return SignedPut{URL: signed.URL, Method: signed.Method, Headers: headers}, nil
}

// signContentType puts Content-Type back on the request before signing. The
// SDK strips it from bodiless presigned PUTs.
func signContentType(contentType string) func(*s3.PresignOptions) {
	return s3.WithPresignClientFromClientOptions(func(o *s3.Options) {
		o.APIOptions = append(o.APIOptions, func(stack *middleware.Stack) error {
			return stack.Build.Add(middleware.BuildMiddlewareFunc("SignContentType",
				func(ctx context.Context, in middleware.BuildInput, next middleware.BuildHandler) (middleware.BuildOutput, middleware.Metadata, error) {
					if r, ok := in.Request.(*smithyhttp.Request); ok {
						r.Header.Set(HeaderContentType, contentType)
					}
					return next.HandleBuild(ctx, in)
				}), middleware.After)
		})
	})
}
