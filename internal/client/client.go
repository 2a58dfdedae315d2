// Package client drives the upload workflow over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout    = 30 * time.Second
	operatorKeyHeader = "X-Operator-Key"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IssuedToken is the response of POST /tokens.
type IssuedToken struct {
	Token     string `json:"token"`
	UploadURL string `json:"upload_url"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
}

// UploadGrant is the response of GET /upload-url/{token}.
type UploadGrant struct {
	UploadURL        string            `json:"upload_url"`
	Method           string            `json:"method"`
	Headers          map[string]string `json:"headers"`
	Filename         string            `json:"filename"`
	Key              string            `json:"key"`
	ContentType      string            `json:"content_type"`
	ExpiresInSeconds int64             `json:"expires_in_seconds"`
	Timestamp        string            `json:"timestamp"`
	Receipt          string            `json:"receipt"`
}

// Confirmation is the body of POST /uploads/{token}.
type Confirmation struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Key         string `json:"key,omitempty"`
	Receipt     string `json:"receipt,omitempty"`
}

// Client talks to a secureupload API server.
type Client struct {
	baseURL     string
	operatorKey string
	httpClient  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithOperatorKey sends key on token issuance.
func WithOperatorKey(key string) Option {
	return func(c *Client) { c.operatorKey = key }
}

// New builds a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue requests a token for clientID.
func (c *Client) Issue(ctx context.Context, clientID string) (IssuedToken, error) {
	var out IssuedToken
	headers := http.Header{}
	if c.operatorKey != "" {
		headers.Set(operatorKeyHeader, c.operatorKey)
	}
	err := c.doJSON(ctx, http.MethodPost, "/tokens", headers, map[string]string{"client_id": clientID}, &out)
	return out, err
}

// Grant requests an upload grant. ext and contentType may be empty.
func (c *Client) Grant(ctx context.Context, token, ext, contentType string) (UploadGrant, error) {
	query := url.Values{}
	if ext != "" {
		query.Set("ext", ext)
	}
	if contentType != "" {
		query.Set("contentType", contentType)
	}

	path := "/upload-url/" + url.PathEscape(token)
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var out UploadGrant
	err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

// Put sends body to the granted storage URL with the signed headers.
func (c *Client) Put(ctx context.Context, g UploadGrant, body io.Reader, size int64) error {
	method := g.Method
	if method == "" {
		method = http.MethodPut
	}

	req, err := http.NewRequestWithContext(ctx, method, g.UploadURL, body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = size
	for name, value := range g.Headers {
		req.Header.Set(name, value)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", g.ContentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	return nil
}

// Confirm records a completed upload and returns the server message.
func (c *Client) Confirm(ctx context.Context, token string, in Confirmation) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/uploads/"+url.PathEscape(token), nil, in, &out)
	return out.Message, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, headers http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for name := range headers {
		req.Header.Set(name, headers.Get(name))
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
