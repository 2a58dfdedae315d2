package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens", r.URL.Path)
		_, _ = io.WriteString(w, `{"token":"tok","expires_at":"2026-01-04T00:00:00Z"}`)
	}))
	defer api.Close()

	out, err := runCmd(t, "--server", api.URL, "token", "--client-id", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, `"token": "tok"`)
}

func TestTokenCommandRequiresClientID(t *testing.T) {
	_, err := runCmd(t, "--server", "http://127.0.0.1:1", "token")
	assert.Error(t, err)
}

func TestUploadCommand(t *testing.T) {
	var uploaded []byte
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploaded, _ = io.ReadAll(r.Body)
	}))
	defer storage.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens":
			_, _ = io.WriteString(w, `{"token":"tok"}`)
		case "/upload-url/tok":
			assert.Equal(t, "txt", r.URL.Query().Get("ext"))
			_, _ = io.WriteString(w, `{"upload_url":"`+storage.URL+`/b/uploads/f.txt","method":"PUT","filename":"f.txt","key":"uploads/f.txt","content_type":"text/plain"}`)
		case "/uploads/tok":
			_, _ = io.WriteString(w, `{"message":"Upload confirmed"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer api.Close()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	out, err := runCmd(t, "--server", api.URL, "upload", "--client-id", "acme", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Upload confirmed: uploads/f.txt")
	assert.Equal(t, "hello", string(uploaded))
}

func TestUploadCommandDetectsBareContentType(t *testing.T) {
	var uploaded []byte
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploaded, _ = io.ReadAll(r.Body)
	}))
	defer storage.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens":
			_, _ = io.WriteString(w, `{"token":"tok"}`)
		case "/upload-url/tok":
			assert.Empty(t, r.URL.Query().Get("ext"))
			assert.Equal(t, "text/plain", r.URL.Query().Get("contentType"))
			_, _ = io.WriteString(w, `{"upload_url":"`+storage.URL+`/b/uploads/f.txt","method":"PUT","filename":"f.txt","key":"uploads/f.txt","content_type":"text/plain"}`)
		case "/uploads/tok":
			_, _ = io.WriteString(w, `{"message":"Upload confirmed"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer api.Close()

	path := filepath.Join(t.TempDir(), "notes")
	require.NoError(t, os.WriteFile(path, []byte("hello world\n"), 0o600))

	out, err := runCmd(t, "--server", api.URL, "upload", "--client-id", "acme", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Upload confirmed: uploads/f.txt")
	assert.Equal(t, "hello world\n", string(uploaded))
}
