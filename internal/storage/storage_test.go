package storage

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/abduss/secureupload/internal/config"
)

func TestS3Endpoint(t *testing.T) {
	cases := []struct {
		cfg  config.StorageConfig
		want string
	}{
		{config.StorageConfig{}, ""},
		{config.StorageConfig{Endpoint: "localhost:9000"}, "http://localhost:9000"},
		{config.StorageConfig{Endpoint: "s3.internal", UseSSL: true}, "https://s3.internal"},
		{config.StorageConfig{Endpoint: "https://s3.eu-west-1.amazonaws.com"}, "https://s3.eu-west-1.amazonaws.com"},
	}
	for _, tc := range cases {
		if got := s3Endpoint(tc.cfg); got != tc.want {
			t.Fatalf("s3Endpoint(%+v) = %q, want %q", tc.cfg, got, tc.want)
		}
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected token and audit migrations, got %d", len(entries))
	}

	for _, entry := range entries {
		body, err := fs.ReadFile(migrations, "migrations/"+entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		if !strings.Contains(string(body), "-- +goose Up") {
			t.Fatalf("%s is missing a goose Up annotation", entry.Name())
		}
	}
}
