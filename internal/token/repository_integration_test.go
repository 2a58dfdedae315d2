//go:build integration

package token_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/abduss/secureupload/internal/storage"
	"github.com/abduss/secureupload/internal/token"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// consumableStore is the part of both stores exercised here.
type consumableStore interface {
	Create(ctx context.Context, tok token.Token) error
	Get(ctx context.Context, value string) (token.Token, error)
	MarkConsumed(ctx context.Context, value string, at time.Time) error
}

func postgresStore(t *testing.T) *token.Repository {
	t.Helper()
	dsn := os.Getenv("SECUREUPLOAD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SECUREUPLOAD_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, storage.Migrate(ctx, pool))

	return token.NewRepository(pool, 0)
}

func mongoStore(t *testing.T) *token.MongoRepository {
	t.Helper()
	uri := os.Getenv("SECUREUPLOAD_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SECUREUPLOAD_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	db := client.Database("secureupload_it_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	return token.NewMongoRepository(db, 0)
}

func exerciseMarkConsumed(t *testing.T, store consumableStore) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	tok := token.Token{
		Value:     uuid.NewString(),
		ClientID:  "acme",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, store.Create(ctx, tok))
	assert.ErrorIs(t, store.Create(ctx, tok), token.ErrTokenExists)

	require.NoError(t, store.MarkConsumed(ctx, tok.Value, now))
	assert.ErrorIs(t, store.MarkConsumed(ctx, tok.Value, now.Add(time.Second)), token.ErrTokenConsumed)
	assert.ErrorIs(t, store.MarkConsumed(ctx, uuid.NewString(), now), token.ErrTokenNotFound)

	got, err := store.Get(ctx, tok.Value)
	require.NoError(t, err)
	require.NotNil(t, got.ConsumedAt)
	assert.True(t, got.ConsumedAt.Equal(now), "second consume must not move consumed_at")
	assert.Equal(t, token.StateConsumed, got.State(now))
}

func TestPostgresRepositoryMarkConsumed(t *testing.T) {
	exerciseMarkConsumed(t, postgresStore(t))
}

func TestMongoRepositoryMarkConsumed(t *testing.T) {
	exerciseMarkConsumed(t, mongoStore(t))
}
