package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/secureupload/internal/auth"
	"github.com/abduss/secureupload/internal/config"
	"github.com/abduss/secureupload/internal/grant"
	"github.com/abduss/secureupload/internal/logger"
	"github.com/abduss/secureupload/internal/metrics"
	"github.com/abduss/secureupload/internal/policy"
	"github.com/abduss/secureupload/internal/presigned"
	"github.com/abduss/secureupload/internal/server"
	"github.com/abduss/secureupload/internal/storage"
	"github.com/abduss/secureupload/internal/token"
	"github.com/abduss/secureupload/internal/upload"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.Init(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("secureupload api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	metrics.InitMetrics()

	stores, err := openStores(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer stores.close()

	grantor, storagePinger, err := openGrantor(ctx, cfg)
	if err != nil {
		return err
	}

	operators, err := auth.NewService(cfg.Auth.OperatorKeyHash)
	if err != nil {
		return fmt.Errorf("operator auth: %w", err)
	}

	engine := policy.NewEngine(cfg.Upload.AllowedExtensions, cfg.Upload.AllowedContentTypes)
	receipts := grant.NewReceipts(cfg.Upload.ReceiptSecret, cfg.Upload.ReceiptTTL)

	tokenService := token.NewService(stores.tokens, cfg.Upload, zlog)
	grantService := grant.NewService(tokenService, engine, grantor, receipts, cfg.Upload, zlog)
	uploadService := upload.NewService(tokenService, stores.audit, receipts, cfg.Storage.Bucket, cfg.Upload, zlog)

	deps := server.Dependencies{
		Config:        cfg,
		Logger:        zlog,
		Pingers:       append(stores.pingers, storagePinger),
		TokenService:  tokenService,
		GrantService:  grantService,
		UploadService: uploadService,
	}
	if operators.Enabled() {
		deps.OperatorGuard = auth.OperatorMiddleware(operators)
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      server.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("secureupload api listening",
			zap.String("addr", cfg.Server.Address()),
			zap.String("store", cfg.Store.Driver),
			zap.String("storage", cfg.Storage.Driver),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	zlog.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type openedStores struct {
	tokens  token.Store
	audit   upload.AuditStore
	pingers []server.Pinger
	closers []func()
}

func (s *openedStores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg config.Config, zlog *zap.Logger) (*openedStores, error) {
	stores := &openedStores{}

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, pool.Close)

		if cfg.Postgres.AutoMigrate {
			if err := storage.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}

		stores.tokens = token.NewRepository(pool, cfg.Store.Timeout)
		stores.audit = upload.NewRepository(pool, cfg.Store.Timeout)
		stores.pingers = append(stores.pingers, storage.PostgresPinger{Pool: pool})

	case config.StoreDriverMongo:
		client, err := storage.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				zlog.Warn("disconnect mongo", zap.Error(err))
			}
		})

		db := client.Database(cfg.Mongo.Database)
		stores.tokens = token.NewMongoRepository(db, cfg.Store.Timeout)
		stores.audit = upload.NewMongoRepository(db, cfg.Store.Timeout)
		stores.pingers = append(stores.pingers, storage.MongoPinger{Client: client})

	case config.StoreDriverMemory:
		zlog.Warn("using in-memory stores; tokens and audit records are lost on restart")
		stores.tokens = token.NewMemoryRepository()
		stores.audit = upload.NewMemoryRepository()
	}

	return stores, nil
}

func openGrantor(ctx context.Context, cfg config.Config) (presigned.Grantor, server.Pinger, error) {
	sc := cfg.Storage

	switch sc.Driver {
	case config.StorageDriverS3:
		client, err := storage.NewS3Client(ctx, sc)
		if err != nil {
			return nil, nil, err
		}
		grantor := presigned.NewS3Grantor(storage.NewS3Presigner(client), sc.Bucket, sc.Timeout)
		return grantor, storage.S3Pinger{Client: client, Bucket: sc.Bucket}, nil

	default:
		client, err := storage.NewMinIOClient(sc)
		if err != nil {
			return nil, nil, err
		}
		if sc.EnsureBucket {
			if err := storage.EnsureBucket(ctx, client, sc.Bucket, sc.Region); err != nil {
				return nil, nil, err
			}
		}
		grantor := presigned.NewMinIOGrantor(client, sc.Bucket, sc.Timeout)
		return grantor, storage.MinIOPinger{Client: client, Bucket: sc.Bucket}, nil
	}
}
