package bootstrap

import (
	"context"
	"database/sql"
	"log"

	"github.com/gin-gonic/gin"

	"autograde-backend/internal/analyses"
	"autograde-backend/internal/artifact"
	"autograde-backend/internal/detector"
	"autograde-backend/internal/services/health"
	"autograde-backend/internal/shared/config"
	"autograde-backend/internal/shared/server"
	"autograde-backend/internal/shared/storage/db"
	"autograde-backend/internal/shared/storage/object"
	localstore "autograde-backend/internal/shared/storage/object/local"
	s3store "autograde-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies built once at process start.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     object.ObjectStore
	Artifacts *artifact.Store
	Repo      analyses.Repo
	Service   *analyses.Service
	Handler   *analyses.Handler
}

// Build wires config, storage, persistence and the request pipeline around
// the given engine handle. The engine is injected rather than constructed
// here so tests can substitute a fake.
func Build(cfg config.Config, engine detector.Engine) (*App, error) {
	ctx := context.Background()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	artifacts := artifact.NewStore(store)

	sqlDB := buildDB(ctx, cfg)

	var repo analyses.Repo
	if sqlDB != nil {
		repo = &analyses.PGRepo{DB: sqlDB}
	} else {
		repo = analyses.NewMemoryRepo()
	}

	invoker := detector.NewInvoker(engine, cfg.ConfidenceThreshold, cfg.EngineTimeout)
	svc := &analyses.Service{Artifacts: artifacts, Invoker: invoker, Repo: repo}
	handler := analyses.NewHandler(svc)
	healthSvc := health.NewService()

	return &App{
		Config:    cfg,
		Router:    server.NewRouter(cfg, handler, healthSvc),
		DB:        sqlDB,
		Store:     store,
		Artifacts: artifacts,
		Repo:      repo,
		Service:   svc,
		Handler:   handler,
	}, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	if cfg.ObjectStoreType == "s3" {
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	}
	return localstore.New(cfg.LocalStoreDir), nil
}

// buildDB connects and migrates when DATABASE_URL is set, falling back to
// nil (memory repo) on any failure so artifact serving keeps working.
func buildDB(ctx context.Context, cfg config.Config) *sql.DB {
	if cfg.DatabaseURL == "" {
		return nil
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultServerOptions())
	if err != nil {
		log.Printf("failed to connect database, falling back to memory: %v", err)
		return nil
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		log.Printf("failed to run migrations, falling back to memory: %v", err)
		sqlDB.Close()
		return nil
	}
	return sqlDB
}
