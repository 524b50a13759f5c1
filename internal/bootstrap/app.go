package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KimiAn12/StartUpIdea/internal/analyses"
	"github.com/KimiAn12/StartUpIdea/internal/documents"
	"github.com/KimiAn12/StartUpIdea/internal/extract"
	"github.com/KimiAn12/StartUpIdea/internal/llm"
	"github.com/KimiAn12/StartUpIdea/internal/llm/gemini"
	"github.com/KimiAn12/StartUpIdea/internal/llm/openai"
	"github.com/KimiAn12/StartUpIdea/internal/queue"
	"github.com/KimiAn12/StartUpIdea/internal/shared/auth"
	"github.com/KimiAn12/StartUpIdea/internal/shared/config"
	"github.com/KimiAn12/StartUpIdea/internal/shared/health"
	"github.com/KimiAn12/StartUpIdea/internal/shared/server"
	"github.com/KimiAn12/StartUpIdea/internal/shared/server/middleware"
	"github.com/KimiAn12/StartUpIdea/internal/shared/storage/db"
	"github.com/KimiAn12/StartUpIdea/internal/shared/storage/object"
	localstore "github.com/KimiAn12/StartUpIdea/internal/shared/storage/object/local"
	miniostore "github.com/KimiAn12/StartUpIdea/internal/shared/storage/object/minio"
	s3store "github.com/KimiAn12/StartUpIdea/internal/shared/storage/object/s3"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
	"github.com/KimiAn12/StartUpIdea/internal/users"
)

// App holds the wired services of one process.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     object.ObjectStore
	Tokens    *auth.Manager
	Users     *users.Service
	Documents *documents.Service
	Analyses  *analyses.Service

	// Background is set when analyses run on goroutines in this process.
	Background *analyses.BackgroundDispatcher

	closers []func() error
}

// Options tune Build for the calling process.
type Options struct {
	DB db.Options
	// SkipQueue leaves dispatch in-process even when a queue is configured.
	SkipQueue bool
}

// Build wires repositories, services and the router from cfg.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTExpiration, cfg.Env)
	if err != nil {
		return nil, err
	}
	app.Tokens = tokens

	if err := app.buildDB(ctx, opts.DB); err != nil {
		return nil, err
	}
	if app.Store, err = buildStore(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	client, err := buildLLM(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	var (
		docRepo      documents.Repo
		analysisRepo analyses.Repo
		userRepo     users.Repo
		dependents   documents.DependentsDeleter
	)
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		analysisRepo = &analyses.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		memAnalyses := analyses.NewMemoryRepo()
		docRepo = documents.NewMemoryRepo()
		analysisRepo = memAnalyses
		userRepo = users.NewMemoryRepo()
		// Postgres cascades through foreign keys; memory needs help.
		dependents = memAnalyses
	}

	app.Users = users.NewService(userRepo, tokens)
	app.Documents = &documents.Service{
		Store:      app.Store,
		Repo:       docRepo,
		Extractor:  extract.New(cfg.TikaURL),
		Dependents: dependents,
	}
	app.Analyses = &analyses.Service{
		Repo:             analysisRepo,
		Documents:        docRepo,
		LLM:              client,
		MaxDocumentChars: cfg.MaxDocumentChars,
		Timeout:          cfg.LLMTimeout,
	}
	if err := app.buildDispatcher(ctx, opts.SkipQueue); err != nil {
		app.Close()
		return nil, err
	}

	limiter, err := app.buildLimiter(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	var pinger health.Pinger
	if app.DB != nil {
		pinger = app.DB
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:    cfg,
		Tokens:    tokens,
		Limiter:   limiter,
		Health:    health.NewService(pinger),
		Auth:      users.NewHandler(app.Users),
		Documents: documents.NewHandler(app.Documents),
		AI:        analyses.NewHandler(app.Analyses),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"db":           app.DB != nil,
		"object_store": cfg.ObjectStoreType,
		"llm":          cfg.LLMProvider,
		"dispatch":     cfg.AnalysisDispatch,
		"queue":        cfg.QueueBackend,
	})
	return app, nil
}

// Close waits for background analyses and releases connections.
func (a *App) Close() error {
	if a.Background != nil {
		a.Background.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) buildDB(ctx context.Context, opts db.Options) error {
	cfg := a.Config
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil
		}
		return fmt.Errorf("DATABASE_URL is required")
	}
	if opts == (db.Options{}) {
		opts = db.DefaultServerOptions()
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(opts))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil
		}
		return err
	}
	a.DB = sqlDB
	a.closers = append(a.closers, sqlDB.Close)

	if cfg.RunMigrations {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			a.Close()
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			break
		}
		return gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiAPIURL, cfg.LLMTimeout)
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			break
		}
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	}
	if cfg.LLMProvider != "placeholder" {
		telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": cfg.LLMProvider, "reason": "API key not set"})
	}
	return llm.PlaceholderClient{}, nil
}

func (a *App) buildDispatcher(ctx context.Context, skipQueue bool) error {
	cfg := a.Config
	if cfg.AnalysisDispatch != "async" {
		return nil
	}
	if skipQueue || cfg.QueueBackend == "none" {
		a.Background = analyses.NewBackgroundDispatcher(a.Analyses)
		a.Analyses.Dispatcher = a.Background
		return nil
	}
	if a.DB == nil {
		telemetry.Warn("bootstrap.queue_without_db", map[string]any{
			"queue":  cfg.QueueBackend,
			"reason": "workers cannot see in-memory analyses",
		})
	}

	var client queue.Client
	switch cfg.QueueBackend {
	case "sqs":
		c, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
		if err != nil {
			return err
		}
		client = c
	case "kafka":
		c, err := queue.NewKafkaClient(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		client = c
	default:
		return fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}
	a.closers = append(a.closers, client.Close)
	a.Analyses.Dispatcher = &queue.Dispatcher{Client: client}
	return nil
}

func (a *App) buildLimiter(ctx context.Context) (middleware.Limiter, error) {
	if strings.TrimSpace(a.Config.RedisAddr) == "" {
		return middleware.NewRateLimiter(nil), nil
	}
	limiter, rdb, err := middleware.NewRedisLimiter(ctx, a.Config.RedisAddr, a.Config.RedisPassword)
	if err != nil {
		if isDevLike(a.Config.Env) {
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err.Error()})
			return middleware.NewRateLimiter(nil), nil
		}
		return nil, err
	}
	a.closers = append(a.closers, rdb.Close)
	return limiter, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
