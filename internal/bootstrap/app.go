package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"securelink-backend/internal/documents"
	"securelink-backend/internal/identity"
	"securelink-backend/internal/services/health"
	"securelink-backend/internal/shared/auth"
	"securelink-backend/internal/shared/config"
	"securelink-backend/internal/shared/events"
	"securelink-backend/internal/shared/server"
	"securelink-backend/internal/shared/server/middleware"
	"securelink-backend/internal/shared/storage/cache"
	"securelink-backend/internal/shared/storage/db"
	"securelink-backend/internal/shared/storage/object"
	localstore "securelink-backend/internal/shared/storage/object/local"
	miniostore "securelink-backend/internal/shared/storage/object/minio"
	s3store "securelink-backend/internal/shared/storage/object/s3"
	"securelink-backend/internal/utility"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config  config.Config
	Router  *gin.Engine
	DB      *sql.DB
	Redis   *redis.Client
	Store   object.ObjectStore
	Events  events.Publisher
	Health  *health.Service
	Tracker *documents.Tracker

	IdentityService  *identity.Service
	DocumentsService *documents.Service

	closers []func() error
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()
	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.Health.Register("postgres", sqlDB.PingContext)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		if !isDevLike(cfg.Env) {
			app.Close()
			return nil, err
		}
		log.Printf("bootstrap: redis unavailable; using in-memory token store: %v", err)
	}
	if rdb != nil {
		app.Redis = rdb
		app.closers = append(app.closers, rdb.Close)
		app.Health.Register("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	app.Events = buildPublisher(app, cfg)

	if err := buildServices(app); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Close releases connections held by the app.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.DB != nil && !db.IsLambdaRuntime() {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.Shared(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if isDevLike(cfg.Env) {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, s3store.Options{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
			Endpoint: cfg.S3Endpoint,
			URLTTL:   cfg.DownloadURLTTL,
		})
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			URLTTL:    cfg.DownloadURLTTL,
		})
	default:
		secret := cfg.FileURLSecret
		if secret == "" {
			secret = cfg.JWTSecret
		}
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL, secret, cfg.DownloadURLTTL), nil
	}
}

func buildPublisher(app *App, cfg config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.LogPublisher{}
	}
	pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	app.closers = append(app.closers, pub.Close)
	return pub
}

func buildServices(app *App) error {
	cfg := app.Config

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.Env, cfg.SessionTTL)
	if err != nil {
		return err
	}

	var (
		accountRepo identity.Repo
		docRepo     documents.Repo
		tokens      identity.TokenStore
	)
	if app.DB != nil {
		accountRepo = &identity.PGRepo{DB: app.DB}
		docRepo = &documents.PGRepo{DB: app.DB}
	} else {
		accountRepo = identity.NewMemoryRepo()
		docRepo = documents.NewMemoryRepo()
	}
	if app.Redis != nil {
		tokens = identity.NewRedisTokens(app.Redis)
	} else {
		tokens = identity.NewMemoryTokens()
	}

	identitySvc := identity.NewService(accountRepo, tokens, identity.LogMailer{}, issuer, identity.NewHub(), cfg.VerifyBaseURL)
	docSvc := documents.NewService(docRepo, app.Store, app.Events)
	tracker := documents.NewTracker(0)

	deps := server.RouterDeps{
		Config:        cfg,
		Authenticator: identitySvc.Authenticator(),
		Identity:      identity.NewHandler(identitySvc),
		Google: identity.NewGoogleHandler(
			identitySvc,
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
			cfg.UIRedirectURL,
		),
		Stream:    identity.NewStreamHandler(identitySvc, cfg.CORSAllowOrigin),
		Documents: documents.NewHandler(docSvc, tracker),
		Utility:   utility.NewHandler(app.Store),
		Health:    app.Health,
		RateLimit: middleware.NewRateLimiter(nil),
	}
	if local, ok := app.Store.(*localstore.Store); ok {
		deps.Files = local.Handler()
	}

	app.IdentityService = identitySvc
	app.DocumentsService = docSvc
	app.Tracker = tracker
	app.Router = server.NewRouter(deps)
	if app.Router == nil {
		return errors.New("failed to initialize router")
	}
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
