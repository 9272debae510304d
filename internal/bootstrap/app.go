package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"fitflow-backend/internal/auth"
	"fitflow-backend/internal/checkins"
	"fitflow-backend/internal/coaching"
	"fitflow-backend/internal/llm"
	"fitflow-backend/internal/llm/nim"
	"fitflow-backend/internal/notifications"
	"fitflow-backend/internal/queue"
	"fitflow-backend/internal/recovery"
	"fitflow-backend/internal/services/health"
	"fitflow-backend/internal/shared/config"
	"fitflow-backend/internal/shared/server"
	"fitflow-backend/internal/shared/storage/db"
	"fitflow-backend/internal/shared/storage/object"
	localstore "fitflow-backend/internal/shared/storage/object/local"
	s3store "fitflow-backend/internal/shared/storage/object/s3"
	"fitflow-backend/internal/shared/telemetry"
	"fitflow-backend/internal/vision"
)

// App holds shared dependencies.
type App struct {
	Config  config.Config
	Router  *gin.Engine
	DB      *sql.DB
	Dialect db.Dialect
	Store   object.Store
	Queue   queue.Client
	LLM     llm.Client
	Scorers *recovery.Provider
	Hub     *notifications.Hub

	CheckInsService *checkins.Service
	CoachingService *coaching.Service
	VisionService   *vision.Service
	Dispatcher      *notifications.Dispatcher
	Health          *health.Service
	GoogleLogin     *auth.GoogleLogin

	CheckInsHandler      *checkins.Handler
	CoachingHandler      *coaching.Handler
	NotificationsHandler *notifications.Handler
	VisionHandler        *vision.Handler
}

// Close releases the database handle.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.LogStore) == "" {
		cfg.LogStore = "memory"
	}
	ctx := context.Background()

	sqlDB, dialect, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB == nil {
		cfg.LogStore = "memory"
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	scorers, err := BuildScorers(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Dialect: dialect,
		Store:   store,
		Queue:   queueClient,
		LLM:     BuildLLM(cfg, cfg.LLMModel),
		Scorers: scorers,
		Hub:     notifications.NewHub(),
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        app.Config,
		Health:        app.Health,
		CheckIns:      app.CheckInsHandler,
		Coaching:      app.CoachingHandler,
		Notifications: app.NotificationsHandler,
		Vision:        app.VisionHandler,
		GoogleLogin:   app.GoogleLogin,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, db.Dialect, error) {
	switch cfg.LogStore {
	case "sqlite":
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath, db.OptionsFromEnv(db.DefaultSQLiteOptions()))
		if err != nil {
			return nil, "", err
		}
		if err := db.RunMigrations(ctx, sqlDB, db.SQLite); err != nil {
			sqlDB.Close()
			return nil, "", fmt.Errorf("sqlite migrations: %w", err)
		}
		telemetry.Info("bootstrap.log_store", map[string]any{"store": "sqlite", "path": cfg.SQLitePath})
		return sqlDB, db.SQLite, nil
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			if isDevLike(cfg.Env) {
				telemetry.Warn("bootstrap.database_url_empty", map[string]any{"fallback": "memory"})
				return nil, "", nil
			}
			return nil, "", errors.New("DATABASE_URL is required")
		}
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			if isDevLike(cfg.Env) {
				telemetry.Warn("bootstrap.database_connect_failed", map[string]any{
					"fallback": "memory",
					"error":    err.Error(),
				})
				return nil, "", nil
			}
			return nil, "", err
		}
		telemetry.Info("bootstrap.log_store", map[string]any{"store": "postgres"})
		return sqlDB, db.Postgres, nil
	default:
		telemetry.Info("bootstrap.log_store", map[string]any{"store": "memory"})
		return nil, "", nil
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildQueue returns a nil client when no queue URL is configured, so runs complete in-process.
func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.QueueURL, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// BuildScorers loads the rules file when one is configured and falls back to the defaults.
func BuildScorers(path string) (*recovery.Provider, error) {
	if strings.TrimSpace(path) == "" {
		return recovery.NewProvider(nil), nil
	}
	cfg, err := recovery.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	scorer, err := recovery.NewScorer(cfg)
	if err != nil {
		return nil, err
	}
	return recovery.NewProvider(scorer), nil
}

// BuildLLM wires the provider client behind a response cache and retries.
// A missing API key degrades to the placeholder so the scorer keeps working.
func BuildLLM(cfg config.Config, model string) llm.Client {
	if cfg.LLMProvider != "nim" {
		telemetry.Warn("bootstrap.llm_disabled", map[string]any{"provider": cfg.LLMProvider})
		return llm.PlaceholderClient{}
	}
	client, err := nim.NewClient(cfg.NIMAPIKey, model, cfg.LLMBaseURL)
	if err != nil {
		fields := map[string]any{"error": err.Error()}
		if errors.Is(err, llm.ErrNotConfigured) {
			fields["hint"] = "set NIM_API_KEY"
		}
		telemetry.Warn("bootstrap.llm_unavailable", fields)
		return llm.PlaceholderClient{}
	}
	cached, err := llm.NewCached(client, cfg.LLMCacheSize)
	if err != nil {
		telemetry.Warn("bootstrap.llm_cache_disabled", map[string]any{"error": err.Error()})
		return llm.NewRetrying(client)
	}
	return llm.NewRetrying(cached)
}

func buildServices(app *App) error {
	var (
		checkinRepo      checkins.Repo
		runRepo          coaching.Repo
		notificationRepo notifications.Repo
	)
	if app.DB != nil {
		checkinRepo = &checkins.SQLRepo{DB: app.DB, Dialect: app.Dialect}
		runRepo = &coaching.SQLRepo{DB: app.DB, Dialect: app.Dialect}
		notificationRepo = &notifications.SQLRepo{DB: app.DB, Dialect: app.Dialect}
	} else {
		checkinRepo = checkins.NewMemoryRepo()
		runRepo = coaching.NewMemoryRepo()
		notificationRepo = notifications.NewMemoryRepo()
	}

	dispatcher := &notifications.Dispatcher{
		Repo:    notificationRepo,
		Sinks:   buildSinks(app.Config, app.Hub),
		Builder: notifications.Builder{WorkoutHour: app.Config.WorkoutHour},
	}

	checkinSvc := &checkins.Service{
		Repo:     checkinRepo,
		Scorers:  app.Scorers,
		Notifier: dispatcher,
	}

	coachingSvc := &coaching.Service{
		Repo:     runRepo,
		Pipeline: &coaching.Pipeline{LLM: app.LLM},
		CheckIns: checkinSvc,
		Queue:    app.Queue,
		Notifier: dispatcher,
	}

	visionSvc := &vision.Service{
		Store: app.Store,
		LLM:   app.LLM,
		Model: app.Config.LLMVisionModel,
	}

	app.Dispatcher = dispatcher
	app.CheckInsService = checkinSvc
	app.CoachingService = coachingSvc
	app.VisionService = visionSvc
	app.Health = health.NewService(app.DB, app.Config.LogStore)
	app.CheckInsHandler = checkins.NewHandler(checkinSvc)
	app.CoachingHandler = coaching.NewHandler(coachingSvc)
	app.NotificationsHandler = notifications.NewHandler(dispatcher, app.Hub, checkinSvc)
	app.VisionHandler = vision.NewHandler(visionSvc)

	login := auth.NewGoogleLogin(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
	)
	if login.Configured() {
		app.GoogleLogin = login
	}

	if app.CheckInsHandler == nil || app.CoachingHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

// buildSinks always includes the WebSocket hub and adds webhook and email when configured.
func buildSinks(cfg config.Config, hub *notifications.Hub) []notifications.Sink {
	sinks := []notifications.Sink{hub}
	if strings.TrimSpace(cfg.NotifyWebhookURL) != "" {
		sinks = append(sinks, notifications.NewWebhookSink(cfg.NotifyWebhookURL, cfg.NotifyWebhookType))
	}
	if strings.TrimSpace(cfg.SMTP.Host) != "" {
		sinks = append(sinks, &notifications.EmailSink{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			To:       cfg.SMTP.To,
		})
	}
	return sinks
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
