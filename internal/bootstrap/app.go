package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"screener-backend/internal/analysis"
	"screener-backend/internal/batch"
	"screener-backend/internal/candidates"
	"screener-backend/internal/jobcontext"
	"screener-backend/internal/jobs"
	"screener-backend/internal/llm"
	openai "screener-backend/internal/llm/openai"
	"screener-backend/internal/queue"
	"screener-backend/internal/shared/config"
	"screener-backend/internal/shared/server"
	"screener-backend/internal/shared/storage/db"
	"screener-backend/internal/shared/storage/object"
	localstore "screener-backend/internal/shared/storage/object/local"
	s3store "screener-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies for the API server and the queue worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	JobsRepo       jobs.Repo
	CandidatesRepo candidates.Repo
	LLM            llm.Client
	Gateway        *analysis.Gateway
	Resolver       *jobcontext.Resolver
	Persister      *batch.Persister
	BatchManager   *batch.Manager

	BatchHandler      *batch.Handler
	JobsHandler       *jobs.Handler
	CandidatesHandler *candidates.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            app.Config,
		BatchHandler:      app.BatchHandler,
		JobsHandler:       app.JobsHandler,
		CandidatesHandler: app.CandidatesHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("SB_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var jobRepo jobs.Repo
	var candidateRepo candidates.Repo
	if app.DB != nil {
		jobRepo = &jobs.PGRepo{DB: app.DB}
		candidateRepo = &candidates.PGRepo{DB: app.DB}
	} else {
		jobRepo = jobs.NewMemoryRepo()
		candidateRepo = candidates.NewMemoryRepo()
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	if app.Config.LLMProvider == "openai" {
		openaiClient, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), app.Config.LLMModel)
		if err != nil {
			return err
		}
		llmClient = openaiClient
	}

	gateway := analysis.NewGateway(llmClient)
	resolver := jobcontext.NewResolver(jobRepo, llmClient)
	persister := batch.NewPersister(candidateRepo, jobRepo)
	manager := batch.NewManager(gateway, resolver, persister, app.Store, app.Config.AnalysisDelay)

	app.JobsRepo = jobRepo
	app.CandidatesRepo = candidateRepo
	app.LLM = llmClient
	app.Gateway = gateway
	app.Resolver = resolver
	app.Persister = persister
	app.BatchManager = manager
	app.BatchHandler = batch.NewHandler(manager, app.Store, app.Queue)
	app.JobsHandler = jobs.NewHandler(jobRepo)
	app.CandidatesHandler = candidates.NewHandler(candidateRepo)
	return nil
}
