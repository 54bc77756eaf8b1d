package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/insightlab/insighthub/db"
	"github.com/insightlab/insighthub/internal/catalog"
	"github.com/insightlab/insighthub/internal/chat"
	"github.com/insightlab/insighthub/internal/config"
	"github.com/insightlab/insighthub/internal/database"
	"github.com/insightlab/insighthub/internal/dataset"
	"github.com/insightlab/insighthub/internal/knowledge"
	"github.com/insightlab/insighthub/internal/log"
	"github.com/insightlab/insighthub/internal/observability"
	"github.com/insightlab/insighthub/internal/rag"
	"github.com/insightlab/insighthub/internal/reporter"
	"github.com/insightlab/insighthub/internal/security"
	"github.com/insightlab/insighthub/internal/session"
	"github.com/insightlab/insighthub/internal/tools"
	"github.com/insightlab/insighthub/internal/vision"

	artifactstore "github.com/insightlab/insighthub/internal/artifact"
)

// Setup initializes the full application. On error, everything already
// initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must come first so Genkit's TracerProvider has its exporter
	// before any flow is defined.
	otelShutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.onClose(func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return otelShutdown(shutdownCtx)
	})

	a.Genkit = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if a.Genkit == nil {
		return nil, errors.New("initializing genkit")
	}

	a.Embedder = googlegenai.GoogleAIEmbedder(a.Genkit, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	// Validators first: the dataset store bounds CSV loads with the shared
	// path validator.
	if err := a.setupValidators(); err != nil {
		return nil, err
	}
	if err := a.setupStores(ctx); err != nil {
		return nil, err
	}
	if err := a.setupAgents(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

// setupStores opens the databases and builds the storage layer.
func (a *App) setupStores(ctx context.Context) error {
	cfg := a.Config

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running postgres migrations: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.ConnString())
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	a.DBPool = pool
	a.onClose(func() error { pool.Close(); return nil })

	store, err := knowledge.New(pool, a.Embedder, a.Logger)
	if err != nil {
		return fmt.Errorf("creating knowledge store: %w", err)
	}
	a.Knowledge = store
	a.Indexer = rag.NewIndexer(store, nil)

	sessions, err := session.New(pool, a.Logger)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	a.Sessions = sessions

	sqliteDB, err := database.OpenSQLite(cfg.DatasetDBPath)
	if err != nil {
		return fmt.Errorf("opening dataset database: %w", err)
	}
	a.SQLiteDB = sqliteDB
	a.onClose(sqliteDB.Close)
	if err := database.MigrateSQLite(sqliteDB); err != nil {
		return fmt.Errorf("running sqlite migrations: %w", err)
	}

	datasets, err := dataset.NewStore(sqliteDB, a.PathValidator, a.Logger)
	if err != nil {
		return fmt.Errorf("creating dataset store: %w", err)
	}
	a.Datasets = datasets

	artifacts, err := artifactstore.NewStore(cfg.ReportArtifactsDir)
	if err != nil {
		return fmt.Errorf("creating artifact store: %w", err)
	}
	a.Artifacts = artifacts

	return nil
}

// setupValidators builds the security layer shared by tools and agents.
func (a *App) setupValidators() error {
	pathValidator, err := security.NewPath(nil)
	if err != nil {
		return fmt.Errorf("creating path validator: %w", err)
	}
	a.PathValidator = pathValidator
	a.URLValidator = security.NewURL()
	return nil
}

// setupAgents registers tools, builds the catalog agents and the chat
// agent, and defines the retriever.
func (a *App) setupAgents(ctx context.Context) error {
	cfg := a.Config
	modelName := cfg.QualifiedModel()

	retriever := rag.NewRetriever(a.Knowledge)
	retriever.DefineDocuments(a.Genkit, "documents")

	// Shared between the search_web tool and the reporter agent.
	searcher, err := reporter.NewSearcher(a.URLValidator.Client(), a.Logger)
	if err != nil {
		return fmt.Errorf("creating searcher: %w", err)
	}

	allTools, err := tools.RegisterAll(a.Genkit, tools.Deps{
		Knowledge:     a.Knowledge,
		Datasets:      a.Datasets,
		URLValidator:  a.URLValidator,
		PathValidator: a.PathValidator,
		Searcher:      searcher,
		Logger:        a.Logger,
	})
	if err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}
	a.Tools = allTools

	chatAgent, err := chat.New(chat.Config{
		Genkit:             a.Genkit,
		Sessions:           a.Sessions,
		Logger:             a.Logger,
		Tools:              allTools,
		ModelName:          modelName,
		MaxTurns:           cfg.MaxTurns,
		MaxHistoryMessages: cfg.MaxHistoryMessages,
		RateLimiter:        rate.NewLimiter(10, cfg.RateBurst),
	})
	if err != nil {
		return fmt.Errorf("creating chat agent: %w", err)
	}
	a.Chat = chatAgent

	ragAgent, err := rag.NewAgent(a.Genkit, a.Knowledge, modelName, cfg.RetrievalTopK, a.Logger)
	if err != nil {
		return fmt.Errorf("creating document rag agent: %w", err)
	}

	dataAgent, err := dataset.NewAgent(a.Genkit, a.Datasets, modelName, a.Logger)
	if err != nil {
		return fmt.Errorf("creating data query agent: %w", err)
	}

	reporterAgent, err := a.setupReporter(modelName, searcher)
	if err != nil {
		return err
	}

	a.Registry = catalog.NewRegistry()
	for _, agent := range []catalog.Agent{ragAgent, dataAgent, reporterAgent} {
		if err := a.Registry.Register(agent); err != nil {
			return fmt.Errorf("registering agent: %w", err)
		}
	}

	if err := a.setupVision(ctx, modelName); err != nil {
		return err
	}

	a.Logger.Info("application initialized",
		"agents", a.Registry.Len(),
		"tools", len(a.Tools),
		"model", modelName)
	return nil
}

func (a *App) setupReporter(modelName string, searcher *reporter.Searcher) (*reporter.Agent, error) {
	cfg := a.Config

	fetcher, err := reporter.NewFetcher(a.URLValidator, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating fetcher: %w", err)
	}
	crawler, err := reporter.NewCrawler(a.URLValidator, cfg.ReportMaxSources, cfg.ReportCrawlDepth, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating crawler: %w", err)
	}

	agent, err := reporter.NewAgent(a.Genkit, searcher, fetcher, crawler, a.Artifacts,
		modelName, cfg.ReportMaxSources, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating reporter agent: %w", err)
	}
	return agent, nil
}

// setupVision builds the image and video analyzers. Video needs a direct
// genai client for the Files API, which Genkit does not expose.
func (a *App) setupVision(ctx context.Context, modelName string) error {
	images, err := vision.NewImageAnalyzer(a.Genkit, a.PathValidator, modelName, a.Logger)
	if err != nil {
		return fmt.Errorf("creating image analyzer: %w", err)
	}
	a.Images = images

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("creating genai client: %w", err)
	}

	videos, err := vision.NewVideoAnalyzer(client, a.PathValidator, a.Config.ModelName, a.Logger)
	if err != nil {
		return fmt.Errorf("creating video analyzer: %w", err)
	}
	a.Videos = videos
	return nil
}
