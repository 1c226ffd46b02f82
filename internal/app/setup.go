package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genstack0/genstack/internal/config"
	"github.com/genstack0/genstack/internal/docproc"
	"github.com/genstack0/genstack/internal/embed"
	"github.com/genstack0/genstack/internal/knowledge"
	"github.com/genstack0/genstack/internal/llm"
	"github.com/genstack0/genstack/internal/stack"
	"github.com/genstack0/genstack/internal/websearch"
	"github.com/genstack0/genstack/internal/workflow"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	if a.Knowledge, err = knowledge.NewStore(pool, logger); err != nil {
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}
	if a.Stacks, err = stack.NewStore(pool, logger); err != nil {
		return nil, fmt.Errorf("creating stack store: %w", err)
	}
	if err = a.Knowledge.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	if err = a.Stacks.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	local, err := embed.Local(cfg.OllamaHost, cfg.LocalEmbedModel)
	if err != nil {
		return nil, fmt.Errorf("creating local embedder: %w", err)
	}
	remote := func(apiKey, model string) (embed.Embedder, error) {
		return embed.NewOpenAI(apiKey, model)
	}

	if a.Retriever, err = knowledge.NewRetriever(a.Knowledge, local, remote, logger); err != nil {
		return nil, fmt.Errorf("creating retriever: %w", err)
	}
	if a.Ingestor, err = knowledge.NewIngestor(a.Knowledge, local, remote, logger); err != nil {
		return nil, fmt.Errorf("creating ingestor: %w", err)
	}

	if a.Processor, err = docproc.NewProcessor(cfg.UploadDir, logger); err != nil {
		return nil, fmt.Errorf("creating document processor: %w", err)
	}

	if a.LLM, err = llm.NewClient(llm.Config{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.OpenRouterBaseURL,
		Logger:  logger,
	}); err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	a.Search = websearch.NewClient(logger)

	if a.Executor, err = workflow.NewExecutor(workflow.ExecutorConfig{
		Retriever:  a.Retriever,
		Searcher:   a.Search,
		Generator:  a.LLM,
		SerpAPIKey: cfg.SerpAPIKey,
		Logger:     logger,
	}); err != nil {
		return nil, fmt.Errorf("creating executor: %w", err)
	}

	return a, nil
}

func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
