// Package app assembles the application: database pool, stores, embedding
// backends, generation client and the workflow executor.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genstack0/genstack/internal/config"
	"github.com/genstack0/genstack/internal/docproc"
	"github.com/genstack0/genstack/internal/knowledge"
	"github.com/genstack0/genstack/internal/llm"
	"github.com/genstack0/genstack/internal/stack"
	"github.com/genstack0/genstack/internal/websearch"
	"github.com/genstack0/genstack/internal/workflow"
)

// App is the application container. All fields are wired by Setup and
// released by Close.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Pool      *pgxpool.Pool
	Knowledge *knowledge.Store
	Stacks    *stack.Store
	Retriever *knowledge.Retriever
	Ingestor  *knowledge.Ingestor
	Processor *docproc.Processor
	LLM       *llm.Client
	Search    *websearch.Client
	Executor  *workflow.Executor
}

// Close releases held resources.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}
