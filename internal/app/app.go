// Package app assembles the application: configuration, database,
// provider setup, and the question-answering pipeline.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docent0/docent/db"
	"github.com/docent0/docent/internal/answer"
	"github.com/docent0/docent/internal/chunk"
	"github.com/docent0/docent/internal/config"
	"github.com/docent0/docent/internal/ingest"
	"github.com/docent0/docent/internal/llm"
	"github.com/docent0/docent/internal/log"
	"github.com/docent0/docent/internal/retrieval"
	"github.com/docent0/docent/internal/router"
	"github.com/docent0/docent/internal/store"
)

const pingTimeout = 5 * time.Second

// App holds the wired application components.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Pool     *pgxpool.Pool
	Genkit   *genkit.Genkit
	Store    *store.Store
	Router   *router.Router
	Ingestor *ingest.Ingestor
}

// Setup builds the application from configuration: runs migrations, opens
// the connection pool, initializes the AI provider, and wires the
// retrieval and answering pipeline.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := llm.Setup(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing AI provider: %w", err)
	}
	a.Genkit = g

	embedder, err := llm.NewEmbedder(llm.LookupEmbedder(g, cfg))
	if err != nil {
		return nil, err
	}

	a.Store, err = store.New(pool, embedder, logger)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(g, cfg.FullModelName(), nil, logger)
	if err != nil {
		return nil, err
	}

	routing := cfg.Routing

	splitter, err := chunk.NewSplitter(routing.ChunkSize, routing.ChunkOverlap, logger)
	if err != nil {
		return nil, err
	}

	a.Ingestor, err = ingest.New(a.Store, embedder, splitter, logger)
	if err != nil {
		return nil, err
	}

	filter := retrieval.NewQualityFilter(routing.MinFragmentChars, routing.BoilerplatePhrases)
	cascade, err := retrieval.NewCascade(a.Store, a.Store, filter, retrieval.Config{
		HighSimilarity:     routing.HighSimilarity,
		StandardSimilarity: routing.StandardSimilarity,
		TopK:               routing.TopK,
		MaxMerged:          routing.MaxKeywordResults,
	}, logger)
	if err != nil {
		return nil, err
	}

	assembler := retrieval.NewAssembler(routing.MaxContextChars, logger)

	generator, err := answer.NewGenerator(client, assembler, answer.Config{
		FastContextChars: routing.FastContextChars,
		EnableMultiRound: routing.EnableMultiRound,
		MaxRounds:        routing.MaxRounds,
	}, logger)
	if err != nil {
		return nil, err
	}

	gate := answer.NewGate(routing.MinAnswerChars, routing.NegativeIndicators)
	classifier := router.NewClassifier(
		routing.Greetings, routing.DomainKeywords, routing.FactualMarkers, routing.CreativeMarkers)

	a.Router, err = router.New(classifier, cascade, generator, gate, a.Store, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("application initialized",
		"provider", cfg.Provider,
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel,
	)
	return a, nil
}

// Close releases held resources. Safe to call on a partially built App.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}
