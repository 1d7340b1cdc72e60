package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/caselex/caselex/internal/config"
	dbRedis "github.com/caselex/caselex/internal/db/redis"
	"github.com/caselex/caselex/internal/domain"
	"github.com/caselex/caselex/internal/domain/area"
	domsearch "github.com/caselex/caselex/internal/domain/search"
	logpkg "github.com/caselex/caselex/internal/logger"
	"github.com/caselex/caselex/internal/metrics"
	checkpointrepo "github.com/caselex/caselex/internal/repository/checkpoint"
	decisionrepo "github.com/caselex/caselex/internal/repository/decision"
	"github.com/caselex/caselex/internal/repository/embcache"
	"github.com/caselex/caselex/internal/repository/indexstore"
	openaiEmb "github.com/caselex/caselex/internal/transport/openai"
	embeddinguc "github.com/caselex/caselex/internal/usecase/embedding"
	healthuc "github.com/caselex/caselex/internal/usecase/health"
	indexinguc "github.com/caselex/caselex/internal/usecase/indexing"
	searchuc "github.com/caselex/caselex/internal/usecase/search"
	"github.com/caselex/caselex/internal/version"
)

const cacheReadyTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "caselex",
		Usage:   "Category-partitioned semantic search over judicial decisions",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Index decisions added since the last checkpoint",
				Action: indexCommand,
			},
			{
				Name:      "search",
				Usage:     "Search indexed decisions",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "area",
						Aliases: []string{"a"},
						Usage:   "Restrict the search to named legal areas (repeatable)",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "1-based result page",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Results per page",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Report component health and per-area index sizes",
				Action: statusCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtimeEnv wires the shared components a command needs.
type runtimeEnv struct {
	cfg      config.Config
	logger   *zap.Logger
	pool     *pgxpool.Pool
	cache    *dbRedis.Store
	manager  *indexstore.Manager
	cp       *checkpointrepo.FileStore
	embedder *embeddinguc.InstrumentedEmbedder
	provider *openaiEmb.Embedder
	stopMet  func(context.Context) error
}

func (r *runtimeEnv) close() {
	if r.stopMet != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = r.stopMet(ctx)
		cancel()
	}
	if r.cache != nil {
		r.cache.Close()
	}
	if r.pool != nil {
		r.pool.Close()
	}
	_ = r.logger.Sync()
}

// setup loads config, builds the logger, and wires the component graph.
// withDB controls whether the relational pool is opened (search works
// without it).
func setup(ctx context.Context, withDB bool) (*runtimeEnv, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting caselex",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
	)

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterEngineMetrics()

	r := &runtimeEnv{cfg: cfg, logger: logger}

	if cfg.Metrics.Addr != "" {
		r.stopMet = startMetricsListener(cfg.Metrics.Addr, logger)
	}

	if withDB {
		pool, err := decisionrepo.Connect(ctx, cfg.Database.DSN,
			time.Duration(cfg.Database.ConnectTimeoutSec)*time.Second)
		if err != nil {
			r.close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		r.pool = pool
	}

	store, err := indexstore.NewStore(cfg.Index.Dir)
	if err != nil {
		r.close()
		return nil, err
	}
	r.manager, err = indexstore.NewManager(store, cfg.Embedding.Dimensions, cfg.Index.LoadedAreas, logger)
	if err != nil {
		r.close()
		return nil, err
	}

	r.cp, err = checkpointrepo.NewFileStore(cfg.Checkpoint.Path)
	if err != nil {
		r.close()
		return nil, err
	}

	r.provider = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	var inner domain.Embedder = r.provider

	if len(cfg.Cache.Addrs) > 0 {
		cache, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			r.close()
			return nil, fmt.Errorf("connect embedding cache: %w", err)
		}
		r.cache = cache
		if err := cache.WaitForReady(ctx, cacheReadyTimeout); err != nil {
			r.close()
			return nil, fmt.Errorf("embedding cache not ready: %w", err)
		}
		inner = embcache.New(r.provider, cache, metrics.EmbeddingCacheTotal, logger)
	}

	r.embedder = embeddinguc.NewInstrumentedEmbedder(
		inner, cfg.Embedding.Provider, cfg.Embedding.Model,
		cfg.Embedding.BatchSize, logger,
	)

	return r, nil
}

func indexCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer r.close()
	ctx = logpkg.ContextWithLogger(ctx, r.logger)

	indexer := indexinguc.New(
		decisionrepo.NewPostgresRepository(r.pool),
		r.embedder, r.manager, r.cp, area.Default(),
		indexinguc.Config{
			MinTextLen: r.cfg.Index.MinTextLen,
			FetchBatch: r.cfg.Index.FetchBatch,
			TextCap:    r.cfg.Embedding.TextCap,
		},
		r.logger,
	)

	stats, err := indexer.Run(ctx)
	if err != nil {
		return fmt.Errorf("indexing run: %w", err)
	}

	r.logger.Info("Indexing run finished",
		zap.Int("batches", stats.Batches),
		zap.Int("decisions", stats.Decisions),
		zap.Int("areas", stats.Areas),
		zap.Int64("checkpoint", stats.Checkpoint),
	)
	fmt.Printf("indexed %d decisions across %d areas (checkpoint %d)\n",
		stats.Decisions, stats.Areas, stats.Checkpoint)
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("usage: caselex search <query>")
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer r.close()

	var areas []area.Area
	for _, a := range c.StringSlice("area") {
		areas = append(areas, area.Area(a))
	}

	pageSize := c.Int("page-size")
	if pageSize <= 0 {
		pageSize = r.cfg.Search.DefaultPageSize
	}
	if pageSize > r.cfg.Search.MaxPageSize {
		pageSize = r.cfg.Search.MaxPageSize
	}

	query, err := domsearch.NewQuery(c.Args().First(), areas, c.Int("page"), pageSize)
	if err != nil {
		return err
	}

	engine, err := searchuc.New(
		r.manager, r.embedder, searchuc.NewScorer(area.Default()),
		r.cfg.Search.Workers,
		searchuc.Config{
			TopKPerArea:   r.cfg.Search.TopKPerArea,
			MaxAreas:      r.cfg.Search.MaxAreas,
			VectorWeight:  r.cfg.Search.VectorWeight,
			KeywordWeight: r.cfg.Search.KeywordWeight,
			MinRelevance:  r.cfg.Search.MinRelevance,
			Timeout:       time.Duration(r.cfg.Search.AreaTimeoutSec) * time.Second,
		},
		r.logger,
	)
	if err != nil {
		return err
	}
	defer engine.Release()

	results, err := engine.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	for i, res := range results {
		dec := res.Decision()
		fmt.Printf("%2d. [%s] %s %s (%s)\n    score=%.4f distance=%.4f relevance=%.4f\n    %s\n",
			query.Offset()+i+1, res.Area(), dec.Court(), dec.DecisionNumber(),
			dec.Date().Format("2006-01-02"),
			res.Combined(), res.Distance(), res.Relevance(),
			dec.Summary(),
		)
	}
	if len(results) == 0 {
		fmt.Println("no results")
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer r.close()

	var cachePinger healthuc.DBPinger
	if r.cache != nil {
		cachePinger = r.cache
	}

	report := healthuc.New(r.pool, r.provider, cachePinger, r.manager).Check(ctx)

	out := struct {
		Status string                          `json:"status"`
		Checks map[string]healthuc.CheckResult `json:"checks"`
		Areas  map[string]int                  `json:"areas"`
	}{
		Status: string(report.Status),
		Checks: report.Checks,
		Areas:  make(map[string]int, len(report.AreaSizes)),
	}
	for a, n := range report.AreaSizes {
		out.Areas[string(a)] = n
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// startMetricsListener exposes /metrics on addr; returns a shutdown func.
func startMetricsListener(addr string, logger *zap.Logger) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Metrics listener started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("Metrics listener stopped", zap.Error(err))
		}
	}()
	return srv.Shutdown
}
