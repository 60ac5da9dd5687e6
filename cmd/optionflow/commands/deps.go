package commands

import (
	"fmt"

	"github.com/wonny/optionflow/internal/external/polygon"
	"github.com/wonny/optionflow/internal/ingest"
	"github.com/wonny/optionflow/internal/market"
	"github.com/wonny/optionflow/internal/store"
	"github.com/wonny/optionflow/pkg/config"
	"github.com/wonny/optionflow/pkg/database"
	"github.com/wonny/optionflow/pkg/httputil"
	"github.com/wonny/optionflow/pkg/logger"
	"github.com/wonny/optionflow/pkg/redis"
)

// deps bundles the wired application graph shared by the api,
// collect, and scheduler commands.
type deps struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	rdb      *redis.Client
	cache    *redis.Cache
	repo     *store.Repository
	pipeline *ingest.Pipeline
}

// buildDeps loads config and wires the full pipeline graph.
func buildDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// The fetch path has no internal retries; a failed page aborts
	// the run and the next scheduled run starts fresh.
	httpClient := httputil.New(cfg, log).
		DisableRetry().
		WithRateLimiter(redis.NewRateLimiter(rdb, "optionflow"), redis.PolygonRateLimit)

	polygonClient := polygon.NewClient(cfg, httpClient, log)

	gate := market.NewGate(market.NYSECalendar(), log)
	repo := store.NewRepository(db.Pool)
	writer := store.NewBatchWriter(repo, log, cfg.Ingest.BatchSize, cfg.Ingest.BatchDelay)

	pipeline := ingest.NewPipeline(gate, polygonClient, writer, repo, log)
	if cfg.Ingest.LeaseTTL > 0 {
		pipeline = pipeline.WithLease(redis.NewLease(rdb, "optionflow"), cfg.Ingest.LeaseTTL)
	}

	return &deps{
		cfg:      cfg,
		log:      log,
		db:       db,
		rdb:      rdb,
		cache:    redis.NewCache(rdb, "optionflow"),
		repo:     repo,
		pipeline: pipeline,
	}, nil
}

// Close releases held connections.
func (d *deps) Close() {
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}
