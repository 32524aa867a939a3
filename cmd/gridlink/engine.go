package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gridlink-io/gridlink-engine/pkg/analyzer"
	"github.com/gridlink-io/gridlink-engine/pkg/config"
	"github.com/gridlink-io/gridlink-engine/pkg/dataverse"
	"github.com/gridlink-io/gridlink-engine/pkg/discovery"
	"github.com/gridlink-io/gridlink-engine/pkg/logging"
	"github.com/gridlink-io/gridlink-engine/pkg/metadata"
	"github.com/gridlink-io/gridlink-engine/pkg/query"
	"github.com/gridlink-io/gridlink-engine/pkg/ratelimit"
)

// engine wires the per-session object graph: one cache, one limiter, one
// client, shared by every command.
type engine struct {
	cfg         *config.Config
	logger      *zap.Logger
	client      *dataverse.Client
	cache       *metadata.Cache
	resolver    *metadata.Resolver
	discoverer  *discovery.Discoverer
	synthesizer *query.Synthesizer
	analyzer    *analyzer.Analyzer
}

func newEngine() (*engine, error) {
	cfg, err := config.Load(Version)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	if cfg.Dataverse.BaseURL == "" {
		return nil, fmt.Errorf("dataverse base_url is not configured (set DATAVERSE_BASE_URL or config.yaml)")
	}

	limiter := ratelimit.New(&ratelimit.Config{
		MaxConcurrent: cfg.RateLimit.MaxConcurrent,
		MinDelay:      cfg.RateLimit.MinDelay(),
	}, logger)

	client := dataverse.NewClient(
		cfg.Dataverse.BaseURL,
		cfg.Dataverse.AccessToken,
		cfg.Dataverse.Timeout(),
		limiter,
		logger,
	)

	cache := metadata.NewCache()
	resolver := metadata.NewResolver(client, cache, cfg.RateLimit.MaxConcurrent, logger)
	discoverer := discovery.NewDiscoverer(resolver, cache, logger,
		discovery.WithRelationshipAPI(client))

	return &engine{
		cfg:         cfg,
		logger:      logger,
		client:      client,
		cache:       cache,
		resolver:    resolver,
		discoverer:  discoverer,
		synthesizer: query.NewSynthesizer(cfg.IsLocal(), logger),
		analyzer:    analyzer.New(discoverer, logger),
	}, nil
}

func (e *engine) close() {
	_ = e.logger.Sync()
}
