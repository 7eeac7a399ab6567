// Package fluxnodes provides a top-level convenience entry point for
// running Labs image generation nodes with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/fluxnodes"
//
//	runner, err := fluxnodes.New(cfg, logger)
//	art, err := runner.Run(ctx, &nodes.TextToImage{Prompt: "a red fox"}, nil, sink)
//
// This is a thin wiring layer over the labs, nodes, cache, journal and
// artifact packages; use those directly for finer control.
package fluxnodes

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/fluxnodes/artifact"
	"github.com/BaSui01/fluxnodes/cache"
	"github.com/BaSui01/fluxnodes/config"
	"github.com/BaSui01/fluxnodes/internal/metrics"
	"github.com/BaSui01/fluxnodes/journal"
	"github.com/BaSui01/fluxnodes/labs"
	"github.com/BaSui01/fluxnodes/nodes"
)

// Version of the fluxnodes module.
const Version = "0.1.0"

// New wires a ready-to-use node runner from configuration: the Labs
// client with prometheus metrics, artifact storage, and — when enabled —
// the Redis result cache and the SQLite generation journal.
func New(cfg *config.Config, logger *zap.Logger) (*nodes.Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := labs.NewClient(labs.Config{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.Key,
		Timeout: cfg.API.Timeout.Std(),
		Logger:  logger.Named("labs"),
		Metrics: metrics.NewCollector("fluxnodes", prometheus.DefaultRegisterer),
	})
	if err != nil {
		return nil, err
	}

	store, err := artifact.NewStore(cfg.Artifacts.Dir, logger.Named("artifact"))
	if err != nil {
		return nil, err
	}

	opts := []nodes.RunnerOption{nodes.WithLogger(logger.Named("runner"))}

	if cfg.Cache.Enabled {
		opts = append(opts, nodes.WithCache(cache.New(cache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL.Std(),
		}, logger.Named("cache"))))
	}

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path, logger.Named("journal"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, nodes.WithJournal(j))
	}

	return nodes.NewRunner(client, store, opts...), nil
}
