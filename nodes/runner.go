package nodes

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/fluxnodes/artifact"
	"github.com/BaSui01/fluxnodes/cache"
	"github.com/BaSui01/fluxnodes/journal"
	"github.com/BaSui01/fluxnodes/labs"
	"github.com/BaSui01/fluxnodes/types"
)

// Runner executes nodes against a Labs client: validate, check the
// result cache, generate, download, store the artifact, journal the job.
// Cache and journal are optional; a Runner without them just generates
// and stores.
type Runner struct {
	client     *labs.Client
	store      *artifact.Store
	downloader *artifact.Downloader
	cache      *cache.Cache
	journal    *journal.Journal
	logger     *zap.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCache attaches a result cache.
func WithCache(c *cache.Cache) RunnerOption {
	return func(r *Runner) { r.cache = c }
}

// WithJournal attaches a generation history journal.
func WithJournal(j *journal.Journal) RunnerOption {
	return func(r *Runner) { r.journal = j }
}

// WithLogger sets the runner logger.
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithDownloader overrides the default artifact downloader.
func WithDownloader(d *artifact.Downloader) RunnerOption {
	return func(r *Runner) { r.downloader = d }
}

// NewRunner creates a runner for client storing artifacts in store.
func NewRunner(client *labs.Client, store *artifact.Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		client: client,
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.downloader == nil {
		r.downloader = artifact.NewDownloader(r.logger)
	}
	return r
}

// Run executes one node and returns the stored artifact. conn marks
// parameters fed by graph connections; pass nil when running outside an
// engine. Progress lines go to sink (nil discards them).
func (r *Runner) Run(ctx context.Context, node Node, conn Connected, sink labs.ProgressSink) (*artifact.Artifact, error) {
	if sink == nil {
		sink = labs.NopSink{}
	}
	start := time.Now()

	if err := node.Validate(conn); err != nil {
		return nil, err
	}
	payload, err := node.Payload()
	if err != nil {
		return nil, err
	}

	endpoint := node.Endpoint()
	key := cache.Key(endpoint, payload)

	if r.cache != nil {
		if entry, ok := r.cache.Lookup(ctx, key); ok {
			sink.Emit("Result cache hit, reusing previous generation")
			if art, err := r.materialize(ctx, node, labs.Result{AssetURL: entry.AssetURL, Seed: entry.Seed}, payload, sink); err == nil {
				return art, nil
			}
			// Cached asset URL likely expired; fall through to a fresh run.
			sink.Emit("Cached asset no longer available, regenerating...")
		}
	}

	result, err := r.client.Generate(ctx, endpoint, payload, node.Profile(), sink)
	if err != nil {
		r.record(ctx, &journal.Record{
			Endpoint:    endpoint,
			PayloadHash: key,
			Status:      terminalStatus(err),
			Attempts:    result.Attempts,
			DurationMS:  time.Since(start).Milliseconds(),
			ErrorCode:   string(types.GetErrorCode(err)),
		})
		return nil, err
	}

	if r.cache != nil {
		r.cache.Store(ctx, key, cache.Entry{AssetURL: result.AssetURL, Seed: result.Seed})
	}

	art, err := r.materialize(ctx, node, result, payload, sink)
	if err != nil {
		r.record(ctx, &journal.Record{
			Endpoint:    endpoint,
			PayloadHash: key,
			Status:      "error",
			AssetURL:    result.AssetURL,
			Seed:        result.Seed,
			Attempts:    result.Attempts,
			DurationMS:  time.Since(start).Milliseconds(),
			ErrorCode:   string(types.GetErrorCode(err)),
		})
		return nil, err
	}

	r.record(ctx, &journal.Record{
		Endpoint:    endpoint,
		PayloadHash: key,
		Status:      "ready",
		AssetURL:    result.AssetURL,
		Seed:        result.Seed,
		Attempts:    result.Attempts,
		DurationMS:  time.Since(start).Milliseconds(),
	})
	return art, nil
}

// RunAll executes several nodes concurrently, one goroutine per job.
// Jobs share nothing but the client; the first failure cancels the rest.
func (r *Runner) RunAll(ctx context.Context, nodeList []Node, sink labs.ProgressSink) ([]*artifact.Artifact, error) {
	artifacts := make([]*artifact.Artifact, len(nodeList))
	g, ctx := errgroup.WithContext(ctx)
	for i, n := range nodeList {
		i, n := i, n
		g.Go(func() error {
			art, err := r.Run(ctx, n, nil, sink)
			if err != nil {
				return err
			}
			artifacts[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// materialize downloads the asset and stores it as an artifact.
func (r *Runner) materialize(ctx context.Context, node Node, result labs.Result, payload map[string]any, sink labs.ProgressSink) (*artifact.Artifact, error) {
	sink.Emit("Downloading generated image...")
	data, err := r.downloader.Fetch(ctx, result.AssetURL)
	if err != nil {
		return nil, err
	}

	format, _ := payload["output_format"].(string)
	art, err := r.store.Save(data, artifact.Meta{
		Model:  node.Endpoint(),
		Seed:   result.Seed,
		Format: format,
	})
	if err != nil {
		return nil, err
	}
	sink.Emit("Image saved: " + art.Path)
	return art, nil
}

func (r *Runner) record(ctx context.Context, rec *journal.Record) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Append(ctx, rec); err != nil {
		r.logger.Warn("journal append failed", zap.Error(err))
	}
}

// terminalStatus maps a fatal error onto the journal status vocabulary.
func terminalStatus(err error) string {
	switch types.GetErrorCode(err) {
	case types.ErrModeration:
		return "moderated"
	case types.ErrGeneration:
		return "failed"
	case types.ErrTimeout:
		return "timeout"
	default:
		return "error"
	}
}
