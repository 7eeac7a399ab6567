package labs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/fluxnodes/internal/metrics"
	"github.com/BaSui01/fluxnodes/types"
)

const tracerName = "github.com/BaSui01/fluxnodes/labs"

// Config configures a Labs API client.
type Config struct {
	// BaseURL of the API. Regional endpoints exist (api.us1.bfl.ai,
	// api.eu.bfl.ai); the global endpoint is the default.
	BaseURL string `json:"base_url" yaml:"base_url"`
	// APIKey sent as the x-key header on every request.
	APIKey string `json:"api_key" yaml:"api_key"`
	// Timeout per HTTP request (not per job).
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client `json:"-" yaml:"-"`
	// Logger for debug traces and warnings. Optional.
	Logger *zap.Logger `json:"-" yaml:"-"`
	// Metrics collector. Optional; nil records nothing.
	Metrics *metrics.Collector `json:"-" yaml:"-"`
	// Limiter gates job submission client-side. Optional.
	Limiter *rate.Limiter `json:"-" yaml:"-"`
}

// DefaultConfig returns the default client configuration (API key must
// still be supplied).
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.bfl.ai",
		Timeout: 30 * time.Second,
	}
}

// Client talks to the Labs API. One Client serves any number of
// concurrent jobs; all per-job state lives in the poll session owned by
// each Poll call.
type Client struct {
	cfg     Config
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Collector
	limiter *rate.Limiter
	tracer  trace.Tracer
}

// NewClient creates a Labs API client. Fails with a CONFIG_ERROR when no
// API key is configured; a client without credentials can never submit.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, types.NewError(types.ErrConfig,
			"Labs API key not found; set LABS_API_KEY or api.key in the config file")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.bfl.ai"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		cfg:     cfg,
		client:  httpClient,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		limiter: cfg.Limiter,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// JobHandle identifies one submitted job. PollingURL, when the creation
// response provides one, overrides the default polling URL derived from
// the id. A handle lives only for the duration of one generation.
type JobHandle struct {
	ID         string
	PollingURL string
}

type submitResponse struct {
	ID         string `json:"id"`
	PollingURL string `json:"polling_url,omitempty"`
}

// Submit builds and sends the creation request for the given model
// endpoint (e.g. "flux-pro-1.1", "flux-pro-1.0-fill") and returns the
// job handle. A non-2xx response yields a REQUEST_ERROR; a 2xx response
// without a job id yields a PROTOCOL_ERROR.
func (c *Client) Submit(ctx context.Context, endpoint string, payload map[string]any) (JobHandle, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return JobHandle{}, err
		}
	}

	// Trace the request shape without ever logging raw base64 blobs.
	c.logger.Debug("submitting generation request",
		zap.String("endpoint", endpoint),
		zap.Any("payload", RedactPayload(payload)),
	)

	body, err := json.Marshal(payload)
	if err != nil {
		return JobHandle{}, types.NewError(types.ErrRequest, "failed to encode request payload").
			WithCause(err).WithEndpoint(endpoint)
	}

	url := fmt.Sprintf("%s/v1/%s", strings.TrimRight(c.cfg.BaseURL, "/"), endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return JobHandle{}, types.NewError(types.ErrRequest, "failed to build creation request").
			WithCause(err).WithEndpoint(endpoint)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return JobHandle{}, types.NewError(types.ErrRequest, "creation request failed").
			WithCause(err).WithEndpoint(endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return JobHandle{}, types.Errorf(types.ErrRequest,
			"creation request rejected: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(errBody))).
			WithHTTPStatus(resp.StatusCode).WithEndpoint(endpoint)
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return JobHandle{}, types.NewError(types.ErrProtocol, "malformed creation response").
			WithCause(err).WithEndpoint(endpoint)
	}
	if sr.ID == "" {
		return JobHandle{}, types.NewError(types.ErrProtocol, "creation response carries no job id").
			WithEndpoint(endpoint)
	}

	c.logger.Debug("job submitted",
		zap.String("endpoint", endpoint),
		zap.String("job_id", sr.ID),
		zap.Bool("has_polling_url", sr.PollingURL != ""),
	)

	return JobHandle{ID: sr.ID, PollingURL: sr.PollingURL}, nil
}

// Generate runs the full submit → poll → resolve lifecycle for one job
// and returns the resolved result. Progress lines (including every fatal
// error) are appended to sink; pass nil to discard them. On failure the
// returned Result still carries the attempt count, for bookkeeping.
func (c *Client) Generate(ctx context.Context, endpoint string, payload map[string]any, profile PollProfile, sink ProgressSink) (Result, error) {
	if sink == nil {
		sink = NopSink{}
	}
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "labs.generate",
		trace.WithAttributes(attribute.String("labs.endpoint", endpoint)))
	defer span.End()

	sink.Emit("Creating generation request...")
	handle, err := c.Submit(ctx, endpoint, payload)
	if err != nil {
		c.metrics.RecordJob(endpoint, "error")
		return Result{}, c.finish(span, sink, err)
	}
	sink.Emit("Request created with ID: " + handle.ID)
	span.SetAttributes(attribute.String("labs.job_id", handle.ID))

	sink.Emit("Waiting for generation to complete...")
	status, stats, err := c.Poll(ctx, handle, profile, sink)
	c.metrics.ObservePollAttempts(endpoint, stats.Attempts)
	if err != nil {
		c.metrics.RecordJob(endpoint, jobStatusLabel(err))
		c.metrics.ObserveJobDuration(endpoint, time.Since(start))
		// Poll already emitted the fatal line.
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{Attempts: stats.Attempts}, err
	}

	result, err := Resolve(status)
	if err != nil {
		c.metrics.RecordJob(endpoint, "error")
		c.metrics.ObserveJobDuration(endpoint, time.Since(start))
		return Result{Attempts: stats.Attempts}, c.finish(span, sink, err)
	}
	result.Attempts = stats.Attempts
	result.Duration = time.Since(start)

	c.metrics.RecordJob(endpoint, "ready")
	c.metrics.ObserveJobDuration(endpoint, result.Duration)

	if result.Seed != nil {
		sink.Emit(fmt.Sprintf("API used seed: %d", *result.Seed))
	}
	sink.Emit("Generation completed successfully! Image URL: " + result.AssetURL)

	return result, nil
}

// finish emits a fatal error to the sink and records it on the span.
func (c *Client) finish(span trace.Span, sink ProgressSink, err error) error {
	sink.Emit("Generation failed: " + err.Error())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// jobStatusLabel maps a fatal error onto its metric label.
func jobStatusLabel(err error) string {
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
