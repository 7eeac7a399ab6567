package labs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/fluxnodes/types"
)

// maxConsecutive5xx is the escalation threshold: this many 500 responses
// in a row indicate a persistent upstream outage, not load shedding.
const maxConsecutive5xx = 10

// PollProfile configures the poll loop. The zero value is usable;
// unset fields fall back to StandardProfile values.
type PollProfile struct {
	// Backoff computes the sleep before each attempt.
	Backoff BackoffPolicy
	// MaxAttempts is the attempt budget. The only timeout is
	// attempt-based; wall clock is bounded by MaxAttempts x worst-case
	// interval.
	MaxAttempts int
	// RateLimitDelay is the extra sleep after a 429, on top of the
	// regular backoff.
	RateLimitDelay time.Duration
	// StuckPendingAfter is the consecutive-Pending count that triggers
	// the stuck-pending diagnostic. Non-terminal.
	StuckPendingAfter int
}

// StandardProfile suits generation endpoints: exponential backoff with
// jitter, 120 attempts (roughly four minutes at the cap).
func StandardProfile() PollProfile {
	return PollProfile{
		Backoff: ExponentialBackoff{
			Base:   1500 * time.Millisecond,
			Cap:    10 * time.Second,
			Jitter: 500 * time.Millisecond,
		},
		MaxAttempts:       120,
		RateLimitDelay:    5 * time.Second,
		StuckPendingAfter: 60,
	}
}

// LongRunningProfile suits editing/inpainting endpoints: short fixed
// interval with a large budget, keeping individual sleeps small so a
// cooperative host engine is never blocked for long.
func LongRunningProfile() PollProfile {
	return PollProfile{
		Backoff:           FixedBackoff{Interval: 500 * time.Millisecond},
		MaxAttempts:       900,
		RateLimitDelay:    5 * time.Second,
		StuckPendingAfter: 60,
	}
}

func (p PollProfile) withDefaults() PollProfile {
	std := StandardProfile()
	if p.Backoff == nil {
		p.Backoff = std.Backoff
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = std.MaxAttempts
	}
	if p.RateLimitDelay <= 0 {
		p.RateLimitDelay = std.RateLimitDelay
	}
	if p.StuckPendingAfter <= 0 {
		p.StuckPendingAfter = std.StuckPendingAfter
	}
	return p
}

// PollStats reports how one poll session went. Returned alongside both
// success and failure so callers can journal attempt counts either way.
type PollStats struct {
	Attempts      int
	PendingStreak int
	LastStatus    string
}

// pollSession is the mutable state threaded through one poll loop. Owned
// exclusively by Poll for the lifetime of one job.
type pollSession struct {
	attempt        int
	pendingStreak  int
	consecutive5xx int
	lastStatus     string
}

func (s *pollSession) stats() PollStats {
	return PollStats{Attempts: s.attempt, PendingStreak: s.pendingStreak, LastStatus: s.lastStatus}
}

// Poll drives the job status state machine until a terminal status, a
// fatal error, or budget exhaustion. Transient conditions (500 below the
// escalation threshold, 429, network hiccups) are absorbed here and never
// surface individually.
//
// Every fatal error is appended to sink before it is returned.
func (c *Client) Poll(ctx context.Context, handle JobHandle, profile PollProfile, sink ProgressSink) (*StatusResponse, PollStats, error) {
	if sink == nil {
		sink = NopSink{}
	}
	profile = profile.withDefaults()

	pollURL := handle.PollingURL
	if pollURL == "" {
		pollURL = fmt.Sprintf("%s/v1/get_result?id=%s",
			strings.TrimRight(c.cfg.BaseURL, "/"), url.QueryEscape(handle.ID))
	}
	sink.Emit("Polling URL: " + pollURL)

	var s pollSession
	for s.attempt < profile.MaxAttempts {
		if err := sleep(ctx, profile.Backoff.Delay(s.attempt)); err != nil {
			return nil, s.stats(), err
		}
		s.attempt++

		resp, err := c.get(ctx, pollURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, s.stats(), ctx.Err()
			}
			// Transport errors are transient; the attempt budget bounds them.
			c.metrics.RecordTransient("network")
			sink.Emit(fmt.Sprintf("Request error on attempt %d: %v", s.attempt, err))
			continue
		}

		switch {
		case resp.StatusCode == http.StatusInternalServerError:
			drain(resp)
			s.consecutive5xx++
			c.metrics.RecordTransient("server_error")
			sink.Emit(fmt.Sprintf("Attempt %d: server error (500) - #%d consecutive", s.attempt, s.consecutive5xx))
			if s.consecutive5xx >= maxConsecutive5xx {
				return nil, s.stats(), c.fail(sink, types.Errorf(types.ErrPersistentServer,
					"API appears to have persistent server issues (%d consecutive 500 errors); try a different model or retry later",
					s.consecutive5xx).WithHTTPStatus(http.StatusInternalServerError))
			}
			continue

		case resp.StatusCode == http.StatusTooManyRequests:
			drain(resp)
			// Does not count toward the 5xx escalation.
			c.metrics.RecordTransient("rate_limited")
			sink.Emit(fmt.Sprintf("Attempt %d: rate limited, waiting longer...", s.attempt))
			if err := sleep(ctx, profile.RateLimitDelay); err != nil {
				return nil, s.stats(), err
			}
			continue

		case resp.StatusCode != http.StatusOK:
			errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, s.stats(), c.fail(sink, types.Errorf(types.ErrRequest,
				"poll request rejected: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(errBody))).
				WithHTTPStatus(resp.StatusCode))
		}

		s.consecutive5xx = 0

		var status StatusResponse
		err = json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if err != nil {
			return nil, s.stats(), c.fail(sink, types.NewError(types.ErrProtocol,
				"malformed poll response").WithCause(err))
		}

		s.lastStatus = status.Status
		if status.Status == StatusPending {
			s.pendingStreak++
		} else {
			s.pendingStreak = 0
		}

		sink.Emit(fmt.Sprintf("Attempt %d/%d: %s", s.attempt, profile.MaxAttempts, status.Status))

		if s.pendingStreak > profile.StuckPendingAfter {
			// Diagnostic only; long Pending streaks usually mean service
			// overload or a safety filter holding the request.
			sink.Emit(fmt.Sprintf(
				"Request has been stuck in 'Pending' for %d consecutive attempts; the service may be overloaded or safety filters may be holding the request",
				s.pendingStreak))
			c.logger.Warn("job stuck pending",
				zap.String("job_id", handle.ID),
				zap.Int("pending_streak", s.pendingStreak),
				zap.Int("attempt", s.attempt),
			)
		}

		switch ClassifyStatus(status.Status) {
		case OutcomeReady:
			return &status, s.stats(), nil

		case OutcomeInProgress:
			continue

		case OutcomeModerated:
			reasons := status.ModerationReasons()
			return nil, s.stats(), c.fail(sink, types.Errorf(types.ErrModeration,
				"request blocked by content moderation: %s; try increasing safety_tolerance or rewording the prompt",
				strings.Join(reasons, ", ")))

		case OutcomeFailed:
			return nil, s.stats(), c.fail(sink, types.Errorf(types.ErrGeneration,
				"generation failed with status %q: %s", status.Status, status.ErrorDetail()))

		default:
			c.logger.Warn("unknown job status, continuing to poll",
				zap.String("job_id", handle.ID),
				zap.String("status", status.Status),
			)
			sink.Emit(fmt.Sprintf("Unknown status %q, continuing to poll", status.Status))
			continue
		}
	}

	// Budget exhausted. A long final Pending streak gets its own wording:
	// it points at safety filters or overload rather than a slow render.
	if s.pendingStreak > 50 {
		return nil, s.stats(), c.fail(sink, types.Errorf(types.ErrTimeout,
			"request stuck in 'Pending' status for %d attempts; this usually indicates service issues or content safety filters",
			s.pendingStreak))
	}
	return nil, s.stats(), c.fail(sink, types.Errorf(types.ErrTimeout,
		"generation timed out after %d attempts; last status: %q", profile.MaxAttempts, s.lastStatus))
}

// fail emits a fatal error to the sink and logs it before returning it.
func (c *Client) fail(sink ProgressSink, err *types.Error) error {
	sink.Emit("Generation failed: " + err.Error())
	c.logger.Warn("job failed", zap.String("code", string(err.Code)), zap.Error(err))
	return err
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-key", c.cfg.APIKey)
	return c.client.Do(req)
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
	resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
