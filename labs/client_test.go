package labs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/fluxnodes/types"
)

// pollScript serves a submit response and then a fixed sequence of poll
// responses, repeating the last one if polled past the end.
type pollScript struct {
	mu       sync.Mutex
	submit   func(w http.ResponseWriter, r *http.Request)
	statuses []scripted
	polls    int
}

type scripted struct {
	code int
	body string
}

func (s *pollScript) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			s.submit(w, r)
			return
		}
		s.mu.Lock()
		i := s.polls
		s.polls++
		s.mu.Unlock()
		if i >= len(s.statuses) {
			i = len(s.statuses) - 1
		}
		resp := s.statuses[i]
		w.WriteHeader(resp.code)
		w.Write([]byte(resp.body)) //nolint:errcheck
	})
}

func (s *pollScript) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func submitOK(id string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": id}) //nolint:errcheck
	}
}

func fastProfile(maxAttempts int) PollProfile {
	return PollProfile{
		Backoff:           FixedBackoff{Interval: time.Millisecond},
		MaxAttempts:       maxAttempts,
		RateLimitDelay:    time.Millisecond,
		StuckPendingAfter: 60,
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: baseURL, APIKey: "test-key", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "https://api.bfl.ai"})
	require.Error(t, err)
	assert.Equal(t, types.ErrConfig, types.GetErrorCode(err))
}

func TestSubmit_Success(t *testing.T) {
	var gotPath, gotKey, gotAccept string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-key")
		gotAccept = r.Header.Get("accept")
		json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":          "abc123",
			"polling_url": "https://poll.example/abc123",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	handle, err := c.Submit(context.Background(), "flux-pro-1.1", map[string]any{
		"prompt": "a lighthouse at dusk",
		"width":  1024,
		"height": 768,
	})

	require.NoError(t, err)
	assert.Equal(t, "abc123", handle.ID)
	assert.Equal(t, "https://poll.example/abc123", handle.PollingURL)
	assert.Equal(t, "/v1/flux-pro-1.1", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "a lighthouse at dusk", gotBody["prompt"])
}

func TestSubmit_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid prompt"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Submit(context.Background(), "flux-pro-1.1", map[string]any{"prompt": "x"})

	require.Error(t, err)
	assert.Equal(t, types.ErrRequest, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "invalid prompt")
}

func TestSubmit_MissingJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "Queued"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Submit(context.Background(), "flux-pro-1.1", map[string]any{"prompt": "x"})

	require.Error(t, err)
	assert.Equal(t, types.ErrProtocol, types.GetErrorCode(err))
}

func TestSubmit_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>")) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Submit(context.Background(), "flux-pro-1.1", map[string]any{"prompt": "x"})

	require.Error(t, err)
	assert.Equal(t, types.ErrProtocol, types.GetErrorCode(err))
}

func TestSubmit_DebugTraceRedactsBlobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(submitOK("abc123")))
	defer srv.Close()

	core, logs := observer.New(zap.DebugLevel)
	c, err := NewClient(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Logger:  zap.New(core),
	})
	require.NoError(t, err)

	blob := strings.Repeat("QUJDRA==", 512) // 4096 chars
	_, err = c.Submit(context.Background(), "flux-kontext-pro", map[string]any{
		"prompt":      "replace the sky",
		"input_image": blob,
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("submitting generation request").All()
	require.Len(t, entries, 1)
	payload, ok := entries[0].ContextMap()["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "<base64_input_image_4096_chars>", payload["input_image"])
	assert.Equal(t, "replace the sky", payload["prompt"])
}

func TestGenerate_EndToEnd(t *testing.T) {
	// The canonical happy path: submit, Pending x2, Ready with seed.
	script := &pollScript{
		submit: submitOK("abc123"),
		statuses: []scripted{
			{200, `{"status":"Pending"}`},
			{200, `{"status":"Pending"}`},
			{200, `{"status":"Ready","result":{"sample":"https://x/img.png","seed":42}}`},
		},
	}
	srv := httptest.NewServer(script.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	sink := &BufferSink{}
	result, err := c.Generate(context.Background(), "flux-pro-1.1",
		map[string]any{"prompt": "a red fox"}, fastProfile(120), sink)

	require.NoError(t, err)
	assert.Equal(t, "https://x/img.png", result.AssetURL)
	require.NotNil(t, result.Seed)
	assert.Equal(t, int64(42), *result.Seed)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, script.pollCount())

	timeline := sink.String()
	assert.Contains(t, timeline, "Request created with ID: abc123")
	assert.Contains(t, timeline, "API used seed: 42")
	assert.Contains(t, timeline, "Generation completed successfully!")
}

func TestGenerate_SubmitFailureOnSink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	sink := &BufferSink{}
	_, err := c.Generate(context.Background(), "flux-pro-1.1",
		map[string]any{"prompt": "x"}, fastProfile(5), sink)

	require.Error(t, err)
	assert.Equal(t, types.ErrRequest, types.GetErrorCode(err))
	// Fatal errors land on the progress sink before propagating.
	assert.Contains(t, sink.String(), "Generation failed:")
}

func TestGenerate_MissingResult(t *testing.T) {
	script := &pollScript{
		submit: submitOK("abc123"),
		statuses: []scripted{
			{200, `{"status":"Ready","result":{"seed":7}}`},
		},
	}
	srv := httptest.NewServer(script.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	sink := &BufferSink{}
	_, err := c.Generate(context.Background(), "flux-pro-1.1",
		map[string]any{"prompt": "x"}, fastProfile(5), sink)

	require.Error(t, err)
	assert.Equal(t, types.ErrMissingResult, types.GetErrorCode(err))
	assert.Contains(t, sink.String(), "Generation failed:")
}
