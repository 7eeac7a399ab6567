package labs

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/BaSui01/fluxnodes/types"
)

// resultFields are the known asset URL field names, in priority order.
// The primary name is "sample"; some endpoints have shipped "url" or
// "image_url" instead.
var resultFields = []string{"sample", "url", "image_url"}

// Result is the resolved outcome of one successful job.
type Result struct {
	// AssetURL is the signed, short-lived URL of the generated image.
	// Download promptly; signed URLs expire within minutes.
	AssetURL string
	// Seed echoed back by the API, when present. Nil when the API did
	// not report one.
	Seed *int64
	// Attempts consumed by the poll session.
	Attempts int
	// Duration of the whole submit-to-resolve lifecycle.
	Duration time.Duration
	// Raw terminal response, for callers that need extra fields.
	Raw *StatusResponse
}

// Resolve extracts the asset URL and echo-back seed from a terminal
// response body. Fails with MISSING_RESULT when no known field carries a
// URL; the message enumerates the keys actually seen so schema drift is
// diagnosable from the error alone. Seed extraction is best-effort.
func Resolve(resp *StatusResponse) (Result, error) {
	if resp == nil || len(resp.Result) == 0 {
		return Result{}, types.NewError(types.ErrMissingResult,
			"terminal response carries no result object")
	}

	for _, field := range resultFields {
		u, ok := resp.Result[field].(string)
		if !ok || u == "" {
			continue
		}
		result := Result{AssetURL: u, Raw: resp}
		if seed, ok := seedValue(resp.Result["seed"]); ok {
			result.Seed = &seed
		}
		return result, nil
	}

	keys := make([]string, 0, len(resp.Result))
	for k := range resp.Result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Result{}, types.Errorf(types.ErrMissingResult,
		"no image URL found in result; available keys: %v", keys)
}

// seedValue normalizes the numeric shapes a JSON seed can decode into.
func seedValue(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
