package labs

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRedactPayload(t *testing.T) {
	blob := strings.Repeat("iVBORw0KGgo=", 100) // 1200 chars, stands in for base64 pixels
	payload := map[string]any{
		"prompt":           "a red fox in the snow",
		"input_image":      blob,
		"safety_tolerance": 2,
		"output_format":    "jpeg",
	}

	redacted := RedactPayload(payload)

	assert.Equal(t, fmt.Sprintf("<base64_input_image_%d_chars>", len(blob)), redacted["input_image"])
	assert.Equal(t, "a red fox in the snow", redacted["prompt"])
	assert.Equal(t, 2, redacted["safety_tolerance"])

	// Original payload is untouched.
	assert.Equal(t, blob, payload["input_image"])
}

func TestRedactPayload_ShortStringsKept(t *testing.T) {
	payload := map[string]any{"aspect_ratio": "16:9"}
	assert.Equal(t, "16:9", RedactPayload(payload)["aspect_ratio"])
}

func TestRedactPayload_NeverLeaksLongValues(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[a-z_]{1,20}`).Draw(t, "key")
		n := rapid.IntRange(redactThreshold, 1<<16).Draw(t, "n")
		blob := strings.Repeat("A", n)

		redacted := RedactPayload(map[string]any{key: blob})

		got, ok := redacted[key].(string)
		if !ok {
			t.Fatalf("redacted value for %q is not a string", key)
		}
		if strings.Contains(got, "AAAA") {
			t.Fatalf("raw blob leaked into trace: %q", got[:32])
		}
		// The placeholder must preserve the real field length.
		want := fmt.Sprintf("<base64_%s_%d_chars>", key, n)
		if got != want {
			t.Fatalf("placeholder %q, want %q", got, want)
		}
	})
}
