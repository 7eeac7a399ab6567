package labs

import "fmt"

// redactThreshold: string values at least this long are assumed to be
// base64 image payloads. They are never logged verbatim.
const redactThreshold = 256

// RedactPayload returns a copy of payload safe for debug logging. Long
// string values (base64 images, masks) are replaced by a placeholder that
// preserves the original character count, so the request shape stays
// inspectable without leaking pixels or blowing up log volume.
func RedactPayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if s, ok := v.(string); ok && len(s) >= redactThreshold {
			out[k] = fmt.Sprintf("<base64_%s_%d_chars>", k, len(s))
			continue
		}
		out[k] = v
	}
	return out
}
