package labs

// Status vocabulary returned by the API. Tags are case-sensitive.
const (
	StatusReady          = "Ready"
	StatusProcessing     = "Processing"
	StatusQueued         = "Queued"
	StatusPending        = "Pending"
	StatusTaskQueued     = "Task-queued"
	StatusTaskProcessing = "Task-processing"
	StatusModerated      = "Request Moderated"
	StatusError          = "Error"
	StatusFailed         = "Failed"
)

// StatusResponse is one poll response body. Result and Details keep their
// raw map shape: field names vary across model endpoints and the resolver
// needs to report which keys were actually present.
type StatusResponse struct {
	ID      string         `json:"id,omitempty"`
	Status  string         `json:"status"`
	Result  map[string]any `json:"result,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// OutcomeKind classifies the status of one poll attempt.
type OutcomeKind int

const (
	// OutcomeInProgress: the job is still running, keep polling.
	OutcomeInProgress OutcomeKind = iota
	// OutcomeReady: terminal success, the result is available.
	OutcomeReady
	// OutcomeModerated: terminal failure, content-policy rejection.
	OutcomeModerated
	// OutcomeFailed: terminal failure reported by the upstream generator.
	OutcomeFailed
	// OutcomeUnknown: unrecognized status tag. Logged and treated as
	// in-progress so new upstream statuses don't break existing nodes.
	OutcomeUnknown
)

// ClassifyStatus maps the API status vocabulary onto an OutcomeKind.
func ClassifyStatus(status string) OutcomeKind {
	switch status {
	case StatusReady:
		return OutcomeReady
	case StatusProcessing, StatusQueued, StatusPending, StatusTaskQueued, StatusTaskProcessing:
		return OutcomeInProgress
	case StatusModerated:
		return OutcomeModerated
	case StatusError, StatusFailed:
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}

// ModerationReasons extracts the moderation reason list from the response
// details. Returns ["Unknown"] when the API gave no reasons.
func (r *StatusResponse) ModerationReasons() []string {
	if r.Details != nil {
		if raw, ok := r.Details["Moderation Reasons"].([]any); ok && len(raw) > 0 {
			reasons := make([]string, 0, len(raw))
			for _, v := range raw {
				if s, ok := v.(string); ok {
					reasons = append(reasons, s)
				}
			}
			if len(reasons) > 0 {
				return reasons
			}
		}
	}
	return []string{"Unknown"}
}

// ErrorDetail extracts the upstream error description from a failed
// response body.
func (r *StatusResponse) ErrorDetail() string {
	if r.Result != nil {
		if s, ok := r.Result["error"].(string); ok && s != "" {
			return s
		}
	}
	if r.Details != nil {
		if s, ok := r.Details["error"].(string); ok && s != "" {
			return s
		}
	}
	return "Unknown error"
}
