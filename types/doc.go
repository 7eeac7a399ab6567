// Package types defines shared types for the fluxnodes module, primarily
// the structured error taxonomy used by the Labs job client and the node
// runner.
//
// Errors carry a stable ErrorCode so callers can branch on failure class
// (moderation vs timeout vs transient-server escalation) without parsing
// message strings.
package types
