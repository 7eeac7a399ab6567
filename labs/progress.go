package labs

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ProgressSink receives append-only, operator-visible progress lines for
// one job: attempt-by-attempt status, diagnostics, and the final outcome.
// Every fatal error is emitted to the sink before it propagates, so the
// operator keeps a full timeline even on failure.
type ProgressSink interface {
	Emit(text string)
}

// NopSink discards progress lines.
type NopSink struct{}

// Emit implements ProgressSink.
func (NopSink) Emit(string) {}

// BufferSink accumulates progress lines in memory. Used by tests and by
// hosts that surface the timeline as a node output parameter.
type BufferSink struct {
	mu    sync.Mutex
	lines []string
}

// Emit implements ProgressSink.
func (s *BufferSink) Emit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

// Lines returns a copy of the accumulated lines.
func (s *BufferSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// String joins the accumulated lines with newlines.
func (s *BufferSink) String() string {
	return strings.Join(s.Lines(), "\n")
}

// ZapSink forwards progress lines to a zap logger at info level.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a sink backed by logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

// Emit implements ProgressSink.
func (s *ZapSink) Emit(text string) {
	s.logger.Info(text)
}
