package audit

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogSink writes each event as one structured log line.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Write(_ context.Context, e Event) error {
	entry := s.log.Info()
	if e.Status == StatusFailure {
		entry = s.log.Warn()
	}
	entry.
		Str("audit_id", e.ID).
		Time("occurred_at", e.OccurredAt).
		Str("request_id", e.RequestID).
		Str("ip", e.Source.IPAddress).
		Str("user_agent", e.Source.UserAgent).
		Str("action", e.Action).
		Str("resource", e.Resource).
		Str("status", e.Status).
		Str("before_etag", e.BeforeETag).
		Str("after_etag", e.AfterETag).
		Str("error", e.ErrorMessage).
		Msg("audit")
	return nil
}

// MemorySink keeps events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (m *MemorySink) Write(_ context.Context, e Event) error {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
