// Package audit records admin actions (catalog reloads, rejected admin
// credentials) asynchronously so a slow sink never blocks a request.
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Actions
const (
	ActionCatalogReload = "catalog_reload"
	ActionAuthFailed    = "auth_failed"
)

// Statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Clock interface for testable time operations
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Source represents request metadata
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// Event is one audited admin action.
type Event struct {
	ID           string    `json:"id"`
	OccurredAt   time.Time `json:"occurred_at"`
	RequestID    string    `json:"request_id,omitempty"`
	Source       Source    `json:"source"`
	Action       string    `json:"action"`
	Resource     string    `json:"resource"`
	Status       string    `json:"status"`
	BeforeETag   string    `json:"before_etag,omitempty"`
	AfterETag    string    `json:"after_etag,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Sink persists audit events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Service queues events and writes them from a single background worker.
type Service struct {
	sink    Sink
	clock   Clock
	log     zerolog.Logger
	queue   chan Event
	stopCh  chan struct{}
	done    sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Int64
}

// NewService starts the worker. A nil clock uses SystemClock.
func NewService(sink Sink, clock Clock, queueSize int, log zerolog.Logger) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &Service{
		sink:   sink,
		clock:  clock,
		log:    log,
		queue:  make(chan Event, queueSize),
		stopCh: make(chan struct{}),
	}
	s.done.Add(1)
	go s.worker()
	return s
}

func (s *Service) worker() {
	defer s.done.Done()
	for {
		select {
		case event := <-s.queue:
			s.write(event)
		case <-s.stopCh:
			// drain
			for {
				select {
				case event := <-s.queue:
					s.write(event)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) write(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sink.Write(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("action", event.Action).Msg("audit: failed to write event")
	}
}

// Log stamps and queues event. When the queue is full the event is dropped.
func (s *Service) Log(event Event) {
	if s.closed.Load() {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock.Now()
	}

	select {
	case s.queue <- event:
	default:
		s.dropped.Add(1)
		s.log.Warn().Str("action", event.Action).Msg("audit: queue full, dropping event")
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (s *Service) Dropped() int64 { return s.dropped.Load() }

// Close stops accepting events, drains the queue and waits for the worker.
// It is safe to call more than once.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.stopCh)
	s.done.Wait()
	return nil
}
