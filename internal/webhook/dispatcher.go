package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// queueSize is the buffer size for the event queue
	queueSize = 100

	// maxResponseBodySize limits how much of a failed response body is logged
	maxResponseBodySize = 1024

	defaultTimeout = 5 * time.Second
)

// Dispatcher delivers events to every target from a single background worker.
type Dispatcher struct {
	targets []Target
	client  *http.Client
	log     zerolog.Logger
	queue   chan Event
	done    chan struct{}

	mu     sync.RWMutex // guards closed and sends on queue
	closed bool

	// Backoff returns the wait before retry attempt+1.
	Backoff func(attempt int) time.Duration
}

// NewDispatcher creates a dispatcher; call Start to begin delivering.
func NewDispatcher(targets []Target, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		targets: targets,
		client:  &http.Client{},
		log:     log.With().Str("component", "webhook").Logger(),
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
		Backoff: func(attempt int) time.Duration {
			return time.Duration(math.Pow(2, float64(attempt))) * time.Second
		},
	}
}

// Start begins processing events from the queue
func (d *Dispatcher) Start() {
	go d.worker()
}

// Close stops accepting events and waits for queued deliveries to finish.
// It is safe to call more than once.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	return nil
}

// Dispatch queues an event without blocking; a full queue drops it.
func (d *Dispatcher) Dispatch(event Event) {
	if len(d.targets) == 0 {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- event:
		d.log.Debug().Str("event", event.Type).Str("etag", event.Data.ETag).Int("queued", len(d.queue)).Msg("event queued")
	default:
		d.log.Error().Str("event", event.Type).Str("etag", event.Data.ETag).Msg("queue full, dropping event")
	}
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for event := range d.queue {
		for _, target := range d.targets {
			d.deliverWithRetry(context.Background(), target, event)
		}
	}
}

// deliverWithRetry posts event to target, retrying non-2xx answers and
// transport errors with exponential backoff. It reports success.
func (d *Dispatcher) deliverWithRetry(ctx context.Context, target Target, event Event) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Error().Err(err).Str("url", target.URL).Msg("failed to marshal event payload")
		return false
	}

	timeout := target.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	for attempt := 0; attempt <= target.MaxRetries; attempt++ {
		start := time.Now()
		status, body, err := d.post(ctx, target, event, payload, timeout)
		duration := time.Since(start)

		if err == nil && status >= 200 && status < 300 {
			d.log.Info().Str("url", target.URL).Int("status", status).Dur("duration", duration).
				Int("attempt", attempt+1).Msg("delivery succeeded")
			return true
		}

		entry := d.log.Warn().Str("url", target.URL).Int("status", status).Str("body", body).
			Int("attempt", attempt+1).Int("max_attempts", target.MaxRetries+1)
		if err != nil {
			entry = entry.Err(err)
		}
		if attempt == target.MaxRetries {
			entry.Msg("delivery failed permanently")
			break
		}
		wait := d.Backoff(attempt)
		entry.Dur("retry_in", wait).Msg("delivery failed")
		time.Sleep(wait)
	}
	return false
}

func (d *Dispatcher) post(ctx context.Context, target Target, event Event, payload []byte, timeout time.Duration) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Licadvisor-Event", event.Type)
	req.Header.Set("X-Licadvisor-Delivery", event.ID)
	if target.Secret != "" {
		req.Header.Set("X-Licadvisor-Signature", Sign(event.ID, payload, target.Secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	var body string
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		body = string(b)
	}
	return resp.StatusCode, body, nil
}
