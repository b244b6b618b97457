package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TimurManjosov/licadvisor/internal/rules"
	"github.com/cespare/xxhash/v2"
)

// Snapshot is an immutable view of the active catalog. Readers take the
// pointer once per request and never observe a half-applied reload.
type Snapshot struct {
	ETag     string       `json:"etag"`
	Rules    []rules.Rule `json:"rules"`
	Source   string       `json:"source"`
	LoadedAt time.Time    `json:"loadedAt"`
}

// NewSnapshot wraps rules and computes their ETag.
func NewSnapshot(list []rules.Rule, source string) *Snapshot {
	if list == nil {
		list = []rules.Rule{}
	}
	return &Snapshot{
		ETag:     ComputeETag(list),
		Rules:    list,
		Source:   source,
		LoadedAt: time.Now().UTC(),
	}
}

// ComputeETag returns a weak ETag over the JSON form of the rules.
func ComputeETag(list []rules.Rule) string {
	blob, _ := json.Marshal(list)
	return fmt.Sprintf(`W/"%016x"`, xxhash.Sum64(blob))
}

// Holder owns the active snapshot. Load is lock-free; Reload calls are
// serialised so a slow source cannot interleave two swaps.
type Holder struct {
	source  Source
	current atomic.Pointer[Snapshot]
	reload  sync.Mutex

	subMu sync.Mutex
	subs  map[chan string]struct{}
}

// NewHolder loads the source once and fails if that load fails.
func NewHolder(ctx context.Context, src Source) (*Holder, error) {
	h := &Holder{source: src, subs: make(map[chan string]struct{})}
	list, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	h.current.Store(NewSnapshot(list, src.Name()))
	return h, nil
}

// Load returns the active snapshot.
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Reload fetches the source again and swaps the snapshot. On error the
// previous snapshot stays active. Subscribers hear about changed ETags only.
func (h *Holder) Reload(ctx context.Context) (*Snapshot, error) {
	h.reload.Lock()
	defer h.reload.Unlock()

	list, err := h.source.Load(ctx)
	if err != nil {
		return h.Load(), err
	}

	next := NewSnapshot(list, h.source.Name())
	prev := h.current.Swap(next)
	if prev == nil || prev.ETag != next.ETag {
		h.publish(next.ETag)
	}
	return next, nil
}

// Subscribe registers a listener for new ETags and returns its channel and an
// unsubscribe func. Slow listeners miss intermediate updates.
func (h *Holder) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 1)
	h.subMu.Lock()
	h.subs[ch] = struct{}{}
	h.subMu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.subMu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.subMu.Unlock()
		})
	}
	return ch, unsub
}

func (h *Holder) publish(etag string) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- etag:
		default:
		}
	}
}
