package tracker

import (
	"sync"

	"github.com/geolink/edge/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	liveViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_live_viewers",
		Help: "Currently connected live click viewers",
	})

	liveDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_events_dropped_total",
		Help: "Click events dropped because a viewer was too slow",
	})
)

// Registry fans click events out to connected viewers, one hub per
// account. Publish holds the account's lock for the whole fan-out, so
// every viewer of an account observes events in the same order. Hubs for
// accounts without viewers are removed.
type Registry struct {
	mu       sync.Mutex
	accounts map[string]*hub
	buffer   int
}

type hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan events.LinkClickMessage
}

func NewRegistry(subscriberBuffer int) *Registry {
	if subscriberBuffer <= 0 {
		subscriberBuffer = 16
	}
	return &Registry{
		accounts: make(map[string]*hub),
		buffer:   subscriberBuffer,
	}
}

// Subscribe registers a viewer for accountID. The returned channel is
// closed by cancel; cancel is idempotent and must be called when the
// viewer disconnects.
func (r *Registry) Subscribe(accountID string) (<-chan events.LinkClickMessage, func()) {
	ch := make(chan events.LinkClickMessage, r.buffer)

	r.mu.Lock()
	h, ok := r.accounts[accountID]
	if !ok {
		h = &hub{subs: make(map[uint64]chan events.LinkClickMessage)}
		r.accounts[accountID] = h
	}
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()
	r.mu.Unlock()

	liveViewers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			h.mu.Lock()
			delete(h.subs, id)
			if len(h.subs) == 0 && r.accounts[accountID] == h {
				delete(r.accounts, accountID)
			}
			h.mu.Unlock()
			r.mu.Unlock()
			close(ch)
			liveViewers.Dec()
		})
	}

	return ch, cancel
}

// Publish delivers msg to every viewer currently subscribed for
// accountID. Viewers that cannot keep up lose the event rather than
// stalling delivery to the rest.
func (r *Registry) Publish(accountID string, msg events.LinkClickMessage) {
	r.mu.Lock()
	h, ok := r.accounts[accountID]
	r.mu.Unlock()
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			liveDropped.Inc()
		}
	}
}

// Viewers reports the number of connected viewers for accountID.
func (r *Registry) Viewers(accountID string) int {
	r.mu.Lock()
	h, ok := r.accounts[accountID]
	r.mu.Unlock()
	if !ok {
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
