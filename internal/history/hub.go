package history

import (
	"sync"

	"filescan/pkg/domain"
)

// subscriberBuffer is the per-listener event buffer. A listener that falls
// further behind than this loses events instead of blocking writers.
const subscriberBuffer = 16

// hub fans history change events out to subscribers.
type hub struct {
	mu   sync.Mutex
	subs map[chan domain.HistoryEvent]struct{}
}

func newHub() *hub {
	return &hub{
		subs: make(map[chan domain.HistoryEvent]struct{}),
	}
}

func (h *hub) subscribe() (<-chan domain.HistoryEvent, func()) {
	ch := make(chan domain.HistoryEvent, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

func (h *hub) broadcast(event domain.HistoryEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		// non-blocking send, drop for saturated listeners
		select {
		case ch <- event:
		default:
		}
	}
}
