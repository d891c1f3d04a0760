// Package broadcast distributes the active partner selection. Consumers
// subscribe once and are told synchronously whenever the selection
// moves, whether by a local call or by another process observed through
// the store watcher.
package broadcast

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Ducpm1301/ga-webcs/internal/model"
	"github.com/Ducpm1301/ga-webcs/internal/store"
)

// Hub is the single fan-out point for partner selection changes.
// Persisting and notifying are one operation: a subscriber never sees a
// selection the store does not already hold.
type Hub struct {
	store store.Store

	mu      sync.Mutex
	subs    map[int]func(partnerID string)
	next    int
	current string
}

// NewHub creates a hub backed by the given store.
func NewHub(s store.Store) *Hub {
	return &Hub{store: s, subs: make(map[int]func(string))}
}

// Select persists the new selection and then notifies every subscriber.
// If the write fails nobody is notified and the previous selection
// stands. Selecting the current partner again is a no-op.
func (h *Hub) Select(ctx context.Context, partnerID string) error {
	h.mu.Lock()
	if partnerID == h.current {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	if err := h.store.SetSelectedPartner(ctx, partnerID); err != nil {
		return eris.Wrap(err, "broadcast: persist selection")
	}
	h.apply(partnerID)
	zap.L().Info("partner selected", zap.String("partner_id", partnerID))
	return nil
}

// Apply updates the in-memory selection and notifies subscribers
// without writing to the store. The watcher uses it to replay a
// selection some other process already persisted.
func (h *Hub) Apply(partnerID string) {
	h.mu.Lock()
	same := partnerID == h.current
	h.mu.Unlock()
	if same {
		return
	}
	h.apply(partnerID)
}

func (h *Hub) apply(partnerID string) {
	h.mu.Lock()
	h.current = partnerID
	subs := make([]func(string), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	// Callbacks run outside the lock so a subscriber may call back into
	// the hub.
	for _, fn := range subs {
		fn(partnerID)
	}
}

// Subscribe registers a selection callback. The returned function
// cancels the subscription.
func (h *Hub) Subscribe(fn func(partnerID string)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Selected returns the current partner ID, empty when none is chosen.
func (h *Hub) Selected() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// EnsureDefault selects the first partner when nothing is selected yet,
// so a fresh login lands on a working dashboard instead of an empty
// one. A selection restored from the store is left alone.
func (h *Hub) EnsureDefault(ctx context.Context, partners []model.Partner) error {
	if len(partners) == 0 {
		return nil
	}
	h.mu.Lock()
	hasCurrent := h.current != ""
	h.mu.Unlock()
	if hasCurrent {
		return nil
	}

	persisted, err := h.store.SelectedPartner(ctx)
	if err != nil {
		return eris.Wrap(err, "broadcast: read persisted selection")
	}
	if persisted != "" {
		h.Apply(persisted)
		return nil
	}
	return h.Select(ctx, partners[0].ID)
}

// Reset drops the in-memory selection without touching the store. The
// session manager calls it after Clear has already removed the
// persisted value.
func (h *Hub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = ""
}
