package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ducpm1301/ga-webcs/internal/model"
)

// EventKind classifies a detected change in the shared session state.
type EventKind string

const (
	// EventTokenCleared fires when another process logged out.
	EventTokenCleared EventKind = "token_cleared"
	// EventTokenChanged fires when another process logged in or refreshed.
	EventTokenChanged EventKind = "token_changed"
	// EventPartnersChanged fires when the partner list was rewritten.
	EventPartnersChanged EventKind = "partners_changed"
	// EventSelectionChanged fires when the selected partner moved.
	EventSelectionChanged EventKind = "selection_changed"
)

// Event is one observed session change.
type Event struct {
	Kind            EventKind
	Token           string
	Partners        []model.Partner
	SelectedPartner string
}

type sessionSnapshot struct {
	token    string
	partners []model.Partner
	selected string
}

// Watcher polls the store revision and notifies subscribers when the
// session state written by any process changes. This is how a logout in
// one process forces every other process out.
type Watcher struct {
	store    Store
	interval time.Duration

	mu   sync.Mutex
	subs map[int]func(Event)
	next int
	last sessionSnapshot
	rev  int64
}

// NewWatcher creates a watcher polling at the given interval.
func NewWatcher(s Store, interval time.Duration) *Watcher {
	return &Watcher{
		store:    s,
		interval: interval,
		subs:     make(map[int]func(Event)),
	}
}

// Subscribe registers a callback for session events. The returned
// function cancels the subscription.
func (w *Watcher) Subscribe(fn func(Event)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.next
	w.next++
	w.subs[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

// Run polls until the context is cancelled. The first poll primes the
// baseline without emitting events.
func (w *Watcher) Run(ctx context.Context) error {
	rev, snap, err := w.read(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.rev = rev
	w.last = snap
	w.mu.Unlock()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				zap.L().Warn("session watch poll failed", zap.Error(err))
			}
		}
	}
}

// Poll runs a single poll cycle. Exposed for callers that drive the
// watcher on their own schedule.
func (w *Watcher) Poll(ctx context.Context) error {
	return w.poll(ctx)
}

func (w *Watcher) poll(ctx context.Context) error {
	rev, err := w.store.Revision(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	unchanged := rev == w.rev
	w.mu.Unlock()
	if unchanged {
		return nil
	}

	_, snap, err := w.read(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	prev := w.last
	w.last = snap
	w.rev = rev
	subs := make([]func(Event), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	for _, ev := range diff(prev, snap) {
		zap.L().Debug("session change detected", zap.String("kind", string(ev.Kind)))
		for _, fn := range subs {
			fn(ev)
		}
	}
	return nil
}

func (w *Watcher) read(ctx context.Context) (int64, sessionSnapshot, error) {
	rev, err := w.store.Revision(ctx)
	if err != nil {
		return 0, sessionSnapshot{}, err
	}
	token, err := w.store.Token(ctx)
	if err != nil {
		return 0, sessionSnapshot{}, err
	}
	partners, err := w.store.Partners(ctx)
	if err != nil {
		return 0, sessionSnapshot{}, err
	}
	selected, err := w.store.SelectedPartner(ctx)
	if err != nil {
		return 0, sessionSnapshot{}, err
	}
	return rev, sessionSnapshot{token: token, partners: partners, selected: selected}, nil
}

func diff(prev, cur sessionSnapshot) []Event {
	var events []Event
	if cur.token != prev.token {
		if cur.token == "" {
			events = append(events, Event{Kind: EventTokenCleared})
		} else {
			events = append(events, Event{Kind: EventTokenChanged, Token: cur.token})
		}
	}
	if !samePartners(prev.partners, cur.partners) {
		events = append(events, Event{Kind: EventPartnersChanged, Partners: cur.partners})
	}
	if cur.selected != prev.selected {
		events = append(events, Event{Kind: EventSelectionChanged, SelectedPartner: cur.selected})
	}
	return events
}

func samePartners(a, b []model.Partner) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
