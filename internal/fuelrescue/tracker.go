package fuelrescue

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultRetention is how long a finished delivery stays readable.
const DefaultRetention = 30 * time.Minute

// Tracker keeps the deliveries started by a long lived owner, such as the
// HTTP server, and stops all of them on Close. Finished deliveries are moved
// to an expiring cache so their state and track stay readable for a while.
type Tracker struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	deliveries map[string]*Delivery
	finished   *cache.Cache
	retention  time.Duration
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithRetention sets how long finished deliveries are kept.
func WithRetention(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.retention = d
		}
	}
}

// NewTracker creates a Tracker whose deliveries end when ctx ends or Close is called.
func NewTracker(ctx context.Context, opts ...TrackerOption) *Tracker {
	ctx, cancel := context.WithCancel(ctx)
	t := &Tracker{
		ctx:        ctx,
		cancel:     cancel,
		deliveries: make(map[string]*Delivery),
		retention:  DefaultRetention,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.finished = cache.New(t.retention, 2*t.retention)
	return t
}

// Start registers d under id and starts it. An existing delivery with the
// same id is cancelled first.
func (t *Tracker) Start(id string, d *Delivery) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ctx.Err(); err != nil {
		return err
	}
	if old, ok := t.deliveries[id]; ok {
		old.Cancel()
	}
	if err := d.Start(t.ctx); err != nil {
		return err
	}
	t.finished.Delete(id)
	t.deliveries[id] = d
	go t.retire(id, d)
	return nil
}

// retire moves d out of the live set once its timer is released.
func (t *Tracker) retire(id string, d *Delivery) {
	<-d.Stopped()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deliveries[id] != d {
		return
	}
	delete(t.deliveries, id)
	if t.ctx.Err() == nil {
		t.finished.SetDefault(id, d)
	}
}

// Get returns the delivery registered under id, running or recently finished.
func (t *Tracker) Get(id string) (*Delivery, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.deliveries[id]; ok {
		return d, true
	}
	if v, ok := t.finished.Get(id); ok {
		return v.(*Delivery), true
	}
	return nil, false
}

// Cancel stops the delivery registered under id. It reports whether a running delivery was stopped.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	d, ok := t.deliveries[id]
	t.mu.Unlock()
	if !ok {
		return false
	}
	return d.Cancel()
}

// Running returns the number of deliveries still running.
func (t *Tracker) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, d := range t.deliveries {
		if d.State().Status == DeliveryRunning {
			n++
		}
	}
	return n
}

// held returns the number of deliveries whose timers have not been retired yet.
func (t *Tracker) held() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.deliveries)
}

// Close cancels every delivery and waits for their timers to be released.
func (t *Tracker) Close() {
	t.cancel()

	t.mu.Lock()
	deliveries := make([]*Delivery, 0, len(t.deliveries))
	for _, d := range t.deliveries {
		deliveries = append(deliveries, d)
	}
	t.deliveries = make(map[string]*Delivery)
	t.finished.Flush()
	t.mu.Unlock()

	for _, d := range deliveries {
		<-d.Stopped()
	}
}
