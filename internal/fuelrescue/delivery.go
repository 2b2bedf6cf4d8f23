package fuelrescue

import (
	"context"
	"sync"
	"time"

	"github.com/rubiojr/fuelrescue/pkg/geo"
)

const (
	DefaultTickInterval = 100 * time.Millisecond
	DefaultProgressStep = 0.5
	progressComplete    = 100.0
)

// DeliveryStatus is the simulator state: idle -> running -> completed, with
// running -> idle on cancellation.
type DeliveryStatus string

const (
	DeliveryIdle      DeliveryStatus = "idle"
	DeliveryRunning   DeliveryStatus = "running"
	DeliveryCompleted DeliveryStatus = "completed"
)

// DeliveryState is a snapshot of a delivery.
type DeliveryState struct {
	Progress float64        `json:"progress"`
	Position geo.Coordinate `json:"position"`
	Status   DeliveryStatus `json:"status"`
}

// TrackPoint is a recorded marker position.
type TrackPoint struct {
	Position geo.Coordinate
	Time     time.Time
}

// Delivery moves a marker from a station to the user on a repeating timer.
// Its ticker is released when the delivery completes, is cancelled, or its
// context ends.
type Delivery struct {
	from, to   geo.Coordinate
	interval   time.Duration
	step       float64
	onProgress func(DeliveryState)
	onComplete func(DeliveryState)

	mu      sync.Mutex
	state   DeliveryState
	started bool
	track   []TrackPoint
	cancel  context.CancelFunc

	completeOnce sync.Once
	completed    chan struct{}
	stopped      chan struct{}
}

// DeliveryOption configures a Delivery.
type DeliveryOption func(*Delivery)

// WithTickInterval sets how often progress advances.
func WithTickInterval(interval time.Duration) DeliveryOption {
	return func(d *Delivery) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithProgressStep sets how many percentage points each tick adds.
func WithProgressStep(step float64) DeliveryOption {
	return func(d *Delivery) {
		if step > 0 {
			d.step = step
		}
	}
}

// OnProgress registers a callback invoked after every tick.
func OnProgress(fn func(DeliveryState)) DeliveryOption {
	return func(d *Delivery) {
		d.onProgress = fn
	}
}

// OnComplete registers a callback invoked once when progress reaches 100.
func OnComplete(fn func(DeliveryState)) DeliveryOption {
	return func(d *Delivery) {
		d.onComplete = fn
	}
}

// NewDelivery prepares an idle delivery from station to user.
func NewDelivery(from, to geo.Coordinate, opts ...DeliveryOption) *Delivery {
	d := &Delivery{
		from:      from,
		to:        to,
		interval:  DefaultTickInterval,
		step:      DefaultProgressStep,
		state:     DeliveryState{Position: from, Status: DeliveryIdle},
		completed: make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the timer. The delivery stops when ctx is done.
// A delivery runs at most once.
func (d *Delivery) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.state.Status == DeliveryRunning:
		return ErrDeliveryActive
	case d.started:
		return ErrDeliveryFinished
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.started = true
	d.state = DeliveryState{Position: d.from, Status: DeliveryRunning}
	d.track = append(d.track[:0], TrackPoint{Position: d.from, Time: time.Now()})

	go d.run(runCtx)
	return nil
}

// Cancel returns a running delivery to idle. It reports whether the delivery was running.
func (d *Delivery) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Status != DeliveryRunning {
		return false
	}
	d.state.Status = DeliveryIdle
	d.cancel()
	return true
}

// State returns the current snapshot.
func (d *Delivery) State() DeliveryState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Track returns the recorded marker positions.
func (d *Delivery) Track() []TrackPoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]TrackPoint, len(d.track))
	copy(out, d.track)
	return out
}

// Completed is closed when progress reaches 100. It is never closed for a
// cancelled delivery.
func (d *Delivery) Completed() <-chan struct{} {
	return d.completed
}

// Stopped is closed once the timer has been released, on any exit path.
func (d *Delivery) Stopped() <-chan struct{} {
	return d.stopped
}

// Wait blocks until the delivery stops or ctx is done and returns the final state.
func (d *Delivery) Wait(ctx context.Context) (DeliveryState, error) {
	select {
	case <-d.stopped:
		return d.State(), nil
	case <-ctx.Done():
		return d.State(), ctx.Err()
	}
}

func (d *Delivery) run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer close(d.stopped)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			if d.state.Status == DeliveryRunning {
				d.state.Status = DeliveryIdle
			}
			d.mu.Unlock()
			return
		case now := <-ticker.C:
			state, running := d.advance(now)
			if !running {
				return
			}
			if d.onProgress != nil {
				d.onProgress(state)
			}
			if state.Status == DeliveryCompleted {
				d.complete(state)
				return
			}
		}
	}
}

// advance moves the marker one step. It reports false when the delivery was
// cancelled concurrently.
func (d *Delivery) advance(now time.Time) (DeliveryState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Status != DeliveryRunning {
		return d.state, false
	}

	next := d.state.Progress + d.step
	if next >= progressComplete {
		next = progressComplete
	}
	d.state.Progress = next
	d.state.Position = geo.Lerp(d.from, d.to, next/progressComplete)
	if next == progressComplete {
		d.state.Status = DeliveryCompleted
		d.cancel()
	}
	d.track = append(d.track, TrackPoint{Position: d.state.Position, Time: now})
	return d.state, true
}

func (d *Delivery) complete(state DeliveryState) {
	d.completeOnce.Do(func() {
		close(d.completed)
		if d.onComplete != nil {
			d.onComplete(state)
		}
	})
}
