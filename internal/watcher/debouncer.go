package watcher

import (
	"sync"
	"time"
)

// Arrival is one media file that has settled in the source folder.
type Arrival struct {
	Name      string
	Timestamp time.Time
}

// Debouncer coalesces the event burst of a file being copied into a
// single arrival, emitted once no new event has been seen for the delay.
type Debouncer struct {
	delay   time.Duration
	pending map[string]*pendingArrival
	mu      sync.Mutex
	output  chan Arrival
	stopCh  chan struct{}
	stopped bool
	emits   sync.WaitGroup
}

type pendingArrival struct {
	arrival Arrival
	timer   *time.Timer
}

// NewDebouncer creates a debouncer with the given settle delay.
func NewDebouncer(delayMs int) *Debouncer {
	return &Debouncer{
		delay:   time.Duration(delayMs) * time.Millisecond,
		pending: make(map[string]*pendingArrival),
		output:  make(chan Arrival, 100),
		stopCh:  make(chan struct{}),
	}
}

// Arrivals returns the channel of settled arrivals.
func (d *Debouncer) Arrivals() <-chan Arrival {
	return d.output
}

// Add records an event for a file, restarting its settle timer.
func (d *Debouncer) Add(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	now := time.Now()
	if p, exists := d.pending[name]; exists {
		p.timer.Stop()
		p.arrival.Timestamp = now
		p.timer = time.AfterFunc(d.delay, func() {
			d.emit(name)
		})
		return
	}

	d.pending[name] = &pendingArrival{
		arrival: Arrival{Name: name, Timestamp: now},
		timer: time.AfterFunc(d.delay, func() {
			d.emit(name)
		}),
	}
}

// emit registers itself under the lock so Stop can wait for every
// in-flight send before closing the output channel.
func (d *Debouncer) emit(name string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.emits.Add(1)
	p, exists := d.pending[name]
	if exists {
		delete(d.pending, name)
	}
	d.mu.Unlock()
	defer d.emits.Done()

	if exists {
		select {
		case d.output <- p.arrival:
		case <-d.stopCh:
		}
	}
}

// Flush immediately emits all pending arrivals.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	names := make([]string, 0, len(d.pending))
	for name, p := range d.pending {
		p.timer.Stop()
		names = append(names, name)
	}
	d.mu.Unlock()

	for _, name := range names {
		d.emit(name)
	}
}

// Stop drops pending arrivals, waits for in-flight emits to finish, and
// closes the output channel. Safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stopCh)
	for _, p := range d.pending {
		p.timer.Stop()
	}
	d.pending = make(map[string]*pendingArrival)
	d.mu.Unlock()

	d.emits.Wait()
	close(d.output)
}

// PendingCount returns the number of files still settling.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
