package mount

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Scheduler delivers frames. Frame numbers increase monotonically.
type Scheduler interface {
	// OnFrame registers fn to run once per frame. The returned func
	// deregisters it.
	OnFrame(fn func(frame uint64)) (cancel func())

	// RequestFrame asks for a frame as soon as possible. It may be called
	// from any goroutine and coalesces with pending requests.
	RequestFrame()
}

// subscribers is the frame callback list shared by the schedulers.
type subscribers struct {
	mu    sync.Mutex
	next  int
	subs  map[int]func(uint64)
	frame uint64
}

func (s *subscribers) add(fn func(uint64)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func(uint64))
	}
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// fire advances the frame counter and calls every subscriber in
// registration order, outside the lock.
func (s *subscribers) fire() uint64 {
	s.mu.Lock()
	s.frame++
	frame := s.frame
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(uint64), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(frame)
	}
	return frame
}

func (s *subscribers) current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// ManualScheduler advances only when Step is called. It is meant for tests
// and for hosts that drive frames themselves.
type ManualScheduler struct {
	subscribers

	reqMu     sync.Mutex
	requested bool
}

var _ Scheduler = (*ManualScheduler)(nil)

// NewManualScheduler returns a scheduler at frame 0.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// OnFrame implements Scheduler.
func (m *ManualScheduler) OnFrame(fn func(frame uint64)) (cancel func()) {
	return m.add(fn)
}

// RequestFrame implements Scheduler. It only records the request.
func (m *ManualScheduler) RequestFrame() {
	m.reqMu.Lock()
	m.requested = true
	m.reqMu.Unlock()
}

// Requested reports whether a frame was requested since the last Step.
func (m *ManualScheduler) Requested() bool {
	m.reqMu.Lock()
	defer m.reqMu.Unlock()
	return m.requested
}

// Step runs one frame and returns its number.
func (m *ManualScheduler) Step() uint64 {
	m.reqMu.Lock()
	m.requested = false
	m.reqMu.Unlock()
	return m.fire()
}

// Frame returns the number of the last frame run.
func (m *ManualScheduler) Frame() uint64 { return m.current() }

// Ticker runs a frame every interval, and early when one is requested, on
// the goroutine that calls Run. Work from other goroutines reaches that
// goroutine through Dispatch.
type Ticker struct {
	subscribers

	interval time.Duration
	wake     chan struct{}
	dispatch chan func()
	stopped  chan struct{}

	mu   sync.RWMutex
	done bool
}

// ErrTickerStopped is returned by Call once Run has returned.
var ErrTickerStopped = errors.New("mount: ticker stopped")

var _ Scheduler = (*Ticker)(nil)

// DefaultFrameInterval is a 60 Hz frame.
const DefaultFrameInterval = time.Second / 60

// NewTicker returns a ticker with the given frame interval; a non-positive
// interval means DefaultFrameInterval.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Ticker{
		interval: interval,
		wake:     make(chan struct{}, 1),
		dispatch: make(chan func(), 256),
		stopped:  make(chan struct{}),
	}
}

// OnFrame implements Scheduler.
func (t *Ticker) OnFrame(fn func(frame uint64)) (cancel func()) {
	return t.add(fn)
}

// RequestFrame implements Scheduler.
func (t *Ticker) RequestFrame() {
	select {
	case t.wake <- struct{}{}:
	default:
		// Already requested.
	}
}

// Dispatch queues fn to run on the Run goroutine. It reports false when
// fn was dropped: the queue is full or Run has returned.
func (t *Ticker) Dispatch(fn func()) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.done {
		return false
	}
	select {
	case t.dispatch <- fn:
		return true
	default:
		return false
	}
}

// Call runs fn on the Run goroutine and waits for it.
func (t *Ticker) Call(ctx context.Context, fn func() error) error {
	if t.stopping() {
		return ErrTickerStopped
	}
	done := make(chan error, 1)
	select {
	case t.dispatch <- func() { done <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	case <-t.stopped:
		return ErrTickerStopped
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-t.stopped:
		return ErrTickerStopped
	}
}

// Frame returns the number of the last frame run.
func (t *Ticker) Frame() uint64 { return t.current() }

// Run drives frames until ctx is done. A ticker runs once; Call and
// Dispatch fail after Run returns.
func (t *Ticker) Run(ctx context.Context) error {
	if t.stopping() {
		return ErrTickerStopped
	}
	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	defer t.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tk.C:
			t.fire()
		case <-t.wake:
			t.fire()
		case fn := <-t.dispatch:
			fn()
		}
	}
}

func (t *Ticker) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.done {
		t.done = true
		close(t.stopped)
	}
}

func (t *Ticker) stopping() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.done
}
