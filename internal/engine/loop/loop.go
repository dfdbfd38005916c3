// Package loop is the single-threaded dispatcher the player runs on. The main
// goroutine drains it once per display refresh: posted work and due timers
// first, then display-sync frame callbacks.
package loop

import (
	"container/heap"
	"sync"
	"time"
)

// FrameID identifies a pending frame callback. Zero is never issued.
type FrameID uint64

// Loop queues work for the UI goroutine. Post may be called from any
// goroutine; the remaining methods are safe to call concurrently as well, but
// callbacks only ever run inside RunPending and RunFrame.
type Loop struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID uint64

	posted []func()
	frames []frameRequest
	timers timerHeap
}

type frameRequest struct {
	id FrameID
	fn func(time.Time)
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

// New creates an empty loop.
func New(opts ...Option) *Loop {
	l := &Loop{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the loop's clock.
func (l *Loop) Now() time.Time {
	return l.now()
}

// Post queues fn to run on the next RunPending.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
}

// RequestAnimationFrame queues fn for the next RunFrame. Callbacks requested
// while a frame is running wait for the following frame.
func (l *Loop) RequestAnimationFrame(fn func(time.Time)) FrameID {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := FrameID(l.nextID)
	l.frames = append(l.frames, frameRequest{id: id, fn: fn})
	return id
}

// CancelAnimationFrame drops a pending frame callback. Unknown or already
// run ids are ignored.
func (l *Loop) CancelAnimationFrame(id FrameID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, f := range l.frames {
		if f.id == id {
			l.frames = append(l.frames[:i], l.frames[i+1:]...)
			return
		}
	}
}

// AfterFunc runs fn on the first RunPending at or after d from now. The
// returned function cancels it; cancelling twice or after it ran is a no-op.
func (l *Loop) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	t := &timer{id: l.nextID, at: l.now().Add(d), fn: fn}
	heap.Push(&l.timers, t)

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if t.index >= 0 {
			heap.Remove(&l.timers, t.index)
		}
	}
}

// RunPending runs posted functions in order, then every timer that is due.
// Work queued by those callbacks waits for the next call.
func (l *Loop) RunPending() {
	l.mu.Lock()
	posted := l.posted
	l.posted = nil

	now := l.now()
	var due []func()
	for len(l.timers) > 0 && !l.timers[0].at.After(now) {
		t := heap.Pop(&l.timers).(*timer)
		due = append(due, t.fn)
	}
	l.mu.Unlock()

	for _, fn := range posted {
		fn()
	}
	for _, fn := range due {
		fn()
	}
}

// RunFrame runs the frame callbacks that were pending when it was called.
func (l *Loop) RunFrame() {
	l.mu.Lock()
	frames := l.frames
	l.frames = nil
	now := l.now()
	l.mu.Unlock()

	for _, f := range frames {
		f.fn(now)
	}
}

// Pending reports how many frame callbacks and timers are queued.
func (l *Loop) Pending() (frames, timers int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames), len(l.timers)
}

type timer struct {
	id    uint64
	at    time.Time
	fn    func()
	index int
}

// timerHeap orders timers by deadline, then by creation.
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].id < h[j].id
	}
	return h[i].at.Before(h[j].at)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
