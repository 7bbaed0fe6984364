// Package mainloop provides the single-goroutine cooperative event loop
// script threads run on. Everything posted to a loop executes serialized
// on the loop goroutine, which is what gives script execution its
// one-logical-thread guarantee; timers deliver their callbacks on the
// same goroutine.
package mainloop

import (
	"container/heap"
	"sync"
	"time"
)

// Ticket identifies a scheduled timer so it can be cancelled. The zero
// Ticket is never issued.
type Ticket uint64

type timer struct {
	ticket Ticket
	when   time.Time
	fn     func()
	index  int
}

type timerHeap []*timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].when.Before(h[j].when) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x any)         { t := x.(*timer); t.index = len(*h); *h = append(*h, t) }
func (h *timerHeap) Pop() any           { old := *h; n := len(old); t := old[n-1]; old[n-1] = nil; *h = old[:n-1]; return t }

type Loop struct {
	mu         sync.Mutex
	queue      []func()
	timers     timerHeap
	byTicket   map[Ticket]*timer
	nextTicket Ticket
	wake       chan struct{}
	quit       chan struct{}
	stopped    bool
	started    time.Time
}

func New() *Loop {
	return &Loop{
		byTicket: make(map[Ticket]*timer),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		started:  time.Now(),
	}
}

// Start runs the loop on its own goroutine and returns immediately.
func (l *Loop) Start() {
	go l.Run()
}

// Run processes posted functions and due timers until Stop is called.
func (l *Loop) Run() {
	for {
		fns, wait := l.collect()
		for _, fn := range fns {
			fn()
		}
		if fns != nil {
			continue
		}
		var timerC <-chan time.Time
		var tm *time.Timer
		if wait >= 0 {
			tm = time.NewTimer(wait)
			timerC = tm.C
		}
		select {
		case <-l.quit:
			if tm != nil {
				tm.Stop()
			}
			return
		case <-l.wake:
		case <-timerC:
		}
		if tm != nil {
			tm.Stop()
		}
	}
}

// collect grabs everything runnable right now; wait is the time until the
// next timer, or -1 when no timer is pending.
func (l *Loop) collect() ([]func(), time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var fns []func()
	if len(l.queue) > 0 {
		fns = l.queue
		l.queue = nil
	}
	now := time.Now()
	for len(l.timers) > 0 && !l.timers[0].when.After(now) {
		t := heap.Pop(&l.timers).(*timer)
		delete(l.byTicket, t.ticket)
		fns = append(fns, t.fn)
	}
	wait := time.Duration(-1)
	if len(l.timers) > 0 {
		wait = l.timers[0].when.Sub(now)
		if wait < 0 {
			wait = 0
		}
	}
	return fns, wait
}

// Stop terminates Run. Pending timers and queued functions are dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.mu.Unlock()
	close(l.quit)
}

// Post schedules fn to run on the loop goroutine as soon as possible.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.kick()
}

// ExecuteOnce schedules fn after the given delay and returns a ticket
// that can cancel it.
func (l *Loop) ExecuteOnce(fn func(), delay time.Duration) Ticket {
	l.mu.Lock()
	l.nextTicket++
	t := &timer{ticket: l.nextTicket, when: time.Now().Add(delay), fn: fn}
	heap.Push(&l.timers, t)
	l.byTicket[t.ticket] = t
	l.mu.Unlock()
	l.kick()
	return t.ticket
}

// Cancel revokes a pending timer. Returns false when the timer already
// fired or never existed.
func (l *Loop) Cancel(ticket Ticket) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.byTicket[ticket]
	if !ok {
		return false
	}
	heap.Remove(&l.timers, t.index)
	delete(l.byTicket, ticket)
	return true
}

// Now is monotonic time since the loop was created.
func (l *Loop) Now() time.Duration {
	return time.Since(l.started)
}

func (l *Loop) kick() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
