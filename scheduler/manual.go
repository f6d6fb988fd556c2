package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic scheduler driven by the caller.
// Nothing runs until RunPending or Advance is called; async work runs inline.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	queue  []func()
	timers []*manualTimer
}

type manualTimer struct {
	seq       int
	due       time.Duration
	period    time.Duration
	once      func()
	periodic  func(Task)
	cancelled bool
	owner     *Manual
}

func (t *manualTimer) Cancel() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	t.cancelled = true
}

func (t *manualTimer) Cancelled() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.cancelled
}

// NewManual creates a manual scheduler at virtual time zero
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) RunNow(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, fn)
}

func (m *Manual) RunAfter(d time.Duration, fn func()) Task {
	return m.addTimer(&manualTimer{due: d, once: fn})
}

func (m *Manual) RunPeriodic(interval time.Duration, fn func(Task)) Task {
	return m.addTimer(&manualTimer{due: interval, period: interval, periodic: fn})
}

func (m *Manual) RunAsync(fn func()) {
	fn()
}

// Call runs fn inline, mirroring Loop.Call for code under test
func (m *Manual) Call(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}

func (m *Manual) addTimer(t *manualTimer) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t.seq = m.seq
	t.due += m.now
	t.owner = m
	m.timers = append(m.timers, t)
	return t
}

// Elapsed is the virtual time advanced so far
func (m *Manual) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// PendingTimers counts live timers
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// RunPending drains the immediate queue, including work queued while draining
func (m *Manual) RunPending() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
	}
}

// Advance moves virtual time forward by d, firing every timer that falls due in order
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.RunPending()

		t := m.popDue(target)
		if t == nil {
			break
		}

		if t.periodic != nil {
			t.periodic(t)
			m.mu.Lock()
			if !t.cancelled {
				t.due += t.period
				m.timers = append(m.timers, t)
			}
			m.mu.Unlock()
		} else {
			t.once()
		}
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
	m.RunPending()
}

func (m *Manual) popDue(target time.Duration) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.timers = live

	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].due == m.timers[j].due {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].due < m.timers[j].due
	})

	if len(m.timers) == 0 || m.timers[0].due > target {
		return nil
	}

	t := m.timers[0]
	m.timers = m.timers[1:]
	m.now = t.due
	return t
}
