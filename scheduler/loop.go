package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrLoopStopped is returned when work is submitted after the loop has stopped
var ErrLoopStopped = errors.New("main loop stopped")

// Loop is the production main context: one goroutine draining a queue of closures
type Loop struct {
	tasks    chan func()
	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewLoop creates a loop with the given queue capacity
func NewLoop(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Loop{
		tasks:   make(chan func(), queueSize),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start runs the loop until Stop is called or ctx is done
func (l *Loop) Start(ctx context.Context) {
	if !l.started.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer close(l.stopped)
		log.Info("Main loop started")
		for {
			select {
			case fn := <-l.tasks:
				l.execute(fn)
			case <-l.stop:
				log.Info("Main loop stopped")
				return
			case <-ctx.Done():
				log.Info("Main loop stopped by context")
				return
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight task to finish
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
	if l.started.Load() {
		<-l.stopped
	}
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Main loop task panicked")
		}
	}()
	fn()
}

// RunNow queues fn on the main loop
func (l *Loop) RunNow(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.stop:
		log.Warn("Dropping task submitted after main loop stopped")
	}
}

// Call queues fn on the main loop and waits for it to complete
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	var panicked any

	task := func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				panicked = r
			}
		}()
		fn()
	}

	select {
	case l.tasks <- task:
	case <-l.stop:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		if panicked != nil {
			return fmt.Errorf("main loop task panicked: %v", panicked)
		}
		return nil
	case <-l.stop:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunAfter queues fn once d has elapsed
func (l *Loop) RunAfter(d time.Duration, fn func()) Task {
	t := &timerTask{}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = time.AfterFunc(d, func() {
		l.RunNow(func() {
			if t.Cancelled() {
				return
			}
			fn()
		})
	})
	return t
}

// RunPeriodic queues fn every interval until the task is cancelled
func (l *Loop) RunPeriodic(interval time.Duration, fn func(Task)) Task {
	t := &timerTask{}
	var arm func()
	arm = func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.cancelled.Load() {
			return
		}
		t.timer = time.AfterFunc(interval, func() {
			l.RunNow(func() {
				if t.Cancelled() {
					return
				}
				fn(t)
				arm()
			})
		})
	}
	arm()
	return t
}

// RunAsync runs fn on its own goroutine
func (l *Loop) RunAsync(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Async task panicked")
			}
		}()
		fn()
	}()
}

type timerTask struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled atomic.Bool
}

func (t *timerTask) Cancel() {
	t.cancelled.Store(true)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *timerTask) Cancelled() bool {
	return t.cancelled.Load()
}
