// Package watchdog implements per-reactor timed guards: a renewable
// expiration watched by a dedicated goroutine, coordinated with its owner
// through a sync.Cond bound to the owner's own mutex, the same primitive
// original_source/core/threaded/watchdog.c builds on with a pthread
// condition variable.
package watchdog

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/tanneberger/reactor-go/internal/clock"
	"github.com/tanneberger/reactor-go/internal/metrics"
	"github.com/tanneberger/reactor-go/internal/rlog"
)

// watchdogNever is the sentinel expiration meaning "not armed", mirroring
// tag.NEVER's use of math.MinInt64 as a value that can never be reached by
// advancing forward in time.
const watchdogNever = math.MinInt64

// Watchdog guards a span of reactor execution with a renewable deadline. If
// the deadline is reached before Stop is called, Handler runs once and the
// watchdog deactivates until the next Start.
//
// All of expiration, active, and terminate are read and written only while
// mu is held, by both Start/Stop/Terminate and the watchdog's own goroutine
// — the same "every transition under reactor_mutex" discipline the C
// watchdog documents, which is what makes Start safely callable from any
// goroutine that already holds the reactor's lock.
type Watchdog struct {
	// Name labels this watchdog's fired-count metric.
	Name string
	// MinExpiration is the base timeout added to Start's additionalTimeout.
	MinExpiration time.Duration
	// Handler runs once, outside mu, when the watchdog expires.
	Handler func(context.Context)

	clock clock.Clock
	mu    *sync.Mutex
	cond  *sync.Cond

	expiration int64
	active     bool
	terminate  bool

	startOnce sync.Once
	wg        sync.WaitGroup
}

// New constructs a Watchdog bound to mu, the same mutex its owner holds
// while triggering reactions. c may be nil, in which case the real
// wall-clock is used.
func New(name string, mu *sync.Mutex, minExpiration time.Duration, handler func(context.Context), c clock.Clock) *Watchdog {
	if c == nil {
		c = clock.New()
	}
	return &Watchdog{
		Name:          name,
		MinExpiration: minExpiration,
		Handler:       handler,
		clock:         c,
		mu:            mu,
		cond:          sync.NewCond(mu),
		expiration:    watchdogNever,
	}
}

// Initialize starts the watchdog's background goroutine. Idempotent: a
// second call is a no-op, the same init_watchdog "already running" early
// return in the C runtime.
func (w *Watchdog) Initialize() {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.run()
	})
}

// Start arms or renews the watchdog: it expires MinExpiration+additionalTimeout
// from now. Calling Start again before expiration renews the deadline rather
// than stacking a second timeout, the renewal behavior spec.md calls out.
// The caller must hold the watchdog's mutex.
func (w *Watchdog) Start(additionalTimeout time.Duration) {
	now := clock.PhysicalNanos(w.clock)
	w.expiration = now + int64(w.MinExpiration) + int64(additionalTimeout)

	// Only signal on the inactive->active edge. A renewal of an already
	// active watchdog needs no signal: the goroutine is either already
	// computing its next wait against the expiration it's about to read,
	// or is blocked on a timer that will itself wake it, at which point it
	// re-reads expiration and finds the new, later deadline — the same
	// branch the C source takes, never an unconditional re-signal.
	if !w.active {
		w.active = true
		w.cond.Signal()
	}
}

// Stop disarms the watchdog. If it already fired for the current arming,
// Stop is a harmless no-op. The caller must hold the watchdog's mutex.
func (w *Watchdog) Stop() {
	if !w.active {
		return
	}
	w.active = false
	w.expiration = watchdogNever
	w.cond.Signal()
}

// Terminate requests the background goroutine exit. Wait joins it.
func (w *Watchdog) Terminate() {
	w.mu.Lock()
	w.terminate = true
	w.cond.Signal()
	w.mu.Unlock()
}

// Wait blocks until the background goroutine has exited following
// Terminate, or until ctx is done, whichever comes first.
func (w *Watchdog) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitAll is the environment-wide shutdown barrier: for each watchdog, in
// order, it stops and terminates it, each under that watchdog's own mutex,
// then joins its goroutine, per spec.md §4.3's wait_all(env). It stops at
// the first watchdog that fails to join before ctx is done, leaving any
// later ones in the slice still running; the caller's ctx error reports why.
func WaitAll(ctx context.Context, watchdogs ...*Watchdog) error {
	for _, w := range watchdogs {
		w.mu.Lock()
		w.Stop()
		w.mu.Unlock()
		w.Terminate()
		if err := w.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watchdog) run() {
	defer w.wg.Done()

	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		if w.terminate {
			return
		}
		if !w.active {
			w.cond.Wait()
			continue
		}

		now := clock.PhysicalNanos(w.clock)
		remaining := time.Duration(w.expiration - now)
		if remaining <= 0 {
			w.fire()
			continue
		}
		w.waitTimeout(remaining)
	}
}

// fire invokes Handler once. w.mu is held on entry and on return; it is
// released for the duration of the call so Handler may itself call back
// into Start/Stop without deadlocking against its own watchdog.
func (w *Watchdog) fire() {
	w.active = false
	w.expiration = watchdogNever
	metrics.WatchdogFires.WithLabelValues(w.Name).Inc()
	rlog.Get().Warnw("watchdog expired", "watchdog", w.Name)

	handler := w.Handler
	if handler == nil {
		return
	}
	w.mu.Unlock()
	handler(context.Background())
	w.mu.Lock()
}

// waitTimeout blocks on cond until either signaled or d has elapsed,
// whichever comes first. w.mu is held on entry, released while parked, and
// held again on return, matching cond.Wait's own contract.
//
// There is no condition-variable equivalent of pthread_cond_timedwait in
// the standard library, so a helper goroutine sleeps for d against the
// same clock and signals cond when it wakes. A signal after the state has
// already moved on is harmless: the loop in run always re-reads expiration,
// active, and terminate from scratch rather than trusting why it woke.
func (w *Watchdog) waitTimeout(d time.Duration) {
	go func() {
		w.clock.Sleep(d)
		w.mu.Lock()
		w.cond.Signal()
		w.mu.Unlock()
	}()
	w.cond.Wait()
}
