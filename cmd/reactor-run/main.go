// Command reactor-run drives a small fixed reaction graph through the
// GEDF-NP scheduler, the way the teacher's cmd/zoekt-sourcegraph-indexserver
// and cmd/zoekt-webserver wire config, logging, tracing, profiling, and a
// debug HTTP surface around their own main loops.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/atomic"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/tanneberger/reactor-go/internal/clock"
	"github.com/tanneberger/reactor-go/internal/config"
	"github.com/tanneberger/reactor-go/internal/debugserver"
	"github.com/tanneberger/reactor-go/internal/profiler"
	"github.com/tanneberger/reactor-go/internal/reaction"
	"github.com/tanneberger/reactor-go/internal/rlog"
	"github.com/tanneberger/reactor-go/internal/sched"
	"github.com/tanneberger/reactor-go/internal/tag"
	"github.com/tanneberger/reactor-go/internal/tracer"
	"github.com/tanneberger/reactor-go/internal/watchdog"
)

// reactionsPerTag is the number of reactions onTag triggers each logical
// tag (print-a and print-b below); the tag-deadline watchdog is stopped
// once this many have completed, not after every individual reaction.
const reactionsPerTag = 2

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		rlog.Fatalf("parsing flags: %v", err)
	}

	syncLog := rlog.Init(cfg.DevLog)
	defer syncLog()

	if err := tracer.Init(cfg.ServiceName, profiler.Version); err != nil {
		rlog.Get().Warnw("tracer not configured", "error", err)
	}
	profiler.Init(cfg.ServiceName)

	// Tune GOMAXPROCS to match the container's CPU quota.
	_, _ = maxprocs.Set()

	mux := http.NewServeMux()
	debugserver.AddHandlers(mux, cfg.EnablePprof)
	go func() {
		rlog.Get().Infow("debug server listening", "addr", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil && err != http.ErrServerClosed {
			rlog.Fatalf("debug server: %v", err)
		}
	}()

	env := newDemoEnv(10)
	var s sched.Scheduler
	s.Init(env, cfg.Workers, sched.Params{ReactionsPerLevel: cfg.ReactionsPerLevel})

	// The watchdog gets its own mutex, independent of env.Mutex(): the
	// latter is held by the scheduler for the duration of AdvanceTagLocked,
	// and onTag (called from inside it) must not re-enter that lock.
	var wdMu sync.Mutex
	wd := watchdog.New("tag-deadline", &wdMu, cfg.WatchdogTimeout, func(context.Context) {
		rlog.Get().Errorw("tag deadline exceeded")
	}, clock.New())
	wd.Initialize()
	defer func() {
		if err := watchdog.WaitAll(context.Background(), wd); err != nil {
			rlog.Get().Warnw("watchdog shutdown did not complete", "error", err)
		}
	}()

	// pendingInTag counts reactions still outstanding for the tag the
	// watchdog is currently guarding; it reaches zero only once every
	// reaction onTag triggered has finished, which is when the watchdog
	// guarding that tag should be disarmed.
	var pendingInTag atomic.Int32

	a := reaction.New("print-a", 1, 0, 0, func(context.Context) error {
		rlog.Get().Infow("reaction A fired", "tag", env.currentTag())
		return nil
	})
	b := reaction.New("print-b", 2, 0, 0, func(context.Context) error {
		rlog.Get().Infow("reaction B fired", "tag", env.currentTag())
		return nil
	})
	env.onTag = func() {
		// Called by AdvanceTagLocked while env.Mutex() is already held by
		// the scheduler; wd.Start is called under the watchdog's own
		// independent mutex, so this never re-enters env's lock.
		pendingInTag.Store(reactionsPerTag)
		wdMu.Lock()
		wd.Start(0)
		wdMu.Unlock()
		s.TriggerReaction(a, -1)
		s.TriggerReaction(b, -1)
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				r, ok := s.GetReadyReaction(id)
				if !ok {
					return
				}

				span := opentracing.StartSpan("reaction.dispatch")
				span.SetTag("reaction.name", r.Name)
				span.SetTag("worker.id", id)
				ctx := opentracing.ContextWithSpan(context.Background(), span)

				if err := r.Function(ctx); err != nil {
					span.SetTag("error", true)
					rlog.Get().Errorw("reaction returned error", "reaction", r.Name, "error", err)
				}
				s.DoneWithReaction(id, r)
				span.Finish()

				if pendingInTag.Dec() == 0 {
					wdMu.Lock()
					wd.Stop()
					wdMu.Unlock()
				}
			}
		}(i)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		rlog.Get().Infow("received shutdown signal")
		os.Exit(0)
	}()

	wg.Wait()
	s.Free()
	rlog.Get().Infow("reactor-run exiting after reaching the stop tag")
}

// demoEnv is a minimal, non-federated sched.Environment: it advances a
// fixed number of logical tags, one microstep apart, firing onTag before
// reporting each tag's advance.
type demoEnv struct {
	mu       sync.Mutex
	current  tag.Tag
	numTags  int
	tagsDone int
	onTag    func()
}

func newDemoEnv(numTags int) *demoEnv {
	return &demoEnv{current: tag.Zero, numTags: numTags}
}

func (e *demoEnv) Mutex() *sync.Mutex { return &e.mu }

func (e *demoEnv) TryAdvanceLevel(level *int) { *level++ }

func (e *demoEnv) AdvanceTagLocked() bool {
	if e.tagsDone >= e.numTags {
		return true
	}
	e.current = tag.Next(e.current)
	e.tagsDone++
	if e.onTag != nil {
		e.onTag()
	}
	return false
}

func (e *demoEnv) currentTag() tag.Tag {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}
