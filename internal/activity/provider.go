// Package activity runs entry/exit/activity/timer behaviors that outlive a
// single dispatch step: the concurrent "activity" behaviors UML states may
// declare, and the auto-generated after/every timer tasks that realize timed
// transitions. Nothing here touches the transition table; internal/dispatch
// decides what to start and stop, this package only runs it.
package activity

import (
	"sync"
	"time"

	"github.com/hsmrt/hsm/internal/model"
)

// Handle identifies a spawned task for later Join.
type Handle interface{}

// Provider is the injectable task runner the dispatcher depends on for
// every long-running behavior. The default is GoroutineProvider; tests may
// substitute a synchronous or instrumented provider.
type Provider interface {
	Spawn(ctx *model.Context, fn func(*model.Context)) Handle
	Join(h Handle)
	SleepFor(ctx *model.Context, d time.Duration)
}

// GoroutineProvider is the default Provider: one goroutine per spawned task,
// joined via sync.WaitGroup. Grounded on the teacher's goroutine-per-concern
// style (Machine.interpret's "go m.interpret()", TimerEventSource's ticker
// goroutine).
type GoroutineProvider struct{}

type goroutineHandle struct {
	wg *sync.WaitGroup
}

// Spawn runs fn(ctx) in a new goroutine. ctx is owned by the caller (the
// activity manager), which polls or cancels it independently; Spawn only
// tracks the goroutine's lifetime for Join.
func (GoroutineProvider) Spawn(ctx *model.Context, fn func(*model.Context)) Handle {
	var wg sync.WaitGroup
	wg.Add(1)
	h := &goroutineHandle{wg: &wg}
	go func() {
		defer wg.Done()
		fn(ctx)
	}()
	return h
}

// Join blocks until the task behind h has returned.
func (GoroutineProvider) Join(h Handle) {
	gh, ok := h.(*goroutineHandle)
	if !ok || gh == nil {
		return
	}
	gh.wg.Wait()
}

// SleepFor blocks for d or until ctx is cancelled, whichever comes first.
func (GoroutineProvider) SleepFor(ctx *model.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if ctx == nil {
		time.Sleep(d)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
