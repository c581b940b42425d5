package activity

import (
	"fmt"
	"sync"
	"time"

	"github.com/hsmrt/hsm/internal/model"
)

// DefaultJoinTimeout bounds how long Exit waits for a single activity to
// wind down before falling back to the detached-release path. Zero disables
// the bound (Exit blocks until the activity actually returns).
const DefaultJoinTimeout = 2 * time.Second

// running tracks one spawned activity (a user activity behavior, or an
// auto-generated after/every timer task).
type running struct {
	handle Handle
	ctx    *model.Context
}

// Manager owns the set of activities currently running for one instance. It
// is guarded by its own mutex, deliberately distinct from the dispatcher's
// processing lock, so activity goroutines can poll Context.Cancelled()
// without contending with dispatch.
type Manager[E any] struct {
	provider Provider

	mu     sync.Mutex
	active map[string]*running

	// detached counts joins that fell back to the detached-release path
	// (see Exit), exposed for diagnostics/tests.
	detached int
}

// NewManager constructs a Manager backed by provider.
func NewManager[E any](provider Provider) *Manager[E] {
	if provider == nil {
		provider = GoroutineProvider{}
	}
	return &Manager[E]{provider: provider, active: map[string]*running{}}
}

func key(stateName, behaviorName string) string {
	return stateName + "#" + behaviorName
}

// Enter spawns every activity behavior of a state being entered, in
// declaration order.
func (m *Manager[E]) Enter(stateName string, behaviors []model.Behavior[E], ext E, ev model.Event) {
	for _, b := range behaviors {
		b := b
		ctx := model.NewContext()
		handle := m.provider.Spawn(ctx, func(c *model.Context) {
			b.Fn(c, ext, ev)
			if !c.Cancelled() {
				c.MarkCompleted()
			}
		})
		m.mu.Lock()
		m.active[key(stateName, b.Name)] = &running{handle: handle, ctx: ctx}
		m.mu.Unlock()
	}
}

// Exit cancels and joins every activity behavior of a state being exited, in
// reverse declaration order, so the most recently started activity winds
// down first. If an activity doesn't return within joinTimeout of being
// cancelled — the deadlock case where it has called back into Dispatch on
// this same instance from inside its own wind-down — the join is released
// detached: DetachedCount is incremented, onDetached (if non-nil) is
// notified once, and a background goroutine keeps waiting until the activity
// actually returns. DetachedCount is not decremented when it does.
// joinTimeout <= 0 means "wait forever," matching ordinary (non-deadlocked)
// exits.
func (m *Manager[E]) Exit(stateName string, behaviors []model.Behavior[E], joinTimeout time.Duration, onDetached func(behaviorName string)) {
	for i := len(behaviors) - 1; i >= 0; i-- {
		b := behaviors[i]
		k := key(stateName, b.Name)

		m.mu.Lock()
		r, ok := m.active[k]
		delete(m.active, k)
		m.mu.Unlock()
		if !ok {
			continue
		}

		r.ctx.Cancel()

		if joinTimeout <= 0 {
			m.provider.Join(r.handle)
			continue
		}

		done := make(chan struct{})
		go func() {
			m.provider.Join(r.handle)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(joinTimeout):
			m.mu.Lock()
			m.detached++
			m.mu.Unlock()
			if onDetached != nil {
				onDetached(b.Name)
			}
			// The goroutine above keeps waiting; it is harmless to leak
			// until the activity actually returns.
		}
	}
}

// StopAll cancels and joins every currently active activity, in no
// particular order, used when an instance is stopped outright.
func (m *Manager[E]) StopAll() {
	m.mu.Lock()
	all := make([]*running, 0, len(m.active))
	for k, r := range m.active {
		all = append(all, r)
		delete(m.active, k)
	}
	m.mu.Unlock()

	for _, r := range all {
		r.ctx.Cancel()
		m.provider.Join(r.handle)
	}
}

// DetachedCount reports how many joins have fallen back to the detached
// path, for tests and diagnostics.
func (m *Manager[E]) DetachedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detached
}

// StartTimer spawns the auto-generated activity backing an after/every
// transition. dispatch is called with the synthetic time event once per
// fire, from a goroutine of its own, so that the timer task is not itself
// running the transition that exits its owning state and then joins it; the
// manager does not know about transitions or the dispatcher's lock, only
// about sleeping and re-calling dispatch.
func StartTimer[E any](m *Manager[E], ownerState, eventName string, timer model.Timer[E], ext E, triggerEv model.Event, dispatch func(model.Event)) {
	b := model.Behavior[E]{
		Name: fmt.Sprintf("timer(%s)", eventName),
		Fn: func(ctx *model.Context, ext E, ev model.Event) {
			switch timer.Kind {
			case model.After:
				d := timer.Duration(ctx, ext, ev)
				if d <= 0 {
					return
				}
				m.provider.SleepFor(ctx, d)
				if ctx.Cancelled() {
					return
				}
				go dispatch(model.NewTimeEvent(eventName, nil))
			case model.Every:
				for {
					d := timer.Duration(ctx, ext, ev)
					if d <= 0 {
						return
					}
					m.provider.SleepFor(ctx, d)
					if ctx.Cancelled() {
						return
					}
					go dispatch(model.NewTimeEvent(eventName, nil))
				}
			}
		},
	}
	m.Enter(ownerState, []model.Behavior[E]{b}, ext, triggerEv)
}

// TimerBehaviorName returns the behavior name StartTimer registers a timer
// task under, so the dispatcher can list a state's timers alongside its
// activities when it calls Exit for that state.
func TimerBehaviorName(eventName string) string {
	return fmt.Sprintf("timer(%s)", eventName)
}
