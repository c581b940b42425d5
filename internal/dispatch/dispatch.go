// Package dispatch is the execution kernel: Start/Dispatch/Stop/State over
// an elaborated *model.Model, implementing full UML statechart semantics
// (hierarchy, entry/exit/activity, guards, choice pseudostates, deferral,
// timed after/every transitions, completion events). internal/model supplies
// the read-only graph and tables; internal/equeue the event queue;
// internal/activity the concurrent-behavior runner. Nothing here is
// exported outside the module — the hsm and cthsm packages are the public
// facades.
package dispatch

import (
	"sync"
	"time"

	"github.com/hsmrt/hsm/internal/activity"
	"github.com/hsmrt/hsm/internal/equeue"
	"github.com/hsmrt/hsm/internal/model"
)

// Context is the cancellation token passed to every behavior invocation.
// Re-exported here (rather than requiring callers to reach into
// internal/model) because it appears in every public behavior signature.
type Context = model.Context

// Event is a single occurrence delivered to, or produced by, a running
// instance.
type Event = model.Event

// Dispatcher is one running statechart instance: a model reference plus all
// per-instance mutable runtime state (current configuration, event queue,
// active-activity set, extended state). Constructed once per instance by
// New; not safe to share between instances, though the *model.Model it
// reads from may be shared read-only by any number of Dispatchers.
type Dispatcher[E any] struct {
	m *model.Model[E]

	provider      activity.Provider
	logger        Logger
	queueCapacity int
	matchVariants bool
	joinTimeout   time.Duration

	mu         sync.Mutex
	processing bool
	current    string // "" means stopped

	queue       *equeue.Queue
	activities  *activity.Manager[E]
	ext         E
	deferredBuf []Event
}

// New constructs a Dispatcher for model m, with ext as the extended-state
// value every behavior and guard is invoked with.
func New[E any](m *model.Model[E], ext E, opts ...Option[E]) *Dispatcher[E] {
	d := &Dispatcher[E]{
		m:             m,
		ext:           ext,
		queueCapacity: equeue.DefaultCapacity,
		logger:        NewStdLogger(),
		provider:      activity.GoroutineProvider{},
		joinTimeout:   activity.DefaultJoinTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = equeue.New(d.queueCapacity, func(ev Event, reason string) {
		d.logger.Errorf("event %q dropped: %s", ev.Name, reason)
	})
	d.activities = activity.NewManager[E](d.provider)
	return d
}

// Ext returns the extended-state value the dispatcher invokes behaviors
// with.
func (d *Dispatcher[E]) Ext() E { return d.ext }

// State returns the qualified name of the current leaf, or "" if the
// instance is stopped.
func (d *Dispatcher[E]) State() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Start activates the model's default configuration. If the model has no
// initial transition (an empty, childless root), State() remains "" and
// Start returns nil: there is nothing to run.
func (d *Dispatcher[E]) Start() error {
	d.mu.Lock()
	if d.current != "" {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	if d.processing {
		d.mu.Unlock()
		return ErrReentrantLifecycle
	}
	d.processing = true
	d.current = d.m.RootName()
	d.mu.Unlock()

	root := d.m.MustVertex(d.m.RootName())
	if root.Initial != nil {
		d.runTransition(root.Initial, d.m.RootName(), model.NewInitialEvent())
		d.drain()
	} else {
		d.mu.Lock()
		d.current = ""
		d.mu.Unlock()
	}

	d.mu.Lock()
	d.processing = false
	d.mu.Unlock()
	return nil
}

// Stop exits the active configuration from leaf to root, joins every
// outstanding activity, clears the queue, and sets the current state to
// "none." Subsequent Dispatch calls are no-ops until Start is called again.
func (d *Dispatcher[E]) Stop() error {
	d.mu.Lock()
	if d.current == "" {
		d.mu.Unlock()
		return ErrNotStarted
	}
	if d.processing {
		d.mu.Unlock()
		return ErrReentrantLifecycle
	}
	d.processing = true
	leaf := d.current
	d.mu.Unlock()

	for _, name := range d.m.Ancestors(leaf) {
		if name == d.m.RootName() {
			break
		}
		d.exitState(name, Event{})
	}
	d.activities.StopAll()

	d.mu.Lock()
	d.current = ""
	d.processing = false
	d.deferredBuf = nil
	d.mu.Unlock()

	for {
		if _, ok := d.queue.Pop(); !ok {
			break
		}
	}
	return nil
}

// Dispatch enqueues ev and, if no other goroutine currently holds the
// processing lock, drains the queue. If another goroutine is draining, ev is
// simply appended and that goroutine will process it before releasing the
// lock — mirroring the teacher's processing-flag re-queue pattern in
// statechart.go's SendEvent.
func (d *Dispatcher[E]) Dispatch(ev Event) error {
	d.mu.Lock()
	if d.current == "" {
		d.mu.Unlock()
		return nil
	}
	d.queue.Push(ev)
	if d.processing {
		d.mu.Unlock()
		return nil
	}
	d.processing = true
	d.mu.Unlock()

	d.drain()

	d.mu.Lock()
	d.processing = false
	d.mu.Unlock()
	return nil
}

// drain processes events until the queue is empty or the instance stops.
// The caller must already hold d.processing (set, not the mutex itself).
func (d *Dispatcher[E]) drain() {
	for {
		d.mu.Lock()
		if d.current == "" {
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()

		ev, ok := d.queue.Pop()
		if !ok {
			return
		}
		d.step(ev)
	}
}

// step implements §4.4.2: one Dispatch main-loop iteration for a single
// popped event.
func (d *Dispatcher[E]) step(ev Event) {
	d.mu.Lock()
	leaf := d.current
	d.mu.Unlock()

	variants := []string{ev.Name}
	if d.matchVariants {
		variants = ev.NameVariants()
	}

	if !ev.IsCompletion() {
		for _, v := range variants {
			if d.m.DeferredAt(leaf, v) {
				d.deferredBuf = append(d.deferredBuf, ev)
				return
			}
		}
	}

	taken := d.selectTransition(leaf, ev, variants)
	if taken == nil {
		return
	}

	d.runTransition(taken, leaf, ev)

	d.mu.Lock()
	changed := d.current != leaf
	d.mu.Unlock()
	if changed && len(d.deferredBuf) > 0 {
		buf := d.deferredBuf
		d.deferredBuf = nil
		d.queue.PushFrontAll(buf)
	}
}

// selectTransition walks the priority-ordered candidate list for each
// event-name variant (outer loop over variants preserves the contract that
// the literal name is always tried before any stripped variant) and returns
// the first transition whose guard (if any) is satisfied.
func (d *Dispatcher[E]) selectTransition(leaf string, ev Event, variants []string) *model.Transition[E] {
	for _, v := range variants {
		for _, t := range d.m.TransitionsFor(leaf, v) {
			if d.evalGuard(t, ev) {
				return t
			}
		}
	}
	return nil
}

func (d *Dispatcher[E]) evalGuard(t *model.Transition[E], ev Event) (ok bool) {
	if t.Guard == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("guard %q panicked: %v", t.Guard.Name, r)
			ok = false
		}
	}()
	return t.Guard.Fn(model.Background(), d.ext, ev)
}

// runTransition executes §4.4.3 for transition t fired from leafName.
func (d *Dispatcher[E]) runTransition(t *model.Transition[E], leafName string, ev Event) {
	exit, enter := d.m.ExitEnterPath(t, leafName)

	for _, s := range exit {
		d.exitState(s, ev)
	}

	d.runEffects(t.Effects, ev)

	if t.Kind == model.Internal || t.Target == "" {
		return
	}

	for _, s := range enter {
		d.enterState(s, ev)
	}

	d.resolvePseudoEntry(t.Target, ev)
}

// resolvePseudoEntry implements step 6 of §4.4.3: after entering t.Target,
// recursively resolve a composite's initial transition or a choice
// pseudostate's guarded branches until a real (leaf or final) state is
// reached.
func (d *Dispatcher[E]) resolvePseudoEntry(target string, ev Event) {
	v := d.m.MustVertex(target)
	switch {
	case v.Kind.IsComposite():
		if v.Initial == nil {
			d.setCurrent(target)
			return
		}
		d.runTransition(v.Initial, target, ev)
	case v.Kind == model.Choice:
		chosen := d.resolveChoice(v, ev)
		if chosen == nil {
			d.logger.Errorf("choice %q has no enabled branch; remaining in place", target)
			return
		}
		d.runTransition(chosen, target, ev)
	default:
		d.setCurrent(target)
		if v.Kind == model.Final {
			d.queue.Push(model.NewCompletionEvent())
		}
	}
}

func (d *Dispatcher[E]) resolveChoice(v *model.Vertex[E], ev Event) *model.Transition[E] {
	for _, t := range v.Out {
		if d.evalGuard(t, ev) {
			return t
		}
	}
	return nil
}

func (d *Dispatcher[E]) setCurrent(name string) {
	d.mu.Lock()
	d.current = name
	d.mu.Unlock()
}

// exitState runs one state's exit path: cancel+join its activities (user
// activities and any auto-generated timers, deepest-declared-first), then
// its exit behaviors in declaration order. ev is the event that triggered
// the transition causing this exit (the zero Event for Stop()).
func (d *Dispatcher[E]) exitState(name string, ev Event) {
	v := d.m.MustVertex(name)

	behaviors := make([]model.Behavior[E], 0, len(v.Activities)+len(v.Out))
	behaviors = append(behaviors, v.Activities...)
	for _, t := range v.Out {
		if t.Timer.Kind != model.NoTimer {
			behaviors = append(behaviors, model.Behavior[E]{Name: activity.TimerBehaviorName(t.Timer.EventName)})
		}
	}
	d.activities.Exit(name, behaviors, d.joinTimeout, func(behaviorName string) {
		d.logger.Errorf("activity %q on %q did not wind down within %s; released detached", behaviorName, name, d.joinTimeout)
	})

	for _, b := range v.Exit {
		d.runBehavior(b, name, "exit", ev)
	}
}

// enterState runs one state's entry path: entry behaviors in declaration
// order, then spawns its activities and any timer transitions it owns.
func (d *Dispatcher[E]) enterState(name string, ev Event) {
	v := d.m.MustVertex(name)
	for _, b := range v.Entry {
		d.runBehavior(b, name, "entry", ev)
	}
	d.activities.Enter(name, v.Activities, d.ext, ev)
	for _, t := range v.Out {
		if t.Timer.Kind != model.NoTimer {
			activity.StartTimer(d.activities, name, t.Timer.EventName, t.Timer, d.ext, ev, func(timeEv Event) {
				d.Dispatch(timeEv)
			})
		}
	}
}

func (d *Dispatcher[E]) runEffects(effects []model.Behavior[E], ev Event) {
	for _, b := range effects {
		d.runBehavior(b, "", "effect", ev)
	}
}

func (d *Dispatcher[E]) runBehavior(b model.Behavior[E], owner, phase string, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("%s behavior %q (state %q) panicked: %v", phase, b.Name, owner, r)
		}
	}()
	if b.Fn == nil {
		return
	}
	b.Fn(model.Background(), d.ext, ev)
}

