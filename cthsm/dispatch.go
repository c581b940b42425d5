package cthsm

import (
	"sync"
	"time"

	"github.com/hsmrt/hsm/internal/activity"
	"github.com/hsmrt/hsm/internal/equeue"
	"github.com/hsmrt/hsm/internal/model"
)

// Context is the cancellation token passed to every behavior invocation.
type Context = model.Context

// Event is a single occurrence delivered to, or produced by, a running
// instance.
type Event = model.Event

// dispatcher is the compiled-table execution kernel. It is structurally the
// same state machine as internal/dispatch.Dispatcher — same fields, same
// Start/Dispatch/Stop/step/runTransition control flow — with exactly one
// difference: selectTransition and the deferred check consult cm's sorted,
// index-addressed slices instead of model.Model's hash/ordered-map tables.
// Everything that does not depend on table representation (exit/enter path
// computation, ancestor walks, activity lifecycle, the event queue) is
// reused unchanged from the packages the dynamic dispatcher also depends on.
type dispatcher[E any] struct {
	cm *CompiledModel[E]

	provider      activity.Provider
	logger        dispatchLogger
	queueCapacity int
	matchVariants bool
	joinTimeout   time.Duration

	mu         sync.Mutex
	processing bool
	current    string

	queue       *equeue.Queue
	activities  *activity.Manager[E]
	ext         E
	deferredBuf []Event
}

func newDispatcher[E any](cm *CompiledModel[E], ext E, opts ...Option[E]) *dispatcher[E] {
	d := &dispatcher[E]{
		cm:            cm,
		ext:           ext,
		queueCapacity: equeue.DefaultCapacity,
		logger:        newStdLogger(),
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

func (d *dispatcher[E]) State() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func (d *dispatcher[E]) Start() error {
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
	d.current = d.cm.RootName()
	d.mu.Unlock()

	root := d.cm.m.MustVertex(d.cm.RootName())
	if root.Initial != nil {
		d.runTransition(root.Initial, d.cm.RootName(), model.NewInitialEvent())
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

func (d *dispatcher[E]) Stop() error {
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

	for _, name := range d.cm.m.Ancestors(leaf) {
		if name == d.cm.RootName() {
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

func (d *dispatcher[E]) Dispatch(ev Event) error {
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

func (d *dispatcher[E]) drain() {
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

func (d *dispatcher[E]) step(ev Event) {
	d.mu.Lock()
	leaf := d.current
	d.mu.Unlock()

	variants := []string{ev.Name}
	if d.matchVariants {
		variants = ev.NameVariants()
	}

	if !ev.IsCompletion() {
		for _, v := range variants {
			if d.cm.deferredAt(leaf, v) {
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

// selectTransition is the one method that differs from the dynamic
// dispatcher's: candidates come from cm.transitionsFor's binary search
// rather than model.Model.TransitionsFor's ordered-map Get.
func (d *dispatcher[E]) selectTransition(leaf string, ev Event, variants []string) *model.Transition[E] {
	for _, v := range variants {
		for _, t := range d.cm.transitionsFor(leaf, v) {
			if d.evalGuard(t, ev) {
				return t
			}
		}
	}
	return nil
}

func (d *dispatcher[E]) evalGuard(t *model.Transition[E], ev Event) (ok bool) {
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

func (d *dispatcher[E]) runTransition(t *model.Transition[E], leafName string, ev Event) {
	exit, enter := d.cm.m.ExitEnterPath(t, leafName)

	for _, s := range exit {
		d.exitState(s, ev)
	}

	for _, b := range t.Effects {
		d.runBehavior(b, "", "effect", ev)
	}

	if t.Kind == model.Internal || t.Target == "" {
		return
	}

	for _, s := range enter {
		d.enterState(s, ev)
	}

	d.resolvePseudoEntry(t.Target, ev)
}

func (d *dispatcher[E]) resolvePseudoEntry(target string, ev Event) {
	v := d.cm.m.MustVertex(target)
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

func (d *dispatcher[E]) resolveChoice(v *model.Vertex[E], ev Event) *model.Transition[E] {
	for _, t := range v.Out {
		if d.evalGuard(t, ev) {
			return t
		}
	}
	return nil
}

func (d *dispatcher[E]) setCurrent(name string) {
	d.mu.Lock()
	d.current = name
	d.mu.Unlock()
}

func (d *dispatcher[E]) exitState(name string, ev Event) {
	v := d.cm.m.MustVertex(name)

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

func (d *dispatcher[E]) enterState(name string, ev Event) {
	v := d.cm.m.MustVertex(name)
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

func (d *dispatcher[E]) runBehavior(b model.Behavior[E], owner, phase string, ev Event) {
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
