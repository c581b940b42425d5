// Package hsm is the public facade over the hierarchical state machine
// engine: a generic Builder for declaring a statechart, the immutable Model
// it produces, and Instance, the running handle dispatched against. The
// heavy lifting lives in internal/model (elaborated graph + tables),
// internal/equeue (bounded event queue), internal/activity (concurrent
// behavior runner) and internal/dispatch (the execution kernel); this
// package only re-exports the types and functions a caller needs, the way
// the teacher's top-level statechart.go sits in front of internal/core.
package hsm

import (
	"time"

	"github.com/hsmrt/hsm/internal/activity"
	"github.com/hsmrt/hsm/internal/dispatch"
	"github.com/hsmrt/hsm/internal/model"
)

// Model is the elaborated, immutable statechart graph produced by Builder.Build.
// Share it freely, read-only, across any number of Instances.
type Model[E any] = model.Model[E]

// Builder assembles a Model via a fluent, nesting API. See NewBuilder.
type Builder[E any] = model.Builder[E]

// StateBuilder is positioned at one vertex of the tree under construction.
type StateBuilder[E any] = model.StateBuilder[E]

// ChoiceBuilder declares the guarded branches of a choice pseudostate.
type ChoiceBuilder[E any] = model.ChoiceBuilder[E]

// TransitionBuilder accumulates one transition's optional pieces before
// Build registers it.
type TransitionBuilder[E any] = model.TransitionBuilder[E]

// Context is the cancellation token passed to every behavior invocation.
type Context = model.Context

// Event is a single occurrence delivered to, or produced by, a running
// Instance.
type Event = model.Event

// ActionFunc is the signature shared by entry, exit, effect and activity
// behaviors.
type ActionFunc[E any] = model.ActionFunc[E]

// GuardFunc is the signature for transition and choice guards.
type GuardFunc[E any] = model.GuardFunc[E]

// DurationFunc computes the delay for a timed (after/every) transition.
type DurationFunc[E any] = model.DurationFunc[E]

// Option configures an Instance at construction (queue capacity, task
// provider, logger, event-name matching, activity join timeout).
type Option[E any] = dispatch.Option[E]

// Logger is the diagnostic sink for queue drops, recovered panics and
// unresolved-choice warnings.
type Logger = dispatch.Logger

// TaskProvider is the injectable runner behind every activity and timer
// behavior. The default, used when no WithTaskProvider option is given, is
// one goroutine per spawned task.
type TaskProvider = activity.Provider

// NewBuilder constructs a Builder whose root vertex is named rootName.
func NewBuilder[E any](rootName string) *Builder[E] { return model.NewBuilder[E](rootName) }

// NewStdLogger returns a Logger backed by the standard library's log
// package, the same logging style the teacher uses throughout (log.Printf,
// no third-party logging dependency).
func NewStdLogger() Logger { return dispatch.NewStdLogger() }

// NewEvent constructs a plain signal event.
func NewEvent(name string, data any) Event { return model.NewEvent(name, data) }

// WithQueueCapacity overrides an Instance's event queue bound.
func WithQueueCapacity[E any](capacity int) Option[E] { return dispatch.WithQueueCapacity[E](capacity) }

// WithTaskProvider overrides the activity/timer task provider.
func WithTaskProvider[E any](p TaskProvider) Option[E] { return dispatch.WithTaskProvider[E](p) }

// WithLogger overrides an Instance's diagnostic sink.
func WithLogger[E any](l Logger) Option[E] { return dispatch.WithLogger[E](l) }

// WithEventNameMatching enables hierarchical suffix matching of event names.
func WithEventNameMatching[E any](enabled bool) Option[E] {
	return dispatch.WithEventNameMatching[E](enabled)
}

// WithActivityJoinTimeout overrides how long Stop/exit-processing waits for
// an activity to wind down before releasing it detached. A value <= 0 means
// "wait forever."
func WithActivityJoinTimeout[E any](d time.Duration) Option[E] {
	return dispatch.WithActivityJoinTimeout[E](d)
}

// Instance is a running statechart: the user-owned extended-state value
// plus a back-pointer to the dispatcher that mutates it. Construct one with
// NewInstance, Start it, and Dispatch events against it for its lifetime.
type Instance[E any] struct {
	// Ext is the extended-state value every behavior and guard is invoked
	// with. It is the same value the dispatcher holds; for pointer-typed E
	// (the common case) mutations through either reference are visible to
	// both.
	Ext E

	d *dispatch.Dispatcher[E]
}

// NewInstance constructs an Instance over model m, with ext as its initial
// extended-state value. Call Start before dispatching any events.
func NewInstance[E any](m *Model[E], ext E, opts ...Option[E]) *Instance[E] {
	return &Instance[E]{Ext: ext, d: dispatch.New(m, ext, opts...)}
}

// Start activates the model's default configuration.
func (i *Instance[E]) Start() error { return i.d.Start() }

// Dispatch delivers event ev, running it (and any completion/timer events it
// produces) to completion before returning.
func (i *Instance[E]) Dispatch(ev Event) error { return i.d.Dispatch(ev) }

// Stop exits the active configuration and joins every outstanding activity.
func (i *Instance[E]) Stop() error { return i.d.Stop() }

// State returns the qualified name of the current leaf, or "" when stopped.
func (i *Instance[E]) State() string { return i.d.State() }
