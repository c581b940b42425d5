package cthsm

import (
	"github.com/hsmrt/hsm/internal/model"
)

// Builder assembles a Model via the same fluent, nesting API as hsm.Builder
// — compiling only changes how the finished Model is executed, not how it
// is declared.
type Builder[E any] = model.Builder[E]

// Context is the cancellation token passed to every behavior invocation.
type Context = model.Context

// Event is a single occurrence delivered to, or produced by, a running
// Instance.
type Event = model.Event

// NewBuilder constructs a Builder whose root vertex is named rootName.
func NewBuilder[E any](rootName string) *Builder[E] { return model.NewBuilder[E](rootName) }

// NewEvent constructs a plain signal event.
func NewEvent(name string, data any) Event { return model.NewEvent(name, data) }

// Instance is a running, compiled-table statechart: the same Start,
// Dispatch, Stop, State contract as hsm.Instance, over a CompiledModel
// instead of a *model.Model.
type Instance[E any] struct {
	Ext E

	d *dispatcher[E]
}

// NewInstance constructs an Instance over compiled model cm, with ext as its
// initial extended-state value. Call Start before dispatching any events.
func NewInstance[E any](cm *CompiledModel[E], ext E, opts ...Option[E]) *Instance[E] {
	return &Instance[E]{Ext: ext, d: newDispatcher(cm, ext, opts...)}
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
