package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hsmrt/hsm/internal/path"
)

// Builder assembles a Model[E] via a fluent, nesting API in the style of
// dragomit/hsm's StateBuilder/TransitionBuilder and comalice/statechartx's
// MachineBuilder/StateBuilder, generalized to this engine's richer vertex
// kinds (choice pseudostates, deferral, activities, timers). Builder is not
// safe for concurrent use; build a Model on a single goroutine, then share
// the resulting *Model[E] freely.
type Builder[E any] struct {
	vertices    map[string]*Vertex[E]
	order       []string // declaration order, for deterministic validation/table passes
	rootName    string
	errs        []error
	transitions []*Transition[E]
	timerSeq    int
}

// NewBuilder creates a Builder whose root vertex is named rootName (e.g.
// "Model"), addressed thereafter as "/Model".
func NewBuilder[E any](rootName string) *Builder[E] {
	root := &Vertex[E]{Name: path.Normalize("/" + rootName), Kind: Root, Deferred: map[string]struct{}{}}
	return &Builder[E]{
		vertices: map[string]*Vertex[E]{root.Name: root},
		order:    []string{root.Name},
		rootName: root.Name,
	}
}

// Root returns a StateBuilder positioned at the machine's root, the starting
// point for adding children, the root's own deferred events, and top-level
// transitions.
func (b *Builder[E]) Root() *StateBuilder[E] {
	return &StateBuilder[E]{b: b, name: b.rootName}
}

func (b *Builder[E]) fail(err error) {
	b.errs = append(b.errs, err)
}

// StateBuilder is positioned at one vertex of the tree being built and
// accumulates its behaviors, deferrals, children and outgoing transitions.
type StateBuilder[E any] struct {
	b    *Builder[E]
	name string
}

// Name returns the qualified name of the vertex this builder is positioned
// at.
func (sb *StateBuilder[E]) Name() string { return sb.name }

func (sb *StateBuilder[E]) vertex() *Vertex[E] {
	return sb.b.vertices[sb.name]
}

func (sb *StateBuilder[E]) addChild(name string, kind Kind) *StateBuilder[E] {
	full := path.Join(sb.name, name)
	if _, exists := sb.b.vertices[full]; exists {
		sb.b.fail(fmt.Errorf("%w: %s", ErrDuplicateVertex, full))
		return &StateBuilder[E]{b: sb.b, name: full}
	}
	v := &Vertex[E]{Name: full, Parent: sb.name, Kind: kind, Deferred: map[string]struct{}{}}
	sb.b.vertices[full] = v
	sb.b.order = append(sb.b.order, full)
	parent := sb.vertex()
	parent.Children = append(parent.Children, full)
	return &StateBuilder[E]{b: sb.b, name: full}
}

// Composite adds a nested composite (non-leaf) substate named name.
func (sb *StateBuilder[E]) Composite(name string) *StateBuilder[E] {
	return sb.addChild(name, Composite)
}

// Leaf adds an ordinary childless substate named name.
func (sb *StateBuilder[E]) Leaf(name string) *StateBuilder[E] {
	return sb.addChild(name, Leaf)
}

// Final adds a final substate: a leaf that cannot be exited and whose entry
// produces a completion event for the enclosing composite.
func (sb *StateBuilder[E]) Final(name string) *StateBuilder[E] {
	return sb.addChild(name, Final)
}

// Choice adds a choice pseudostate named name and returns a ChoiceBuilder for
// declaring its guarded branches.
func (sb *StateBuilder[E]) Choice(name string) *ChoiceBuilder[E] {
	child := sb.addChild(name, Choice)
	return &ChoiceBuilder[E]{b: sb.b, name: child.name, parent: sb.name}
}

// Up returns a builder positioned at this vertex's parent, for resuming
// sibling declarations after a nested block.
func (sb *StateBuilder[E]) Up() *StateBuilder[E] {
	v := sb.vertex()
	return &StateBuilder[E]{b: sb.b, name: v.Parent}
}

// Entry appends a named entry behavior, run (in declaration order, after any
// previously added) whenever this vertex is entered.
func (sb *StateBuilder[E]) Entry(name string, fn ActionFunc[E]) *StateBuilder[E] {
	v := sb.vertex()
	v.Entry = append(v.Entry, Behavior[E]{Name: name, Fn: fn})
	return sb
}

// Exit appends a named exit behavior, run whenever this vertex is exited.
func (sb *StateBuilder[E]) Exit(name string, fn ActionFunc[E]) *StateBuilder[E] {
	v := sb.vertex()
	v.Exit = append(v.Exit, Behavior[E]{Name: name, Fn: fn})
	return sb
}

// Activity appends a named concurrent behavior, spawned on entry and
// cancelled-then-joined on exit.
func (sb *StateBuilder[E]) Activity(name string, fn ActionFunc[E]) *StateBuilder[E] {
	v := sb.vertex()
	v.Activities = append(v.Activities, Behavior[E]{Name: name, Fn: fn})
	return sb
}

// Defer marks eventNames as deferred while this vertex is (part of) the
// active configuration.
func (sb *StateBuilder[E]) Defer(eventNames ...string) *StateBuilder[E] {
	v := sb.vertex()
	for _, n := range eventNames {
		v.Deferred[n] = struct{}{}
	}
	return sb
}

// Initial declares this composite vertex's default-entry target, resolved
// relative to this vertex (so a bare child name, ".", or "..") all work as
// documented in SPEC_FULL.md §4.1.
func (sb *StateBuilder[E]) Initial(target string) *StateBuilder[E] {
	v := sb.vertex()
	if v.Initial != nil {
		sb.b.fail(fmt.Errorf("model: %s already has an initial transition", sb.name))
		return sb
	}
	resolved := path.ResolveRelative(sb.name, target)
	v.Initial = &Transition[E]{Source: sb.name, Target: resolved, Events: map[string]struct{}{}, Kind: External}
	sb.b.transitions = append(sb.b.transitions, v.Initial)
	return sb
}

// On begins building a transition triggered by the given signal event names.
// Calling On with no arguments begins a completion transition, fired when
// this vertex's active descendant reaches a final state.
func (sb *StateBuilder[E]) On(eventNames ...string) *TransitionBuilder[E] {
	return &TransitionBuilder[E]{b: sb.b, source: sb.name, events: eventNames}
}

// ChoiceBuilder declares the guarded branches of a choice pseudostate.
// Branches are evaluated in declaration order; Default (or any Branch
// without a guard) supplies the mandatory fallback.
type ChoiceBuilder[E any] struct {
	b      *Builder[E]
	name   string
	parent string
}

// Name returns the choice pseudostate's qualified name.
func (cb *ChoiceBuilder[E]) Name() string { return cb.name }

func (cb *ChoiceBuilder[E]) addBranch(guard *Guard[E], target string) *ChoiceBuilder[E] {
	resolved := path.ResolveRelative(cb.name, target)
	t := &Transition[E]{Source: cb.name, Target: resolved, Events: map[string]struct{}{}, Guard: guard, Kind: External}
	v := cb.b.vertices[cb.name]
	v.Out = append(v.Out, t)
	cb.b.transitions = append(cb.b.transitions, t)
	return cb
}

// Branch adds a guarded branch, tried in declaration order.
func (cb *ChoiceBuilder[E]) Branch(guardName string, fn GuardFunc[E], target string) *ChoiceBuilder[E] {
	return cb.addBranch(&Guard[E]{Name: guardName, Fn: fn}, target)
}

// Default adds the mandatory guardless fallback branch.
func (cb *ChoiceBuilder[E]) Default(target string) *ChoiceBuilder[E] {
	return cb.addBranch(nil, target)
}

// Up returns a builder positioned at the choice's parent vertex.
func (cb *ChoiceBuilder[E]) Up() *StateBuilder[E] {
	return &StateBuilder[E]{b: cb.b, name: cb.parent}
}

// TransitionBuilder accumulates the optional pieces of a transition
// (target, guard, effects, timing, internal/local kind) before Build
// registers it on its source vertex.
type TransitionBuilder[E any] struct {
	b         *Builder[E]
	source    string
	events    []string
	target    string
	hasTarget bool
	guard     *Guard[E]
	effects   []Behavior[E]
	internal  bool
	local     bool
	timer     Timer[E]
}

// To sets the transition's target, resolved relative to the source vertex.
// Omitting To altogether makes the transition internal.
func (tb *TransitionBuilder[E]) To(target string) *TransitionBuilder[E] {
	tb.target = path.ResolveRelative(tb.source, target)
	tb.hasTarget = true
	return tb
}

// Guard sets the transition's guard predicate.
func (tb *TransitionBuilder[E]) Guard(name string, fn GuardFunc[E]) *TransitionBuilder[E] {
	tb.guard = &Guard[E]{Name: name, Fn: fn}
	return tb
}

// Effect appends a named effect behavior, run between exit and entry.
func (tb *TransitionBuilder[E]) Effect(name string, fn ActionFunc[E]) *TransitionBuilder[E] {
	tb.effects = append(tb.effects, Behavior[E]{Name: name, Fn: fn})
	return tb
}

// Internal asserts that this transition must be treated as internal (no
// exit/entry), and is only valid when no target is set or the target equals
// the source.
func (tb *TransitionBuilder[E]) Internal() *TransitionBuilder[E] {
	tb.internal = true
	return tb
}

// Local asserts that this transition is local: it must connect a composite
// to one of its descendants and will not exit/re-enter that composite.
func (tb *TransitionBuilder[E]) Local() *TransitionBuilder[E] {
	tb.local = true
	return tb
}

// After makes this a one-shot timed transition: durationFn after the source
// state is entered, the transition fires (unless cancelled by an earlier
// exit). A non-positive duration means "never fire."
func (tb *TransitionBuilder[E]) After(fn DurationFunc[E]) *TransitionBuilder[E] {
	tb.b.timerSeq++
	tb.timer = Timer[E]{Kind: After, Duration: fn, EventName: fmt.Sprintf("@timer/after/%d", tb.b.timerSeq)}
	return tb
}

// Every makes this a periodic timed transition, firing every durationFn
// until its owning state is exited.
func (tb *TransitionBuilder[E]) Every(fn DurationFunc[E]) *TransitionBuilder[E] {
	tb.b.timerSeq++
	tb.timer = Timer[E]{Kind: Every, Duration: fn, EventName: fmt.Sprintf("@timer/every/%d", tb.b.timerSeq)}
	return tb
}

// Build finalizes the transition and registers it on its source vertex's
// outgoing list.
func (tb *TransitionBuilder[E]) Build() *Transition[E] {
	for _, e := range tb.events {
		if strings.HasPrefix(e, "@") {
			tb.b.fail(fmt.Errorf("%w: %q", ErrReservedEventName, e))
		}
	}

	var (
		kind   TransKind
		target string
	)
	switch {
	case tb.internal:
		if tb.hasTarget && tb.target != tb.source {
			tb.b.fail(fmt.Errorf("%w: %s -> %s", ErrInvalidInternal, tb.source, tb.target))
		}
		kind = Internal
	case !tb.hasTarget:
		kind = Internal
	case tb.target == tb.source:
		kind = Self
	case tb.local:
		if !(path.IsAncestor(tb.source, tb.target) || path.IsAncestor(tb.target, tb.source)) {
			tb.b.fail(fmt.Errorf("%w: %s -> %s", ErrInvalidLocal, tb.source, tb.target))
		}
		kind = Local
		target = tb.target
	default:
		kind = External
		target = tb.target
	}
	if kind == Self {
		target = tb.target
	}

	events := map[string]struct{}{}
	switch {
	case tb.timer.Kind != NoTimer:
		events[tb.timer.EventName] = struct{}{}
	case len(tb.events) == 0:
		events[completionEventName] = struct{}{}
	default:
		for _, e := range tb.events {
			events[e] = struct{}{}
		}
	}

	t := &Transition[E]{
		Source:  tb.source,
		Target:  target,
		Events:  events,
		Guard:   tb.guard,
		Effects: tb.effects,
		Timer:   tb.timer,
		Kind:    kind,
	}

	src := tb.b.vertices[tb.source]
	src.Out = append(src.Out, t)
	tb.b.transitions = append(tb.b.transitions, t)
	return t
}

// Build validates the accumulated tree and transitions, then constructs the
// immutable Model and its precomputed lookup tables. All malformed-model
// conditions (§7) are reported here rather than at dispatch time.
func (b *Builder[E]) Build() (*Model[E], error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	for _, name := range b.order {
		v := b.vertices[name]
		switch {
		case v.Kind.IsComposite():
			if v.Initial == nil {
				if len(v.Children) > 0 {
					return nil, fmt.Errorf("%w: %s", ErrMissingInitial, name)
				}
				continue
			}
			if _, ok := b.vertices[v.Initial.Target]; !ok {
				return nil, fmt.Errorf("%w: initial target %s of %s", ErrUnresolvedVertex, v.Initial.Target, name)
			}
		case v.Kind == Choice:
			if len(v.Out) < 2 {
				return nil, fmt.Errorf("%w: %s", ErrChoiceTooFewBranch, name)
			}
			hasFallback := false
			for _, t := range v.Out {
				if t.Guard == nil {
					hasFallback = true
				}
			}
			if !hasFallback {
				return nil, fmt.Errorf("%w: %s", ErrChoiceNoFallback, name)
			}
		case v.Kind == Final:
			if len(v.Entry) > 0 || len(v.Exit) > 0 || len(v.Activities) > 0 || len(v.Out) > 0 {
				return nil, fmt.Errorf("%w: %s", ErrFinalWithBehavior, name)
			}
		}
	}

	for _, t := range b.transitions {
		if _, ok := b.vertices[t.Source]; !ok {
			return nil, fmt.Errorf("%w: source %s", ErrUnresolvedVertex, t.Source)
		}
		if t.Kind != Internal {
			if _, ok := b.vertices[t.Target]; !ok {
				return nil, fmt.Errorf("%w: target %s", ErrUnresolvedVertex, t.Target)
			}
		}
	}

	visited := make(map[string]bool, len(b.vertices))
	var walk func(string)
	walk = func(n string) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, c := range b.vertices[n].Children {
			walk(c)
		}
	}
	walk(b.rootName)
	for n := range b.vertices {
		if !visited[n] {
			return nil, fmt.Errorf("%w: %s", ErrOrphanVertex, n)
		}
	}

	m := &Model[E]{
		rootName:  b.rootName,
		vertices:  b.vertices,
		pathCache: map[*Transition[E]]map[string]pathEntry{},
	}
	m.buildTables()
	for _, t := range b.transitions {
		m.ExitEnterPath(t, t.Source)
	}
	return m, nil
}
