package model

import (
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/hsmrt/hsm/internal/path"
)

// eventTable maps an event name to its priority-ordered candidate
// transitions (nearest declaring vertex first). An ordered map is used,
// rather than a plain Go map plus a side slice of keys, so the event names
// keep the order in which they were first added; the engine itself only
// looks entries up by name.
type eventTable[E any] = orderedmap.OrderedMap[string, []*Transition[E]]

// pathEntry is a precomputed (or lazily-extended) transition path: the
// sequence of states to exit (leaf-first) and to enter (parent-first).
type pathEntry struct {
	Exit  []string
	Enter []string
}

// Model is the elaborated, immutable statechart graph plus its precomputed
// lookup tables. A Model is built once by Builder.Build and may then be
// shared, read-only, by any number of running instances.
type Model[E any] struct {
	rootName string
	vertices map[string]*Vertex[E]

	// transitionTable[vertexName] is the merged, priority-ordered table of
	// every event reachable from that vertex (its own transitions plus every
	// ancestor's), built once after elaboration for every vertex that
	// IsLeaf.
	transitionTable map[string]*eventTable[E]

	// deferredTable[vertexName] is the full set of event names deferred at
	// that vertex or any ancestor.
	deferredTable map[string]map[string]struct{}

	// pathCache memoizes ExitEnterPath(t, leaf) results. Most transitions
	// are declared directly on the current leaf, in which case the path is
	// computed once at Build time; transitions declared on an ancestor (and
	// therefore reachable from more than one leaf) are cached lazily on
	// first use.
	pathMu    sync.RWMutex
	pathCache map[*Transition[E]]map[string]pathEntry
}

// RootName returns the qualified name of the machine's root vertex.
func (m *Model[E]) RootName() string { return m.rootName }

// Vertex looks up a vertex by its absolute qualified name.
func (m *Model[E]) Vertex(name string) (*Vertex[E], bool) {
	v, ok := m.vertices[name]
	return v, ok
}

// MustVertex is like Vertex but panics on a missing name; used internally
// once a model has been validated, where a miss indicates an engine bug
// rather than a user error.
func (m *Model[E]) MustVertex(name string) *Vertex[E] {
	v, ok := m.vertices[name]
	if !ok {
		panic(fmt.Sprintf("model: unknown vertex %q", name))
	}
	return v
}

// VertexNames returns every vertex's qualified name in breadth-first order
// from the root, children in declaration order within each level. The order
// is deterministic for a given Model, which cthsm.Compile relies on to
// assign stable integer state IDs.
func (m *Model[E]) VertexNames() []string {
	out := make([]string, 0, len(m.vertices))
	queue := []string{m.rootName}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		out = append(out, name)
		if v := m.vertices[name]; v != nil {
			queue = append(queue, v.Children...)
		}
	}
	return out
}

// Ancestors returns the qualified names from name up to and including the
// root, nearest first.
func (m *Model[E]) Ancestors(name string) []string {
	var out []string
	for n := name; n != ""; {
		out = append(out, n)
		v := m.vertices[n]
		if v == nil || v.Parent == "" {
			break
		}
		n = v.Parent
	}
	return out
}

// TransitionsFor returns the priority-ordered candidate transitions for
// event name eventName as seen from leaf vertex leafName, or nil if none are
// registered for that name at all.
func (m *Model[E]) TransitionsFor(leafName, eventName string) []*Transition[E] {
	table, ok := m.transitionTable[leafName]
	if !ok {
		return nil
	}
	v, ok := table.Get(eventName)
	if !ok {
		return nil
	}
	return v
}

// DeferredAt reports whether eventName is deferred while leafName is the
// active leaf (considering self and every ancestor).
func (m *Model[E]) DeferredAt(leafName, eventName string) bool {
	set, ok := m.deferredTable[leafName]
	if !ok {
		return false
	}
	_, deferred := set[eventName]
	return deferred
}

// ExitEnterPath returns the exit sequence (leaf-first) and entry sequence
// (parent-first) for transition t fired from current leaf leafName,
// computing and caching it on first request for this (t, leafName) pair.
func (m *Model[E]) ExitEnterPath(t *Transition[E], leafName string) (exit, enter []string) {
	m.pathMu.RLock()
	if byLeaf, ok := m.pathCache[t]; ok {
		if e, ok := byLeaf[leafName]; ok {
			m.pathMu.RUnlock()
			return e.Exit, e.Enter
		}
	}
	m.pathMu.RUnlock()

	entry := m.computePath(t, leafName)

	m.pathMu.Lock()
	byLeaf, ok := m.pathCache[t]
	if !ok {
		byLeaf = map[string]pathEntry{}
		m.pathCache[t] = byLeaf
	}
	byLeaf[leafName] = entry
	m.pathMu.Unlock()

	return entry.Exit, entry.Enter
}

func (m *Model[E]) computePath(t *Transition[E], leafName string) pathEntry {
	switch t.Kind {
	case Internal:
		return pathEntry{}
	case Self:
		// Exit and re-enter the source itself: bound both sequences by its
		// parent rather than by the source.
		parent := m.vertices[t.Source].Parent
		return pathEntry{Exit: m.exitSeq(leafName, parent), Enter: m.enterSeq(parent, t.Target)}
	default:
		lca := path.LCA(leafName, t.Target)
		if t.Kind == Local {
			// Local transitions don't exit/re-enter the composite endpoint
			// of the pair; raise the effective LCA one level so that
			// endpoint is excluded from both sequences.
			if path.IsAncestor(t.Source, t.Target) || t.Source == lca {
				lca = t.Source
			} else {
				lca = t.Target
			}
		}
		return pathEntry{Exit: m.exitSeq(leafName, lca), Enter: m.enterSeq(lca, t.Target)}
	}
}

// exitSeq returns the states from leaf up to but not including lca,
// leaf-first.
func (m *Model[E]) exitSeq(leaf, lca string) []string {
	var out []string
	for n := leaf; n != "" && n != lca; {
		out = append(out, n)
		v := m.vertices[n]
		if v == nil {
			break
		}
		n = v.Parent
	}
	return out
}

// enterSeq returns the states from lca down to target, parent-first,
// excluding lca itself.
func (m *Model[E]) enterSeq(lca, target string) []string {
	var chain []string
	for n := target; n != "" && n != lca; {
		chain = append(chain, n)
		v := m.vertices[n]
		if v == nil {
			break
		}
		n = v.Parent
	}
	// chain is leaf-first (target..just-above-lca); reverse to parent-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
