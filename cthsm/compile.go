// Package cthsm is the compile-time-table counterpart to hsm: the identical
// Start/Dispatch/Stop/State contract, but with every per-event lookup
// resolved to a sorted, index-addressed slice at Compile time instead of the
// hash/ordered-map tables internal/model builds for the dynamic engine. It
// is for machines whose shape is fixed once at startup and whose dispatch
// hot path should avoid map indirection — everything else (the event queue,
// the activity manager, the LCA-based exit/enter path computation) is reused
// unchanged from the dynamic runtime, so the two variants' semantics cannot
// drift apart.
package cthsm

import (
	"sort"

	"github.com/hsmrt/hsm/internal/model"
)

// eventCandidates is one state's priority-ordered transition list for one
// event name.
type eventCandidates[E any] struct {
	name        string
	transitions []*model.Transition[E]
}

// CompiledModel is a Model with every vertex assigned a stable integer ID
// and its event/deferred lookups flattened into sorted slices. Build one
// with Compile and share it, read-only, across any number of Instances —
// exactly like model.Model.
type CompiledModel[E any] struct {
	m *model.Model[E]

	idOf  map[string]int
	names []string // idOf's inverse: names[id] is the qualified name

	// eventsByID[id] is sorted by name for binary-search lookup, mirroring
	// the ordered-map internal/model keeps per vertex but addressed by int
	// rather than by the vertex's qualified name.
	eventsByID [][]eventCandidates[E]

	// deferredByID[id] is sorted for binary-search membership testing.
	deferredByID [][]string
}

// Compile flattens m's per-vertex tables into CompiledModel's index-addressed
// form. m is retained (not copied) for everything Compile does not need to
// flatten: vertex data, ancestor walks and exit/enter path computation are
// delegated straight through to it, since none of that depends on how the
// per-event table is stored.
func Compile[E any](m *model.Model[E]) *CompiledModel[E] {
	names := m.VertexNames()
	cm := &CompiledModel[E]{
		m:            m,
		idOf:         make(map[string]int, len(names)),
		names:        names,
		eventsByID:   make([][]eventCandidates[E], len(names)),
		deferredByID: make([][]string, len(names)),
	}
	for id, name := range names {
		cm.idOf[name] = id
	}

	for id, name := range names {
		v, ok := m.Vertex(name)
		if !ok || !(v.IsLeaf()) {
			continue
		}
		merged := map[string][]*model.Transition[E]{}
		var deferred []string
		seenDeferred := map[string]struct{}{}
		for _, ancestorName := range m.Ancestors(name) {
			av, _ := m.Vertex(ancestorName)
			if av == nil {
				continue
			}
			for d := range av.Deferred {
				if _, dup := seenDeferred[d]; !dup {
					seenDeferred[d] = struct{}{}
					deferred = append(deferred, d)
				}
			}
		}
		// The per-event candidate ordering (nearest-declaring-ancestor
		// first) is already materialized in m.transitionTable; reuse it via
		// TransitionsFor rather than re-deriving priority from scratch, so
		// the two engines can never disagree about candidate order.
		eventNames := map[string]struct{}{}
		for _, ancestorName := range m.Ancestors(name) {
			av, _ := m.Vertex(ancestorName)
			if av == nil {
				continue
			}
			for _, t := range av.Out {
				for evName := range t.Events {
					eventNames[evName] = struct{}{}
				}
				if len(t.Events) == 0 && t.Timer.Kind != model.NoTimer {
					eventNames[t.Timer.EventName] = struct{}{}
				}
			}
		}
		for evName := range eventNames {
			merged[evName] = m.TransitionsFor(name, evName)
		}

		cands := make([]eventCandidates[E], 0, len(merged))
		for evName, ts := range merged {
			cands = append(cands, eventCandidates[E]{name: evName, transitions: ts})
		}
		sort.Slice(cands, func(i, j int) bool { return cands[i].name < cands[j].name })
		cm.eventsByID[id] = cands

		sort.Strings(deferred)
		cm.deferredByID[id] = deferred
	}

	return cm
}

// RootName returns the qualified name of the machine's root vertex.
func (cm *CompiledModel[E]) RootName() string { return cm.m.RootName() }

func (cm *CompiledModel[E]) idFor(name string) int {
	id, ok := cm.idOf[name]
	if !ok {
		panic("cthsm: unknown vertex " + name)
	}
	return id
}

// transitionsFor returns the priority-ordered candidate transitions for
// event name eventName as seen from leaf vertex leafName, via binary search
// over the sorted per-state event table.
func (cm *CompiledModel[E]) transitionsFor(leafName, eventName string) []*model.Transition[E] {
	cands := cm.eventsByID[cm.idFor(leafName)]
	i := sort.Search(len(cands), func(i int) bool { return cands[i].name >= eventName })
	if i < len(cands) && cands[i].name == eventName {
		return cands[i].transitions
	}
	return nil
}

// deferredAt reports whether eventName is deferred while leafName is the
// active leaf, via binary search over the sorted per-state deferred list.
func (cm *CompiledModel[E]) deferredAt(leafName, eventName string) bool {
	list := cm.deferredByID[cm.idFor(leafName)]
	i := sort.Search(len(list), func(i int) bool { return list[i] >= eventName })
	return i < len(list) && list[i] == eventName
}
