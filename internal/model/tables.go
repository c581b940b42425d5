package model

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// buildTables computes, once and for all, the per-leaf merged transition and
// deferred-event tables described in Model's doc comment. It is called
// exactly once, by Builder.Build, after every structural invariant has
// already been checked.
func (m *Model[E]) buildTables() {
	m.transitionTable = make(map[string]*eventTable[E])
	m.deferredTable = make(map[string]map[string]struct{})

	for name, v := range m.vertices {
		if !v.IsLeaf() {
			continue
		}

		table := orderedmap.New[string, []*Transition[E]]()
		deferred := map[string]struct{}{}

		for _, ancestorName := range m.Ancestors(name) {
			ancestor := m.vertices[ancestorName]
			for evName := range ancestor.Deferred {
				deferred[evName] = struct{}{}
			}
			for _, t := range ancestor.Out {
				for evName := range t.Events {
					existing, _ := table.Get(evName)
					table.Set(evName, append(existing, t))
				}
			}
		}

		m.transitionTable[name] = table
		m.deferredTable[name] = deferred
	}
}
