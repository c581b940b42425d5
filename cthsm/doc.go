// Package cthsm mirrors hsm's Builder/Instance contract exactly, but runs
// against a Compile-time-flattened table instead of hsm's hash/ordered-map
// lookups:
//
//	b := cthsm.NewBuilder[*MyExt]("Door")
//	... same declarations as hsm ...
//	model, err := b.Build()
//	compiled := cthsm.Compile(model)
//
//	inst := cthsm.NewInstance(compiled, &MyExt{})
//	inst.Start()
//	inst.Dispatch(cthsm.NewEvent("open", nil))
//
// Use this variant when a machine's shape is fixed once at startup and the
// per-event dispatch cost of map/ordered-map lookups matters; use hsm
// directly otherwise. The two share every package below the table-lookup
// boundary (internal/model's graph and exit/enter-path computation,
// internal/equeue, internal/activity), so their semantics cannot drift
// apart — only how a leaf's event table is stored and searched differs.
package cthsm
