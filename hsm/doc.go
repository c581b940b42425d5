// Package hsm is the entry point for declaring and running hierarchical
// state machines. Typical use:
//
//	b := hsm.NewBuilder[*MyExt]("Door")
//	root := b.Root()
//	root.Initial("Closed")
//	root.Leaf("Closed").On("open").To("/Door/Opened").Build()
//	root.Leaf("Opened").On("close").To("/Door/Closed").Build()
//	model, err := b.Build()
//
//	inst := hsm.NewInstance(model, &MyExt{})
//	inst.Start()
//	inst.Dispatch(hsm.NewEvent("open", nil))
//
// See cthsm for a compile-time-table variant with the identical Instance
// contract, intended for machines whose shape is fixed at build time and
// whose per-event dispatch cost should avoid map/ordered-map lookups.
package hsm
