package cthsm_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsmrt/hsm/cthsm"
)

// The scenarios of hsm's dispatch_scenarios_test.go plus internal/dispatch's
// deferral and nested-transition scenarios, run against the compiled-table
// variant, to pin down that compiling a model changes nothing
// observable about its behavior.

type ext struct{ log []string }

func trace(e *ext, s string) { e.log = append(e.log, s) }

func buildDoor(t *testing.T) *cthsm.CompiledModel[*ext] {
	t.Helper()
	b := cthsm.NewBuilder[*ext]("Door")
	root := b.Root()
	root.Initial("Closed")
	root.Leaf("Closed").
		Entry("enterClosed", func(_ *cthsm.Context, e *ext, _ cthsm.Event) { trace(e, "enter:Closed") }).
		Exit("exitClosed", func(_ *cthsm.Context, e *ext, _ cthsm.Event) { trace(e, "exit:Closed") }).
		On("open").To("/Door/Opened").Effect("logOpen", func(_ *cthsm.Context, e *ext, _ cthsm.Event) { trace(e, "effect:open") }).Build()
	root.Leaf("Opened").
		Entry("enterOpened", func(_ *cthsm.Context, e *ext, _ cthsm.Event) { trace(e, "enter:Opened") }).
		On("close").To("/Door/Closed").Build()

	m, err := b.Build()
	require.NoError(t, err)
	return cthsm.Compile(m)
}

func TestCompiledStartEntersDefaultConfiguration(t *testing.T) {
	cm := buildDoor(t)
	e := &ext{}
	inst := cthsm.NewInstance(cm, e, cthsm.WithLogger[*ext](cthsm.NopLogger{}))

	require.NoError(t, inst.Start())
	assert.Equal(t, "/Door/Closed", inst.State())
	assert.Equal(t, []string{"enter:Closed"}, e.log)
}

func TestCompiledDispatchRunsEffectAndEntryExit(t *testing.T) {
	cm := buildDoor(t)
	e := &ext{}
	inst := cthsm.NewInstance(cm, e, cthsm.WithLogger[*ext](cthsm.NopLogger{}))
	require.NoError(t, inst.Start())

	require.NoError(t, inst.Dispatch(cthsm.NewEvent("open", nil)))
	assert.Equal(t, "/Door/Opened", inst.State())
	assert.Equal(t, []string{"enter:Closed", "exit:Closed", "effect:open", "enter:Opened"}, e.log)
}

func TestCompiledStopExitsAndClearsState(t *testing.T) {
	cm := buildDoor(t)
	e := &ext{}
	inst := cthsm.NewInstance(cm, e, cthsm.WithLogger[*ext](cthsm.NopLogger{}))
	require.NoError(t, inst.Start())

	require.NoError(t, inst.Stop())
	assert.Equal(t, "", inst.State())
	assert.Contains(t, e.log, "exit:Closed")
}

// buildChoice exercises a choice pseudostate with a guarded branch and a
// mandatory fallback.
func buildChoice(t *testing.T) *cthsm.CompiledModel[*ext] {
	t.Helper()
	b := cthsm.NewBuilder[*ext]("M")
	root := b.Root()
	root.Initial("A")
	root.Leaf("A").On("go").To("/M/C").Build()
	c := root.Choice("C")
	c.Branch("positive", func(_ *cthsm.Context, e *ext, _ cthsm.Event) bool { return len(e.log) > 100 }, "/M/B")
	c.Default("/M/Fallback")
	root.Leaf("B")
	root.Leaf("Fallback")

	m, err := b.Build()
	require.NoError(t, err)
	return cthsm.Compile(m)
}

func TestCompiledChoicePseudostateTakesFallbackBranch(t *testing.T) {
	cm := buildChoice(t)
	e := &ext{}
	inst := cthsm.NewInstance(cm, e, cthsm.WithLogger[*ext](cthsm.NopLogger{}))
	require.NoError(t, inst.Start())

	require.NoError(t, inst.Dispatch(cthsm.NewEvent("go", nil)))
	assert.Equal(t, "/M/Fallback", inst.State())
}

// buildDeferring exercises deferral: "ping" is deferred in Busy and only
// consumed once the machine returns to Idle.
func buildDeferring(t *testing.T) *cthsm.CompiledModel[*ext] {
	t.Helper()
	b := cthsm.NewBuilder[*ext]("M")
	root := b.Root()
	root.Initial("Idle")
	idle := root.Leaf("Idle")
	idle.On("ping").Internal().Effect("pong", func(_ *cthsm.Context, e *ext, _ cthsm.Event) { trace(e, "pong") }).Build()
	idle.On("go").To("/M/Busy").Build()
	root.Leaf("Busy").
		Defer("ping").
		On("done").To("/M/Idle").Build()

	m, err := b.Build()
	require.NoError(t, err)
	return cthsm.Compile(m)
}

func TestCompiledDeferredEventIsReofferedAfterStateChange(t *testing.T) {
	cm := buildDeferring(t)
	e := &ext{}
	inst := cthsm.NewInstance(cm, e, cthsm.WithLogger[*ext](cthsm.NopLogger{}))
	require.NoError(t, inst.Start())

	require.NoError(t, inst.Dispatch(cthsm.NewEvent("go", nil)))
	assert.Equal(t, "/M/Busy", inst.State())

	require.NoError(t, inst.Dispatch(cthsm.NewEvent("ping", nil)))
	assert.NotContains(t, e.log, "pong")

	require.NoError(t, inst.Dispatch(cthsm.NewEvent("done", nil)))
	assert.Equal(t, "/M/Idle", inst.State())
	assert.Contains(t, e.log, "pong")
}

// buildActivity exercises activity spawn-on-entry / cancel-and-join-on-exit.
func buildActivity(t *testing.T) (*cthsm.CompiledModel[*ext], *int32) {
	t.Helper()
	var running int32
	b := cthsm.NewBuilder[*ext]("M")
	root := b.Root()
	root.Initial("A")
	root.Leaf("A").
		Activity("poll", func(ctx *cthsm.Context, e *ext, _ cthsm.Event) {
			atomic.AddInt32(&running, 1)
			defer atomic.AddInt32(&running, -1)
			for !ctx.Cancelled() {
				time.Sleep(time.Millisecond)
			}
		}).
		On("go").To("/M/B").Build()
	root.Leaf("B")

	m, err := b.Build()
	require.NoError(t, err)
	return cthsm.Compile(m), &running
}

func TestCompiledActivityIsJoinedBeforeExitCompletes(t *testing.T) {
	cm, running := buildActivity(t)
	e := &ext{}
	inst := cthsm.NewInstance(cm, e, cthsm.WithLogger[*ext](cthsm.NopLogger{}))
	require.NoError(t, inst.Start())

	require.Eventually(t, func() bool { return atomic.LoadInt32(running) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, inst.Dispatch(cthsm.NewEvent("go", nil)))
	assert.Equal(t, "/M/B", inst.State())
	assert.Equal(t, int32(0), atomic.LoadInt32(running))
}

// buildTimer exercises an after() timed transition firing on its own.
func buildTimer(t *testing.T) *cthsm.CompiledModel[*ext] {
	t.Helper()
	b := cthsm.NewBuilder[*ext]("M")
	root := b.Root()
	root.Initial("A")
	root.Leaf("A").
		On().After(func(_ *cthsm.Context, _ *ext, _ cthsm.Event) time.Duration { return 5 * time.Millisecond }).To("/M/B").Build()
	root.Leaf("B")

	m, err := b.Build()
	require.NoError(t, err)
	return cthsm.Compile(m)
}

func TestCompiledAfterTimerFiresAndTransitions(t *testing.T) {
	cm := buildTimer(t)
	e := &ext{}
	inst := cthsm.NewInstance(cm, e, cthsm.WithLogger[*ext](cthsm.NopLogger{}))
	require.NoError(t, inst.Start())

	require.Eventually(t, func() bool { return inst.State() == "/M/B" }, time.Second, time.Millisecond)
}

// buildNested exercises LCA-based exit/entry for a transition crossing two
// composite states.
func buildNested(t *testing.T) *cthsm.CompiledModel[*ext] {
	t.Helper()
	b := cthsm.NewBuilder[*ext]("M")
	root := b.Root()
	root.Initial("Left")

	left := root.Composite("Left")
	left.Initial("L1")
	left.Entry("enterLeft", func(_ *cthsm.Context, e *ext, _ cthsm.Event) { trace(e, "enter:Left") })
	left.Exit("exitLeft", func(_ *cthsm.Context, e *ext, _ cthsm.Event) { trace(e, "exit:Left") })
	left.Leaf("L1").
		Entry("enterL1", func(_ *cthsm.Context, e *ext, _ cthsm.Event) { trace(e, "enter:L1") }).
		Exit("exitL1", func(_ *cthsm.Context, e *ext, _ cthsm.Event) { trace(e, "exit:L1") }).
		On("go").To("/M/Right/R1").Build()

	right := root.Composite("Right")
	right.Initial("R1")
	right.Entry("enterRight", func(_ *cthsm.Context, e *ext, _ cthsm.Event) { trace(e, "enter:Right") })
	right.Leaf("R1").
		Entry("enterR1", func(_ *cthsm.Context, e *ext, _ cthsm.Event) { trace(e, "enter:R1") })

	m, err := b.Build()
	require.NoError(t, err)
	return cthsm.Compile(m)
}

func TestCompiledNestedTransitionExitsAndEntersViaLCA(t *testing.T) {
	cm := buildNested(t)
	e := &ext{}
	inst := cthsm.NewInstance(cm, e, cthsm.WithLogger[*ext](cthsm.NopLogger{}))
	require.NoError(t, inst.Start())
	e.log = nil

	require.NoError(t, inst.Dispatch(cthsm.NewEvent("go", nil)))
	assert.Equal(t, "/M/Right/R1", inst.State())
	assert.Equal(t, []string{"exit:L1", "exit:Left", "enter:Right", "enter:R1"}, e.log)
}
