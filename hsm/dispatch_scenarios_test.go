package hsm_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsmrt/hsm/hsm"
)

// These scenarios mirror a subset of internal/dispatch's scenario tests but
// run through the public facade only, guarding against the re-export surface
// (Builder, Instance, Context, Event, Option) drifting out of sync with the
// engine underneath.

type ext struct{ log []string }

func trace(e *ext, s string) { e.log = append(e.log, s) }

func buildDoor(t *testing.T) *hsm.Model[*ext] {
	t.Helper()
	b := hsm.NewBuilder[*ext]("Door")
	root := b.Root()
	root.Initial("Closed")
	root.Leaf("Closed").
		Entry("enterClosed", func(_ *hsm.Context, e *ext, _ hsm.Event) { trace(e, "enter:Closed") }).
		Exit("exitClosed", func(_ *hsm.Context, e *ext, _ hsm.Event) { trace(e, "exit:Closed") }).
		On("open").To("/Door/Opened").Effect("logOpen", func(_ *hsm.Context, e *ext, _ hsm.Event) { trace(e, "effect:open") }).Build()
	root.Leaf("Opened").
		Entry("enterOpened", func(_ *hsm.Context, e *ext, _ hsm.Event) { trace(e, "enter:Opened") }).
		On("close").To("/Door/Closed").Build()

	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestInstanceStartEntersDefaultConfiguration(t *testing.T) {
	m := buildDoor(t)
	e := &ext{}
	inst := hsm.NewInstance(m, e, hsm.WithLogger[*ext](discardLogger{}))

	require.NoError(t, inst.Start())
	assert.Equal(t, "/Door/Closed", inst.State())
	assert.Equal(t, []string{"enter:Closed"}, e.log)
}

func TestInstanceDispatchRunsEffectAndEntryExit(t *testing.T) {
	m := buildDoor(t)
	e := &ext{}
	inst := hsm.NewInstance(m, e, hsm.WithLogger[*ext](discardLogger{}))
	require.NoError(t, inst.Start())

	require.NoError(t, inst.Dispatch(hsm.NewEvent("open", nil)))
	assert.Equal(t, "/Door/Opened", inst.State())
	assert.Equal(t, []string{"enter:Closed", "exit:Closed", "effect:open", "enter:Opened"}, e.log)
}

func TestInstanceStopExitsAndClearsState(t *testing.T) {
	m := buildDoor(t)
	e := &ext{}
	inst := hsm.NewInstance(m, e, hsm.WithLogger[*ext](discardLogger{}))
	require.NoError(t, inst.Start())

	require.NoError(t, inst.Stop())
	assert.Equal(t, "", inst.State())
	assert.Contains(t, e.log, "exit:Closed")
}

// buildChoice exercises a choice pseudostate with a guarded branch and a
// mandatory fallback.
func buildChoice(t *testing.T) *hsm.Model[*ext] {
	t.Helper()
	b := hsm.NewBuilder[*ext]("M")
	root := b.Root()
	root.Initial("A")
	root.Leaf("A").On("go").To("/M/C").Build()
	c := root.Choice("C")
	c.Branch("positive", func(_ *hsm.Context, e *ext, _ hsm.Event) bool { return len(e.log) > 100 }, "/M/B")
	c.Default("/M/Fallback")
	root.Leaf("B")
	root.Leaf("Fallback")

	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestInstanceChoicePseudostateTakesFallbackBranch(t *testing.T) {
	m := buildChoice(t)
	e := &ext{}
	inst := hsm.NewInstance(m, e, hsm.WithLogger[*ext](discardLogger{}))
	require.NoError(t, inst.Start())

	require.NoError(t, inst.Dispatch(hsm.NewEvent("go", nil)))
	assert.Equal(t, "/M/Fallback", inst.State())
}

// buildActivity exercises activity spawn-on-entry / cancel-and-join-on-exit
// through the default task provider.
func buildActivity(t *testing.T) (*hsm.Model[*ext], *int32) {
	t.Helper()
	var running int32
	b := hsm.NewBuilder[*ext]("M")
	root := b.Root()
	root.Initial("A")
	root.Leaf("A").
		Activity("poll", func(ctx *hsm.Context, e *ext, _ hsm.Event) {
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
	return m, &running
}

func TestInstanceActivityIsJoinedBeforeExitCompletes(t *testing.T) {
	m, running := buildActivity(t)
	e := &ext{}
	inst := hsm.NewInstance(m, e, hsm.WithLogger[*ext](discardLogger{}))
	require.NoError(t, inst.Start())

	require.Eventually(t, func() bool { return atomic.LoadInt32(running) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, inst.Dispatch(hsm.NewEvent("go", nil)))
	assert.Equal(t, "/M/B", inst.State())
	assert.Equal(t, int32(0), atomic.LoadInt32(running))
}

// buildTimer exercises an after() timed transition firing on its own.
func buildTimer(t *testing.T) *hsm.Model[*ext] {
	t.Helper()
	b := hsm.NewBuilder[*ext]("M")
	root := b.Root()
	root.Initial("A")
	root.Leaf("A").
		On().After(func(_ *hsm.Context, _ *ext, _ hsm.Event) time.Duration { return 5 * time.Millisecond }).To("/M/B").Build()
	root.Leaf("B")

	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestInstanceAfterTimerFiresAndTransitions(t *testing.T) {
	m := buildTimer(t)
	e := &ext{}
	inst := hsm.NewInstance(m, e, hsm.WithLogger[*ext](discardLogger{}))
	require.NoError(t, inst.Start())

	require.Eventually(t, func() bool { return inst.State() == "/M/B" }, time.Second, time.Millisecond)
}

type discardLogger struct{}

func (discardLogger) Debugf(string, ...any) {}
func (discardLogger) Infof(string, ...any)  {}
func (discardLogger) Errorf(string, ...any) {}
