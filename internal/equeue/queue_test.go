package equeue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsmrt/hsm/internal/model"
)

func mustPop(t *testing.T, q *Queue) model.Event {
	t.Helper()
	ev, ok := q.Pop()
	require.True(t, ok)
	return ev
}

func TestQueueFIFOOrder(t *testing.T) {
	q := New(4, nil)
	q.Push(model.NewEvent("a", nil))
	q.Push(model.NewEvent("b", nil))
	q.Push(model.NewEvent("c", nil))

	assert.Equal(t, "a", mustPop(t, q).Name)
	assert.Equal(t, "b", mustPop(t, q).Name)
	assert.Equal(t, "c", mustPop(t, q).Name)
	assert.True(t, q.Empty())
}

func TestQueueCompletionEventsJumpTheHead(t *testing.T) {
	q := New(4, nil)
	q.Push(model.NewEvent("a", nil))
	q.Push(model.NewEvent("b", nil))
	q.Push(model.NewCompletionEvent())

	first := mustPop(t, q)
	assert.True(t, first.IsCompletion())
	assert.Equal(t, "a", mustPop(t, q).Name)
	assert.Equal(t, "b", mustPop(t, q).Name)
}

func TestQueueOverflowDropsWithDiagnostic(t *testing.T) {
	var dropped []model.Event
	q := New(2, func(ev model.Event, reason string) {
		dropped = append(dropped, ev)
		assert.NotEmpty(t, reason)
	})
	q.Push(model.NewEvent("a", nil))
	q.Push(model.NewEvent("b", nil))
	q.Push(model.NewEvent("c", nil))

	require.Len(t, dropped, 1)
	assert.Equal(t, "c", dropped[0].Name)
	assert.Equal(t, 2, q.Len())
}

func TestQueuePushFrontAllPreservesOrder(t *testing.T) {
	q := New(8, nil)
	q.Push(model.NewEvent("tail", nil))

	q.PushFrontAll([]model.Event{
		model.NewEvent("d1", nil),
		model.NewEvent("d2", nil),
	})

	assert.Equal(t, "d1", mustPop(t, q).Name)
	assert.Equal(t, "d2", mustPop(t, q).Name)
	assert.Equal(t, "tail", mustPop(t, q).Name)
}

func TestQueuePushFrontAllDropsOverflow(t *testing.T) {
	var dropped []model.Event
	q := New(2, func(ev model.Event, reason string) {
		dropped = append(dropped, ev)
	})
	q.Push(model.NewEvent("tail", nil))
	q.PushFrontAll([]model.Event{
		model.NewEvent("d1", nil),
		model.NewEvent("d2", nil),
	})

	require.Len(t, dropped, 1)
	assert.Equal(t, 2, q.Len())
}

func TestDefaultCapacity(t *testing.T) {
	q := New(0, nil)
	assert.Equal(t, DefaultCapacity, q.capacity)
}
