package cthsm

import (
	"time"

	"github.com/hsmrt/hsm/internal/activity"
)

// Option configures an Instance at construction. Same shape as
// internal/dispatch.Option, generalized the same way (explicit type
// parameter, since dispatcher is generic over the caller's extended-state
// type).
type Option[E any] func(*dispatcher[E])

// TaskProvider is the injectable runner behind every activity and timer
// behavior.
type TaskProvider = activity.Provider

// WithQueueCapacity overrides the event queue's bound (default
// equeue.DefaultCapacity).
func WithQueueCapacity[E any](capacity int) Option[E] {
	return func(d *dispatcher[E]) { d.queueCapacity = capacity }
}

// WithTaskProvider overrides the activity/timer task provider (default
// activity.GoroutineProvider).
func WithTaskProvider[E any](p TaskProvider) Option[E] {
	return func(d *dispatcher[E]) { d.provider = p }
}

// WithLogger overrides the diagnostic sink (default StdLogger).
func WithLogger[E any](l Logger) Option[E] {
	return func(d *dispatcher[E]) { d.logger = l }
}

// WithEventNameMatching enables hierarchical suffix matching of event names.
func WithEventNameMatching[E any](enabled bool) Option[E] {
	return func(d *dispatcher[E]) { d.matchVariants = enabled }
}

// WithActivityJoinTimeout overrides how long Stop/exit-processing waits for
// an activity to wind down before releasing it detached. A value <= 0 means
// "wait forever."
func WithActivityJoinTimeout[E any](d time.Duration) Option[E] {
	return func(disp *dispatcher[E]) { disp.joinTimeout = d }
}
