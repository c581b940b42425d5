package dispatch

import (
	"time"

	"github.com/hsmrt/hsm/internal/activity"
)

// Option configures a Dispatcher at construction, following the functional
// options pattern the teacher uses throughout internal/core (WithActionRunner,
// WithGuardEvaluator, ...), generalized here with an explicit type parameter
// since Dispatcher itself is generic over the caller's extended-state type.
type Option[E any] func(*Dispatcher[E])

// WithQueueCapacity overrides the event queue's bound (default
// equeue.DefaultCapacity).
func WithQueueCapacity[E any](capacity int) Option[E] {
	return func(d *Dispatcher[E]) { d.queueCapacity = capacity }
}

// WithTaskProvider overrides the activity/timer task provider (default
// activity.GoroutineProvider).
func WithTaskProvider[E any](p activity.Provider) Option[E] {
	return func(d *Dispatcher[E]) { d.provider = p }
}

// WithLogger overrides the diagnostic sink (default StdLogger, wrapping
// log.Default()).
func WithLogger[E any](l Logger) Option[E] {
	return func(d *Dispatcher[E]) { d.logger = l }
}

// WithEventNameMatching enables (or, passed false, explicitly keeps
// disabled) hierarchical suffix matching of event names: with it enabled, an
// event "request_data" also matches a transition triggered on "request".
// Off by default (see DESIGN.md Open Questions).
func WithEventNameMatching[E any](enabled bool) Option[E] {
	return func(d *Dispatcher[E]) { d.matchVariants = enabled }
}

// WithActivityJoinTimeout overrides how long Stop/exit-processing waits for
// an activity to wind down before releasing it detached (default
// activity.DefaultJoinTimeout). A value <= 0 means "wait forever."
func WithActivityJoinTimeout[E any](d time.Duration) Option[E] {
	return func(disp *Dispatcher[E]) { disp.joinTimeout = d }
}
