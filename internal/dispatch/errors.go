package dispatch

import "errors"

// Sentinel errors returned by Dispatcher's lifecycle methods. Malformed
// models never reach this package (model.Builder.Build rejects them
// first); these instead cover lifecycle misuse.
var (
	// ErrAlreadyStarted is returned by Start on a running instance.
	ErrAlreadyStarted = errors.New("dispatch: instance already started")
	// ErrNotStarted is returned by Stop on an instance that is not running.
	ErrNotStarted = errors.New("dispatch: instance not started")
	// ErrReentrantLifecycle is returned when Start or Stop is called
	// re-entrantly (from within a behavior running on the same instance),
	// which — unlike Dispatch — this engine does not support.
	ErrReentrantLifecycle = errors.New("dispatch: Start/Stop may not be called re-entrantly")
)
