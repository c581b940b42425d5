package cthsm

import "errors"

// Sentinel errors returned by Instance's lifecycle methods; same contract as
// internal/dispatch's.
var (
	ErrAlreadyStarted     = errors.New("cthsm: instance already started")
	ErrNotStarted         = errors.New("cthsm: instance not started")
	ErrReentrantLifecycle = errors.New("cthsm: Start/Stop may not be called re-entrantly")
)
