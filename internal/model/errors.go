package model

import "errors"

// Sentinel errors returned by Builder.Build for malformed-model conditions
// (see SPEC_FULL.md §7, "Malformed model"). Build fails fast rather than
// letting these surface at dispatch time.
var (
	ErrNoRoot             = errors.New("model: root state is required")
	ErrUnresolvedVertex   = errors.New("model: reference to an undefined vertex")
	ErrDuplicateVertex    = errors.New("model: duplicate qualified name")
	ErrMissingInitial     = errors.New("model: composite state has no initial transition")
	ErrChoiceNoFallback   = errors.New("model: choice pseudostate has no guardless fallback transition")
	ErrChoiceTooFewBranch = errors.New("model: choice pseudostate needs at least two branches")
	ErrFinalWithBehavior  = errors.New("model: final state must not declare entry, exit, activity or outgoing transitions")
	ErrInvalidInternal    = errors.New("model: internal transition must not have a target")
	ErrInvalidLocal       = errors.New("model: local transition requires an ancestor/descendant relationship")
	ErrReservedEventName  = errors.New("model: event names starting with '@' are reserved for the engine")
	ErrOrphanVertex       = errors.New("model: vertex is not reachable from the root")
)
