// Package model is the elaborated, immutable representation of a statechart:
// the graph of states, pseudostates, transitions, behaviors and guards, plus
// the lookup tables built once at the end of elaboration. Nothing in this
// package runs an instance; internal/dispatch does that against the tables
// built here.
package model

// Subkind distinguishes the four event flavors the engine recognizes.
type Subkind uint8

const (
	// Signal is an ordinary user-dispatched event.
	Signal Subkind = iota
	// Completion is synthesized when a Final state is entered, so the
	// enclosing composite's completion transitions can fire. Following a
	// composite's initial transition does not enqueue one. Completion events
	// are always inserted at the head of the queue.
	Completion
	// Time is synthesized by an active after/every activity.
	Time
	// InitialEvent is the distinguished completion event used at start-up.
	InitialEvent
)

// completionEventName is the reserved event name used for all synthetic
// completion events; it can never collide with a user signal name because
// TransitionBuilder.Build rejects user event names starting with "@".
const completionEventName = "@completion"

// Event is a single occurrence delivered to a running instance. Data carries
// an optional, opaque payload.
type Event struct {
	Name    string
	Data    any
	Subkind Subkind
}

// NewEvent constructs a plain signal event.
func NewEvent(name string, data any) Event {
	return Event{Name: name, Subkind: Signal, Data: data}
}

// NewCompletionEvent constructs the synthetic event enqueued when a Final
// state is entered. Default entry into a composite does not enqueue one.
func NewCompletionEvent() Event {
	return Event{Name: completionEventName, Subkind: Completion}
}

// NewInitialEvent constructs the distinguished completion event used by
// Start.
func NewInitialEvent() Event {
	return Event{Name: completionEventName, Subkind: InitialEvent}
}

// NewTimeEvent constructs the synthetic event an after/every activity
// dispatches when its duration elapses. name uniquely identifies the timed
// transition it is paired with.
func NewTimeEvent(name string, data any) Event {
	return Event{Name: name, Subkind: Time, Data: data}
}

// IsCompletion reports whether e is a completion or initial event, both of
// which are promoted to the head of the queue and matched only by
// event-less transitions.
func (e Event) IsCompletion() bool {
	return e.Subkind == Completion || e.Subkind == InitialEvent
}

// NameVariants returns e.Name followed by the sequence obtained by
// repeatedly stripping the suffix after the last '_' or '/'. This powers the
// opt-in hierarchical event-name matcher (dispatch.WithEventNameMatching);
// callers that have it disabled should use []string{e.Name} directly instead
// of calling this method.
func (e Event) NameVariants() []string {
	variants := []string{e.Name}
	name := e.Name
	for {
		idx := lastIndexAny(name, "_/")
		if idx < 0 {
			break
		}
		name = name[:idx]
		if name == "" {
			break
		}
		variants = append(variants, name)
	}
	return variants
}

func lastIndexAny(s, chars string) int {
	for i := len(s) - 1; i >= 0; i-- {
		for j := 0; j < len(chars); j++ {
			if s[i] == chars[j] {
				return i
			}
		}
	}
	return -1
}
