// Package events carries the signals the lifecycle core raises towards its
// presentation caller: state invalidation, user notifications, busy flags and
// focus requests. The core publishes; the caller subscribes.
package events

// Event is implemented by every signal published on the bus
type Event interface {
	EventType() string
}

// Event type names
const (
	TypeStateInvalidated = "state.invalidated"
	TypeNotification     = "notification"
	TypeBusyChanged      = "busy.changed"
	TypeFocusRequested   = "focus.requested"
)

// Scope names the aggregate a StateInvalidated event refers to
type Scope string

const (
	ScopeCampaign  Scope = "campaign"
	ScopeDashboard Scope = "dashboard"
)

// StateInvalidated tells the caller to refetch an aggregate in full
type StateInvalidated struct {
	Scope Scope  `json:"scope"`
	ID    string `json:"id,omitempty"`
}

func (StateInvalidated) EventType() string { return TypeStateInvalidated }

// Level of a user-facing notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a short user-facing message
type Notification struct {
	Level   Level
	Message string
	Detail  string
}

func (Notification) EventType() string { return TypeNotification }

// BusyChanged reports the pending state of an in-flight action
type BusyChanged struct {
	Action string
	Busy   bool
}

func (BusyChanged) EventType() string { return TypeBusyChanged }

// FocusRequested asks the presentation layer to focus an input
type FocusRequested struct {
	Field string
}

func (FocusRequested) EventType() string { return TypeFocusRequested }

// Publisher is the narrow side of the bus handed to the core
type Publisher interface {
	Publish(Event)
}

// Discard is a Publisher that drops every event
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
