package model

import "time"

// Event is the payload carried by every lifecycle emission. Listeners may
// set PropagationStopped to halt the bubble-up walk.
type Event struct {
	Name               string
	Timestamp          time.Time
	Context            any
	Source             SymbolNode
	Payload            any
	PropagationStopped bool
}

// Stop halts further bubbling of this event past the current listener.
func (e *Event) Stop() { e.PropagationStopped = true }

// Standard lifecycle event names, subject to the onSet/onGet/onClear/
// onChange attribute aliases.
const (
	EventSet     = "set"
	EventGet     = "get"
	EventCleared = "cleared"
	EventChanged = "changed"
)

// Registry and coordinator lifecycle event names.
const (
	EventCreated        = "created"
	EventDestroyed      = "destroyed"
	EventConnected      = "connected"
	EventDisconnected   = "disconnected"
	EventSourceChanged  = "sourceChanged"
	EventConnectionLost = "connectionLost"
	EventReconnected    = "reconnected"
	EventKilled         = "killed"
	EventReinitialized  = "reinitialized"
)
