// Package events implements the parent-chained bubbling emitter every
// SymbolNode uses: a node's own listeners run first, then the event
// re-emits to the parent emitter, walking up until a listener stops
// propagation or the chain runs out.
//
// Emission is synchronous and single-threaded by contract; no locking is
// attempted here, matching that contract.
package events

import (
	"reflect"
	"time"

	"github.com/joshuapare/plcmirror/pkg/model"
)

type listener struct {
	fn   func(model.Event)
	once bool
}

// Emitter is a single node's event hub with an optional parent to bubble to.
type Emitter struct {
	parent    *Emitter
	listeners map[string][]*listener
	source    model.SymbolNode
}

// New creates an Emitter for source, bubbling unstopped events to parent.
// parent may be nil for a root (namespace) node.
func New(source model.SymbolNode, parent *Emitter) *Emitter {
	return &Emitter{source: source, parent: parent, listeners: make(map[string][]*listener)}
}

// On registers a persistent listener for event.
func (e *Emitter) On(event string, fn func(model.Event)) {
	e.listeners[event] = append(e.listeners[event], &listener{fn: fn})
}

// Once registers a listener that removes itself after its first firing.
func (e *Emitter) Once(event string, fn func(model.Event)) {
	e.listeners[event] = append(e.listeners[event], &listener{fn: fn, once: true})
}

// Off removes every listener registered for event whose underlying function
// value matches fn (compared by code pointer, since Go funcs aren't
// otherwise comparable).
func (e *Emitter) Off(event string, fn func(model.Event)) {
	ls := e.listeners[event]
	filtered := ls[:0]
	target := funcPtr(fn)
	for _, l := range ls {
		if funcPtr(l.fn) != target {
			filtered = append(filtered, l)
		}
	}
	e.listeners[event] = filtered
}

// Emit fires event on this emitter (running listeners in registration
// order, removing "once" listeners as they fire) then, unless a listener
// stopped propagation, bubbles to the parent with the same event struct
// (so a Stop() call anywhere in the chain halts the rest of the walk).
func (e *Emitter) Emit(name string, payload any, ctx any) {
	ev := model.Event{
		Name:      name,
		Timestamp: now(),
		Context:   ctx,
		Source:    e.source,
		Payload:   payload,
	}
	e.emit(&ev)
}

// emit runs the listener chain for an in-flight event, used internally so a
// single Event value (and its PropagationStopped flag) is shared across the
// whole bubble walk.
func (e *Emitter) emit(ev *model.Event) {
	cur := e
	for cur != nil {
		cur.runListeners(ev)
		if ev.PropagationStopped {
			return
		}
		cur = cur.parent
	}
}

func (e *Emitter) runListeners(ev *model.Event) {
	ls := e.listeners[ev.Name]
	if len(ls) == 0 {
		return
	}
	remaining := ls[:0]
	for _, l := range ls {
		l.fn(*ev)
		if ev.PropagationStopped {
			// still need to retain not-yet-fired listeners for next time
			remaining = append(remaining, l)
			continue
		}
		if !l.once {
			remaining = append(remaining, l)
		}
	}
	e.listeners[ev.Name] = remaining
}

// now is a seam so tests can freeze time if ever needed; production simply
// delegates to time.Now.
var now = time.Now

// funcPtr extracts the code pointer of a func value for identity comparison.
func funcPtr(fn func(model.Event)) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
