package model

import "context"

// SymbolNode is the user-visible handle the symbol graph hands out. It wraps
// exactly one Binding and a possibly-empty ordered child table.
//
// Declared here, implemented by the binding and symbolgraph packages, so
// model has no dependency on either — callers program against this
// interface, not against concrete node types.
type SymbolNode interface {
	// Path is the fully-qualified, dotted path of this node.
	Path() string
	// ReadOnly reports whether this node (or an ancestor) is read-only.
	ReadOnly() bool
	// Valid reports whether this node's binding has not been invalidated.
	Valid() bool

	// Get reads the node's current decoded value from the controller.
	Get(ctx context.Context) (any, error)
	// Set encodes and writes value, returning the value actually written.
	Set(ctx context.Context, value any) (any, error)
	// Clear restores the node's (and, for composites, its descendants')
	// default value, skipping read-only descendants.
	Clear(ctx context.Context) error
	// Subscribe installs a change notifier; idempotent.
	Subscribe(ctx context.Context, sampleIntervalMillis int, cb func(any)) error
	// Unsubscribe removes the change notifier; idempotent.
	Unsubscribe(ctx context.Context) error

	// OnInvalidated registers a callback fired exactly once, when this node's
	// binding is invalidated.
	OnInvalidated(cb func())

	// On registers a listener for one of the four lifecycle events (or their
	// attribute-renamed alias): "set", "get", "cleared", "changed".
	On(event string, listener func(Event))
	// Once registers a listener that fires at most once.
	Once(event string, listener func(Event))
	// Off removes a previously registered listener.
	Off(event string, listener func(Event))
}

// CompositeSymbol is the extra surface struct/array/namespace nodes expose:
// keyed child access and ordered iteration.
type CompositeSymbol interface {
	SymbolNode
	// Child returns the named child (struct member, namespace entry, or RPC
	// method alias), or (nil, false) if no such child exists.
	Child(key string) (SymbolNode, bool)
	// Index returns the array element at the given caller-facing index
	// (already offset by startIndex internally), or (nil, false).
	Index(i int) (SymbolNode, bool)
	// Each iterates children in declaration order; returning a non-nil error
	// aborts the walk.
	Each(fn func(key string, n SymbolNode) error) error
}

// MethodInvoker is implemented by struct nodes that expose RPC methods.
type MethodInvoker interface {
	CallMethod(ctx context.Context, methodName string, args []any) (result any, outputs []any, err error)
}

// ReservedPrefix disambiguates engine-reserved child keys (e.g. an RPC
// method alias or a future reserved operation) from controller-legal
// identifiers.
const ReservedPrefix = "$"
