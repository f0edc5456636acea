// Package binding implements the read/write/clear/subscribe mechanics the
// symbol graph wires each SymbolNode to. A Binding knows how to move bytes
// for one address range and TypeNode; it has no notion of path, parent, or
// event emission — that belongs to the symbol graph layer above it.
//
// Leaf bindings (boolean/numeric/string/enum) talk to the transport
// directly. Composite bindings (struct/array/namespace) fan requests out to
// their children and assemble the result, splitting any request whose
// pointer count exceeds model.RequestCap into multiple transport calls.
package binding
