// Package model defines the data shapes and external contracts shared by
// the type registry, the binding layer, and the symbol graph builder.
//
// This package only exposes interfaces and core types. The recursive
// resolution algorithm lives in typeregistry, the read/write/clear/subscribe
// capability lives in binding, and the namespace tree lives in symbolgraph.
//
// Design goals:
//   - TypeNode and SymbolNode are closed sets of variants (tagged sums); a
//     new kind is added here deliberately, not discovered at runtime.
//   - Typed errors with stable categories.
//   - No dependency on any concrete transport; model.Transport is the only
//     seam to the outside world.
package model
