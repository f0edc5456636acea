// Package symbolgraph builds the tree of SymbolNodes the coordinator hands
// out to callers: one NamespaceSym per top-level namespace, composed of
// struct/array/leaf symbols that each wrap exactly one binding.Binding plus
// the path and event emitter the binding layer itself knows nothing about.
//
// Construction is two-phase. First the raw symbol catalogue is partitioned
// by namespace and, for each entry whose type resolves, a binding.Binding
// tree is built in memory (no transport I/O) concurrently with every other
// entry. Once every goroutine has joined, the per-namespace binding lists
// are assembled into NamespaceBindings and wrapped, single-threaded, into
// the final SymbolNode tree — so no locking is needed around the namespace
// table despite the concurrent construction phase.
package symbolgraph
