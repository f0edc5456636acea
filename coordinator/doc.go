// Package coordinator owns the end-to-end lifecycle over a single
// transport: connect, resolve the type catalogue, build the symbol graph,
// and watch for the controller source changing underneath it.
//
// A Coordinator is the only thing that opens or closes the transport; the
// type registry and symbol graph it builds are handed out read-only to
// callers and torn down, children-first, on Kill.
package coordinator
