// Package typeregistry resolves the controller's flat catalogue of raw type
// descriptors into a canonical, cycle-free registry of bindable TypeNodes
// with inherited attributes.
//
// The resolver is recursive-with-memoization; registration is re-entrant and
// idempotent. Raw-catalogue entries that resolve to nothing are deleted so
// they cannot be retried, which both short-circuits repeated walks of a
// pointer/reference type and terminates pathological cycles.
package typeregistry
