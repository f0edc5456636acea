// Package fakebus is a from-scratch, in-memory model.Transport used by
// tests, the plcmirrorctl demo subcommand, and the coordinator package
// example — never a socket, never production scaffolding.
//
// NewMainProgram seeds a small "Quick Look" fixture: a MAIN program exposing
// booleanValue, numericValue, structuredValue{realValue, stringValue}, and a
// ten-element arrayValue of strings.
package fakebus
