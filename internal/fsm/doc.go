// Package fsm implements the table-driven finite state machines that back every
// pipeline component.
//
// A Definition is an immutable transition table for one component family
// (actor, buffer, processor, sink, sensor). A Machine is a private, mutable
// instance of a Definition: it tracks the current state, an append-only
// history, and a set of state-change listeners.
//
// CONVENTIONS:
//
// Every Definition produced by Builder.Build satisfies the error/reset
// convention:
//   - every state with outgoing transitions accepts ERROR and moves to the
//     dedicated ERROR state
//   - ERROR accepts RESET and moves back to the initial state
//
// Validate reports tables that break the convention (e.g. hand-built tables).
//
// Machines are not safe for concurrent use. The simulation engine mutates them
// from a single logical thread.
package fsm
