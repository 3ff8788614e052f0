// Package engine implements the discrete-event simulation engine that drives
// the pipeline visualization.
//
// The engine owns a registry of components (each wrapping a private
// fsm.Machine and an optional visual binding) and a single time-ordered event
// queue. Hosts schedule state transitions as future events; Step processes
// every event that is due, in timestamp order.
//
// ARCHITECTURE:
//
// Single logical thread:
// All engine state (registry, queue, machine states) is mutated only inside
// Step or inside direct synchronous API calls made from the same thread. There
// is no locking. The scheduler that drives Step must call it from one
// goroutine.
//
// Event Processing Flow:
//  1. ScheduleEvent computes fireAt = now + delay/speed once, at call time
//  2. The event is inserted into the queue keeping (fireAt, seq) order
//  3. Step(now) pops every event with fireAt <= now
//  4. The target machine transitions; its listener (installed at registration)
//     pushes a snapshot to the visual binding, emits stateChange and schedules
//     dependent events from the chaining table
//  5. eventProcessed is emitted
//
// Ordering:
// Events with earlier fireAt always fire first. Ties are broken by a
// monotonic insertion sequence, so equal-time events fire in the order they
// were scheduled.
//
// Errors:
// Unknown components, invalid transitions and quota overruns are logged,
// delivered on the error notification channel and otherwise skipped. Nothing
// inside the engine aborts the run loop.
package engine
