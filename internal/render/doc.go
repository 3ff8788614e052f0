// Package render implements the sprite renderer that visualizes simulation
// state at a fixed frame budget, independent of how often the engine steps.
//
// ARCHITECTURE:
//
// Frame budget:
// The renderer registers one callback with a scheduler. Each callback adds
// the elapsed time to an accumulator; only when the accumulator reaches the
// render interval (1s / targetFPS) are animation frames advanced and the
// scene redrawn. All other callbacks are no-ops. Stats reports both counts so
// the throttling can be verified.
//
// Scene objects:
// Objects are derived from components but are not components. A Binder maps
// a component's state snapshots onto one object; particles are ephemeral
// objects with a TTL and no backing machine.
//
// Surfaces:
// Drawing goes through the Surface interface (Clear, DrawSprite, Present).
// RecordingSurface captures frames for tests; TerminalSurface draws a
// character grid styled with lipgloss.
//
// The renderer never mutates engine state. It is not safe for concurrent
// use; the scheduler must call it from the same goroutine as the engine.
package render
