// Package user implements the virtual user of the load generator.
//
// A virtual user owns one protocol client and one key registry and runs two
// weighted tasks (2:1 by default), chosen independently on every tick:
//
//   - set_key: writes key_<unix millis> with value_<1..1000> (or a random
//     payload of a configured size), remembers the key and emits an event.
//
//   - get_key: reads a key this user wrote before, chosen uniformly at random.
//     If nothing was written yet the task does nothing and emits nothing.
//
// Lifecycle:
//
//	STOPPED -> OnStart (eager connect) -> RUNNING -> ticks -> OnStop (close) -> STOPPED
//
// A failed connect is not fatal. Every failure ends up in the emitted
// events, the next request reconnects lazily.
package user
