// Package harness runs a load test: it spawns the configured number of
// virtual users at a fixed rate (go.uber.org/ratelimit), runs each of them
// in its own goroutine of an errgroup and stops them all once the run time
// is over or the context is cancelled. Stopping a user closes its connection.
//
// The only state shared between users is the stats.Collector, which also
// provides the final report and the periodic progress log.
package harness
