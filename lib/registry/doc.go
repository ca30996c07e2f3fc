// Package registry provides the per-user key registry of the load generator.
//
// Every SET request appends its key, every GET request draws a key uniformly
// at random. Keys are never shared between users and never removed, except
// when a capacity is configured, in which case the oldest keys are replaced.
package registry
