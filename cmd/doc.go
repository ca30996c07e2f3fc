// Package cmd implements the command-line interface of kvload.
//
// The package is organized into several subpackages:
//
//   - run: Runs a load test against a store and prints the report
//   - serve: Starts the in-memory reference store
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See kvload -help for a list of all commands.
package cmd
