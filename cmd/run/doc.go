// Package run implements the "kvload run" command, which drives a store
// with virtual users and prints the final report.
package run
