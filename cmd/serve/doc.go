// Package serve implements the "kvload serve" command, which starts the
// in-memory reference store.
package serve
