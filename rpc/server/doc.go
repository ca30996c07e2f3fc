// Package server implements a reference key-value store that speaks the
// line-delimited json protocol. It is used to run kvload locally and as the
// peer in integration tests.
//
// Key Components:
//
//   - Server: decodes one request per line, applies it to the store via the
//     adapter and writes the encoded response back (terminated by the closing
//     brace, no delimiter).
//
//   - storeAdapter: SET stores the value (key and value are limited to 256
//     characters), GET returns the key and value or {"status":"ERROR",
//     "message":"not found"}. A request without key is rejected.
//
//   - memStore: in-memory IStore backed by xsync.MapOf, safe for concurrent
//     use by all connections.
package server
