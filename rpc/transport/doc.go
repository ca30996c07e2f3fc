// Package transport defines the interfaces between the protocol client / reference
// store and the network. Implementations live in the subpackages:
//
//   - base: connection handling and framing independent of the socket type
//   - tcp: tcp specific connectors (dialing, TCP_NODELAY, keep-alive, buffers)
package transport
