// Package rpc provides the client and server side of the line-json key-value
// protocol.
//
// The package is organized into several subpackages:
//
//   - common: Request/Response types, configuration structures and logging.
//
//   - serializer: json encoding of requests and responses.
//
//   - transport: connection handling and framing (base) with the tcp connector.
//
//   - client: the protocol client used by the virtual users. It never fails,
//     every error is turned into an ERROR response.
//
//   - server: an in-memory reference store speaking the same protocol.
package rpc
