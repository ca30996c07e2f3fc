// Package base provides the foundation of the transport layer, implementing
// connection handling and framing independent of the socket type. It is
// extended with protocol-specific connectors (see the tcp package).
//
// The package focuses on:
//   - A single persistent client connection with lazy connect
//   - Request framing (json + '\n') and response framing (end of json object)
//   - A line based server transport for the reference store
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     (dialing, listening, socket options).
//
//   - clientTransport: owns exactly one connection. Send connects lazily if no
//     connection is open, writes one frame and blocks until one response frame
//     is read. Requests are strictly sequential, there is no pipelining. After
//     any failure (write error, read error, peer close) the connection is closed
//     and forgotten, so the next Send opens a new one. Send is never retried.
//
//   - frameReader: reads response frames in chunks of 1 KiB. Two modes exist:
//
//     balanced: a strict incremental scanner that tracks the nesting depth of
//     the json object and ignores braces inside strings (including escaped
//     quotes). A frame ends exactly at the brace that closes the outer object,
//     regardless of how the stream is split into reads.
//
//     brace: the frame is complete as soon as the received bytes end with '}'.
//     This mirrors simple clients of the store but misframes responses whose
//     strings contain '}' at a read boundary.
//
//     In both modes a peer close ends the frame; whatever was received is
//     returned and parsing decides whether it is usable.
//
//   - serverTransport: accepts connections and handles each in its own
//     goroutine. Requests are read line by line, the handler's response is
//     written back without a delimiter.
//
// Thread Safety:
//
//	Close may be called concurrently with Send, which unblocks a Send waiting
//	for a response. Concurrent Send calls are serialized.
package base
