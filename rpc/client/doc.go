// Package client implements the protocol client for the line-delimited json
// key-value store.
//
// The package focuses on:
//   - Sending requests over a single persistent connection
//   - Integration with the transport and serialization layers
//   - Converting every failure into a response so callers never handle errors
//
// Key Components:
//
//   - Client: owns one transport (one connection) and one serializer. Send
//     serializes the request, lets the transport write it as one frame and
//     read one response frame, and decodes the response. Connect errors,
//     write/read errors, a peer closing the connection and undecodable
//     responses all yield {"status":"ERROR","message":<description>}.
//     Callers only inspect the status of the response.
//
// Usage Example:
//
//	c := client.NewTCPClient(common.DefaultClientConfig("127.0.0.1:7171"))
//	defer c.Close()
//
//	resp := c.Send(common.NewSetRequest("key_1000", "value_42"))
//	if !resp.Ok() {
//		fmt.Println("set failed:", resp.Message)
//	}
//
// Thread Safety:
//
//	A Client may be shared between goroutines, but requests are serialized:
//	the protocol allows only one request in flight per connection.
package client
