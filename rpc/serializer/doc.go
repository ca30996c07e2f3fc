// Package serializer converts requests and responses of the store protocol to
// and from their wire representation.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - jsonSerializerImpl: json implementation backed by goccy/go-json, a drop-in
//     replacement for encoding/json. Requests are encoded canonically: fields in
//     declaration order ("key" before "value") and no "value" field for GET
//     requests. The frame delimiter is not part of the serialized form; it is
//     appended by the transport layer.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s := serializer.NewJSONSerializer()
//	data, err := s.SerializeRequest(common.NewSetRequest("key_1", "value_42"))
//	// ... send data ...
//	var resp common.Response
//	err = s.DeserializeResponse(receivedData, &resp)
package serializer
