package serializer

import "github.com/ValentinKolb/kvload/rpc/common"

// IRPCSerializer is the interface for all request/response serializers
type IRPCSerializer interface {
	// SerializeRequest serializes a request into its canonical byte representation (without frame delimiter)
	SerializeRequest(req *common.Request) ([]byte, error)
	// DeserializeRequest deserializes a byte array into a request
	DeserializeRequest(b []byte, req *common.Request) error
	// SerializeResponse serializes a response into a byte array
	SerializeResponse(resp *common.Response) ([]byte, error)
	// DeserializeResponse deserializes a byte array into a response
	DeserializeResponse(b []byte, resp *common.Response) error
}
