package server

import (
	"github.com/ValentinKolb/kvload/rpc/common"
)

// IStore is the storage used by the reference server
type IStore interface {
	// Set inserts or updates a key–value pair
	Set(key, value string)
	// Get returns the value for a key and whether it was found
	Get(key string) (value string, loaded bool)
	// Len returns the number of stored keys
	Len() int
}

// IRPCServerAdapter is the interface for all server adapters
// It is responsible for turning one request into one response
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// If an error occurs, it is reported in the response
	Handle(req *common.Request, store IStore) (resp *common.Response)
}
