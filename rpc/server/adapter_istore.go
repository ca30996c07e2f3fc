package server

import (
	"github.com/ValentinKolb/kvload/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	msgInserted      = "Key inserted/updated successfully."
	msgTooLong       = "Key or value exceeds 256 characters."
	msgMissingKey    = "Missing 'key' parameter."
	msgKeyNotFound   = "not found"
	msgInvalidFormat = "invalid request"
)

// --------------------------------------------------------------------------
// In-memory store
// --------------------------------------------------------------------------

// memStore is a concurrent in-memory IStore
type memStore struct {
	data *xsync.MapOf[string, string]
}

// NewMemStore creates a new empty in-memory store
func NewMemStore() IStore {
	return &memStore{data: xsync.NewMapOf[string, string]()}
}

func (m *memStore) Set(key, value string) {
	m.data.Store(key, value)
}

func (m *memStore) Get(key string) (string, bool) {
	return m.data.Load(key)
}

func (m *memStore) Len() int {
	return m.data.Size()
}

// --------------------------------------------------------------------------
// Store adapter
// --------------------------------------------------------------------------

// NewIStoreServerAdapter creates the adapter that serves SET and GET requests
func NewIStoreServerAdapter() IRPCServerAdapter {
	return &storeAdapter{}
}

type storeAdapter struct{}

func (a *storeAdapter) Handle(req *common.Request, store IStore) *common.Response {
	if req.Key == "" {
		return common.NewErrorResponse(msgMissingKey)
	}

	// Case SET
	if req.IsSet() {
		if len(req.Key) > common.MaxKeyLength || len(*req.Value) > common.MaxValueLength {
			return common.NewErrorResponse(msgTooLong)
		}
		store.Set(req.Key, *req.Value)
		return common.NewOKResponse(msgInserted)
	}

	// Case GET
	value, ok := store.Get(req.Key)
	if !ok {
		return common.NewErrorResponse(msgKeyNotFound)
	}
	return common.NewValueResponse(req.Key, value)
}
