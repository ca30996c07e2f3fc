package transport

import (
	"github.com/ValentinKolb/kvload/rpc/common"
	"net"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer once per request frame
// and must return exactly one response frame
type ServerHandleFunc func(req []byte) (resp []byte)

// IRPCServerTransport is the interface for the server side of the transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called for every request received
	RegisterHandler(handler ServerHandleFunc)
	// Listen binds the listener, it does not block
	Listen(config common.ServerConfig) error
	// Serve accepts connections until Close is called
	Serve() error
	// Addr returns the address of the listener (nil before Listen)
	Addr() net.Addr
	// Close stops the listener and closes all open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for a single client connection
type IRPCClientTransport interface {
	// Connect opens a new connection, replacing an existing one
	Connect() error
	// Send writes one request frame and returns the raw bytes of one response frame.
	// If no connection is open, Send connects first.
	Send(req []byte) (resp []byte, err error)
	// Connected reports whether a connection is currently open
	Connected() bool
	// Close closes the connection, calling it multiple times is safe
	Close() error
}
