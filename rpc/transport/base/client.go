package base

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/kvload/rpc/common"
	"github.com/ValentinKolb/kvload/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"sync"
	"time"
)

var Logger = logger.GetLogger("transport")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	// A timeout of 0 means the dial does not time out
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientConnection is one open connection with its frame reader
type clientConnection struct {
	conn   net.Conn
	reader *frameReader
}

// clientTransport implements a single persistent client connection
// independent of the specific transport medium
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig

	sendMu sync.Mutex // at most one request in flight
	connMu sync.Mutex // protects current
	// current is nil while disconnected
	current *clientConnection
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector.
// No connection is opened until Connect or Send is called.
func NewBaseClientTransport(connector IClientConnector, config common.ClientConfig) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
		config:    config,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect() error {
	_, err := t.reconnect()
	return err
}

func (t *clientTransport) Send(req []byte) ([]byte, error) {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	// Lazy connect on first use (or after the previous connection was dropped)
	c := t.connection()
	if c == nil {
		var err error
		if c, err = t.reconnect(); err != nil {
			return nil, err
		}
	}

	// Set deadline for the whole round trip
	if t.config.TimeoutSecond > 0 {
		timeout := time.Duration(t.config.TimeoutSecond) * time.Second
		if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			t.drop(c)
			return nil, fmt.Errorf("failed to set deadline: %w", err)
		}
	}

	if err := writeFrame(c.conn, req); err != nil {
		t.drop(c)
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	frame, closed, err := c.reader.readFrame(c.conn)
	if err != nil {
		t.drop(c)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// The peer closed the connection, the next Send reconnects
	if closed {
		Logger.Debugf("Connection to %s closed by peer after %d bytes", t.config.Endpoint, len(frame))
		t.drop(c)
		if len(bytes.TrimSpace(frame)) == 0 {
			return nil, common.ErrEmptyResponse
		}
	}

	return frame, nil
}

func (t *clientTransport) Connected() bool {
	return t.connection() != nil
}

func (t *clientTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.current == nil {
		return nil
	}
	err := t.current.conn.Close()
	t.current = nil
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// connection returns the current connection or nil
func (t *clientTransport) connection() *clientConnection {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.current
}

// reconnect closes the current connection (if any) and opens a new one
func (t *clientTransport) reconnect() (*clientConnection, error) {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	// Close the old connection if it exists
	if t.current != nil {
		_ = t.current.conn.Close()
		t.current = nil
	}

	// Connect to the endpoint
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second
	conn, err := t.connector.Connect(t.config.Endpoint, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", t.config.Endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", t.config.Endpoint, err)
	}

	t.current = &clientConnection{
		conn:   conn,
		reader: newFrameReader(t.config.Framing, t.config.MaxFrameSize),
	}
	Logger.Debugf("Connected to %s using %s transport", t.config.Endpoint, t.connector.GetName())

	return t.current, nil
}

// drop closes c and forgets it, unless it was already replaced
func (t *clientTransport) drop(c *clientConnection) {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	_ = c.conn.Close()
	c.reader.reset()
	if t.current == c {
		t.current = nil
	}
}
