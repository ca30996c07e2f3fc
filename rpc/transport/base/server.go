package base

import (
	"bufio"
	"errors"
	"fmt"
	"github.com/ValentinKolb/kvload/rpc/common"
	"github.com/ValentinKolb/kvload/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// defaultMaxRequestSize is used when the config does not limit the request size
	defaultMaxRequestSize = 64 * 1024
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig

	mu       sync.Mutex
	listener net.Listener

	conns   *xsync.MapOf[uint64, net.Conn]
	nextID  atomic.Uint64
	closing atomic.Bool
	wg      sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		conns:     xsync.NewMapOf[uint64, net.Conn](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	t.mu.Lock()
	t.listener = listener
	t.mu.Unlock()

	Logger.Infof("Listening for %s connections on %s", t.connector.GetName(), listener.Addr())
	return nil
}

func (t *serverTransport) Serve() error {
	listener := t.currentListener()
	if listener == nil {
		return fmt.Errorf("server is not listening")
	}
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.closing.Load() || errors.Is(err, net.ErrClosed) {
				t.wg.Wait()
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
			Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
		}

		// Handle the connection in a goroutine
		id := t.nextID.Add(1)
		t.conns.Store(id, conn)
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			defer t.conns.Delete(id)
			t.handleConnection(conn)
		}()
	}
}

func (t *serverTransport) Addr() net.Addr {
	listener := t.currentListener()
	if listener == nil {
		return nil
	}
	return listener.Addr()
}

func (t *serverTransport) Close() error {
	if t.closing.Swap(true) {
		return nil
	}

	var err error
	if listener := t.currentListener(); listener != nil {
		err = listener.Close()
	}

	// Close all open connections, their handlers return on the read error
	t.conns.Range(func(_ uint64, conn net.Conn) bool {
		_ = conn.Close()
		return true
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *serverTransport) currentListener() net.Listener {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listener
}

// handleConnection handles the requests of one connection strictly in order:
// one request line in, one response frame out
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer conn.Close()

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	maxSize := t.config.MaxRequestSize
	if maxSize <= 0 {
		maxSize = defaultMaxRequestSize
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, readChunkSize), maxSize)

	for {
		if timeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set read deadline: %v", err)
				return
			}
		}

		if !scanner.Scan() {
			err := scanner.Err()
			switch {
			case err == nil, errors.Is(err, io.EOF):
				Logger.Debugf("Connection closed by client %s", conn.RemoteAddr())
			case t.closing.Load():
			default:
				Logger.Errorf("Error reading request from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		start := time.Now()
		resp := t.handler(line)
		Logger.Debugf("Processed request from %s in %s", conn.RemoteAddr(), time.Since(start))

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}

		if _, err := conn.Write(resp); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
			return
		}
	}
}
