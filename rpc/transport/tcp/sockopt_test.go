//go:build unix

package tcp

import (
	"errors"
	"github.com/ValentinKolb/kvload/rpc/common"
	"io"
	"net"
	"syscall"
	"testing"
	"time"
)

// noDelay reads TCP_NODELAY from the socket of conn
func noDelay(t *testing.T, conn net.Conn) bool {
	t.Helper()
	raw, err := conn.(*net.TCPConn).SyscallConn()
	if err != nil {
		t.Fatalf("SyscallConn() error = %v", err)
	}

	var value int
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		value, sockErr = syscall.GetsockoptInt(int(fd), syscall.IPPROTO_TCP, syscall.TCP_NODELAY)
	}); err != nil {
		t.Fatalf("Control() error = %v", err)
	}
	if sockErr != nil {
		t.Fatalf("getsockopt(TCP_NODELAY) error = %v", sockErr)
	}
	return value != 0
}

// dialUpgraded connects with the client connector and applies config
func dialUpgraded(t *testing.T, addr string, config common.ClientConfig) net.Conn {
	t.Helper()
	connector := &clientConnector{}
	conn, err := connector.Connect(addr, time.Second)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := connector.UpgradeConnection(conn, config); err != nil {
		_ = conn.Close()
		t.Fatalf("UpgradeConnection() error = %v", err)
	}
	return conn
}

// TestNoDelayByDefault checks that a zero value config disables Nagle's algorithm
func TestNoDelayByDefault(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer listener.Close()
	addr := listener.Addr().String()

	tests := []struct {
		name     string
		config   common.ClientConfig
		expected bool
	}{
		{"zero value", common.ClientConfig{Endpoint: addr}, true},
		{"default config", common.DefaultClientConfig(addr), true},
		{"nagle enabled", common.ClientConfig{Endpoint: addr, TCPConf: common.TCPConf{TCPDelay: true}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dialUpgraded(t, addr, tt.config)
			defer conn.Close()
			if got := noDelay(t, conn); got != tt.expected {
				t.Errorf("TCP_NODELAY = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestCloseIsGraceful checks that closing a zero value configured transport
// ends the connection with EOF at the peer instead of a reset
func TestCloseIsGraceful(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()

	tr := NewTCPClientTransport(common.ClientConfig{Endpoint: listener.Addr().String()})
	if err := tr.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	peer := <-accepted
	defer peer.Close()

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	_ = peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = peer.Read(make([]byte, 1))
	if !errors.Is(err, io.EOF) {
		t.Errorf("peer read after Close = %v, want EOF", err)
	}
}
