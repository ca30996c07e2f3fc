package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Framing
// --------------------------------------------------------------------------

// FramingMode selects how the end of a response is detected on the wire
type FramingMode string

const (
	// FramingBalanced tracks brace depth and ignores braces inside strings
	FramingBalanced FramingMode = "balanced"
	// FramingBrace treats the response as complete once the received bytes end with '}'
	FramingBrace FramingMode = "brace"
)

// ParseFramingMode converts a string to a FramingMode
func ParseFramingMode(s string) (FramingMode, error) {
	switch FramingMode(strings.ToLower(strings.TrimSpace(s))) {
	case FramingBalanced, "":
		return FramingBalanced, nil
	case FramingBrace:
		return FramingBrace, nil
	default:
		return "", fmt.Errorf("invalid framing mode %q (expected one of: balanced, brace)", s)
	}
}

const (
	// DefaultMaxFrameSize is the default upper bound for a single response
	DefaultMaxFrameSize = 1024 * 1024 // 1 MiB
	// MaxKeyLength is the longest key accepted by the reference store
	MaxKeyLength = 256
	// MaxValueLength is the longest value accepted by the reference store
	MaxValueLength = 256
)

// --------------------------------------------------------------------------
// Socket settings
// --------------------------------------------------------------------------

// SocketConf holds settings that apply to every stream socket
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds settings that only apply to tcp sockets
type TCPConf struct {
	TCPDelay        bool // re-enables Nagle's algorithm, TCP_NODELAY is set unless this is true
	TCPKeepAliveSec int  // 0 keeps the os default
	TCPLingerSec    int  // 0 keeps the os default, > 0 sets SO_LINGER
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig configures a single protocol client (and thus a single connection)
type ClientConfig struct {
	// Endpoint is the host:port of the store
	Endpoint string
	// TimeoutSecond is applied as read/write deadline per request, 0 disables deadlines
	TimeoutSecond int
	// Framing selects how the end of a response is detected
	Framing FramingMode
	// MaxFrameSize limits the size of a single response, 0 disables the limit
	MaxFrameSize int

	SocketConf
	TCPConf
}

// DefaultClientConfig returns the configuration used when nothing else is specified
func DefaultClientConfig(endpoint string) ClientConfig {
	return ClientConfig{
		Endpoint:     endpoint,
		Framing:      FramingBalanced,
		MaxFrameSize: DefaultMaxFrameSize,
	}
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	if c.TimeoutSecond > 0 {
		addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	} else {
		addField("Timeout", "none")
	}
	addField("Framing", string(c.Framing))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))

	addSection("Socket")
	addField("TCP No Delay", strconv.FormatBool(!c.TCPDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.TCPLingerSec))
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))

	return sb.String()
}

// --------------------------------------------------------------------------
// Reference store configuration struct
// --------------------------------------------------------------------------

// ServerConfig configures the reference store
type ServerConfig struct {
	// Endpoint is the address the store listens on
	Endpoint string
	// TimeoutSecond is the idle timeout per connection, 0 disables it
	TimeoutSecond int
	// MaxRequestSize limits the length of a single request line
	MaxRequestSize int
	// LogLevel is the level at which logs will be output
	LogLevel string

	TCPConf
}

// String returns a formatted string representation of the server configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Store Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Request Size", fmt.Sprintf("%d bytes", c.MaxRequestSize))
	addField("TCP No Delay", strconv.FormatBool(!c.TCPDelay))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
