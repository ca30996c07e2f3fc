package client

import (
	"fmt"
	"github.com/ValentinKolb/kvload/rpc/common"
	"github.com/ValentinKolb/kvload/rpc/serializer"
	"github.com/ValentinKolb/kvload/rpc/transport"
	"github.com/ValentinKolb/kvload/rpc/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// Client is the protocol client for the line-delimited json store.
// It owns exactly one connection (through its transport) and never returns
// transport or protocol failures as errors from Send: every failure becomes
// a response with status ERROR.
type Client struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// NewClient creates a new client using the given transport and serializer.
// No connection is opened; call Connect or let the first Send connect lazily.
func NewClient(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) *Client {
	return &Client{
		config:     config,
		transport:  transport,
		serializer: serializer,
	}
}

// NewTCPClient creates a client for the configured endpoint using the tcp
// transport and the json serializer
func NewTCPClient(config common.ClientConfig) *Client {
	return NewClient(config, tcp.NewTCPClientTransport(config), serializer.NewJSONSerializer())
}

// Connect opens a new connection to the configured endpoint.
// The error is returned to the caller as is, there is no retry.
func (c *Client) Connect() error {
	return c.transport.Connect()
}

// Send sends one request and blocks until its response is received.
// If no connection is open Send connects first.
// Any failure is converted into a response with status ERROR and a description as message.
func (c *Client) Send(req *common.Request) *common.Response {
	if req == nil {
		return c.errorResponse(common.ErrNilRequest)
	}

	// Serialize the request
	reqBytes, err := c.serializer.SerializeRequest(req)
	if err != nil {
		return c.errorResponse(fmt.Errorf("failed to serialize request: %w", err))
	}

	// Send the request
	respBytes, err := c.transport.Send(reqBytes)
	if err != nil {
		Logger.Debugf("%s failed: %v", req, err)
		return c.errorResponse(err)
	}

	// Deserialize the response
	resp := &common.Response{}
	if err := c.serializer.DeserializeResponse(respBytes, resp); err != nil {
		Logger.Debugf("%s returned an invalid response (%d bytes): %v", req, len(respBytes), err)
		return c.errorResponse(fmt.Errorf("failed to decode response: %w", err))
	}
	resp.Size = len(respBytes)

	return resp
}

// Close closes the connection if it is open. It is safe to call Close multiple times.
func (c *Client) Close() error {
	return c.transport.Close()
}

// Endpoint returns the configured endpoint
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// errorResponse converts err into a response with status ERROR
func (c *Client) errorResponse(err error) *common.Response {
	resp := common.NewErrorResponse(err.Error())
	if b, serr := c.serializer.SerializeResponse(resp); serr == nil {
		resp.Size = len(b)
	}
	return resp
}
