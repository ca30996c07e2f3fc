package server

import (
	"fmt"
	"github.com/ValentinKolb/kvload/rpc/common"
	"github.com/ValentinKolb/kvload/rpc/serializer"
	"github.com/ValentinKolb/kvload/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"net"
)

var Logger = logger.GetLogger("server")

// NewRPCServer creates a new reference store server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *Server {
	s := &Server{
		config:     config,
		transport:  transport,
		serializer: serializer,
		store:      NewMemStore(),
		adapter:    NewIStoreServerAdapter(),
	}
	s.registerTransportHandler()
	return s
}

// Server serves the line-delimited json protocol from an in-memory store
type Server struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	store      IStore
	adapter    IRPCServerAdapter
}

func (s *Server) registerTransportHandler() {
	s.transport.RegisterHandler(s.Handle)
}

// Handle decodes one request, applies it to the store and returns the encoded response
func (s *Server) Handle(req []byte) []byte {
	var msg common.Request
	var respMsg *common.Response

	if err := s.serializer.DeserializeRequest(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("%s: %s", msgInvalidFormat, err))
	} else {
		respMsg = s.adapter.Handle(&msg, s.store)
	}

	val, err := s.serializer.SerializeResponse(respMsg)
	if err != nil {
		Logger.Errorf("Failed to serialize response: %v", err)
		return []byte(`{"status":"ERROR","message":"failed to serialize response"}`)
	}
	return val
}

// Listen binds the listener without serving requests yet
func (s *Server) Listen() error {
	return s.transport.Listen(s.config)
}

// Serve binds the listener (if Listen was not called before) and serves requests until Close is called
func (s *Server) Serve() error {
	if s.transport.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	Logger.Infof("Serving store on %s", s.transport.Addr())
	return s.transport.Serve()
}

// Addr returns the address the server listens on (nil before Listen)
func (s *Server) Addr() net.Addr {
	return s.transport.Addr()
}

// Len returns the number of keys in the store
func (s *Server) Len() int {
	return s.store.Len()
}

// Close stops the server and closes all connections
func (s *Server) Close() error {
	return s.transport.Close()
}
