// Package tcp implements the TCP transport for kvload. It provides concrete
// implementations of the base package's connector interfaces.
//
// Every connection is upgraded right after it is established: Nagle's algorithm
// is disabled unless TCPDelay is set, because requests are small and each one
// waits for its response, and optional keep-alive, linger and socket buffer
// sizes are applied from the configuration.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
package tcp
