// Package common provides the data structures shared by every part of kvload:
// the wire protocol, configuration structures and the logging setup.
//
// The package focuses on:
//   - Request/response definition of the line-delimited json protocol
//   - Configuration structures for the protocol client and the reference store
//   - Custom logging implementation integrated with Dragonboat's logger facade
//
// Key Components:
//
//   - Request: a key and an optional value. The presence of the value decides
//     whether the store treats the request as SET or GET. The value is a pointer
//     so that an empty value is still a SET.
//
//   - Response: the status ("OK" or "ERROR"), an optional message and, for GET
//     responses, the key and value. Size records how many bytes the response
//     occupied on the wire and is never serialized.
//
//   - ClientConfig: endpoint, deadlines, framing mode and socket options for a
//     single protocol client.
//
//   - ServerConfig: configuration for the reference store used by the serve command.
//
//   - Logger: a custom ILogger for Dragonboat's logger package. All packages
//     obtain their loggers via logger.GetLogger(name); InitLoggers sets the
//     level for all of them at once.
package common
