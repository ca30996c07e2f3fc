package base

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/kvload/rpc/common"
	"io"
	"net"
)

const (
	// readChunkSize is the number of bytes requested from the socket per read call
	readChunkSize = 1024
	// frameDelimiter terminates every request frame
	frameDelimiter = '\n'
)

// writeFrame writes a request frame to the connection with the format:
// - N bytes: serialized request
// - 1 byte:  '\n'
// Payload and delimiter are written with a single call
func writeFrame(conn net.Conn, data []byte) error {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, data...)
	buf = append(buf, frameDelimiter)

	_, err := conn.Write(buf)
	return err
}

// --------------------------------------------------------------------------
// Frame scanners
// --------------------------------------------------------------------------

// frameScanner detects the end of a response frame in a stream of chunks
type frameScanner interface {
	// scan consumes the next chunk and returns the offset just past the end of
	// the frame within p, or -1 if the frame is not complete yet
	scan(p []byte) (end int, err error)
}

// newFrameScanner returns a fresh scanner for the given framing mode
func newFrameScanner(mode common.FramingMode) frameScanner {
	if mode == common.FramingBrace {
		return braceScanner{}
	}
	return &balancedScanner{}
}

// braceScanner treats the frame as complete as soon as the received bytes end with '}'.
// A '}' inside a string that happens to end a read splits the frame.
type braceScanner struct{}

func (braceScanner) scan(p []byte) (int, error) {
	if len(p) > 0 && p[len(p)-1] == '}' {
		return len(p), nil
	}
	return -1, nil
}

// balancedScanner tracks the nesting depth of the json object and ignores
// braces inside quoted strings. Leading whitespace is skipped.
type balancedScanner struct {
	depth    int
	started  bool
	inString bool
	escaped  bool
}

func (s *balancedScanner) scan(p []byte) (int, error) {
	for i, c := range p {
		if !s.started {
			switch c {
			case ' ', '\t', '\r', '\n':
				continue
			case '{':
				s.started = true
				s.depth = 1
				continue
			default:
				return -1, fmt.Errorf("%w: unexpected byte %q before json object", common.ErrMalformedFrame, c)
			}
		}

		if s.inString {
			switch {
			case s.escaped:
				s.escaped = false
			case c == '\\':
				s.escaped = true
			case c == '"':
				s.inString = false
			}
			continue
		}

		switch c {
		case '"':
			s.inString = true
		case '{', '[':
			s.depth++
		case '}', ']':
			s.depth--
			if s.depth == 0 {
				return i + 1, nil
			}
		}
	}
	return -1, nil
}

// --------------------------------------------------------------------------
// Frame reader
// --------------------------------------------------------------------------

// frameReader reads response frames from one connection.
// Bytes received after the end of a frame are kept for the next call.
type frameReader struct {
	mode    common.FramingMode
	maxSize int
	chunk   []byte
	pending []byte
}

func newFrameReader(mode common.FramingMode, maxSize int) *frameReader {
	return &frameReader{
		mode:    mode,
		maxSize: maxSize,
		chunk:   make([]byte, readChunkSize),
	}
}

// readFrame reads until the scanner reports a complete frame or the peer closes the connection.
// closed reports whether the peer closed the connection, in that case frame holds
// everything accumulated so far (possibly nothing or an incomplete object).
func (r *frameReader) readFrame(conn net.Conn) (frame []byte, closed bool, err error) {
	scanner := newFrameScanner(r.mode)
	var acc []byte

	// feed passes a chunk to the scanner and reports whether the frame is complete
	feed := func(p []byte) (bool, error) {
		end, err := scanner.scan(p)
		if err != nil {
			return false, err
		}
		if end < 0 {
			acc = append(acc, p...)
			if r.maxSize > 0 && len(acc) > r.maxSize {
				return false, common.ErrFrameTooLarge
			}
			return false, nil
		}
		acc = append(acc, p[:end]...)
		if rest := bytes.TrimLeft(p[end:], " \t\r\n"); len(rest) > 0 {
			r.pending = append([]byte(nil), rest...)
		}
		return true, nil
	}

	// first consume what is left over from the previous frame
	if len(r.pending) > 0 {
		p := r.pending
		r.pending = nil
		done, err := feed(p)
		if err != nil {
			return nil, false, err
		}
		if done {
			return acc, false, nil
		}
	}

	for {
		n, readErr := conn.Read(r.chunk)
		if n > 0 {
			done, err := feed(r.chunk[:n])
			if err != nil {
				return nil, false, err
			}
			if done {
				return acc, false, nil
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return acc, true, nil
			}
			return nil, false, readErr
		}
	}
}

// reset drops all buffered bytes, used when the underlying connection is replaced
func (r *frameReader) reset() {
	r.pending = nil
}
